package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle holds the messages of every supported locale.
type Bundle struct {
	messages map[language.Tag]map[string]string
	builder  *catalog.Builder
}

//go:embed locales/*.yaml
var embeddedLocales embed.FS

var defaultBundle = mustLoad(embeddedLocales)

func mustLoad(fsys fs.FS) *Bundle {
	b, err := Load(fsys)
	if err != nil {
		panic(err)
	}
	return b
}

// Load reads locales/*.yaml from fsys. Every supported locale must be
// present and define the same keys as the default locale.
func Load(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	sort.Strings(paths)

	b := &Bundle{
		messages: make(map[language.Tag]map[string]string),
		builder:  catalog.NewBuilder(catalog.Fallback(defaultTag)),
	}
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		tag, ok := ParseTag(file.Locale)
		if !ok {
			return nil, fmt.Errorf("catalog %s: unsupported locale %q", path, file.Locale)
		}
		if _, exists := b.messages[tag]; exists {
			return nil, fmt.Errorf("catalog %s: locale %q defined twice", path, file.Locale)
		}
		b.messages[tag] = make(map[string]string, len(file.Messages))
		for key, msg := range file.Messages {
			key = strings.TrimSpace(key)
			if key == "" {
				return nil, fmt.Errorf("catalog %s: message key cannot be blank", path)
			}
			b.messages[tag][key] = msg
			if err := b.builder.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("catalog %s: key %q: %w", path, key, err)
			}
		}
	}

	base, ok := b.messages[defaultTag]
	if !ok {
		return nil, fmt.Errorf("default locale %s is not defined", defaultTag)
	}
	for _, tag := range supportedTags {
		msgs, ok := b.messages[tag]
		if !ok {
			return nil, fmt.Errorf("locale %s is not defined", tag)
		}
		for key := range base {
			if _, ok := msgs[key]; !ok {
				return nil, fmt.Errorf("locale %s is missing key %q", tag, key)
			}
		}
	}
	return b, nil
}

// Has reports whether key is a known message.
func (b *Bundle) Has(key string) bool {
	_, ok := b.messages[defaultTag][key]
	return ok
}

// Keys returns the message keys of the default locale, sorted.
func (b *Bundle) Keys() []string {
	keys := make([]string, 0, len(b.messages[defaultTag]))
	for key := range b.messages[defaultTag] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Printer returns a message printer for tag backed by this bundle.
func (b *Bundle) Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(b.builder))
}
