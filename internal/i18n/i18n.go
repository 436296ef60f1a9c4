package i18n

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the user's language preference.
	LangCookieName = "lang"
)

var defaultTag = language.English

var supportedTags = []language.Tag{
	language.English,
	language.French,
}

var tagMatcher = language.NewMatcher(supportedTags)

// Default returns the default language tag. It is served without a path prefix.
func Default() language.Tag {
	return defaultTag
}

// ParseTag returns the supported tag named by value ("fr", "fr-CA", "EN").
func ParseTag(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return language.Und, false
	}
	parsed, err := language.Parse(value)
	if err != nil {
		return language.Und, false
	}
	base, _ := parsed.Base()
	for _, tag := range supportedTags {
		if b, _ := tag.Base(); b == base {
			return tag, true
		}
	}
	return language.Und, false
}

// MatchTags picks the best supported tag for an Accept-Language list.
func MatchTags(tags []language.Tag) language.Tag {
	_, idx, conf := tagMatcher.Match(tags...)
	if conf == language.No {
		return defaultTag
	}
	return supportedTags[idx]
}

// SplitPath removes a locale prefix from path. Only non-default locales are
// prefixed: "/fr/auth/login" gives (fr, "/auth/login", true) and
// "/auth/login" gives (und, "/auth/login", false).
func SplitPath(path string) (language.Tag, string, bool) {
	trimmed := strings.TrimPrefix(path, "/")
	segment, rest, _ := strings.Cut(trimmed, "/")
	for _, tag := range supportedTags {
		if tag == defaultTag || segment != tag.String() {
			continue
		}
		return tag, "/" + rest, true
	}
	return language.Und, path, false
}

// Path returns path as served for tag: unchanged for the default locale,
// prefixed otherwise.
func Path(tag language.Tag, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if tag == defaultTag || tag == language.Und {
		return path
	}
	if path == "/" {
		return "/" + tag.String()
	}
	return "/" + tag.String() + path
}

// ResolveTag determines the language for a request whose path prefix has
// already been removed: the lang query parameter, then the lang cookie, then
// Accept-Language. The bool reports whether the query value should be
// persisted as a cookie.
func ResolveTag(r *http.Request) (language.Tag, bool) {
	if r == nil {
		return defaultTag, false
	}

	if tag, ok := ParseTag(r.URL.Query().Get(LangParam)); ok {
		return tag, true
	}

	if cookie, err := r.Cookie(LangCookieName); err == nil {
		if tag, ok := ParseTag(cookie.Value); ok {
			return tag, false
		}
	}

	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			return MatchTags(tags), false
		}
	}

	return defaultTag, false
}

// SetLanguageCookie persists the selected language on the response.
func SetLanguageCookie(w http.ResponseWriter, tag language.Tag) {
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

// Translator renders message keys in one language.
type Translator struct {
	tag     language.Tag
	bundle  *Bundle
	printer *message.Printer
}

// NewTranslator returns a Translator for tag using the embedded catalogs.
func NewTranslator(tag language.Tag) *Translator {
	if _, ok := defaultBundle.messages[tag]; !ok {
		tag = defaultTag
	}
	return &Translator{
		tag:     tag,
		bundle:  defaultBundle,
		printer: defaultBundle.Printer(tag),
	}
}

// Get returns the message for key formatted with args. A key without a
// message is returned as it is, so text that is already human readable
// (such as API validation messages) passes through.
func (t *Translator) Get(key string, args ...interface{}) string {
	if !t.bundle.Has(key) {
		return key
	}
	return t.printer.Sprintf(key, args...)
}

func (t *Translator) Has(key string) bool {
	return t.bundle.Has(key)
}

// Lang returns the language for the html lang attribute.
func (t *Translator) Lang() string {
	return t.tag.String()
}

// Path localises an application path for this translator's language.
func (t *Translator) Path(path string) string {
	return Path(t.tag, path)
}

// Alternate returns the first supported language other than this one, for
// the language switch link.
func (t *Translator) Alternate() language.Tag {
	for _, tag := range supportedTags {
		if tag != t.tag {
			return tag
		}
	}
	return t.tag
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying t.
func NewContext(ctx context.Context, t *Translator) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the Translator stored in ctx, or one for the default
// language.
func FromContext(ctx context.Context) *Translator {
	if t, ok := ctx.Value(contextKey{}).(*Translator); ok && t != nil {
		return t
	}
	return NewTranslator(defaultTag)
}
