package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-auth-web/internal/i18n"
	"golang.org/x/text/language"
)

// LocaleMiddleware removes the locale prefix from the path, picks the
// request language and stores its translator in the request context.
//
// Only non-default languages are prefixed. A GET without a prefix whose
// preferred language (lang cookie, then Accept-Language) is not the default
// is redirected to the prefixed path; ?lang= switches language and is
// remembered in a cookie.
func (s *Server) LocaleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag, rest, prefixed := i18n.SplitPath(r.URL.Path)

		if r.Method == http.MethodGet && !isAssetPath(rest) {
			if lang := r.URL.Query().Get(i18n.LangParam); lang != "" {
				if chosen, ok := i18n.ParseTag(lang); ok {
					i18n.SetLanguageCookie(w, chosen)
					http.Redirect(w, r, localisedURL(chosen, rest, r.URL.Query()), http.StatusSeeOther)
					return
				}
			}
			if !prefixed {
				if preferred, _ := i18n.ResolveTag(r); preferred != i18n.Default() {
					http.Redirect(w, r, localisedURL(preferred, rest, r.URL.Query()), http.StatusFound)
					return
				}
			}
		}

		if !prefixed {
			tag = i18n.Default()
		} else if c, err := r.Cookie(i18n.LangCookieName); err != nil || c.Value != tag.String() {
			i18n.SetLanguageCookie(w, tag)
		}

		r2 := new(http.Request)
		*r2 = *r
		r2.URL = new(url.URL)
		*r2.URL = *r.URL
		r2.URL.Path = rest
		r2.URL.RawPath = ""
		next.ServeHTTP(w, r2.WithContext(i18n.NewContext(r.Context(), i18n.NewTranslator(tag))))
	})
}

func localisedURL(tag language.Tag, path string, query url.Values) string {
	query.Del(i18n.LangParam)
	u := url.URL{Path: i18n.Path(tag, path), RawQuery: query.Encode()}
	return u.String()
}

func isAssetPath(path string) bool {
	return strings.HasPrefix(path, "/css/") || path == RouteHealth
}
