package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/go-auth-web/authapi"
	"github.com/jrsteele09/go-auth-web/authstate"
	"github.com/jrsteele09/go-auth-web/forms"
	"github.com/jrsteele09/go-auth-web/internal/i18n"
	"github.com/jrsteele09/go-auth-web/internal/utils"
	"github.com/jrsteele09/go-auth-web/oauthcallback"
	"github.com/jrsteele09/go-auth-web/users"
	"github.com/rs/zerolog/log"
)

const contentTypeHTML = "text/html; charset=utf-8"

//go:embed templates/*
var templateFiles embed.FS

const (
	pageIndex     = "index"
	pageLogin     = "login"
	pageRegister  = "register"
	pageCallback  = "callback"
	pageAuthError = "auth_error"
	pageDashboard = "dashboard"
	pageError     = "error"
)

var pageNames = []string{pageIndex, pageLogin, pageRegister, pageCallback, pageAuthError, pageDashboard, pageError}

// page is a content template parsed together with the shared layout.
type page struct {
	name string
	tmpl *template.Template
}

var templateFuncs = template.FuncMap{
	"providerName": providerName,
	"derefInt":     utils.Value[int],
	"derefString":  utils.Value[string],
}

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// parsePages parses every page once, each in its own set so that pages can
// define the same blocks.
func parsePages() (map[string]*page, error) {
	fsys := TemplateFilesFS()
	pages := make(map[string]*page, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(fsys, "layout.html", name+".html")
		if err != nil {
			return nil, fmt.Errorf("[Server parsePages] %s: %w", name, err)
		}
		pages[name] = &page{name: name, tmpl: tmpl}
	}
	return pages, nil
}

func providerName(p authapi.Provider) string {
	switch p {
	case authapi.ProviderGitHub:
		return "GitHub"
	case authapi.ProviderGoogle:
		return "Google"
	}
	return string(p)
}

// OAuthButtons feeds the provider buttons shared by the login and register pages.
type OAuthButtons struct {
	T              *i18n.Translator
	Providers      []authapi.Provider
	OrContinueWith string
}

// TimedRedirect sends the browser to URL once Delay has passed.
type TimedRedirect struct {
	URL   string
	Delay time.Duration
}

// Seconds rounds the delay up, for meta refresh and countdowns.
func (t TimedRedirect) Seconds() int {
	return int(math.Ceil(t.Delay.Seconds()))
}

func (t TimedRedirect) DelayMS() int64 {
	return t.Delay.Milliseconds()
}

// PageData is the data passed to every page template.
type PageData struct {
	T           *i18n.Translator
	User        *users.User
	Banner      string
	Values      map[string]string
	FieldErrors map[string]string
	OAuth       OAuthButtons
	Callback    *oauthcallback.Outcome
	ErrorPage   *oauthcallback.ErrorPage
	Redirect    *TimedRedirect
	Status      int

	path string
}

// LanguageSwitchURL links the current page in the other language.
func (d *PageData) LanguageSwitchURL() string {
	q := url.Values{}
	q.Set(i18n.LangParam, d.T.Alternate().String())
	return d.path + "?" + q.Encode()
}

// newPageData fills in what every page needs from the request context.
func newPageData(r *http.Request) *PageData {
	t := i18n.FromContext(r.Context())
	data := &PageData{
		T:           t,
		Values:      map[string]string{},
		FieldErrors: map[string]string{},
		OAuth: OAuthButtons{
			T:              t,
			Providers:      authapi.Providers,
			OrContinueWith: t.Get("login.orContinueWith"),
		},
		path: r.URL.Path,
	}
	if state, err := authstate.FromContext(r.Context()); err == nil {
		data.User = state.User
	}
	return data
}

// setFormErrors translates validation keys. Messages from the API have no
// key and are shown as they are.
func (d *PageData) setFormErrors(errs forms.Errors) {
	for field, msg := range errs {
		key := "validation." + msg
		if d.T.Has(key) {
			msg = d.T.Get(key)
		}
		if field == "" {
			d.Banner = msg
			continue
		}
		d.FieldErrors[field] = msg
	}
}

// render executes the page into a buffer first so that a template error can
// still produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, status int, data *PageData) {
	p, ok := s.pages[name]
	if !ok {
		log.Ctx(r.Context()).Error().Str("page", name).Msg("Unknown page")
		http.Error(w, data.T.Get("errors.generic"), http.StatusInternalServerError)
		return
	}
	if data.Status == 0 {
		data.Status = status
	}

	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Ctx(r.Context()).Err(err).Str("page", name).Msg("Failed to render template")
		http.Error(w, data.T.Get("errors.generic"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Ctx(r.Context()).Err(err).Str("page", name).Msg("Failed to write page")
	}
}

// renderError shows the generic error page with a translated message.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, key string) {
	data := newPageData(r)
	data.Banner = data.T.Get(key)
	s.render(w, r, pageError, status, data)
}
