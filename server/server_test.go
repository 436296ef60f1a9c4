package server_test

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	fakeauthapi "github.com/jrsteele09/go-auth-web/authapi/apifake"
	"github.com/jrsteele09/go-auth-web/authstate"
	"github.com/jrsteele09/go-auth-web/internal/config"
	"github.com/jrsteele09/go-auth-web/server"
	"github.com/jrsteele09/go-auth-web/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
	testPassword  = "correct-horse-battery"
)

type testEnv struct {
	api    *fakeauthapi.FakeAuthAPI
	apiURL string
	srv    *server.Server
}

func setup(t *testing.T, opts ...server.Option) *testEnv {
	t.Helper()
	t.Setenv("ENV", "test")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := config.New()
	require.NoError(t, err)

	api := fakeauthapi.New()
	apiServer := httptest.NewServer(api)
	t.Cleanup(apiServer.Close)

	provider := authstate.NewProvider(apiServer.URL, time.Hour, 30*24*time.Hour)
	opts = append([]server.Option{server.WithAuthProvider(provider), server.WithoutRouteLog()}, opts...)
	srv, err := server.New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	return &testEnv{api: api, apiURL: apiServer.URL, srv: srv}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

// signedIn returns cookies carrying a fresh login for u.
func (e *testEnv) signedIn(u *users.User) []*http.Cookie {
	access, refresh := e.api.Login(u.Email)
	return []*http.Cookie{
		{Name: accessCookie, Value: access},
		{Name: refreshCookie, Value: refresh},
	}
}

func get(target string, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func postForm(target string, form url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// responseCookies returns the last cookie set for each name.
func responseCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	return cookies
}

func encodeUser(json string) string {
	return base64.StdEncoding.EncodeToString([]byte(json))
}

func TestServer_Pages(t *testing.T) {
	env := setup(t)

	t.Run("Home page", func(t *testing.T) {
		rec := env.do(get("/"))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		require.Contains(t, rec.Body.String(), `href="/auth/register"`)
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	})

	t.Run("Login page shows OAuth providers", func(t *testing.T) {
		rec := env.do(get("/auth/login"))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		require.Contains(t, body, `href="/auth/oauth/google"`)
		require.Contains(t, body, `href="/auth/oauth/github"`)
	})

	t.Run("Login page shows known error keys only", func(t *testing.T) {
		rec := env.do(get("/auth/login?error=session.expired"))
		require.Contains(t, rec.Body.String(), "Your session has expired.")

		rec = env.do(get("/auth/login?error=Click+here+now"))
		require.NotContains(t, rec.Body.String(), "Click here now")
	})

	t.Run("Static stylesheet", func(t *testing.T) {
		rec := env.do(get("/css/app.css"))
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/css"))
		require.NotEmpty(t, rec.Header().Get("Cache-Control"))
	})

	t.Run("Missing stylesheet", func(t *testing.T) {
		rec := env.do(get("/css/missing.css"))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Unknown path", func(t *testing.T) {
		rec := env.do(get("/nowhere"))
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Contains(t, rec.Body.String(), "Page not found")
	})

	t.Run("Health", func(t *testing.T) {
		rec := env.do(get("/healthz"))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "ok", rec.Body.String())
	})

	t.Run("Routes are recorded", func(t *testing.T) {
		require.Contains(t, env.srv.Routes(), "POST /auth/login")
		require.Contains(t, env.srv.Routes(), "GET /dashboard")
	})

	t.Run("No API calls for anonymous pages", func(t *testing.T) {
		require.Equal(t, 0, env.api.TotalCalls())
	})
}

func TestServer_Locale(t *testing.T) {
	env := setup(t)

	t.Run("Prefixed path renders French", func(t *testing.T) {
		rec := env.do(get("/fr/auth/login"))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		require.Contains(t, body, `lang="fr"`)
		require.Contains(t, body, "Connexion")
		require.Contains(t, body, `action="/fr/auth/login"`)
		require.Equal(t, "fr", responseCookies(rec)["lang"].Value)
	})

	t.Run("Prefix alone is the home page", func(t *testing.T) {
		rec := env.do(get("/fr"))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `lang="fr"`)
	})

	t.Run("Accept-Language redirects to the prefixed path", func(t *testing.T) {
		req := get("/auth/login")
		req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.5")
		rec := env.do(req)
		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "/fr/auth/login", rec.Header().Get("Location"))
	})

	t.Run("Lang query switches and is remembered", func(t *testing.T) {
		rec := env.do(get("/auth/register?lang=fr"))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/fr/auth/register", rec.Header().Get("Location"))
		require.Equal(t, "fr", responseCookies(rec)["lang"].Value)
	})

	t.Run("English cookie stays unprefixed", func(t *testing.T) {
		req := get("/auth/login", &http.Cookie{Name: "lang", Value: "en"})
		req.Header.Set("Accept-Language", "fr")
		rec := env.do(req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `lang="en"`)
	})

	t.Run("Assets are never redirected", func(t *testing.T) {
		req := get("/css/app.css")
		req.Header.Set("Accept-Language", "fr")
		rec := env.do(req)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestServer_Dashboard(t *testing.T) {
	t.Run("Anonymous users go to login", func(t *testing.T) {
		env := setup(t)
		rec := env.do(get("/dashboard"))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/auth/login", rec.Header().Get("Location"))
	})

	t.Run("Anonymous users go to the localised login", func(t *testing.T) {
		env := setup(t)
		rec := env.do(get("/fr/dashboard"))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/fr/auth/login", rec.Header().Get("Location"))
	})

	t.Run("Signed-in users see their profile", func(t *testing.T) {
		env := setup(t)
		u := env.api.AddUser(testPassword, users.RoleInstructor)
		rec := env.do(get("/dashboard", env.signedIn(u)...))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), u.Email)
		require.Contains(t, rec.Body.String(), "Instructor")
		require.Equal(t, 1, env.api.Calls("/auth/me"))
	})

	t.Run("Expired access credential is refreshed once", func(t *testing.T) {
		env := setup(t)
		u := env.api.AddUser(testPassword)
		cookies := env.signedIn(u)
		env.api.ExpireAccessTokens()

		rec := env.do(get("/dashboard", cookies...))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 1, env.api.Calls("/auth/refresh"))

		set := responseCookies(rec)
		require.Contains(t, set, accessCookie)
		require.NotEqual(t, cookies[0].Value, set[accessCookie].Value)
		require.NotContains(t, set, refreshCookie)
	})

	t.Run("Failed refresh clears the session", func(t *testing.T) {
		env := setup(t)
		u := env.api.AddUser(testPassword)
		cookies := env.signedIn(u)
		env.api.RevokeAll()

		rec := env.do(get("/dashboard", cookies...))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/auth/login", rec.Header().Get("Location"))

		set := responseCookies(rec)
		require.Equal(t, -1, set[accessCookie].MaxAge)
		require.Equal(t, -1, set[refreshCookie].MaxAge)
	})

	t.Run("Signed-in users skip the login page", func(t *testing.T) {
		env := setup(t)
		u := env.api.AddUser(testPassword)
		rec := env.do(get("/auth/login", env.signedIn(u)...))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/dashboard", rec.Header().Get("Location"))
	})
}

func TestServer_Login(t *testing.T) {
	t.Run("Valid credentials set both cookies", func(t *testing.T) {
		env := setup(t)
		u := env.api.AddUser(testPassword)

		rec := env.do(postForm("/auth/login", url.Values{"email": {u.Email}, "password": {testPassword}}))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/dashboard", rec.Header().Get("Location"))

		set := responseCookies(rec)
		require.NotEmpty(t, set[accessCookie].Value)
		require.NotEmpty(t, set[refreshCookie].Value)
		require.True(t, set[accessCookie].HttpOnly)
		require.Equal(t, http.SameSiteLaxMode, set[accessCookie].SameSite)
		require.Equal(t, "/", set[accessCookie].Path)
		require.Equal(t, int(time.Hour/time.Second), set[accessCookie].MaxAge)
		require.Equal(t, int(30*24*time.Hour/time.Second), set[refreshCookie].MaxAge)
	})

	t.Run("Wrong password shows a banner without refreshing", func(t *testing.T) {
		env := setup(t)
		u := env.api.AddUser(testPassword)

		rec := env.do(postForm("/auth/login", url.Values{"email": {u.Email}, "password": {"wrong-password"}}))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "Login failed.")
		require.Contains(t, rec.Body.String(), u.Email)
		require.Empty(t, responseCookies(rec)[accessCookie])
		require.Equal(t, 0, env.api.Calls("/auth/refresh"))
	})

	t.Run("Invalid form never reaches the API", func(t *testing.T) {
		env := setup(t)
		rec := env.do(postForm("/auth/login", url.Values{"email": {"not-an-email"}, "password": {""}}))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, rec.Body.String(), "Email address is invalid")
		require.Contains(t, rec.Body.String(), "Password is required")
		require.Equal(t, 0, env.api.TotalCalls())
	})

	t.Run("HTMX submissions get HX-Redirect", func(t *testing.T) {
		env := setup(t)
		u := env.api.AddUser(testPassword)
		req := postForm("/fr/auth/login", url.Values{"email": {u.Email}, "password": {testPassword}})
		req.Header.Set("HX-Request", "true")

		rec := env.do(req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "/fr/dashboard", rec.Header().Get("HX-Redirect"))
	})
}

func TestServer_Register(t *testing.T) {
	validForm := func() url.Values {
		return url.Values{
			"name":                  {"Ada Lovelace"},
			"email":                 {"ada@example.com"},
			"password":              {testPassword},
			"password_confirmation": {testPassword},
			"role":                  {"instructor"},
		}
	}

	t.Run("Password mismatch never reaches the API", func(t *testing.T) {
		env := setup(t)
		form := validForm()
		form.Set("password_confirmation", "something-else")

		rec := env.do(postForm("/auth/register", form))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, rec.Body.String(), "Passwords do not match")
		require.Contains(t, rec.Body.String(), `value="Ada Lovelace"`)
		require.Equal(t, 0, env.api.TotalCalls())
	})

	t.Run("Mismatch is translated", func(t *testing.T) {
		env := setup(t)
		form := validForm()
		form.Set("password_confirmation", "something-else")

		rec := env.do(postForm("/fr/auth/register", form))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, rec.Body.String(), "Les mots de passe ne correspondent pas")
	})

	t.Run("Success signs the user in", func(t *testing.T) {
		env := setup(t)
		rec := env.do(postForm("/auth/register", validForm()))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/dashboard", rec.Header().Get("Location"))
		require.NotEmpty(t, responseCookies(rec)[accessCookie].Value)
		require.Equal(t, 1, env.api.Calls("/auth/register"))
	})

	t.Run("API field errors render inline", func(t *testing.T) {
		env := setup(t)
		require.Equal(t, http.StatusSeeOther, env.do(postForm("/auth/register", validForm())).Code)

		rec := env.do(postForm("/auth/register", validForm()))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, rec.Body.String(), "The email has already been taken.")
	})

	t.Run("API outage shows a banner", func(t *testing.T) {
		env := setup(t)
		env.api.Fail("/auth/register", http.StatusInternalServerError)

		rec := env.do(postForm("/auth/register", validForm()))
		require.Equal(t, http.StatusBadGateway, rec.Code)
		require.Contains(t, rec.Body.String(), "Registration failed.")
	})
}

func TestServer_Logout(t *testing.T) {
	for _, path := range []string{"/auth/logout", "/auth/logout-all"} {
		t.Run(path+" clears cookies when the API fails", func(t *testing.T) {
			env := setup(t)
			u := env.api.AddUser(testPassword)
			env.api.Fail(path, http.StatusInternalServerError)

			rec := env.do(postForm(path, url.Values{}, env.signedIn(u)...))
			require.Equal(t, http.StatusSeeOther, rec.Code)
			require.Equal(t, "/auth/login", rec.Header().Get("Location"))
			require.Equal(t, 1, env.api.Calls(path))

			set := responseCookies(rec)
			require.Equal(t, -1, set[accessCookie].MaxAge)
			require.Equal(t, -1, set[refreshCookie].MaxAge)
		})
	}

	t.Run("Logout revokes the credential", func(t *testing.T) {
		env := setup(t)
		u := env.api.AddUser(testPassword)
		cookies := env.signedIn(u)

		rec := env.do(postForm("/auth/logout", url.Values{}, cookies...))
		require.Equal(t, http.StatusSeeOther, rec.Code)

		rec = env.do(get("/dashboard", cookies[0]))
		require.Equal(t, http.StatusSeeOther, rec.Code)
	})
}

func TestServer_OAuth(t *testing.T) {
	t.Run("Known provider redirects to the API", func(t *testing.T) {
		env := setup(t)
		rec := env.do(get("/auth/oauth/github"))
		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, env.apiURL+"/auth/github", rec.Header().Get("Location"))
	})

	t.Run("Unknown provider goes to the error page", func(t *testing.T) {
		env := setup(t)
		rec := env.do(get("/auth/oauth/myspace"))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/auth/error?error=invalid_provider", rec.Header().Get("Location"))
	})

	t.Run("Callback success stores credentials", func(t *testing.T) {
		env := setup(t)
		q := url.Values{
			"access_token":  {"oauth-access"},
			"refresh_token": {"oauth-refresh"},
			"user":          {encodeUser(`{"id":7,"name":"Grace","email":"grace@example.com","roles":["student"]}`)},
		}
		rec := env.do(get("/auth/callback?" + q.Encode()))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		require.Contains(t, body, `data-status="success"`)
		require.Contains(t, body, `data-url="/dashboard"`)
		require.Contains(t, body, `data-delay-ms="1500"`)

		set := responseCookies(rec)
		require.Equal(t, "oauth-access", set[accessCookie].Value)
		require.Equal(t, "oauth-refresh", set[refreshCookie].Value)
		require.Equal(t, 0, env.api.TotalCalls())
	})

	t.Run("Callback with a missing parameter fails", func(t *testing.T) {
		env := setup(t)
		q := url.Values{
			"access_token": {"oauth-access"},
			"user":         {encodeUser(`{"id":7}`)},
		}
		rec := env.do(get("/fr/auth/callback?" + q.Encode()))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		require.Contains(t, body, `data-status="error"`)
		require.Contains(t, body, `data-url="/fr/auth/login"`)
		require.Contains(t, body, `data-delay-ms="3000"`)
		require.Empty(t, responseCookies(rec)[accessCookie])
	})

	t.Run("Error page counts down to login", func(t *testing.T) {
		env := setup(t)
		rec := env.do(get("/auth/error?error=access_denied&message=cancelled"))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		require.Contains(t, body, "Access denied")
		require.Contains(t, body, "cancelled")
		require.Contains(t, body, `data-seconds="5"`)
		require.Contains(t, body, `data-reason="access_denied"`)
	})

	t.Run("Unknown reasons are shown generically", func(t *testing.T) {
		env := setup(t)
		rec := env.do(get("/auth/error?error=teapot"))
		require.Contains(t, rec.Body.String(), `data-reason="unknown_error"`)
	})
}

func TestServer_RateLimit(t *testing.T) {
	env := setup(t, server.WithRateLimiter(server.NewRateLimiter(rate.Every(time.Minute), 1)))
	form := url.Values{"email": {"a@example.com"}, "password": {""}}

	rec := env.do(postForm("/auth/login", form))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(postForm("/auth/login", form))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "Too many attempts.")

	// Pages are not limited.
	require.Equal(t, http.StatusOK, env.do(get("/auth/login")).Code)
}

func TestServer_RateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	env := setup(t, server.WithRateLimiter(server.NewRateLimiter(rate.Every(time.Minute), 1)))
	form := url.Values{"email": {"a@example.com"}, "password": {""}}

	for i, fwd := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		req := postForm("/auth/login", form)
		req.Header.Set("X-Forwarded-For", fwd)
		req.Header.Set("X-Real-IP", fwd)
		rec := env.do(req)
		if i == 0 {
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			continue
		}
		require.Equal(t, http.StatusTooManyRequests, rec.Code, "forwarded for %s", fwd)
	}
}

func TestServer_RateLimitBehindTrustedProxy(t *testing.T) {
	// httptest requests come from 192.0.2.1.
	t.Setenv("TRUSTED_PROXIES", "192.0.2.0/24")
	env := setup(t, server.WithRateLimiter(server.NewRateLimiter(rate.Every(time.Minute), 1)))
	form := url.Values{"email": {"a@example.com"}, "password": {""}}

	send := func(fwd string) int {
		req := postForm("/auth/login", form)
		req.Header.Set("X-Forwarded-For", fwd)
		return env.do(req).Code
	}

	require.Equal(t, http.StatusUnprocessableEntity, send("203.0.113.1"))
	require.Equal(t, http.StatusUnprocessableEntity, send("203.0.113.2"))
	require.Equal(t, http.StatusTooManyRequests, send("203.0.113.1"))
	// A client-supplied leftmost entry does not change the hop the proxy saw.
	require.Equal(t, http.StatusTooManyRequests, send("198.51.100.9, 203.0.113.2"))
}

func TestServer_New_RejectsInvalidTrustedProxy(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1,not-an-ip")
	cfg, err := config.New()
	require.NoError(t, err)

	_, err = server.New(cfg, server.WithoutRouteLog())
	require.Error(t, err)
	require.Contains(t, err.Error(), "not-an-ip")
}
