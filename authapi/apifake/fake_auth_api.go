package fakeauthapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-web/authapi"
	"github.com/jrsteele09/go-auth-web/gateway"
	"github.com/jrsteele09/go-auth-web/users"
)

const accessExpiresIn = 3600

type tokenKind int

const (
	accessKind tokenKind = iota
	refreshKind
)

type issuedToken struct {
	userID  int
	kind    tokenKind
	expired bool
}

type account struct {
	user     *users.User
	password string
}

// FakeAuthAPI is an in-memory stand-in for the remote authentication API.
// Serve it with httptest.NewServer(api).
type FakeAuthAPI struct {
	accounts map[string]*account // by email
	tokens   map[string]*issuedToken
	calls    map[string]int
	failures map[string]int // path to forced status code
	nextID   int
	lock     sync.RWMutex

	// IssueRefreshTokens controls whether login and register return a
	// refresh_token alongside the access token.
	IssueRefreshTokens bool

	mux *http.ServeMux
}

var _ http.Handler = (*FakeAuthAPI)(nil)

func New() *FakeAuthAPI {
	api := &FakeAuthAPI{
		accounts:           make(map[string]*account),
		tokens:             make(map[string]*issuedToken),
		calls:              make(map[string]int),
		failures:           make(map[string]int),
		nextID:             1,
		IssueRefreshTokens: true,
		mux:                http.NewServeMux(),
	}
	api.mux.HandleFunc("POST /auth/register", api.register)
	api.mux.HandleFunc("POST /auth/login", api.login)
	api.mux.HandleFunc("POST /auth/logout", api.logout)
	api.mux.HandleFunc("POST /auth/logout-all", api.logoutAll)
	api.mux.HandleFunc("POST /auth/refresh", api.refresh)
	api.mux.HandleFunc("GET /auth/me", api.me)
	return api
}

func (api *FakeAuthAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	api.lock.Lock()
	api.calls[r.URL.Path]++
	status, fail := api.failures[r.URL.Path]
	api.lock.Unlock()

	if fail {
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
		return
	}
	api.mux.ServeHTTP(w, r)
}

// AddUser creates an account with a fake profile and returns it.
func (api *FakeAuthAPI) AddUser(password string, roles ...users.RoleType) *users.User {
	if len(roles) == 0 {
		roles = []users.RoleType{users.RoleStudent}
	}
	api.lock.Lock()
	defer api.lock.Unlock()
	return api.addUserLocked(gofakeit.Name(), gofakeit.Email(), password, roles)
}

func (api *FakeAuthAPI) addUserLocked(name, email, password string, roles []users.RoleType) *users.User {
	now := time.Now().UTC().Truncate(time.Second)
	bio := gofakeit.Sentence(8)
	u := &users.User{
		ID:                api.nextID,
		Name:              name,
		Email:             email,
		AvatarURL:         gofakeit.URL(),
		IsActive:          true,
		Bio:               &bio,
		Roles:             roles,
		Permissions:       []string{},
		EnrollmentsCount:  gofakeit.Number(0, 20),
		CertificatesCount: gofakeit.Number(0, 5),
		EmailVerifiedAt:   &now,
		CreatedAt:         now,
	}
	if u.IsInstructor() {
		courses := gofakeit.Number(1, 10)
		u.CoursesCount = &courses
		u.Permissions = append(u.Permissions, "create courses")
	}
	api.nextID++
	api.accounts[strings.ToLower(email)] = &account{user: u, password: password}
	return u
}

// Login issues credentials for an existing account without going through HTTP.
func (api *FakeAuthAPI) Login(email string) (access, refresh string) {
	api.lock.Lock()
	defer api.lock.Unlock()
	acc := api.accounts[strings.ToLower(email)]
	if acc == nil {
		return "", ""
	}
	return api.issueLocked(acc.user.ID, accessKind), api.issueLocked(acc.user.ID, refreshKind)
}

// ExpireAccessTokens makes every issued access token answer 401.
func (api *FakeAuthAPI) ExpireAccessTokens() {
	api.lock.Lock()
	defer api.lock.Unlock()
	for _, t := range api.tokens {
		if t.kind == accessKind {
			t.expired = true
		}
	}
}

// RevokeAll forgets every issued token, as if the user logged out everywhere.
func (api *FakeAuthAPI) RevokeAll() {
	api.lock.Lock()
	defer api.lock.Unlock()
	api.tokens = make(map[string]*issuedToken)
}

// Fail forces every request to path to answer status until Recover is called.
func (api *FakeAuthAPI) Fail(path string, status int) {
	api.lock.Lock()
	defer api.lock.Unlock()
	api.failures[path] = status
}

func (api *FakeAuthAPI) Recover(path string) {
	api.lock.Lock()
	defer api.lock.Unlock()
	delete(api.failures, path)
}

// Calls returns how many requests reached path.
func (api *FakeAuthAPI) Calls(path string) int {
	api.lock.RLock()
	defer api.lock.RUnlock()
	return api.calls[path]
}

// TotalCalls returns how many requests reached the API.
func (api *FakeAuthAPI) TotalCalls() int {
	api.lock.RLock()
	defer api.lock.RUnlock()
	total := 0
	for _, n := range api.calls {
		total += n
	}
	return total
}

func (api *FakeAuthAPI) issueLocked(userID int, kind tokenKind) string {
	tok := uuid.New().String()
	api.tokens[tok] = &issuedToken{userID: userID, kind: kind}
	return tok
}

func (api *FakeAuthAPI) userByIDLocked(id int) *users.User {
	for _, acc := range api.accounts {
		if acc.user.ID == id {
			return acc.user
		}
	}
	return nil
}

func (api *FakeAuthAPI) authResponseLocked(message string, u *users.User) authapi.AuthResponse {
	res := authapi.AuthResponse{
		Message:     message,
		User:        u,
		AccessToken: api.issueLocked(u.ID, accessKind),
		TokenType:   "Bearer",
		ExpiresIn:   accessExpiresIn,
	}
	if api.IssueRefreshTokens {
		res.RefreshToken = api.issueLocked(u.ID, refreshKind)
	}
	return res
}

func (api *FakeAuthAPI) register(w http.ResponseWriter, r *http.Request) {
	var data authapi.RegisterData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed JSON"})
		return
	}

	api.lock.Lock()
	defer api.lock.Unlock()

	if _, exists := api.accounts[strings.ToLower(data.Email)]; exists {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"message": "The email has already been taken.",
			"errors":  map[string][]string{"email": {"The email has already been taken."}},
		})
		return
	}
	role := data.Role
	if role == "" {
		role = users.RoleStudent
	}
	u := api.addUserLocked(data.Name, data.Email, data.Password, []users.RoleType{role})
	writeJSON(w, http.StatusCreated, api.authResponseLocked("User registered successfully", u))
}

func (api *FakeAuthAPI) login(w http.ResponseWriter, r *http.Request) {
	var data authapi.LoginData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed JSON"})
		return
	}

	api.lock.Lock()
	defer api.lock.Unlock()

	acc := api.accounts[strings.ToLower(data.Email)]
	if acc == nil || acc.password != data.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials", "error": "invalid_credentials"})
		return
	}
	writeJSON(w, http.StatusOK, api.authResponseLocked("Login successful", acc.user))
}

func (api *FakeAuthAPI) logout(w http.ResponseWriter, r *http.Request) {
	api.lock.Lock()
	defer api.lock.Unlock()

	tok, ok := api.bearerLocked(r, accessKind)
	if !ok {
		unauthenticated(w)
		return
	}
	delete(api.tokens, tok)
	writeJSON(w, http.StatusOK, authapi.MessageResponse{Message: "Successfully logged out"})
}

func (api *FakeAuthAPI) logoutAll(w http.ResponseWriter, r *http.Request) {
	api.lock.Lock()
	defer api.lock.Unlock()

	tok, ok := api.bearerLocked(r, accessKind)
	if !ok {
		unauthenticated(w)
		return
	}
	userID := api.tokens[tok].userID
	for k, t := range api.tokens {
		if t.userID == userID {
			delete(api.tokens, k)
		}
	}
	writeJSON(w, http.StatusOK, authapi.MessageResponse{Message: "Successfully logged out from all devices"})
}

func (api *FakeAuthAPI) refresh(w http.ResponseWriter, r *http.Request) {
	api.lock.Lock()
	defer api.lock.Unlock()

	raw := bearer(r)
	t, ok := api.tokens[raw]
	if raw == "" || !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token is invalid", "error": "token_invalid"})
		return
	}
	writeJSON(w, http.StatusOK, gateway.RefreshResponse{
		Message:     "Token refreshed successfully",
		AccessToken: api.issueLocked(t.userID, accessKind),
		TokenType:   "Bearer",
		ExpiresIn:   accessExpiresIn,
	})
}

func (api *FakeAuthAPI) me(w http.ResponseWriter, r *http.Request) {
	api.lock.RLock()
	defer api.lock.RUnlock()

	tok, ok := api.bearerLocked(r, accessKind)
	if !ok {
		unauthenticated(w)
		return
	}
	writeJSON(w, http.StatusOK, authapi.MeResponse{User: api.userByIDLocked(api.tokens[tok].userID)})
}

func (api *FakeAuthAPI) bearerLocked(r *http.Request, kind tokenKind) (string, bool) {
	raw := bearer(r)
	t, ok := api.tokens[raw]
	if raw == "" || !ok || t.expired || t.kind != kind {
		return "", false
	}
	return raw, true
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func unauthenticated(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
