package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos.
// Every route is also served with a locale prefix, such as /fr/auth/login.
const (
	RouteHome      = "/"
	RouteDashboard = "/dashboard"

	// Auth Routes - Login & Logout
	RouteLogin     = "/auth/login"
	RouteLogout    = "/auth/logout"
	RouteLogoutAll = "/auth/logout-all"

	// Auth Routes - Register
	RouteRegister = "/auth/register"

	// Auth Routes - OAuth
	RouteOAuthRedirect = "/auth/oauth/{provider}"
	RouteCallback      = "/auth/callback"
	RouteAuthError     = "/auth/error"

	RouteHealth = "/healthz"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
)
