package usercontext

// Shared Locals keys used across controllers and middlewares
const (
	KeyUserContext = "USER_CONTEXT"
	KeyUser        = "user"
	KeyAuthMethod  = "auth_method"
)

// Authentication methods recorded on the request.
const (
	AuthMethodToken   = "token"
	AuthMethodSession = "session"
)
