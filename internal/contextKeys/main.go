package contextkeys

type contextKey string

const (
	AuthSessionKey contextKey = "auth_session"
	AuthUserKey    contextKey = "auth_user"
)
