package auth

// Sentinel errors shared across the session lifecycle. Callers match with
// errors.Is; wrapping preserves operation context.

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

const (
	// ErrInvalidCredentials is returned when a login or registration is
	// rejected by the identity server. It is never retried.
	ErrInvalidCredentials = sentinelError("invalid credentials")

	// ErrSessionExpired is returned when the refresh token is absent or
	// rejected. It always coincides with a fully cleared session.
	ErrSessionExpired = sentinelError("session expired")

	// ErrNoCredentials is returned by credential stores when no token
	// pair is persisted.
	ErrNoCredentials = sentinelError("no credentials stored")
)
