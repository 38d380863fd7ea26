package auth

// Package auth contains domain-level types for the session lifecycle.
// It is pure and free of transport/adapter concerns.

// Role represents an application's authorization role.
// Keep string form for easy persistence and JSON transport.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleProfessional Role = "professional"
	RoleCustomer     Role = "customer"
)

// AccountStatus is the moderation status of an account, independent of the
// blocked flag. New professional accounts start as pending until an admin
// approves or disapproves them.
type AccountStatus string

const (
	StatusPending     AccountStatus = "pending"
	StatusApproved    AccountStatus = "approved"
	StatusDisapproved AccountStatus = "disapproved"
)

// RoleRef mirrors the server's role objects (e.g. {"name": "admin"}).
type RoleRef struct {
	Name Role `json:"name"`
}

// Identity represents the authenticated principal as returned by the
// identity server. It is replaced wholesale on every successful fetch,
// never partially mutated.
type Identity struct {
	ID          int64         `json:"id"`
	Username    string        `json:"username"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	PhoneNumber string        `json:"phone_number"`
	Roles       []RoleRef     `json:"roles"`
	Status      AccountStatus `json:"status"`
	Blocked     bool          `json:"blocked"`
}

// HasRole reports whether the identity holds the named role.
// Roles are not mutually exclusive; a user may hold several.
func (i Identity) HasRole(r Role) bool {
	for _, ref := range i.Roles {
		if ref.Name == r {
			return true
		}
	}
	return false
}

// TokenPair is the credential pair issued by the identity server.
// The two tokens are always persisted and cleared together; the system
// must never hold one without the other.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Empty reports whether the pair carries no credentials.
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Session is a point-in-time view of "who is logged in, with what roles
// and account status". Identity non-nil implies a token pair was present
// at the time of the last successful identity fetch.
type Session struct {
	Identity *Identity
	Tokens   *TokenPair
}

// IsAuthenticated reports whether a credential pair is present.
func (s Session) IsAuthenticated() bool {
	return s.Tokens != nil && s.Tokens.AccessToken != ""
}

// HasRole reports whether the session's identity holds the named role.
func (s Session) HasRole(r Role) bool {
	return s.Identity != nil && s.Identity.HasRole(r)
}

// IsBlocked reports whether the account is blocked.
func (s Session) IsBlocked() bool {
	return s.Identity != nil && s.Identity.Blocked
}

// IsApproved reports whether the account status is approved.
func (s Session) IsApproved() bool {
	return s.Identity != nil && s.Identity.Status == StatusApproved
}

// IsPending reports whether the account status is pending.
func (s Session) IsPending() bool {
	return s.Identity != nil && s.Identity.Status == StatusPending
}

// IsDisapproved reports whether the account status is disapproved.
func (s Session) IsDisapproved() bool {
	return s.Identity != nil && s.Identity.Status == StatusDisapproved
}
