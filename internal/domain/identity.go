package domain

import "time"

// Persisted identity keys. These three keys are the entire durable state
// of the storefront core.
const (
	KeyCartUUID    = "cart_uuid"
	KeyAccessToken = "access_token"
	KeyEmail       = "email"
)

// IdentityMode tells whether requests are scoped to a guest cart or to an
// authenticated account.
type IdentityMode string

const (
	ModeGuest         IdentityMode = "guest"
	ModeAuthenticated IdentityMode = "authenticated"
)

// Identity is the current request scope. Exactly one of CartUUID (guest)
// or AccessToken (authenticated) drives outbound calls.
type Identity struct {
	Mode        IdentityMode `json:"mode"`
	CartUUID    string       `json:"cart_uuid,omitempty"`
	AccessToken string       `json:"-"`
	Email       string       `json:"email,omitempty"`
}

// Guest returns a guest identity for the given cart uuid.
func Guest(cartUUID string) Identity {
	return Identity{Mode: ModeGuest, CartUUID: cartUUID}
}

// Authenticated returns an authenticated identity.
func Authenticated(accessToken, email string) Identity {
	return Identity{Mode: ModeAuthenticated, AccessToken: accessToken, Email: email}
}

// IsAuthenticated reports whether a bearer token is present.
func (i Identity) IsAuthenticated() bool {
	return i.Mode == ModeAuthenticated && i.AccessToken != ""
}

// AuthResult is the successful response of a login or registration call.
type AuthResult struct {
	AccessToken string
	Email       string
}

// Registration holds the fields of a signup request.
type Registration struct {
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
}

// Credentials holds the fields of a login request.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SessionView describes the current session for the UI.
type SessionView struct {
	Mode      IdentityMode `json:"mode"`
	Email     string       `json:"email,omitempty"`
	Subject   string       `json:"subject,omitempty"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	Expired   bool         `json:"expired"`
	CartCount int          `json:"cart_count"`
}
