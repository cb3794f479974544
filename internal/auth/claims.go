package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the session token shape issued by the auth backend.
// The user id travels in the registered "sub" claim.
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email,omitempty"`
	// Role is the backend role, e.g. "authenticated", "anon" or "service_role".
	Role string `json:"role,omitempty"`
}

func (c Claims) UserID() string { return c.Subject }
