package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPurpose scopes a token to a single flow. Every purpose signs with its
// own key, and the purpose travels inside the token as well, so a claims
// struct handed to the wrong verifier fails twice over.
type TokenPurpose string

const (
	// PurposeActivation tokens carry a not-yet-persisted account.
	PurposeActivation TokenPurpose = "activation"
	// PurposeSession tokens assert an authenticated user id.
	PurposeSession TokenPurpose = "session"
	// PurposeReset tokens authorize a single password change.
	PurposeReset TokenPurpose = "password-reset"
)

// PurposeClaims is implemented by every claims type this package signs.
type PurposeClaims interface {
	jwt.Claims
	TokenPurpose() TokenPurpose
	stamp(purpose TokenPurpose, reg jwt.RegisteredClaims)
}

// ActivationClaims is the entire pending account, embedded in the token so no
// "pending signups" table or cleanup job exists. The password is hashed
// before it ever reaches the claims.
type ActivationClaims struct {
	jwt.RegisteredClaims
	Purpose      TokenPurpose `json:"prp,omitempty"`
	Name         string       `json:"name,omitempty"`
	Username     string       `json:"username,omitempty"`
	Email        string       `json:"email,omitempty"`
	PasswordHash string       `json:"hash,omitempty"`
}

func (c *ActivationClaims) TokenPurpose() TokenPurpose { return c.Purpose }

func (c *ActivationClaims) stamp(purpose TokenPurpose, reg jwt.RegisteredClaims) {
	reg.Subject = c.Email
	c.Purpose = purpose
	c.RegisteredClaims = reg
}

// SessionClaims assert an authenticated user until expiry; the server keeps
// no session state.
type SessionClaims struct {
	jwt.RegisteredClaims
	Purpose  TokenPurpose `json:"prp,omitempty"`
	UID      string       `json:"uid,omitempty"`
	UserRole string       `json:"role,omitempty"`
}

func (c *SessionClaims) TokenPurpose() TokenPurpose { return c.Purpose }

func (c *SessionClaims) stamp(purpose TokenPurpose, reg jwt.RegisteredClaims) {
	reg.Subject = c.UID
	c.Purpose = purpose
	c.RegisteredClaims = reg
}

// UserID returns the asserted user id.
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Role returns the role captured at signin time.
func (c *SessionClaims) Role() string { return c.UserRole }

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAtTime returns the issued at time
func (c *SessionClaims) IssuedAtTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ResetClaims carry the user id of a pending password reset. The token is
// only half the credential: its literal string must still match the copy
// stored on the user record.
type ResetClaims struct {
	jwt.RegisteredClaims
	Purpose TokenPurpose `json:"prp,omitempty"`
	UID     string       `json:"uid,omitempty"`
}

func (c *ResetClaims) TokenPurpose() TokenPurpose { return c.Purpose }

func (c *ResetClaims) stamp(purpose TokenPurpose, reg jwt.RegisteredClaims) {
	reg.Subject = c.UID
	c.Purpose = purpose
	c.RegisteredClaims = reg
}

var (
	_ PurposeClaims = (*ActivationClaims)(nil)
	_ PurposeClaims = (*SessionClaims)(nil)
	_ PurposeClaims = (*ResetClaims)(nil)
)
