package accounts

import (
	"context"
	"fmt"
	"time"
)

// Logger is the minimal logging surface the package depends on. Hosts plug
// in their own implementation; defLogger prints to stdout.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Name() string
	Username() string
	Email() string
	Role() string
}

// IdentityProvider ensures we have a store to retrieve auth identities
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	FindIdentityByID(ctx context.Context, id string) (Identity, error)
}

// AccountRegistrar gets or creates user records for identities that arrive
// through a channel other than the signup flow, e.g. an external ID token.
type AccountRegistrar interface {
	GetOrCreate(ctx context.Context, record *User) (*User, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Config holds account options. Signing keys MUST differ per purpose so a
// token minted for one flow can never verify in another.
type Config interface {
	GetActivationSigningKey() string
	GetSessionSigningKey() string
	GetResetSigningKey() string
	GetActivationTTL() time.Duration
	GetSessionTTL() time.Duration
	GetResetTTL() time.Duration
	GetIssuer() string
	GetClientURL() string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
}

const (
	// DefaultActivationTTL bounds how long a signup can sit unconfirmed.
	DefaultActivationTTL = 10 * time.Minute
	// DefaultSessionTTL is the session token lifetime.
	DefaultSessionTTL = 240 * time.Hour
	// DefaultResetTTL bounds the password reset window.
	DefaultResetTTL = 10 * time.Minute
)

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
