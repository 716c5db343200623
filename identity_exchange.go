package accounts

import (
	"context"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// ExternalIdentity is the subset of an external ID token this package cares
// about.
type ExternalIdentity struct {
	Subject       string
	Name          string
	Email         string
	EmailVerified bool
}

// ExternalProviderConfig describes an OIDC style identity provider whose ID
// tokens can be exchanged for local sessions.
type ExternalProviderConfig struct {
	// JWKSEndpoint is the provider JWK Set URL used to verify signatures.
	JWKSEndpoint string
	Issuer       string
	Audience     string
	// RefreshInterval controls background JWKS refresh. Defaults to an hour.
	RefreshInterval time.Duration
}

// ExternalTokenValidator verifies ID tokens minted by an external provider
// against its published JWK Set.
type ExternalTokenValidator struct {
	config ExternalProviderConfig
	jwks   *keyfunc.JWKS
	logger Logger
}

// NewExternalTokenValidator fetches the provider JWKS and returns a validator
// that keeps the key set refreshed in the background.
func NewExternalTokenValidator(cfg ExternalProviderConfig, logger Logger) (*ExternalTokenValidator, error) {
	if logger == nil {
		logger = defLogger{}
	}

	if cfg.JWKSEndpoint == "" {
		return nil, goerrors.New("external provider JWKS endpoint is required", goerrors.CategoryInternal)
	}

	refresh := cfg.RefreshInterval
	if refresh == 0 {
		refresh = time.Hour
	}

	jwks, err := keyfunc.Get(cfg.JWKSEndpoint, keyfunc.Options{
		RefreshInterval:   refresh,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Error("failed to refresh external provider JWK set", "error", err)
		},
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load external provider JWK set")
	}

	return &ExternalTokenValidator{
		config: cfg,
		jwks:   jwks,
		logger: logger,
	}, nil
}

// Validate verifies the raw ID token and extracts the identity it asserts.
// Tokens for unverified email addresses are rejected.
func (v *ExternalTokenValidator) Validate(_ context.Context, rawIDToken string) (*ExternalIdentity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
	}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.config.Audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(rawIDToken, claims, v.jwks.Keyfunc, opts...)
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	identity := &ExternalIdentity{
		Subject:       claimString(claims, "sub"),
		Name:          claimString(claims, "name"),
		Email:         claimString(claims, "email"),
		EmailVerified: claimBool(claims, "email_verified"),
	}

	if identity.Email == "" || !identity.EmailVerified {
		v.logger.Warn("rejected external token without verified email", "sub", identity.Subject)
		return nil, ErrTokenMalformed
	}

	return identity, nil
}

// Close stops the background JWKS refresh.
func (v *ExternalTokenValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

func claimString(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}

func claimBool(claims jwt.MapClaims, key string) bool {
	switch val := claims[key].(type) {
	case bool:
		return val
	case string:
		return val == "true"
	default:
		return false
	}
}
