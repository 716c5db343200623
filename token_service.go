package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService signs and verifies the claims of exactly one TokenPurpose.
// Verification fails closed: parse, signature, expiry, or purpose problems
// all reject, never best-effort accept.
type TokenService struct {
	purpose    TokenPurpose
	signingKey []byte
	ttl        time.Duration
	issuer     string
	logger     Logger
}

// NewTokenService creates a purpose-scoped TokenService instance
func NewTokenService(purpose TokenPurpose, signingKey []byte, ttl time.Duration, issuer string, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenService{
		purpose:    purpose,
		signingKey: signingKey,
		ttl:        ttl,
		issuer:     issuer,
		logger:     logger,
	}
}

// Purpose returns the purpose this service signs for.
func (ts *TokenService) Purpose() TokenPurpose { return ts.purpose }

// TTL returns the configured token lifetime.
func (ts *TokenService) TTL() time.Duration { return ts.ttl }

// Sign stamps registered claims (iss, iat, exp, jti) and the service purpose
// onto the given claims, then signs them with the purpose key.
func (ts *TokenService) Sign(claims PurposeClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	now := time.Now()
	claims.stamp(ts.purpose, jwt.RegisteredClaims{
		Issuer:    ts.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		ID:        uuid.NewString(),
	})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and verifies a token string into the given claims value.
// The zero-value claims type selects which token class is expected.
func (ts *TokenService) Validate(tokenString string, into PurposeClaims) error {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, into, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token service validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if !token.Valid {
		ts.logger.Error("token service validate could not verify claims")
		return ErrTokenMalformed
	}

	if into.TokenPurpose() != ts.purpose {
		ts.logger.Error("token service validate purpose mismatch", "want", ts.purpose, "got", into.TokenPurpose())
		return ErrTokenMalformed
	}

	return nil
}

// TokenSuite bundles the three purpose-scoped services a deployment needs.
type TokenSuite struct {
	Activation *TokenService
	Session    *TokenService
	Reset      *TokenService
}

// NewTokenSuite builds activation, session, and reset services from config,
// filling in package defaults for any zero TTL.
func NewTokenSuite(cfg Config, logger Logger) *TokenSuite {
	if logger == nil {
		logger = defLogger{}
	}

	activationTTL := cfg.GetActivationTTL()
	if activationTTL == 0 {
		activationTTL = DefaultActivationTTL
	}

	sessionTTL := cfg.GetSessionTTL()
	if sessionTTL == 0 {
		sessionTTL = DefaultSessionTTL
	}

	resetTTL := cfg.GetResetTTL()
	if resetTTL == 0 {
		resetTTL = DefaultResetTTL
	}

	return &TokenSuite{
		Activation: NewTokenService(PurposeActivation, []byte(cfg.GetActivationSigningKey()), activationTTL, cfg.GetIssuer(), logger),
		Session:    NewTokenService(PurposeSession, []byte(cfg.GetSessionSigningKey()), sessionTTL, cfg.GetIssuer(), logger),
		Reset:      NewTokenService(PurposeReset, []byte(cfg.GetResetSigningKey()), resetTTL, cfg.GetIssuer(), logger),
	}
}
