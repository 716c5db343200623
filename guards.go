package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"

	"github.com/goliatone/go-accounts/middleware/jwtware"
)

// NewSessionTokenValidator adapts the session TokenService to the middleware
// TokenValidator interface.
func NewSessionTokenValidator(tokens *TokenService) jwtware.TokenValidator {
	return sessionTokenValidator{tokens: tokens}
}

type sessionTokenValidator struct {
	tokens *TokenService
}

func (v sessionTokenValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims := &SessionClaims{}
	if err := v.tokens.Validate(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// GetRouterClaims extracts the SessionClaims the signin guard stored in the
// router context.
func GetRouterClaims(ctx router.Context, key string) (*SessionClaims, bool) {
	if key == "" {
		key = "user"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(*SessionClaims)
	return claims, ok
}

// OwnedResource is any record that knows which user owns it.
type OwnedResource interface {
	OwnerID() uuid.UUID
}

// ResourceLoader resolves the resource targeted by the current request,
// usually from a route parameter.
type ResourceLoader func(ctx router.Context) (OwnedResource, error)

// Guards builds the middleware chain that protects resource routes: signin
// check, then account resolution, then ownership or role checks.
type Guards struct {
	cfg          Config
	users        Users
	sessions     *TokenService
	logger       Logger
	ErrorHandler func(router.Context, error) error
}

// NewGuards will create the middleware factory for protected routes.
func NewGuards(cfg Config, users Users, sessions *TokenService) *Guards {
	g := &Guards{
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		logger:   defLogger{},
	}
	g.ErrorHandler = g.defaultErrHandler
	return g
}

func (g *Guards) WithLogger(l Logger) *Guards {
	if l != nil {
		g.logger = l
	}
	return g
}

// RequireSignin rejects requests without a verifiable session token. On
// success the claims are stored in the router context and the standard
// context for the guards further down the chain.
func (g *Guards) RequireSignin() router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		TokenValidator: NewSessionTokenValidator(g.sessions),
		ContextKey:     g.cfg.GetContextKey(),
		TokenLookup:    g.cfg.GetTokenLookup(),
		AuthScheme:     g.cfg.GetAuthScheme(),
		ErrorHandler:   g.signinErrHandler,
		ContextEnricher: func(c context.Context, claims jwtware.AuthClaims) context.Context {
			if sc, ok := claims.(*SessionClaims); ok {
				return WithClaimsContext(c, sc)
			}
			return c
		},
	})
}

// RequireUser resolves the session claims to a stored account. A session
// whose user no longer exists is treated as unauthenticated, not as an
// internal error.
func (g *Guards) RequireUser() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			claims, ok := GetRouterClaims(ctx, g.cfg.GetContextKey())
			if !ok {
				return g.ErrorHandler(ctx, ErrUnauthenticated)
			}

			user, err := g.users.GetByID(ctx.Context(), claims.UserID())
			if err != nil {
				if repository.IsRecordNotFound(err) {
					return g.ErrorHandler(ctx, ErrUnauthenticated)
				}
				return g.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve session user"))
			}

			ctx.SetContext(WithContext(ctx.Context(), user))
			return next(ctx)
		}
	}
}

// RequireOwnership lets the resource owner and admins through, everyone else
// gets a forbidden response. Must run after RequireUser.
func (g *Guards) RequireOwnership(load ResourceLoader) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			user, ok := FromContext(ctx.Context())
			if !ok {
				return g.ErrorHandler(ctx, ErrUnauthenticated)
			}

			resource, err := load(ctx)
			if err != nil {
				return g.ErrorHandler(ctx, err)
			}

			if user.Role != RoleAdmin && resource.OwnerID() != user.ID {
				g.logger.Info("ownership check rejected request",
					"user", user.ID.String(),
					"owner", resource.OwnerID().String(),
					"path", ctx.OriginalURL(),
				)
				return g.ErrorHandler(ctx, ErrForbidden)
			}

			return next(ctx)
		}
	}
}

// RequireAdmin restricts the route to admin accounts. Must run after
// RequireUser.
func (g *Guards) RequireAdmin() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			user, ok := FromContext(ctx.Context())
			if !ok {
				return g.ErrorHandler(ctx, ErrUnauthenticated)
			}

			if user.Role != RoleAdmin {
				return g.ErrorHandler(ctx, ErrForbidden)
			}

			return next(ctx)
		}
	}
}

func (g *Guards) signinErrHandler(ctx router.Context, err error) error {
	var richErr *goerrors.Error

	if IsTokenExpiredError(err) {
		richErr = ErrTokenExpired
	} else if IsMalformedError(err) {
		richErr = ErrTokenMalformed
	} else if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryAuth, "Invalid authentication token").
			WithCode(goerrors.CodeUnauthorized)
	}

	return g.ErrorHandler(ctx, richErr)
}

func (g *Guards) defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	g.logger.Info(
		"Guard error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	return c.JSON(richErr.Code, map[string]any{
		"error": richErr.Message,
		"code":  richErr.TextCode,
	})
}
