package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// Auther issues and verifies stateless session tokens. Every session is a
// signed claim set; nothing about the session is stored server side.
type Auther struct {
	provider  IdentityProvider
	tokens    *TokenService
	exchange  *ExternalTokenValidator
	registrar AccountRegistrar
	activity  ActivitySink
	logger    Logger
}

// SigninResult carries the session token along with the public projection
// of the signed-in user.
type SigninResult struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

// NewAuthenticator will create a new Auther instance. The TokenService must
// be the session-purpose service of the suite.
func NewAuthenticator(provider IdentityProvider, sessionTokens *TokenService) *Auther {
	return &Auther{
		provider: provider,
		tokens:   sessionTokens,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (a *Auther) WithLogger(l Logger) *Auther {
	if l != nil {
		a.logger = l
	}
	return a
}

func (a *Auther) WithActivitySink(sink ActivitySink) *Auther {
	a.activity = normalizeActivitySink(sink)
	return a
}

// WithIdentityExchange enables Exchange, letting holders of a verified
// external ID token trade it for a local session.
func (a *Auther) WithIdentityExchange(validator *ExternalTokenValidator, registrar AccountRegistrar) *Auther {
	a.exchange = validator
	a.registrar = registrar
	return a
}

// Login verifies the credentials and mints a session token for the matching
// identity. Credential failures surface as ErrInvalidCredentials regardless
// of which check failed.
func (a *Auther) Login(ctx context.Context, email, password string) (*SigninResult, error) {
	identity, err := a.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		if goerrors.Is(err, ErrInvalidCredentials) {
			recordActivity(ctx, a.activity, a.logger, ActivityEvent{
				EventType: ActivityEventLoginFailure,
				Metadata:  map[string]any{"email": NormalizeEmail(email)},
			})
		}
		return nil, err
	}

	return a.sessionFor(ctx, identity)
}

// Exchange trades a verified external ID token for a local session,
// provisioning the account on first contact.
func (a *Auther) Exchange(ctx context.Context, rawIDToken string) (*SigninResult, error) {
	if a.exchange == nil || a.registrar == nil {
		return nil, goerrors.New("identity exchange is not configured", goerrors.CategoryInternal)
	}

	external, err := a.exchange.Validate(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}

	// never store a usable credential for an exchanged identity
	hash := RandomPasswordHash()

	user, err := a.registrar.GetOrCreate(ctx, &User{
		Name:         external.Name,
		Username:     usernameFromEmail("", external.Email),
		Email:        NormalizeEmail(external.Email),
		PasswordHash: hash,
		Role:         RoleOrdinary,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to provision exchanged identity")
	}

	return a.sessionFor(ctx, identityFromUser(user))
}

func (a *Auther) sessionFor(ctx context.Context, identity Identity) (*SigninResult, error) {
	claims := &SessionClaims{
		UID:      identity.ID(),
		UserRole: identity.Role(),
	}

	token, err := a.tokens.Sign(claims)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, a.activity, a.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     ActorRef{ID: identity.ID(), Type: "user"},
		UserID:    identity.ID(),
	})

	return &SigninResult{
		Token: token,
		User: PublicUser{
			ID:       identity.ID(),
			Username: identity.Username(),
			Name:     identity.Name(),
			Email:    identity.Email(),
			Role:     UserRole(identity.Role()),
		},
	}, nil
}

// SessionFromToken verifies a raw session token and returns its claims.
func (a *Auther) SessionFromToken(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := a.tokens.Validate(raw, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// IdentityFromSession resolves the identity asserted by session claims
// against the identity store.
func (a *Auther) IdentityFromSession(ctx context.Context, claims *SessionClaims) (Identity, error) {
	if claims == nil {
		return nil, ErrUnauthenticated
	}
	return a.provider.FindIdentityByID(ctx, claims.UserID())
}
