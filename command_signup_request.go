package accounts

import (
	"context"
	"net/mail"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// SignupRequestMessage carries the signup payload. The request persists
// nothing: the pending account exists only as the signed activation token.
type SignupRequestMessage struct {
	Name       string `json:"name"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	OnResponse func(resp *SignupRequestResponse)
}

func (e SignupRequestMessage) Type() string { return "account.signup_request" }

// SignupRequestResponse exposes the outcome to in-process callers. Token is
// the signed activation token; HTTP handlers must not echo it to clients
// since it only ever travels through the activation email.
type SignupRequestResponse struct {
	Email string
	Token string
}

type SignupRequestHandler struct {
	repo     RepositoryManager
	tokens   *TokenService
	notifier Notifier
	activity ActivitySink
	cfg      Config
	logger   Logger
}

// NewSignupRequestHandler wires the signup request flow. The token service
// must be the activation-purpose service.
func NewSignupRequestHandler(repo RepositoryManager, tokens *TokenService, notifier Notifier, cfg Config) *SignupRequestHandler {
	return &SignupRequestHandler{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		activity: noopActivitySink{},
		cfg:      cfg,
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit signup events.
func (h *SignupRequestHandler) WithActivitySink(sink ActivitySink) *SignupRequestHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *SignupRequestHandler) WithLogger(logger Logger) *SignupRequestHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SignupRequestHandler) Execute(ctx context.Context, event SignupRequestMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupRequestHandler) execute(ctx context.Context, event SignupRequestMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := validateSignupInput(event); err != nil {
		return err
	}

	email := NormalizeEmail(event.Email)

	if _, err := h.repo.Users().GetByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !repository.IsRecordNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	claims := &ActivationClaims{
		Name:         event.Name,
		Username:     event.Username,
		Email:        email,
		PasswordHash: hash,
	}

	token, err := h.tokens.Sign(claims)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign activation token")
	}

	subject, body := activationEmail(event.Name, activationLink(h.cfg.GetClientURL(), token))
	if err := h.notifier.Deliver(ctx, email, subject, body); err != nil {
		h.logger.Error("signup request delivery failed", "email", email, "error", err)
		return goerrors.Wrap(err, ErrDeliveryFailed.Category, ErrDeliveryFailed.Message).
			WithTextCode(ErrDeliveryFailed.TextCode)
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventSignupRequested,
		Actor:     ActorRef{Type: "anonymous"},
		Metadata:  map[string]any{"email": email},
	})

	if event.OnResponse != nil {
		event.OnResponse(&SignupRequestResponse{
			Email: email,
			Token: token,
		})
	}

	return nil
}

func validateSignupInput(event SignupRequestMessage) error {
	missing := map[string]bool{
		"name":     event.Name == "",
		"username": event.Username == "",
		"email":    event.Email == "",
		"password": event.Password == "",
	}

	for field, absent := range missing {
		if absent {
			return goerrors.New("all fields are required", goerrors.CategoryValidation).
				WithCode(goerrors.CodeBadRequest).
				WithMetadata(map[string]any{"field": field})
		}
	}

	if _, err := mail.ParseAddress(event.Email); err != nil {
		return goerrors.New("invalid email address", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"field": "email"})
	}

	return nil
}
