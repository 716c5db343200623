package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// PasswordResetRequestMessage starts the forgot-password flow for an email.
type PasswordResetRequestMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *PasswordResetRequestResponse)
}

func (e PasswordResetRequestMessage) Type() string { return "account.password_reset_request" }

// PasswordResetRequestResponse exposes the issued token to in-process
// callers; clients only ever see it inside the reset email.
type PasswordResetRequestResponse struct {
	Email string
	Token string
}

type PasswordResetRequestHandler struct {
	repo     RepositoryManager
	tokens   *TokenService
	notifier Notifier
	activity ActivitySink
	cfg      Config
	logger   Logger
}

// NewPasswordResetRequestHandler wires the forgot-password flow. The token
// service must be the reset-purpose service.
func NewPasswordResetRequestHandler(repo RepositoryManager, tokens *TokenService, notifier Notifier, cfg Config) *PasswordResetRequestHandler {
	return &PasswordResetRequestHandler{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		activity: noopActivitySink{},
		cfg:      cfg,
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit reset events.
func (h *PasswordResetRequestHandler) WithActivitySink(sink ActivitySink) *PasswordResetRequestHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *PasswordResetRequestHandler) WithLogger(logger Logger) *PasswordResetRequestHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *PasswordResetRequestHandler) Execute(ctx context.Context, event PasswordResetRequestMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *PasswordResetRequestHandler) execute(ctx context.Context, event PasswordResetRequestMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := NormalizeEmail(event.Email)

	user, err := h.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	claims := &ResetClaims{UID: user.ID.String()}
	token, err := h.tokens.Sign(claims)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign reset token")
	}

	// The stored copy makes the token single-use: submission only succeeds
	// while the literal string is still on the record.
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Users().SetResetLinkTx(ctx, tx, user.ID, token)
	})
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store reset link")
	}

	subject, body := resetEmail(user.Name, resetLink(h.cfg.GetClientURL(), token))
	if err := h.notifier.Deliver(ctx, user.Email, subject, body); err != nil {
		h.logger.Error("password reset delivery failed", "email", user.Email, "error", err)
		return goerrors.Wrap(err, ErrDeliveryFailed.Category, ErrDeliveryFailed.Message).
			WithTextCode(ErrDeliveryFailed.TextCode)
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventPasswordResetRequest,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		Metadata:  map[string]any{"email": user.Email},
	})

	if event.OnResponse != nil {
		event.OnResponse(&PasswordResetRequestResponse{
			Email: user.Email,
			Token: token,
		})
	}

	return nil
}
