package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// PasswordResetSubmitMessage finalizes a password reset with the token the
// user received by email.
type PasswordResetSubmitMessage struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
	OnResponse  func(resp *PasswordResetSubmitResponse)
}

func (e PasswordResetSubmitMessage) Type() string { return "account.password_reset_submit" }

type PasswordResetSubmitResponse struct {
	User *User
}

type PasswordResetSubmitHandler struct {
	repo     RepositoryManager
	tokens   *TokenService
	activity ActivitySink
	logger   Logger
}

// NewPasswordResetSubmitHandler wires the reset submission flow. The token
// service must be the reset-purpose service.
func NewPasswordResetSubmitHandler(repo RepositoryManager, tokens *TokenService) *PasswordResetSubmitHandler {
	return &PasswordResetSubmitHandler{
		repo:     repo,
		tokens:   tokens,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit reset events.
func (h *PasswordResetSubmitHandler) WithActivitySink(sink ActivitySink) *PasswordResetSubmitHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *PasswordResetSubmitHandler) WithLogger(logger Logger) *PasswordResetSubmitHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *PasswordResetSubmitHandler) Execute(ctx context.Context, event PasswordResetSubmitMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset submission",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *PasswordResetSubmitHandler) execute(ctx context.Context, event PasswordResetSubmitMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	claims := &ResetClaims{}
	if err := h.tokens.Validate(event.Token, claims); err != nil {
		h.logger.Error("password reset token rejected", "error", err)
		return ErrInvalidOrExpiredLink
	}

	passwordHash, err := HashPassword(event.NewPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	user := &User{}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Hash write and link clear are one guarded statement; a token whose
		// stored copy is gone (already spent, or never issued) matches no row.
		updated, err := h.repo.Users().SpendResetLinkTx(ctx, tx, event.Token, passwordHash)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidOrExpiredLink
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password")
		}

		if updated.ID.String() != claims.UID {
			return ErrInvalidOrExpiredLink
		}

		user = updated
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
	})

	if event.OnResponse != nil {
		event.OnResponse(&PasswordResetSubmitResponse{User: user})
	}

	return nil
}
