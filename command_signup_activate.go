package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// ActivateAccountMessage turns a still-valid activation token into a
// persisted account. This is the only path that creates users.
type ActivateAccountMessage struct {
	Token      string `json:"token"`
	OnResponse func(resp *ActivateAccountResponse)
}

func (e ActivateAccountMessage) Type() string { return "account.activate" }

type ActivateAccountResponse struct {
	User *User
}

type ActivateAccountHandler struct {
	repo     RepositoryManager
	tokens   *TokenService
	activity ActivitySink
	cfg      Config
	logger   Logger
}

// NewActivateAccountHandler wires the activation flow. The token service
// must be the activation-purpose service.
func NewActivateAccountHandler(repo RepositoryManager, tokens *TokenService, cfg Config) *ActivateAccountHandler {
	return &ActivateAccountHandler{
		repo:     repo,
		tokens:   tokens,
		activity: noopActivitySink{},
		cfg:      cfg,
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit activation events.
func (h *ActivateAccountHandler) WithActivitySink(sink ActivitySink) *ActivateAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ActivateAccountHandler) WithLogger(logger Logger) *ActivateAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	claims := &ActivationClaims{}
	if err := h.tokens.Validate(event.Token, claims); err != nil {
		h.logger.Error("account activation token rejected", "error", err)
		return ErrInvalidOrExpiredLink
	}

	user := &User{}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// The request-time availability check may be stale by now; re-check,
		// then let the store's unique index settle any remaining race.
		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, claims.Email); err == nil {
			return ErrEmailTaken
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to re-check email availability")
		}

		user.Name = claims.Name
		user.Username = claims.Username
		user.Email = claims.Email
		user.PasswordHash = claims.PasswordHash
		user.Role = RoleOrdinary
		user.ProfileURL = ProfileURL(h.cfg.GetClientURL(), claims.Username)
		if id, err := hashid.NewUUID(claims.Email); err == nil {
			user.ID = id
		}

		created, err := h.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			if isUniqueViolation(err) || goerrors.Is(err, ErrEmailTaken) {
				return ErrEmailTaken
			}
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		user = created
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account activation transaction failed")
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventAccountActivated,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		Metadata:  map[string]any{"email": user.Email},
	})

	if event.OnResponse != nil {
		event.OnResponse(&ActivateAccountResponse{User: user})
	}

	return nil
}
