package accounts_test

import (
	"context"
	"database/sql"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPasswordResetRequestStoresLinkAndDelivers(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	notifier := &MockNotifier{}
	sink := &MockActivitySink{}
	cfg := newTestConfig()
	suite := accounts.NewTokenSuite(cfg, testLogger{})

	userID := uuid.New()
	user := &accounts.User{
		ID:    userID,
		Name:  "Grace Hopper",
		Email: "grace@example.com",
	}

	var storedLink string

	repo.On("Users").Return(users).Twice()
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil).Once()

	users.On("GetByEmail", mock.Anything, "grace@example.com").Return(user, nil).Once()
	users.On("SetResetLinkTx", mock.Anything, mock.Anything, userID, mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			storedLink = args.String(3)
		}).Once()

	var deliveredBody string
	notifier.On("Deliver", mock.Anything, "grace@example.com", mock.Anything, mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			deliveredBody = args.String(3)
		}).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt accounts.ActivityEvent) bool {
		return evt.EventType == accounts.ActivityEventPasswordResetRequest &&
			evt.UserID == userID.String()
	})).Return(nil).Once()

	handler := accounts.NewPasswordResetRequestHandler(repo, suite.Reset, notifier, cfg).
		WithActivitySink(sink).
		WithLogger(testLogger{})

	var resp *accounts.PasswordResetRequestResponse
	err := handler.Execute(context.Background(), accounts.PasswordResetRequestMessage{
		Email: "grace@example.com",
		OnResponse: func(r *accounts.PasswordResetRequestResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	// the emailed token and the stored copy have to be the same string
	assert.Equal(t, resp.Token, storedLink)
	assert.Contains(t, deliveredBody, resp.Token)

	claims := &accounts.ResetClaims{}
	require.NoError(t, suite.Reset.Validate(resp.Token, claims))
	assert.Equal(t, userID.String(), claims.UID)

	repo.AssertExpectations(t)
	users.AssertExpectations(t)
	notifier.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestPasswordResetRequestUnknownEmail(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	notifier := &MockNotifier{}
	cfg := newTestConfig()
	suite := accounts.NewTokenSuite(cfg, testLogger{})

	repo.On("Users").Return(users).Once()
	users.On("GetByEmail", mock.Anything, "nobody@example.com").
		Return(nil, repository.NewRecordNotFound()).Once()

	handler := accounts.NewPasswordResetRequestHandler(repo, suite.Reset, notifier, cfg).
		WithLogger(testLogger{})

	err := handler.Execute(context.Background(), accounts.PasswordResetRequestMessage{
		Email: "nobody@example.com",
	})
	require.ErrorIs(t, err, accounts.ErrIdentityNotFound)

	notifier.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPasswordResetSubmitSpendsLink(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	sink := &MockActivitySink{}
	cfg := newTestConfig()
	suite := accounts.NewTokenSuite(cfg, testLogger{})

	userID := uuid.New()

	token, err := suite.Reset.Sign(&accounts.ResetClaims{UID: userID.String()})
	require.NoError(t, err)

	repo.On("Users").Return(users).Once()
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil).Once()

	var newHash string
	users.On("SpendResetLinkTx", mock.Anything, mock.Anything, token, mock.Anything).
		Return(&accounts.User{ID: userID, Email: "grace@example.com"}, nil).
		Run(func(args mock.Arguments) {
			newHash = args.String(3)
		}).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt accounts.ActivityEvent) bool {
		return evt.EventType == accounts.ActivityEventPasswordResetSuccess &&
			evt.UserID == userID.String()
	})).Return(nil).Once()

	handler := accounts.NewPasswordResetSubmitHandler(repo, suite.Reset).
		WithActivitySink(sink).
		WithLogger(testLogger{})

	err = handler.Execute(context.Background(), accounts.PasswordResetSubmitMessage{
		Token:       token,
		NewPassword: "N3w$ecret!",
	})
	require.NoError(t, err)

	// the handler persists a hash, never the plaintext
	assert.NotEqual(t, "N3w$ecret!", newHash)
	require.NoError(t, accounts.ComparePasswordAndHash("N3w$ecret!", newHash))

	repo.AssertExpectations(t)
	users.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestPasswordResetSubmitRejectsSpentLink(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	cfg := newTestConfig()
	suite := accounts.NewTokenSuite(cfg, testLogger{})

	token, err := suite.Reset.Sign(&accounts.ResetClaims{UID: uuid.NewString()})
	require.NoError(t, err)

	repo.On("Users").Return(users).Once()
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil).Once()

	// the stored copy is gone: a previous submission already spent it
	users.On("SpendResetLinkTx", mock.Anything, mock.Anything, token, mock.Anything).
		Return(nil, repository.NewRecordNotFound()).Once()

	handler := accounts.NewPasswordResetSubmitHandler(repo, suite.Reset).
		WithLogger(testLogger{})

	err = handler.Execute(context.Background(), accounts.PasswordResetSubmitMessage{
		Token:       token,
		NewPassword: "N3w$ecret!",
	})
	require.ErrorIs(t, err, accounts.ErrInvalidOrExpiredLink)
}

func TestPasswordResetSubmitRejectsMismatchedSubject(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	cfg := newTestConfig()
	suite := accounts.NewTokenSuite(cfg, testLogger{})

	token, err := suite.Reset.Sign(&accounts.ResetClaims{UID: uuid.NewString()})
	require.NoError(t, err)

	repo.On("Users").Return(users).Once()
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil).Once()

	// the guarded update matched a row that is not the token subject
	users.On("SpendResetLinkTx", mock.Anything, mock.Anything, token, mock.Anything).
		Return(&accounts.User{ID: uuid.New()}, nil).Once()

	handler := accounts.NewPasswordResetSubmitHandler(repo, suite.Reset).
		WithLogger(testLogger{})

	err = handler.Execute(context.Background(), accounts.PasswordResetSubmitMessage{
		Token:       token,
		NewPassword: "N3w$ecret!",
	})
	require.ErrorIs(t, err, accounts.ErrInvalidOrExpiredLink)
}

func TestPasswordResetSubmitRejectsBadToken(t *testing.T) {
	cfg := newTestConfig()
	suite := accounts.NewTokenSuite(cfg, testLogger{})

	handler := accounts.NewPasswordResetSubmitHandler(&MockRepositoryManager{}, suite.Reset).
		WithLogger(testLogger{})

	err := handler.Execute(context.Background(), accounts.PasswordResetSubmitMessage{
		Token:       "garbage",
		NewPassword: "N3w$ecret!",
	})
	require.ErrorIs(t, err, accounts.ErrInvalidOrExpiredLink)

	// an activation token is not a reset token
	activation, err2 := suite.Activation.Sign(&accounts.ActivationClaims{Email: "a@example.com"})
	require.NoError(t, err2)

	err = handler.Execute(context.Background(), accounts.PasswordResetSubmitMessage{
		Token:       activation,
		NewPassword: "N3w$ecret!",
	})
	require.ErrorIs(t, err, accounts.ErrInvalidOrExpiredLink)
}
