package accounts_test

import (
	"context"
	"database/sql"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSignupRequestIssuesActivationTokenWithoutPersisting(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	notifier := &MockNotifier{}
	sink := &MockActivitySink{}
	cfg := newTestConfig()
	suite := accounts.NewTokenSuite(cfg, testLogger{})

	repo.On("Users").Return(users).Once()
	users.On("GetByEmail", mock.Anything, "grace@example.com").
		Return(nil, repository.NewRecordNotFound()).Once()

	var deliveredBody string
	notifier.On("Deliver", mock.Anything, "grace@example.com", mock.Anything, mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			deliveredBody = args.String(3)
		}).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt accounts.ActivityEvent) bool {
		return evt.EventType == accounts.ActivityEventSignupRequested
	})).Return(nil).Once()

	handler := accounts.NewSignupRequestHandler(repo, suite.Activation, notifier, cfg).
		WithActivitySink(sink).
		WithLogger(testLogger{})

	var resp *accounts.SignupRequestResponse
	err := handler.Execute(ctx, accounts.SignupRequestMessage{
		Name:     "Grace Hopper",
		Username: "ghopper",
		Email:    "Grace@Example.com",
		Password: "Sup3r$ecret",
		OnResponse: func(r *accounts.SignupRequestResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, "grace@example.com", resp.Email)
	assert.Contains(t, deliveredBody, resp.Token)

	// the pending account lives entirely in the token
	claims := &accounts.ActivationClaims{}
	require.NoError(t, suite.Activation.Validate(resp.Token, claims))
	assert.Equal(t, "Grace Hopper", claims.Name)
	assert.Equal(t, "ghopper", claims.Username)
	assert.Equal(t, "grace@example.com", claims.Email)
	assert.NotEqual(t, "Sup3r$ecret", claims.PasswordHash)
	require.NoError(t, accounts.ComparePasswordAndHash("Sup3r$ecret", claims.PasswordHash))

	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)

	repo.AssertExpectations(t)
	users.AssertExpectations(t)
	notifier.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestSignupRequestRejectsTakenEmail(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	notifier := &MockNotifier{}
	cfg := newTestConfig()
	suite := accounts.NewTokenSuite(cfg, testLogger{})

	repo.On("Users").Return(users).Once()
	users.On("GetByEmail", mock.Anything, "taken@example.com").
		Return(&accounts.User{ID: uuid.New(), Email: "taken@example.com"}, nil).Once()

	handler := accounts.NewSignupRequestHandler(repo, suite.Activation, notifier, cfg).
		WithLogger(testLogger{})

	err := handler.Execute(context.Background(), accounts.SignupRequestMessage{
		Name:     "Somebody Else",
		Username: "somebody",
		Email:    "taken@example.com",
		Password: "Sup3r$ecret",
	})
	require.ErrorIs(t, err, accounts.ErrEmailTaken)

	notifier.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSignupRequestRejectsMissingFields(t *testing.T) {
	cfg := newTestConfig()
	suite := accounts.NewTokenSuite(cfg, testLogger{})
	handler := accounts.NewSignupRequestHandler(&MockRepositoryManager{}, suite.Activation, &MockNotifier{}, cfg).
		WithLogger(testLogger{})

	err := handler.Execute(context.Background(), accounts.SignupRequestMessage{
		Name:  "No Password",
		Email: "np@example.com",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryValidation, richErr.Category)
}

func TestSignupRequestSurfacesDeliveryFailure(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	notifier := &MockNotifier{}
	cfg := newTestConfig()
	suite := accounts.NewTokenSuite(cfg, testLogger{})

	repo.On("Users").Return(users).Once()
	users.On("GetByEmail", mock.Anything, "grace@example.com").
		Return(nil, repository.NewRecordNotFound()).Once()
	notifier.On("Deliver", mock.Anything, "grace@example.com", mock.Anything, mock.Anything).
		Return(goerrors.New("smtp unavailable", goerrors.CategoryOperation)).Once()

	handler := accounts.NewSignupRequestHandler(repo, suite.Activation, notifier, cfg).
		WithLogger(testLogger{})

	err := handler.Execute(context.Background(), accounts.SignupRequestMessage{
		Name:     "Grace Hopper",
		Username: "ghopper",
		Email:    "grace@example.com",
		Password: "Sup3r$ecret",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, accounts.ErrDeliveryFailed.TextCode, richErr.TextCode)
}

func TestActivateAccountCreatesUserFromToken(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	sink := &MockActivitySink{}
	cfg := newTestConfig()
	suite := accounts.NewTokenSuite(cfg, testLogger{})

	hash, err := accounts.HashPassword("Sup3r$ecret")
	require.NoError(t, err)

	token, err := suite.Activation.Sign(&accounts.ActivationClaims{
		Name:         "Grace Hopper",
		Username:     "ghopper",
		Email:        "grace@example.com",
		PasswordHash: hash,
	})
	require.NoError(t, err)

	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil).Once()
	repo.On("Users").Return(users).Twice()
	users.On("GetByEmailTx", mock.Anything, mock.Anything, "grace@example.com").
		Return(nil, repository.NewRecordNotFound()).Once()

	users.On("CreateTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u *accounts.User) bool {
		return u.Email == "grace@example.com" &&
			u.Username == "ghopper" &&
			u.PasswordHash == hash &&
			u.Role == accounts.RoleOrdinary &&
			u.ID != uuid.Nil
	})).Return(&accounts.User{
		ID:       uuid.New(),
		Name:     "Grace Hopper",
		Username: "ghopper",
		Email:    "grace@example.com",
		Role:     accounts.RoleOrdinary,
	}, nil).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt accounts.ActivityEvent) bool {
		return evt.EventType == accounts.ActivityEventAccountActivated
	})).Return(nil).Once()

	handler := accounts.NewActivateAccountHandler(repo, suite.Activation, cfg).
		WithActivitySink(sink).
		WithLogger(testLogger{})

	var resp *accounts.ActivateAccountResponse
	err = handler.Execute(context.Background(), accounts.ActivateAccountMessage{
		Token: token,
		OnResponse: func(r *accounts.ActivateAccountResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "grace@example.com", resp.User.Email)

	repo.AssertExpectations(t)
	users.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestActivateAccountRejectsSpentOrDuplicateToken(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	cfg := newTestConfig()
	suite := accounts.NewTokenSuite(cfg, testLogger{})

	token, err := suite.Activation.Sign(&accounts.ActivationClaims{
		Name:         "Grace Hopper",
		Username:     "ghopper",
		Email:        "grace@example.com",
		PasswordHash: "$2a$12$whatever",
	})
	require.NoError(t, err)

	// second submission of the same link finds the account already there
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil).Once()
	repo.On("Users").Return(users).Once()
	users.On("GetByEmailTx", mock.Anything, mock.Anything, "grace@example.com").
		Return(&accounts.User{ID: uuid.New(), Email: "grace@example.com"}, nil).Once()

	handler := accounts.NewActivateAccountHandler(repo, suite.Activation, cfg).
		WithLogger(testLogger{})

	err = handler.Execute(context.Background(), accounts.ActivateAccountMessage{Token: token})
	require.ErrorIs(t, err, accounts.ErrEmailTaken)

	users.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestActivateAccountRejectsBadToken(t *testing.T) {
	cfg := newTestConfig()
	suite := accounts.NewTokenSuite(cfg, testLogger{})

	handler := accounts.NewActivateAccountHandler(&MockRepositoryManager{}, suite.Activation, cfg).
		WithLogger(testLogger{})

	err := handler.Execute(context.Background(), accounts.ActivateAccountMessage{Token: "garbage"})
	require.ErrorIs(t, err, accounts.ErrInvalidOrExpiredLink)

	// a session token is not an activation token
	session, err2 := suite.Session.Sign(&accounts.SessionClaims{UID: uuid.NewString()})
	require.NoError(t, err2)

	err = handler.Execute(context.Background(), accounts.ActivateAccountMessage{Token: session})
	require.ErrorIs(t, err, accounts.ErrInvalidOrExpiredLink)
}
