package accounts_test

import (
	"errors"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
)

func TestIsTokenExpiredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "structured expired error",
			err:      accounts.ErrTokenExpired,
			expected: true,
		},
		{
			name:     "wrapped expired error",
			err:      goerrors.Wrap(accounts.ErrTokenExpired, goerrors.CategoryAuth, "session check"),
			expected: true,
		},
		{
			name:     "plain error with matching message",
			err:      errors.New("token is expired"),
			expected: true,
		},
		{
			name:     "malformed is not expired",
			err:      accounts.ErrTokenMalformed,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, accounts.IsTokenExpiredError(tt.err))
		})
	}
}

func TestIsMalformedError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "structured malformed error",
			err:      accounts.ErrTokenMalformed,
			expected: true,
		},
		{
			name:     "missing jwt message",
			err:      errors.New("missing or malformed JWT"),
			expected: true,
		},
		{
			name:     "expired is not malformed",
			err:      accounts.ErrTokenExpired,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, accounts.IsMalformedError(tt.err))
		})
	}
}

func TestSentinelErrorsCarryHTTPCodes(t *testing.T) {
	tests := []struct {
		err  *goerrors.Error
		code int
	}{
		{accounts.ErrEmailTaken, goerrors.CodeConflict},
		{accounts.ErrInvalidCredentials, goerrors.CodeUnauthorized},
		{accounts.ErrInvalidOrExpiredLink, goerrors.CodeUnauthorized},
		{accounts.ErrUnauthenticated, goerrors.CodeUnauthorized},
		{accounts.ErrForbidden, goerrors.CodeForbidden},
		{accounts.ErrIdentityNotFound, goerrors.CodeNotFound},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, tt.err.Code, tt.err.Message)
		assert.NotEmpty(t, tt.err.TextCode, tt.err.Message)
	}
}

func TestStoreNotFoundClassification(t *testing.T) {
	err := repository.NewRecordNotFound()

	// the store reports missing records in its own category; consumers must
	// use the store predicate, the package taxonomy does not match it
	assert.True(t, repository.IsRecordNotFound(err))
	assert.False(t, goerrors.IsNotFound(err))

	assert.False(t, repository.IsRecordNotFound(accounts.ErrIdentityNotFound))
	assert.False(t, repository.IsRecordNotFound(nil))
}
