package accounts_test

import (
	"context"
	"database/sql"
	"time"

	accounts "github.com/goliatone/go-accounts"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// testConfig satisfies accounts.Config with distinct per purpose keys so
// cross purpose token replay fails in tests the same way it does in
// production.
type testConfig struct {
	activationTTL time.Duration
	sessionTTL    time.Duration
	resetTTL      time.Duration
}

func newTestConfig() *testConfig {
	return &testConfig{}
}

func (c *testConfig) GetActivationSigningKey() string { return "test-activation-signing-key" }
func (c *testConfig) GetSessionSigningKey() string    { return "test-session-signing-key" }
func (c *testConfig) GetResetSigningKey() string      { return "test-reset-signing-key" }

func (c *testConfig) GetActivationTTL() time.Duration {
	if c.activationTTL != 0 {
		return c.activationTTL
	}
	return accounts.DefaultActivationTTL
}

func (c *testConfig) GetSessionTTL() time.Duration {
	if c.sessionTTL != 0 {
		return c.sessionTTL
	}
	return accounts.DefaultSessionTTL
}

func (c *testConfig) GetResetTTL() time.Duration {
	if c.resetTTL != 0 {
		return c.resetTTL
	}
	return accounts.DefaultResetTTL
}

func (c *testConfig) GetIssuer() string      { return "accounts-test" }
func (c *testConfig) GetClientURL() string   { return "http://client.example.com" }
func (c *testConfig) GetContextKey() string  { return "user" }
func (c *testConfig) GetTokenLookup() string { return "header:Authorization" }
func (c *testConfig) GetAuthScheme() string  { return "Bearer" }

// MockUsers embeds the interface so only the methods a test arranges need
// definitions; anything else panics loudly if touched.
type MockUsers struct {
	mock.Mock
	accounts.Users
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*accounts.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*accounts.User, error) {
	args := m.Called(ctx, tx, email)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*accounts.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) Create(ctx context.Context, record *accounts.User, criteria ...repository.InsertCriteria) (*accounts.User, error) {
	args := m.Called(ctx, record)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.User, criteria ...repository.InsertCriteria) (*accounts.User, error) {
	args := m.Called(ctx, tx, record)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetOrCreate(ctx context.Context, record *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, record)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) SetResetLinkTx(ctx context.Context, tx bun.IDB, id uuid.UUID, link string) error {
	args := m.Called(ctx, tx, id, link)
	return args.Error(0)
}

func (m *MockUsers) SpendResetLinkTx(ctx context.Context, tx bun.IDB, link, passwordHash string) (*accounts.User, error) {
	args := m.Called(ctx, tx, link, passwordHash)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

type MockRepositoryManager struct {
	mock.Mock
	accounts.RepositoryManager
}

func (m *MockRepositoryManager) Users() accounts.Users {
	args := m.Called()
	return args.Get(0).(accounts.Users)
}

func (m *MockRepositoryManager) Blogs() accounts.Blogs {
	args := m.Called()
	return args.Get(0).(accounts.Blogs)
}

// RunInTx records the call, then executes the closure against a zero value
// transaction so the unit under test exercises its real transactional logic.
func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(context.Context, bun.Tx) error) error {
	m.Called(ctx, opts, f)
	var tx bun.Tx
	return f(ctx, tx)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Deliver(ctx context.Context, to, subject, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Error(0)
}

type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event accounts.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type capturingSink struct {
	events []accounts.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt accounts.ActivityEvent) error {
	c.events = append(c.events, evt)
	return nil
}
