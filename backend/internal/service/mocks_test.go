package service

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/accounts/backend/internal/storage/bunt"
	"github.com/itchan-dev/accounts/shared/config"
	"github.com/itchan-dev/accounts/shared/domain"
	internal_errors "github.com/itchan-dev/accounts/shared/errors"
	"github.com/itchan-dev/accounts/shared/hooks"
	"github.com/itchan-dev/accounts/shared/utils"
	"github.com/itchan-dev/accounts/shared/validation"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- Mocks ---

type MockStorage struct {
	CreateAccountFunc      func(account domain.NewAccount, uniqueEmail bool) (domain.AccountId, error)
	AccountByIdFunc        func(id domain.AccountId) (domain.Account, error)
	AccountByUsernameFunc  func(username domain.Username) (domain.Account, error)
	AccountsByEmailFunc    func(email domain.Email) ([]domain.Account, error)
	UpdatePasswordHashFunc func(id domain.AccountId, passHash string) error
	SaveInviteCodeFunc     func(invite domain.InviteCode) error
	InviteCodeFunc         func(username domain.Username) (domain.InviteCode, error)

	SaveResetTokenFunc    func(token domain.ResetToken) error
	ConsumeResetTokenFunc func(id domain.AccountId, codeHash, passHash string, at time.Time) error

	BanAccountFunc             func(entry domain.BanEntry) (bool, error)
	UnbanAccountFunc           func(id domain.AccountId) (bool, error)
	RecentlyBannedAccountsFunc func(since time.Time) ([]domain.AccountId, error)
}

func (m *MockStorage) CreateAccount(account domain.NewAccount, uniqueEmail bool) (domain.AccountId, error) {
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(account, uniqueEmail)
	}
	return uuid.New(), nil
}

func (m *MockStorage) AccountById(id domain.AccountId) (domain.Account, error) {
	if m.AccountByIdFunc != nil {
		return m.AccountByIdFunc(id)
	}
	return domain.Account{}, internal_errors.NotFound("Account not found")
}

func (m *MockStorage) AccountByUsername(username domain.Username) (domain.Account, error) {
	if m.AccountByUsernameFunc != nil {
		return m.AccountByUsernameFunc(username)
	}
	return domain.Account{}, internal_errors.NotFound("Account not found")
}

func (m *MockStorage) AccountsByEmail(email domain.Email) ([]domain.Account, error) {
	if m.AccountsByEmailFunc != nil {
		return m.AccountsByEmailFunc(email)
	}
	return []domain.Account{}, nil
}

func (m *MockStorage) UpdatePasswordHash(id domain.AccountId, passHash string) error {
	if m.UpdatePasswordHashFunc != nil {
		return m.UpdatePasswordHashFunc(id, passHash)
	}
	return nil
}

func (m *MockStorage) SaveInviteCode(invite domain.InviteCode) error {
	if m.SaveInviteCodeFunc != nil {
		return m.SaveInviteCodeFunc(invite)
	}
	return nil
}

func (m *MockStorage) InviteCode(username domain.Username) (domain.InviteCode, error) {
	if m.InviteCodeFunc != nil {
		return m.InviteCodeFunc(username)
	}
	return domain.InviteCode{}, internal_errors.NotFound("Invite code not found")
}

func (m *MockStorage) SaveResetToken(token domain.ResetToken) error {
	if m.SaveResetTokenFunc != nil {
		return m.SaveResetTokenFunc(token)
	}
	return nil
}

func (m *MockStorage) ConsumeResetToken(id domain.AccountId, codeHash, passHash string, at time.Time) error {
	if m.ConsumeResetTokenFunc != nil {
		return m.ConsumeResetTokenFunc(id, codeHash, passHash, at)
	}
	return internal_errors.InvalidToken()
}

func (m *MockStorage) BanAccount(entry domain.BanEntry) (bool, error) {
	if m.BanAccountFunc != nil {
		return m.BanAccountFunc(entry)
	}
	return true, nil
}

func (m *MockStorage) UnbanAccount(id domain.AccountId) (bool, error) {
	if m.UnbanAccountFunc != nil {
		return m.UnbanAccountFunc(id)
	}
	return true, nil
}

func (m *MockStorage) RecentlyBannedAccounts(since time.Time) ([]domain.AccountId, error) {
	if m.RecentlyBannedAccountsFunc != nil {
		return m.RecentlyBannedAccountsFunc(since)
	}
	return nil, nil
}

func (m *MockStorage) Cleanup() error { return nil }

// MockTransport records every notification it is asked to send.
type MockTransport struct {
	SendFunc func(n domain.Notification) error

	mu   sync.Mutex
	sent []domain.Notification
}

func (m *MockTransport) Send(n domain.Notification) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(n); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

func (m *MockTransport) Sent() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Notification(nil), m.sent...)
}

// --- Helpers ---

func testConfig() *config.Public {
	cfg := &config.Public{
		Site: config.Site{Name: "Example", URL: "https://example.com/"},
	}
	cfg.ApplyDefaults()
	cfg.Accounts.BcryptCost = bcrypt.MinCost
	return cfg
}

func testValidator(cfg *config.Public) *validation.Engine {
	return validation.New(validation.Policy{
		UsernameMinLength: cfg.Accounts.UsernameMinLength,
		UsernameMaxLength: cfg.Accounts.UsernameMaxLength,
		ReservedUsernames: cfg.Accounts.ReservedUsernames,
		PasswordMinLength: cfg.Accounts.PasswordMinLength,
		PasswordMaxBytes:  cfg.Accounts.PasswordMaxBytes,
	})
}

func testHasher() *utils.Hasher {
	return utils.NewHasher("test-pepper-0123456789")
}

func testURLs(t *testing.T, cfg *config.Public) *URLs {
	t.Helper()
	urls, err := NewURLs(cfg.Site.URL)
	require.NoError(t, err)
	return urls
}

// testBunt is a real in-memory store for tests that need state to persist
// between calls.
func testBunt(t *testing.T) *bunt.Storage {
	t.Helper()
	s, err := bunt.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Cleanup() })
	return s
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEnv wires the services over one storage the way setup does.
type testEnv struct {
	cfg           *config.Public
	storage       Storage
	transport     *MockTransport
	clock         *fakeClock
	credentials   *Credentials
	passwords     *Passwords
	urls          *URLs
	registration  *Registration
	reset         *ResetTokens
	notifications *Notifications
	bans          *Bans
}

func newTestEnv(t *testing.T, storage Storage, cfg *config.Public) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	transport := &MockTransport{}
	clock := newFakeClock()
	hasher := testHasher()
	validator := testValidator(cfg)
	urls := testURLs(t, cfg)
	passwords := NewPasswords(cfg.Accounts.BcryptCost)

	credentials := NewCredentials(storage, hasher, cfg.Invites.CodeLength)
	credentials.now = clock.Now
	reset := NewResetTokens(credentials, storage, passwords, validator, hasher, transport, urls, cfg)
	reset.now = clock.Now
	notifications := NewNotifications(credentials, transport, 0)
	events := hooks.NewBus[domain.AccountEvent]()
	bans := NewBans(storage, credentials, events, notifications, nil)
	bans.now = clock.Now
	NewBanNotifier(transport, urls, cfg).Register(events, notifications)

	return &testEnv{
		cfg:           cfg,
		storage:       storage,
		transport:     transport,
		clock:         clock,
		credentials:   credentials,
		passwords:     passwords,
		urls:          urls,
		registration:  NewRegistration(credentials, passwords, validator, cfg),
		reset:         reset,
		notifications: notifications,
		bans:          bans,
	}
}

func (e *testEnv) register(t *testing.T, username, email string) domain.AccountId {
	t.Helper()
	id, err := e.registration.Register(RegisterRequest{
		Username: username,
		Password: "password123",
		Email:    email,
	})
	require.NoError(t, err)
	return id
}
