package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/itchan-dev/accounts/backend/internal/service"
	"github.com/itchan-dev/accounts/shared/config"
	"github.com/itchan-dev/accounts/shared/domain"
	mw "github.com/itchan-dev/accounts/shared/middleware"
	"github.com/itchan-dev/accounts/shared/validation"
)

type MockRegistration struct {
	RegisterFunc            func(req service.RegisterRequest) (domain.AccountId, error)
	ValidateAccountDataFunc func(data service.AccountData) *validation.Results
}

func (m *MockRegistration) Register(req service.RegisterRequest) (domain.AccountId, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(req)
	}
	return uuid.New(), nil
}

func (m *MockRegistration) ValidateAccountData(data service.AccountData) *validation.Results {
	if m.ValidateAccountDataFunc != nil {
		return m.ValidateAccountDataFunc(data)
	}
	return &validation.Results{}
}

type MockReset struct {
	RequestPasswordResetFunc      func(identity string) error
	ExecuteNewPasswordRequestFunc func(id domain.AccountId, code string, newPassword domain.Password) (domain.PasswordReset, error)
	NotifyNewPasswordFunc         func(id domain.AccountId, password domain.Password) error
}

func (m *MockReset) RequestPasswordReset(identity string) error {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(identity)
	}
	return nil
}

func (m *MockReset) ExecuteNewPasswordRequest(id domain.AccountId, code string, newPassword domain.Password) (domain.PasswordReset, error) {
	if m.ExecuteNewPasswordRequestFunc != nil {
		return m.ExecuteNewPasswordRequestFunc(id, code, newPassword)
	}
	return domain.PasswordReset{Password: newPassword}, nil
}

func (m *MockReset) NotifyNewPassword(id domain.AccountId, password domain.Password) error {
	if m.NotifyNewPasswordFunc != nil {
		return m.NotifyNewPasswordFunc(id, password)
	}
	return nil
}

type MockInvites struct {
	GenerateInviteCodeFunc func(username domain.Username) (string, error)
	ValidateInviteCodeFunc func(username domain.Username, code string) bool
}

func (m *MockInvites) GenerateInviteCode(username domain.Username) (string, error) {
	if m.GenerateInviteCodeFunc != nil {
		return m.GenerateInviteCodeFunc(username)
	}
	return "INVITECODE", nil
}

func (m *MockInvites) ValidateInviteCode(username domain.Username, code string) bool {
	if m.ValidateInviteCodeFunc != nil {
		return m.ValidateInviteCodeFunc(username, code)
	}
	return false
}

type MockBans struct {
	BanFunc   func(id domain.AccountId, reason string, by *domain.AccountId) error
	UnbanFunc func(id domain.AccountId) error
}

func (m *MockBans) Ban(id domain.AccountId, reason string, by *domain.AccountId) error {
	if m.BanFunc != nil {
		return m.BanFunc(id, reason, by)
	}
	return nil
}

func (m *MockBans) Unban(id domain.AccountId) error {
	if m.UnbanFunc != nil {
		return m.UnbanFunc(id)
	}
	return nil
}

type MockURLs struct{}

func (MockURLs) InviteURL(username domain.Username, code string) string {
	return "https://example.com/register?inviter=" + username + "&invite=" + code
}

type MockHealthChecker struct {
	PingFunc func(ctx context.Context) error
}

func (m *MockHealthChecker) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

type mocks struct {
	registration *MockRegistration
	reset        *MockReset
	invites      *MockInvites
	bans         *MockBans
}

// setupTestRouter mounts the handlers without auth middleware; tests put
// the principal into the context themselves.
func setupTestRouter(m mocks) (*Handler, *chi.Mux) {
	if m.registration == nil {
		m.registration = &MockRegistration{}
	}
	if m.reset == nil {
		m.reset = &MockReset{}
	}
	if m.invites == nil {
		m.invites = &MockInvites{}
	}
	if m.bans == nil {
		m.bans = &MockBans{}
	}
	cfg := &config.Public{}
	cfg.ApplyDefaults()
	h := New(m.registration, m.reset, m.invites, m.bans, MockURLs{}, &MockHealthChecker{}, cfg)

	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Post("/accounts", h.Register)
		r.Post("/accounts/validate", h.ValidateAccount)
		r.Post("/password/forgot", h.ForgotPassword)
		r.Post("/password/reset", h.ResetPassword)
		r.Post("/invites", h.GenerateInvite)
		r.Post("/invites/validate", h.ValidateInvite)
		r.Post("/admin/accounts/{id}/ban", h.BanAccount)
		r.Delete("/admin/accounts/{id}/ban", h.UnbanAccount)
	})
	return h, r
}

func createRequest(t *testing.T, method, url string, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withPrincipal(req *http.Request, principal *domain.Principal) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), mw.PrincipalKey, principal))
}
