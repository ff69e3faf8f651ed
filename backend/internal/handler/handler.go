package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/itchan-dev/accounts/backend/internal/service"
	"github.com/itchan-dev/accounts/shared/config"
	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/itchan-dev/accounts/shared/logger"
	"github.com/itchan-dev/accounts/shared/validation"
)

type RegistrationService interface {
	Register(req service.RegisterRequest) (domain.AccountId, error)
	ValidateAccountData(data service.AccountData) *validation.Results
}

type ResetService interface {
	RequestPasswordReset(usernameOrEmail string) error
	ExecuteNewPasswordRequest(id domain.AccountId, code string, newPassword domain.Password) (domain.PasswordReset, error)
	NotifyNewPassword(id domain.AccountId, password domain.Password) error
}

type InviteService interface {
	GenerateInviteCode(username domain.Username) (string, error)
	ValidateInviteCode(username domain.Username, code string) bool
}

type BanService interface {
	Ban(id domain.AccountId, reason string, by *domain.AccountId) error
	Unban(id domain.AccountId) error
}

type URLBuilder interface {
	InviteURL(username domain.Username, code string) string
}

// HealthChecker reports whether storage can serve requests.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	registration RegistrationService
	reset        ResetService
	invites      InviteService
	bans         BanService
	urls         URLBuilder
	health       HealthChecker
	cfg          *config.Public
}

func New(
	registration RegistrationService,
	reset ResetService,
	invites InviteService,
	bans BanService,
	urls URLBuilder,
	health HealthChecker,
	cfg *config.Public,
) *Handler {
	return &Handler{
		registration: registration,
		reset:        reset,
		invites:      invites,
		bans:         bans,
		urls:         urls,
		health:       health,
		cfg:          cfg,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("failed to encode response", "error", err)
	}
}
