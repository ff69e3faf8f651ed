package handler

import (
	"net/http"

	"github.com/itchan-dev/accounts/backend/internal/service"
	"github.com/itchan-dev/accounts/shared/api"
	"github.com/itchan-dev/accounts/shared/utils"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body api.RegisterRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	id, err := h.registration.Register(service.RegisterRequest{
		Username:    body.Username,
		Password:    body.Password,
		DisplayName: body.DisplayName,
		Email:       body.Email,
		Language:    body.Language,
		Inviter:     body.Inviter,
		InviteCode:  body.InviteCode,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, api.RegisterResponse{Id: id})
}

// ValidateAccount checks a sign-up form without creating anything and
// reports every failing field at once.
func (h *Handler) ValidateAccount(w http.ResponseWriter, r *http.Request) {
	var body api.ValidateAccountRequest
	if err := utils.Decode(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	results := h.registration.ValidateAccountData(service.AccountData{
		Username:             body.Username,
		Password:             body.Password,
		PasswordConfirmation: body.PasswordConfirmation,
		Email:                body.Email,
	})
	if err := results.Err(); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.ValidResponse{Valid: true})
}
