package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/itchan-dev/accounts/shared/api"
	"github.com/itchan-dev/accounts/shared/errors"
	"github.com/itchan-dev/accounts/shared/logger"
	"github.com/itchan-dev/accounts/shared/utils"
)

// ForgotPassword always answers 200 unless storage fails, so the response
// can't be used to find out which usernames or emails exist.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body api.ForgotPasswordRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	if err := h.reset.RequestPasswordReset(body.Identity); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.MessageResponse{Message: "If the account exists, a reset code has been sent"})
}

// ResetPassword consumes a reset code. Without new_password a password is
// generated and mailed to the owner; it never appears in the response.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var body api.ResetPasswordRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	id, err := uuid.Parse(body.AccountId)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, errors.InvalidToken())
		return
	}

	result, err := h.reset.ExecuteNewPasswordRequest(id, body.Code, body.NewPassword)
	if err != nil {
		if errors.IsNotFound(err) {
			err = errors.InvalidToken()
		}
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	if result.Generated {
		if err := h.reset.NotifyNewPassword(id, result.Password); err != nil {
			logger.Log.Error("failed to notify about generated password", "account_id", id, "error", err)
		}
	}
	writeJSON(w, api.ResetPasswordResponse{Generated: result.Generated})
}
