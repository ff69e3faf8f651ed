package handler

import (
	"net/http"

	"github.com/itchan-dev/accounts/shared/api"
	mw "github.com/itchan-dev/accounts/shared/middleware"
	"github.com/itchan-dev/accounts/shared/utils"
)

// GenerateInvite issues an invite code for the signed-in account. The
// previous code stops working.
func (h *Handler) GenerateInvite(w http.ResponseWriter, r *http.Request) {
	principal := mw.GetPrincipalFromContext(r)
	if principal == nil {
		http.Error(w, "Please sign-in", http.StatusUnauthorized)
		return
	}

	code, err := h.invites.GenerateInviteCode(principal.Username)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, api.InviteResponse{
		Code: code,
		URL:  h.urls.InviteURL(principal.Username, code),
	})
}

func (h *Handler) ValidateInvite(w http.ResponseWriter, r *http.Request) {
	var body api.ValidateInviteRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.ValidResponse{Valid: h.invites.ValidateInviteCode(body.Inviter, body.Code)})
}
