package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/itchan-dev/accounts/shared/api"
	mw "github.com/itchan-dev/accounts/shared/middleware"
	"github.com/itchan-dev/accounts/shared/utils"
)

func (h *Handler) BanAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid account id", http.StatusBadRequest)
		return
	}
	var body api.BanRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	admin := mw.GetPrincipalFromContext(r)
	if admin == nil {
		http.Error(w, "Please sign-in", http.StatusUnauthorized)
		return
	}
	if err := h.bans.Ban(id, body.Reason, &admin.Id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Account banned"))
}

func (h *Handler) UnbanAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid account id", http.StatusBadRequest)
		return
	}
	if err := h.bans.Unban(id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Account unbanned"))
}
