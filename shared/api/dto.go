// Package api holds the JSON bodies of the /v1 HTTP API, shared by the
// server handlers and Go clients.
package api

import "github.com/itchan-dev/accounts/shared/domain"

// Request DTOs

type RegisterRequest struct {
	Username    string `json:"username" validate:"required"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Language    string `json:"language,omitempty"`
	Inviter     string `json:"inviter,omitempty"`
	InviteCode  string `json:"invite_code,omitempty"`
}

// ValidateAccountRequest leaves PasswordConfirmation nil for single-field
// password forms.
type ValidateAccountRequest struct {
	Username             string  `json:"username"`
	Password             string  `json:"password"`
	PasswordConfirmation *string `json:"password_confirmation,omitempty"`
	Email                string  `json:"email"`
}

type ForgotPasswordRequest struct {
	Identity string `json:"identity" validate:"required"` // username or email
}

type ResetPasswordRequest struct {
	AccountId   string `json:"account_id" validate:"required"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password,omitempty"` // empty: generate one and mail it
}

type ValidateInviteRequest struct {
	Inviter string `json:"inviter" validate:"required"`
	Code    string `json:"code" validate:"required"`
}

type BanRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// Response DTOs

type RegisterResponse struct {
	Id domain.AccountId `json:"id"`
}

type ValidResponse struct {
	Valid bool `json:"valid"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ResetPasswordResponse struct {
	Generated bool `json:"generated"`
}

type InviteResponse struct {
	Code string `json:"code"`
	URL  string `json:"url"`
}
