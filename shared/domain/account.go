package domain

import "time"

type Account struct {
	Id          AccountId
	Username    Username
	Email       Email
	PassHash    string
	DisplayName string
	BanState    BanState
	BanReason   string
	Language    Language
	CreatedAt   time.Time
}

func (a *Account) IsBanned() bool {
	return a.BanState == Banned
}

// Name is what notifications address the account by.
func (a *Account) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Username
}

type NewAccount struct {
	Username    Username
	Email       Email
	PassHash    string
	DisplayName string
	Language    Language
}

// ResetToken is the stored half of a password reset: the code itself only
// travels in the email, the store keeps its digest.
type ResetToken struct {
	AccountId  AccountId
	CodeHash   string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

func (t *ResetToken) Active(now time.Time) bool {
	return t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}

type PasswordReset struct {
	Password  Password
	Generated bool
}

type InviteCode struct {
	Username  Username
	CodeHash  string
	CreatedAt time.Time
}

type BanEntry struct {
	AccountId AccountId
	Reason    string
	BannedBy  *AccountId
	BannedAt  time.Time
}
