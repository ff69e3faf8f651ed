package service

import (
	"time"

	"github.com/itchan-dev/accounts/shared/domain"
)

// AccountStorage is the Credential Store backend.
type AccountStorage interface {
	CreateAccount(account domain.NewAccount, uniqueEmail bool) (domain.AccountId, error)
	AccountById(id domain.AccountId) (domain.Account, error)
	AccountByUsername(username domain.Username) (domain.Account, error)
	AccountsByEmail(email domain.Email) ([]domain.Account, error)
	UpdatePasswordHash(id domain.AccountId, passHash string) error

	SaveInviteCode(invite domain.InviteCode) error
	InviteCode(username domain.Username) (domain.InviteCode, error)
}

type ResetTokenStorage interface {
	SaveResetToken(token domain.ResetToken) error
	// ConsumeResetToken succeeds for exactly one caller per issued token and
	// writes passHash in the same step. Anything else is ErrInvalidToken.
	ConsumeResetToken(id domain.AccountId, codeHash, passHash string, at time.Time) error
}

type BanStorage interface {
	// BanAccount and UnbanAccount report whether the ban state actually
	// changed. Of several concurrent callers at most one sees true.
	BanAccount(entry domain.BanEntry) (changed bool, err error)
	UnbanAccount(id domain.AccountId) (changed bool, err error)
	RecentlyBannedAccounts(since time.Time) ([]domain.AccountId, error)
}

// Storage is what both backends (pg, bunt) implement.
type Storage interface {
	AccountStorage
	ResetTokenStorage
	BanStorage
	Cleanup() error
}

// NotificationTransport delivers one notification. Implementations may queue.
type NotificationTransport interface {
	Send(notification domain.Notification) error
}
