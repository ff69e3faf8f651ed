package service

import (
	"strings"
	"time"

	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/itchan-dev/accounts/shared/errors"
	"github.com/itchan-dev/accounts/shared/logger"
	"github.com/itchan-dev/accounts/shared/utils"
)

// Credentials is the single source of truth for an account's authentication
// material: password hashes and invite codes.
type Credentials struct {
	storage       AccountStorage
	hasher        *utils.Hasher
	inviteCodeLen int
	now           func() time.Time
}

func NewCredentials(storage AccountStorage, hasher *utils.Hasher, inviteCodeLen int) *Credentials {
	return &Credentials{
		storage:       storage,
		hasher:        hasher,
		inviteCodeLen: inviteCodeLen,
		now:           time.Now,
	}
}

func (c *Credentials) Create(account domain.NewAccount, uniqueEmail bool) (domain.AccountId, error) {
	return c.storage.CreateAccount(account, uniqueEmail)
}

func (c *Credentials) SetPasswordHash(id domain.AccountId, passHash string) error {
	return c.storage.UpdatePasswordHash(id, passHash)
}

func (c *Credentials) GetById(id domain.AccountId) (domain.Account, error) {
	return c.storage.AccountById(id)
}

func (c *Credentials) GetByUsername(username domain.Username) (domain.Account, error) {
	return c.storage.AccountByUsername(strings.TrimSpace(username))
}

func (c *Credentials) GetByEmail(email domain.Email) ([]domain.Account, error) {
	return c.storage.AccountsByEmail(strings.TrimSpace(email))
}

// GenerateInviteCode issues a new code for username; the previous one stops
// validating.
func (c *Credentials) GenerateInviteCode(username domain.Username) (string, error) {
	code, err := utils.GenerateConfirmationCode(c.inviteCodeLen)
	if err != nil {
		return "", err
	}
	err = c.storage.SaveInviteCode(domain.InviteCode{
		Username:  username,
		CodeHash:  c.hasher.HashExact(code),
		CreatedAt: c.now().UTC(),
	})
	if err != nil {
		return "", err
	}
	logger.Log.Info("invite code generated", "username", username)
	return code, nil
}

// ValidateInviteCode never mutates. Lookup failures read as "not valid".
func (c *Credentials) ValidateInviteCode(username domain.Username, code string) bool {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(code) == "" {
		return false
	}
	invite, err := c.storage.InviteCode(username)
	if err != nil {
		if !errors.IsNotFound(err) {
			logger.Log.Error("failed to load invite code", "username", username, "error", err)
		}
		return false
	}
	return utils.Equal(c.hasher.HashExact(code), invite.CodeHash)
}
