package bunt

import (
	"time"

	"github.com/itchan-dev/accounts/shared/domain"
	internal_errors "github.com/itchan-dev/accounts/shared/errors"
	"github.com/tidwall/buntdb"
)

type inviteRecord struct {
	Username  string    `json:"username"`
	CodeHash  string    `json:"code_hash"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Storage) SaveInviteCode(invite domain.InviteCode) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		raw, err := tx.Get(usernameKey(invite.Username))
		if err == buntdb.ErrNotFound {
			return internal_errors.NotFound("Account not found")
		}
		if err != nil {
			return err
		}
		id, err := domainId(raw)
		if err != nil {
			return err
		}
		account, err := accountById(tx, id)
		if err != nil {
			return err
		}
		record := inviteRecord{Username: account.Username, CodeHash: invite.CodeHash, CreatedAt: invite.CreatedAt}
		return set(tx, inviteKey(invite.Username), record, nil)
	})
}

func (s *Storage) InviteCode(username domain.Username) (domain.InviteCode, error) {
	var invite domain.InviteCode
	err := s.db.View(func(tx *buntdb.Tx) error {
		record, ok, err := get[inviteRecord](tx, inviteKey(username))
		if err != nil {
			return err
		}
		if !ok {
			return internal_errors.NotFound("Invite code not found")
		}
		invite = domain.InviteCode(record)
		return nil
	})
	return invite, err
}
