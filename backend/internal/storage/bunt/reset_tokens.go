package bunt

import (
	"time"

	"github.com/itchan-dev/accounts/shared/domain"
	internal_errors "github.com/itchan-dev/accounts/shared/errors"
	"github.com/tidwall/buntdb"
)

type resetTokenRecord struct {
	CodeHash   string     `json:"code_hash"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// SaveResetToken overwrites whatever token the account had. The key expires
// together with the token, so buntdb drops stale tokens on its own.
func (s *Storage) SaveResetToken(token domain.ResetToken) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		if _, err := accountById(tx, token.AccountId); err != nil {
			return err
		}
		record := resetTokenRecord{CodeHash: token.CodeHash, IssuedAt: token.IssuedAt, ExpiresAt: token.ExpiresAt}
		return set(tx, resetKey(token.AccountId), record, ttl(token.ExpiresAt, time.Now()))
	})
}

// ConsumeResetToken checks and consumes the token and writes passHash in a
// single write transaction.
func (s *Storage) ConsumeResetToken(id domain.AccountId, codeHash, passHash string, at time.Time) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		record, ok, err := get[resetTokenRecord](tx, resetKey(id))
		if err != nil {
			return err
		}
		// an expired key is already gone by the time Get runs
		if !ok || record.ConsumedAt != nil || record.CodeHash != codeHash || !at.Before(record.ExpiresAt) {
			return internal_errors.InvalidToken()
		}

		consumed := at
		record.ConsumedAt = &consumed
		if err := set(tx, resetKey(id), record, ttl(record.ExpiresAt, time.Now())); err != nil {
			return err
		}
		return updateAccount(tx, id, func(r *accountRecord) {
			r.PassHash = passHash
		})
	})
}

func (s *Storage) ResetToken(id domain.AccountId) (domain.ResetToken, error) {
	var token domain.ResetToken
	err := s.db.View(func(tx *buntdb.Tx) error {
		record, ok, err := get[resetTokenRecord](tx, resetKey(id))
		if err != nil {
			return err
		}
		if !ok {
			return internal_errors.NotFound("Reset token not found")
		}
		token = domain.ResetToken{
			AccountId:  id,
			CodeHash:   record.CodeHash,
			IssuedAt:   record.IssuedAt,
			ExpiresAt:  record.ExpiresAt,
			ConsumedAt: record.ConsumedAt,
		}
		return nil
	})
	return token, err
}
