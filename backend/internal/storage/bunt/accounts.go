package bunt

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/accounts/shared/domain"
	internal_errors "github.com/itchan-dev/accounts/shared/errors"
	"github.com/tidwall/buntdb"
)

type accountRecord struct {
	Id          domain.AccountId `json:"id"`
	Username    string           `json:"username"`
	Email       string           `json:"email"`
	PassHash    string           `json:"pass_hash"`
	DisplayName string           `json:"display_name"`
	BanState    domain.BanState  `json:"ban_state"`
	BanReason   string           `json:"ban_reason,omitempty"`
	Language    string           `json:"language"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (r accountRecord) toDomain() domain.Account {
	return domain.Account(r)
}

func (s *Storage) CreateAccount(account domain.NewAccount, uniqueEmail bool) (domain.AccountId, error) {
	id := uuid.New()
	err := s.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(usernameKey(account.Username)); err == nil {
			return internal_errors.DuplicateUsername()
		} else if err != buntdb.ErrNotFound {
			return fmt.Errorf("failed to check username: %w", err)
		}

		if uniqueEmail {
			taken := false
			err := scanEmail(tx, account.Email, func(string) bool {
				taken = true
				return false
			})
			if err != nil {
				return fmt.Errorf("failed to check email: %w", err)
			}
			if taken {
				return internal_errors.DuplicateEmail()
			}
		}

		record := accountRecord{
			Id:          id,
			Username:    account.Username,
			Email:       account.Email,
			PassHash:    account.PassHash,
			DisplayName: account.DisplayName,
			BanState:    domain.Active,
			Language:    account.Language,
			CreatedAt:   time.Now().UTC(),
		}
		if err := set(tx, accountKey(id), record, nil); err != nil {
			return err
		}
		if _, _, err := tx.Set(usernameKey(account.Username), id.String(), nil); err != nil {
			return fmt.Errorf("failed to index username: %w", err)
		}
		if _, _, err := tx.Set(emailPrefix(account.Email)+id.String(), id.String(), nil); err != nil {
			return fmt.Errorf("failed to index email: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (s *Storage) AccountById(id domain.AccountId) (domain.Account, error) {
	var account domain.Account
	err := s.db.View(func(tx *buntdb.Tx) error {
		var err error
		account, err = accountById(tx, id)
		return err
	})
	return account, err
}

func (s *Storage) AccountByUsername(username domain.Username) (domain.Account, error) {
	var account domain.Account
	err := s.db.View(func(tx *buntdb.Tx) error {
		raw, err := tx.Get(usernameKey(username))
		if err == buntdb.ErrNotFound {
			return internal_errors.NotFound("Account not found")
		}
		if err != nil {
			return fmt.Errorf("failed to read username index: %w", err)
		}
		id, err := domainId(raw)
		if err != nil {
			return err
		}
		account, err = accountById(tx, id)
		return err
	})
	return account, err
}

// AccountsByEmail returns every account registered with email, oldest first.
func (s *Storage) AccountsByEmail(email domain.Email) ([]domain.Account, error) {
	accounts := []domain.Account{}
	err := s.db.View(func(tx *buntdb.Tx) error {
		var ids []string
		err := scanEmail(tx, email, func(id string) bool {
			ids = append(ids, id)
			return true
		})
		if err != nil {
			return fmt.Errorf("failed to scan email index: %w", err)
		}
		for _, raw := range ids {
			id, err := domainId(raw)
			if err != nil {
				return err
			}
			account, err := accountById(tx, id)
			if err != nil {
				return err
			}
			accounts = append(accounts, account)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
		}
		return accounts[i].Id.String() < accounts[j].Id.String()
	})
	return accounts, nil
}

func (s *Storage) UpdatePasswordHash(id domain.AccountId, passHash string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		return updateAccount(tx, id, func(r *accountRecord) {
			r.PassHash = passHash
		})
	})
}

func accountById(tx *buntdb.Tx, id domain.AccountId) (domain.Account, error) {
	record, ok, err := get[accountRecord](tx, accountKey(id))
	if err != nil {
		return domain.Account{}, err
	}
	if !ok {
		return domain.Account{}, internal_errors.NotFound("Account not found")
	}
	return record.toDomain(), nil
}

// updateAccount is read-modify-write; callers run it inside Update.
func updateAccount(tx *buntdb.Tx, id domain.AccountId, fn func(*accountRecord)) error {
	record, ok, err := get[accountRecord](tx, accountKey(id))
	if err != nil {
		return err
	}
	if !ok {
		return internal_errors.NotFound("Account not found")
	}
	fn(&record)
	return set(tx, accountKey(id), record, nil)
}
