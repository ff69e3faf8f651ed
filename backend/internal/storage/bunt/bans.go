package bunt

import (
	"fmt"
	"time"

	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/tidwall/buntdb"
)

type banRecord struct {
	Reason   string            `json:"reason"`
	BannedBy *domain.AccountId `json:"banned_by,omitempty"`
	BannedAt time.Time         `json:"banned_at"`
}

// BanAccount reports changed=true only when the account was Active. The
// check and the write share one write transaction.
func (s *Storage) BanAccount(entry domain.BanEntry) (changed bool, err error) {
	err = s.db.Update(func(tx *buntdb.Tx) error {
		err := updateAccount(tx, entry.AccountId, func(r *accountRecord) {
			changed = r.BanState != domain.Banned
			r.BanState = domain.Banned
			r.BanReason = entry.Reason
		})
		if err != nil {
			return err
		}
		return set(tx, banKey(entry.AccountId), banRecord{Reason: entry.Reason, BannedBy: entry.BannedBy, BannedAt: entry.BannedAt}, nil)
	})
	return changed, err
}

func (s *Storage) UnbanAccount(id domain.AccountId) (changed bool, err error) {
	err = s.db.Update(func(tx *buntdb.Tx) error {
		err := updateAccount(tx, id, func(r *accountRecord) {
			changed = r.BanState == domain.Banned
			r.BanState = domain.Active
			r.BanReason = ""
		})
		if err != nil {
			return err
		}
		if _, err := tx.Delete(banKey(id)); err != nil && err != buntdb.ErrNotFound {
			return fmt.Errorf("failed to delete ban entry: %w", err)
		}
		return nil
	})
	return changed, err
}

// RecentlyBannedAccounts lists accounts banned at or after since.
// Unbanning deletes the ban key, so every key found is a current ban.
func (s *Storage) RecentlyBannedAccounts(since time.Time) ([]domain.AccountId, error) {
	var ids []domain.AccountId
	err := s.db.View(func(tx *buntdb.Tx) error {
		var scanErr error
		err := tx.AscendKeys("ban:*", func(key, value string) bool {
			var record banRecord
			if scanErr = decode(key, value, &record); scanErr != nil {
				return false
			}
			if record.BannedAt.Before(since) {
				return true
			}
			id, err := domainId(key[len("ban:"):])
			if err != nil {
				scanErr = err
				return false
			}
			ids = append(ids, id)
			return true
		})
		if err != nil {
			return err
		}
		return scanErr
	})
	return ids, err
}
