package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/itchan-dev/accounts/shared/domain"
	internal_errors "github.com/itchan-dev/accounts/shared/errors"
)

// =========================================================================
// Public Methods (satisfy the service.BanStorage interface)
// =========================================================================

// BanAccount flips the account to banned and records who did it. Banning a
// banned account refreshes the entry. changed is true only for the caller
// that moved the account out of Active.
func (s *Storage) BanAccount(entry domain.BanEntry) (changed bool, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		previous, err := s.setBanState(tx, entry.AccountId, domain.Banned, entry.Reason)
		if err != nil {
			return err
		}
		changed = previous != domain.Banned
		return s.saveBanEntry(tx, entry)
	})
	return changed, err
}

// UnbanAccount reports changed=false when the account wasn't banned.
func (s *Storage) UnbanAccount(id domain.AccountId) (changed bool, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		previous, err := s.setBanState(tx, id, domain.Active, "")
		if err != nil {
			return err
		}
		changed = previous == domain.Banned
		_, err = tx.Exec("DELETE FROM account_bans WHERE account_id = $1", id)
		if err != nil {
			return fmt.Errorf("failed to delete ban entry: %w", err)
		}
		return nil
	})
	return changed, err
}

// RecentlyBannedAccounts lists accounts banned at or after since that are
// still banned. Used by the ban cache.
func (s *Storage) RecentlyBannedAccounts(since time.Time) ([]domain.AccountId, error) {
	return s.recentlyBannedAccounts(s.db, since)
}

// =========================================================================
// Internal Methods (Core Database Logic)
// =========================================================================

// setBanState returns the state the row had before the update. The row is
// locked first, so concurrent callers see each other's writes.
func (s *Storage) setBanState(q Querier, id domain.AccountId, state domain.BanState, reason string) (domain.BanState, error) {
	var previous string
	err := q.QueryRow(`
		UPDATE accounts a
		SET ban_state = $1, ban_reason = $2
		FROM (SELECT id, ban_state FROM accounts WHERE id = $3 FOR UPDATE) old
		WHERE a.id = old.id
		RETURNING old.ban_state`,
		string(state), reason, id,
	).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return "", internal_errors.NotFound("Account not found")
	}
	if err != nil {
		return "", fmt.Errorf("failed to update ban state: %w", err)
	}
	return domain.BanState(previous), nil
}

func (s *Storage) saveBanEntry(q Querier, entry domain.BanEntry) error {
	_, err := q.Exec(`
		INSERT INTO account_bans (account_id, reason, banned_by, banned_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE
		SET reason = EXCLUDED.reason, banned_by = EXCLUDED.banned_by, banned_at = EXCLUDED.banned_at`,
		entry.AccountId, entry.Reason, entry.BannedBy, entry.BannedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save ban entry: %w", err)
	}
	return nil
}

func (s *Storage) recentlyBannedAccounts(q Querier, since time.Time) ([]domain.AccountId, error) {
	rows, err := q.Query(`
		SELECT b.account_id
		FROM account_bans b
		JOIN accounts a ON a.id = b.account_id
		WHERE b.banned_at >= $1 AND a.ban_state = 'banned'
		ORDER BY b.banned_at DESC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recently banned accounts: %w", err)
	}
	defer rows.Close()

	var ids []domain.AccountId
	for rows.Next() {
		var id domain.AccountId
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan banned account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating banned accounts: %w", err)
	}
	return ids, nil
}
