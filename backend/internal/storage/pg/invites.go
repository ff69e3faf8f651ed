package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/itchan-dev/accounts/shared/domain"
	internal_errors "github.com/itchan-dev/accounts/shared/errors"
)

// SaveInviteCode replaces the invite code of invite.Username.
func (s *Storage) SaveInviteCode(invite domain.InviteCode) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.saveInviteCode(tx, invite)
	})
}

func (s *Storage) InviteCode(username domain.Username) (domain.InviteCode, error) {
	return s.inviteCode(s.db, username)
}

func (s *Storage) saveInviteCode(q Querier, invite domain.InviteCode) error {
	result, err := q.Exec(`
		INSERT INTO invite_codes(account_id, code_hash, created_at)
		SELECT id, $2, $3 FROM accounts WHERE lower(username) = lower($1)
		ON CONFLICT (account_id) DO UPDATE
		SET code_hash = EXCLUDED.code_hash, created_at = EXCLUDED.created_at`,
		invite.Username, invite.CodeHash, invite.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save invite code: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for invite code: %w", err)
	}
	if rowsAffected == 0 {
		return internal_errors.NotFound("Account not found")
	}
	return nil
}

func (s *Storage) inviteCode(q Querier, username domain.Username) (domain.InviteCode, error) {
	var invite domain.InviteCode
	err := q.QueryRow(`
		SELECT a.username, i.code_hash, i.created_at
		FROM invite_codes i
		JOIN accounts a ON a.id = i.account_id
		WHERE lower(a.username) = lower($1)`,
		username,
	).Scan(&invite.Username, &invite.CodeHash, &invite.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.InviteCode{}, internal_errors.NotFound("Invite code not found")
		}
		return domain.InviteCode{}, fmt.Errorf("failed to query invite code: %w", err)
	}
	return invite, nil
}
