package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/itchan-dev/accounts/shared/domain"
	internal_errors "github.com/itchan-dev/accounts/shared/errors"
	"github.com/itchan-dev/accounts/shared/logger"
)

// =========================================================================
// Public Methods (satisfy the service.ResetTokenStorage interface)
// =========================================================================

// SaveResetToken stores token as the only token of its account.
func (s *Storage) SaveResetToken(token domain.ResetToken) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.saveResetToken(tx, token)
	})
}

// ConsumeResetToken marks the token consumed and writes passHash in one
// transaction. The conditional UPDATE lets exactly one of several concurrent
// callers through; everyone else gets ErrInvalidToken.
func (s *Storage) ConsumeResetToken(id domain.AccountId, codeHash, passHash string, at time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.consumeResetToken(tx, id, codeHash, at); err != nil {
			return err
		}
		return s.updatePasswordHash(tx, id, passHash)
	})
	if errors.Is(err, internal_errors.ErrInvalidToken) {
		if delErr := s.deleteExpiredResetToken(s.db, id, at); delErr != nil {
			logger.Log.Warn("failed to delete expired reset token", "account_id", id, "error", delErr)
		}
	}
	return err
}

// ResetToken is a read-only lookup used by tests and tooling.
func (s *Storage) ResetToken(id domain.AccountId) (domain.ResetToken, error) {
	return s.resetToken(s.db, id)
}

// =========================================================================
// Internal Methods (Core Database Logic)
// =========================================================================

func (s *Storage) saveResetToken(q Querier, token domain.ResetToken) error {
	_, err := q.Exec(`
		INSERT INTO reset_tokens(account_id, code_hash, issued_at, expires_at, consumed_at)
		VALUES($1, $2, $3, $4, NULL)
		ON CONFLICT (account_id) DO UPDATE
		SET code_hash = EXCLUDED.code_hash,
			issued_at = EXCLUDED.issued_at,
			expires_at = EXCLUDED.expires_at,
			consumed_at = NULL`,
		token.AccountId, token.CodeHash, token.IssuedAt, token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save reset token: %w", err)
	}
	return nil
}

func (s *Storage) consumeResetToken(q Querier, id domain.AccountId, codeHash string, at time.Time) error {
	result, err := q.Exec(`
		UPDATE reset_tokens SET consumed_at = $3
		WHERE account_id = $1
			AND code_hash = $2
			AND consumed_at IS NULL
			AND expires_at > $3`,
		id, codeHash, at,
	)
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for reset token: %w", err)
	}
	if rowsAffected == 0 {
		return internal_errors.InvalidToken()
	}
	return nil
}

func (s *Storage) deleteExpiredResetToken(q Querier, id domain.AccountId, at time.Time) error {
	_, err := q.Exec("DELETE FROM reset_tokens WHERE account_id = $1 AND expires_at <= $2", id, at)
	if err != nil {
		return fmt.Errorf("failed to delete reset token: %w", err)
	}
	return nil
}

func (s *Storage) resetToken(q Querier, id domain.AccountId) (domain.ResetToken, error) {
	var t domain.ResetToken
	var consumed sql.NullTime
	err := q.QueryRow(`
		SELECT account_id, code_hash, issued_at, expires_at, consumed_at
		FROM reset_tokens WHERE account_id = $1`, id,
	).Scan(&t.AccountId, &t.CodeHash, &t.IssuedAt, &t.ExpiresAt, &consumed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ResetToken{}, internal_errors.NotFound("Reset token not found")
		}
		return domain.ResetToken{}, fmt.Errorf("failed to query reset token: %w", err)
	}
	if consumed.Valid {
		c := consumed.Time
		t.ConsumedAt = &c
	}
	return t, nil
}
