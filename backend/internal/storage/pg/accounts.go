package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/itchan-dev/accounts/shared/domain"
	internal_errors "github.com/itchan-dev/accounts/shared/errors"
	sharedpg "github.com/itchan-dev/accounts/shared/storage/pg"
)

const usernameIndex = "accounts_username_lower_key"

const accountColumns = `id, username, email, password_hash, display_name, ban_state, ban_reason, language, created_at`

// =========================================================================
// Public Methods (satisfy the service.AccountStorage interface)
// =========================================================================

// CreateAccount inserts a new account. When uniqueEmail is set the email is
// checked under a transaction-scoped advisory lock keyed by the lowercased
// address, so two concurrent registrations with one email serialize here.
func (s *Storage) CreateAccount(account domain.NewAccount, uniqueEmail bool) (domain.AccountId, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var id domain.AccountId
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if uniqueEmail {
			if err := s.lockEmail(tx, account.Email); err != nil {
				return err
			}
			taken, err := s.emailExists(tx, account.Email)
			if err != nil {
				return err
			}
			if taken {
				return internal_errors.DuplicateEmail()
			}
		}
		var err error
		id, err = s.createAccount(tx, account)
		return err
	})
	return id, err
}

func (s *Storage) AccountById(id domain.AccountId) (domain.Account, error) {
	return s.accountBy(s.db, "id = $1", id)
}

// AccountByUsername matches case-insensitively.
func (s *Storage) AccountByUsername(username domain.Username) (domain.Account, error) {
	return s.accountBy(s.db, "lower(username) = lower($1)", username)
}

// AccountsByEmail returns every account registered with email, oldest first.
func (s *Storage) AccountsByEmail(email domain.Email) ([]domain.Account, error) {
	return s.accountsByEmail(s.db, email)
}

func (s *Storage) UpdatePasswordHash(id domain.AccountId, passHash string) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.updatePasswordHash(tx, id, passHash)
	})
}

// =========================================================================
// Internal Methods (Core Database Logic)
// These methods accept a Querier and are transaction-agnostic.
// =========================================================================

func (s *Storage) lockEmail(q Querier, email domain.Email) error {
	if _, err := q.Exec("SELECT pg_advisory_xact_lock(hashtext(lower($1)))", email); err != nil {
		return fmt.Errorf("failed to lock email: %w", err)
	}
	return nil
}

func (s *Storage) emailExists(q Querier, email domain.Email) (bool, error) {
	var exists bool
	err := q.QueryRow("SELECT EXISTS(SELECT 1 FROM accounts WHERE lower(email) = lower($1))", email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

func (s *Storage) createAccount(q Querier, account domain.NewAccount) (domain.AccountId, error) {
	id := uuid.New()
	_, err := q.Exec(`
		INSERT INTO accounts(id, username, email, password_hash, display_name, language)
		VALUES($1, $2, $3, $4, $5, $6)`,
		id, account.Username, account.Email, account.PassHash, account.DisplayName, account.Language,
	)
	if err != nil {
		if sharedpg.IsUniqueViolation(err, usernameIndex) {
			return uuid.Nil, internal_errors.DuplicateUsername()
		}
		return uuid.Nil, fmt.Errorf("failed to insert account: %w", err)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var a domain.Account
	var state string
	err := row.Scan(&a.Id, &a.Username, &a.Email, &a.PassHash, &a.DisplayName, &state, &a.BanReason, &a.Language, &a.CreatedAt)
	a.BanState = domain.BanState(state)
	return a, err
}

func (s *Storage) accountBy(q Querier, where string, arg any) (domain.Account, error) {
	a, err := scanAccount(q.QueryRow("SELECT "+accountColumns+" FROM accounts WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, internal_errors.NotFound("Account not found")
		}
		return domain.Account{}, fmt.Errorf("failed to query account: %w", err)
	}
	return a, nil
}

func (s *Storage) accountsByEmail(q Querier, email domain.Email) ([]domain.Account, error) {
	rows, err := q.Query("SELECT "+accountColumns+" FROM accounts WHERE lower(email) = lower($1) ORDER BY created_at, id", email)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts by email: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

func (s *Storage) updatePasswordHash(q Querier, id domain.AccountId, passHash string) error {
	result, err := q.Exec("UPDATE accounts SET password_hash = $1 WHERE id = $2", passHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for password update: %w", err)
	}
	if rowsAffected == 0 {
		return internal_errors.NotFound("Account not found for password update")
	}
	return nil
}
