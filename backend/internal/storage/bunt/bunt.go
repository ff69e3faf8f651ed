// Package bunt is the embedded storage backend. Everything lives in one
// buntdb file; buntdb runs one write transaction at a time, which is what
// keeps usernames unique and reset tokens single-use.
//
// Key layout:
//
//	account:<id>              account record (json)
//	username:<lower name>     id
//	email:<lower email>:<id>  id
//	invite:<lower name>       invite record (json)
//	reset:<id>                reset token record (json), expires with the token
//	ban:<id>                  ban entry (json)
package bunt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/itchan-dev/accounts/shared/logger"
	"github.com/tidwall/buntdb"
)

type Storage struct {
	db *buntdb.DB
}

// New opens (or creates) the database at path. ":memory:" keeps it in memory.
func New(path string) (*Storage, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb %s: %w", path, err)
	}
	logger.Log.Info("opened embedded storage", "path", path)
	return &Storage{db: db}, nil
}

// Ping fails once the database has been closed.
func (s *Storage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *buntdb.Tx) error {
		_, err := tx.Len()
		return err
	})
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}

func accountKey(id domain.AccountId) string { return "account:" + id.String() }
func usernameKey(username string) string   { return "username:" + strings.ToLower(username) }
func emailPrefix(email string) string      { return "email:" + strings.ToLower(email) + ":" }
func inviteKey(username string) string     { return "invite:" + strings.ToLower(username) }
func resetKey(id domain.AccountId) string  { return "reset:" + id.String() }
func banKey(id domain.AccountId) string    { return "ban:" + id.String() }

// scanEmail calls fn with the account id of every email index key for email.
// Keys are walked from the prefix on and compared literally; AscendKeys would
// treat '*' and '?' in the address as wildcards.
func scanEmail(tx *buntdb.Tx, email string, fn func(id string) bool) error {
	prefix := emailPrefix(email)
	return tx.AscendGreaterOrEqual("", prefix, func(key, value string) bool {
		if !strings.HasPrefix(key, prefix) {
			return false
		}
		return fn(value)
	})
}

func get[T any](tx *buntdb.Tx, key string) (T, bool, error) {
	var v T
	raw, err := tx.Get(key)
	if errors.Is(err, buntdb.ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := decode(key, raw, &v); err != nil {
		return v, false, err
	}
	return v, true, nil
}

func decode(key, raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func domainId(raw string) (domain.AccountId, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt account id %q: %w", raw, err)
	}
	return id, nil
}

func set(tx *buntdb.Tx, key string, v any, opts *buntdb.SetOptions) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if _, _, err := tx.Set(key, string(raw), opts); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// ttl turns an absolute expiry into buntdb set options.
func ttl(expires, now time.Time) *buntdb.SetOptions {
	d := expires.Sub(now)
	if d <= 0 {
		d = time.Nanosecond
	}
	return &buntdb.SetOptions{Expires: true, TTL: d}
}
