package service

import (
	"net/http"
	"time"

	"github.com/itchan-dev/accounts/shared/bancache"
	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/itchan-dev/accounts/shared/errors"
	"github.com/itchan-dev/accounts/shared/hooks"
	"github.com/itchan-dev/accounts/shared/logger"
)

// Bans moves accounts between Active and Banned and tells everyone who cares.
// The ban event runs synchronously; unban notices go through the deferred
// queue.
type Bans struct {
	storage       BanStorage
	accounts      *Credentials
	events        *hooks.Bus[domain.AccountEvent]
	notifications *Notifications
	cache         *bancache.Cache // optional
	now           func() time.Time
}

func NewBans(
	storage BanStorage,
	accounts *Credentials,
	events *hooks.Bus[domain.AccountEvent],
	notifications *Notifications,
	cache *bancache.Cache,
) *Bans {
	return &Bans{
		storage:       storage,
		accounts:      accounts,
		events:        events,
		notifications: notifications,
		cache:         cache,
		now:           time.Now,
	}
}

// Ban bans id. by is the acting admin, nil for system bans. Banning an
// already banned account only updates the reason.
func (b *Bans) Ban(id domain.AccountId, reason string, by *domain.AccountId) error {
	if by != nil && *by == id {
		return &errors.ErrorWithStatusCode{Message: "Cannot ban yourself", StatusCode: http.StatusBadRequest}
	}

	account, err := b.accounts.GetById(id)
	if err != nil {
		return err
	}

	changed, err := b.storage.BanAccount(domain.BanEntry{
		AccountId: id,
		Reason:    reason,
		BannedBy:  by,
		BannedAt:  b.now().UTC(),
	})
	if err != nil {
		return err
	}
	b.refreshCache()

	if !changed {
		logger.Log.Info("ban reason updated", "account_id", id)
		return nil
	}
	bansTotal.WithLabelValues("ban").Inc()
	logger.Log.Info("account banned", "account_id", id, "by", by)

	account.BanState = domain.Banned
	account.BanReason = reason
	event := domain.AccountEvent{Name: domain.EventBan, Account: account, ActorId: by, Reason: reason}
	if err := b.events.Trigger(domain.EventBan, &event); err != nil {
		logger.Log.Error("ban event handler failed", "account_id", id, "error", err)
	}
	return nil
}

// Unban lifts a ban. Unbanning an account that isn't banned is ErrNotFound.
func (b *Bans) Unban(id domain.AccountId) error {
	account, err := b.accounts.GetById(id)
	if err != nil {
		return err
	}
	changed, err := b.storage.UnbanAccount(id)
	if err != nil {
		return err
	}
	if !changed {
		return errors.NotFound("Account is not banned")
	}
	b.refreshCache()
	bansTotal.WithLabelValues("unban").Inc()
	logger.Log.Info("account unbanned", "account_id", id)

	account.BanState = domain.Active
	account.BanReason = ""
	b.notifications.Enqueue(domain.AccountEvent{Name: domain.EventUnban, Account: account})
	return nil
}

func (b *Bans) refreshCache() {
	if b.cache == nil {
		return
	}
	if err := b.cache.Update(); err != nil {
		logger.Log.Warn("failed to refresh ban cache", "error", err)
	}
}
