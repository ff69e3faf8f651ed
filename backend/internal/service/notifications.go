package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/itchan-dev/accounts/shared/hooks"
	"github.com/itchan-dev/accounts/shared/logger"
)

const DefaultMaxPendingEvents = 1000

// Notifications is the deferred queue. Events wait in memory until Flush,
// which asks the subscriptions chain who should hear about each one and the
// prepare chain of the event what to tell them. Delivery is best-effort:
// Close flushes on shutdown, but a crash loses whatever is still pending.
type Notifications struct {
	accounts      *Credentials
	transport     NotificationTransport
	subscriptions *hooks.Chain[domain.Subscriptions]
	prepare       *hooks.Bus[domain.PreparedNotification]

	mu         sync.Mutex
	pending    []domain.AccountEvent
	maxPending int
}

func NewNotifications(accounts *Credentials, transport NotificationTransport, maxPending int) *Notifications {
	if maxPending <= 0 {
		maxPending = DefaultMaxPendingEvents
	}
	return &Notifications{
		accounts:      accounts,
		transport:     transport,
		subscriptions: hooks.NewChain[domain.Subscriptions](),
		prepare:       hooks.NewBus[domain.PreparedNotification](),
		maxPending:    maxPending,
	}
}

func (n *Notifications) Subscriptions() *hooks.Chain[domain.Subscriptions] {
	return n.subscriptions
}

// OnPrepare registers a composer for notifications about action.
func (n *Notifications) OnPrepare(action, name string, priority int, fn hooks.Handler[domain.PreparedNotification]) {
	n.prepare.On(prepareKey(action), name, priority, fn)
}

func prepareKey(action string) string {
	return "prepare:notification:" + action
}

// Enqueue stores the event in memory for the next Flush. A full queue is
// flushed right away.
func (n *Notifications) Enqueue(event domain.AccountEvent) {
	n.mu.Lock()
	n.pending = append(n.pending, event)
	full := len(n.pending) >= n.maxPending
	n.mu.Unlock()

	if full {
		logger.Log.Warn("notification queue full, flushing early", "component", "notifications", "pending", n.maxPending)
		n.Flush()
	}
}

func (n *Notifications) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

// Flush delivers everything queued so far and returns how many notifications
// went out.
func (n *Notifications) Flush() int {
	n.mu.Lock()
	events := n.pending
	n.pending = nil
	n.mu.Unlock()

	sent := 0
	for i := range events {
		sent += n.dispatch(events[i])
	}
	return sent
}

func (n *Notifications) dispatch(event domain.AccountEvent) int {
	subs := domain.Subscriptions{Event: event}
	if err := n.subscriptions.Run(&subs); err != nil {
		logger.Log.Error("failed to compute subscribers", "event", event.Name, "error", err)
		return 0
	}

	ids := make([]domain.AccountId, 0, len(subs.Recipients))
	for id := range subs.Recipients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	sent := 0
	for _, id := range ids {
		recipient, err := n.accounts.GetById(id)
		if err != nil {
			logger.Log.Warn("skipping notification recipient", "event", event.Name, "account_id", id, "error", err)
			continue
		}
		for _, channel := range subs.Recipients[id] {
			if n.deliver(event, recipient, channel) {
				sent++
			}
		}
	}
	return sent
}

func (n *Notifications) deliver(event domain.AccountEvent, recipient domain.Account, channel string) bool {
	prepared := domain.PreparedNotification{
		Event:     event,
		Recipient: recipient,
		Channel:   channel,
		Notification: domain.Notification{
			RecipientId: recipient.Id,
			Recipient:   recipient.Email,
			Channel:     channel,
			Language:    recipient.Language,
		},
	}
	if err := n.prepare.Trigger(prepareKey(event.Name), &prepared); err != nil {
		logger.Log.Error("failed to prepare notification", "event", event.Name, "account_id", recipient.Id, "error", err)
		return false
	}

	notification := prepared.Notification
	if notification.Subject == "" {
		return false
	}
	if recipient.IsBanned() && !notification.BypassBanFilter {
		notificationsTotal.WithLabelValues(event.Name, "filtered").Inc()
		logger.Log.Debug("notification to banned account dropped", "event", event.Name, "account_id", recipient.Id)
		return false
	}

	if err := n.transport.Send(notification); err != nil {
		notificationsTotal.WithLabelValues(event.Name, "failed").Inc()
		logger.Log.Error("failed to send notification", "event", event.Name, "account_id", recipient.Id, "error", err)
		return false
	}
	notificationsTotal.WithLabelValues(event.Name, "sent").Inc()
	return true
}

// StartBackgroundFlush flushes every interval and once more on shutdown.
func (n *Notifications) StartBackgroundFlush(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("started notification flusher", "component", "notifications", "interval", interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if sent := n.Flush(); sent > 0 {
					logger.Log.Debug("flushed notifications", "component", "notifications", "sent", sent)
				}
			case <-ctx.Done():
				n.Flush()
				logger.Log.Info("notification flusher stopped", "component", "notifications")
				return
			}
		}
	}()
}
