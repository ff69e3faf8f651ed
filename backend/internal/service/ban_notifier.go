package service

import (
	"fmt"

	"github.com/itchan-dev/accounts/shared/config"
	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/itchan-dev/accounts/shared/hooks"
)

// BanNotifier tells an account it has been banned or unbanned.
type BanNotifier struct {
	transport NotificationTransport
	urls      *URLs
	cfg       *config.Public
}

func NewBanNotifier(transport NotificationTransport, urls *URLs, cfg *config.Public) *BanNotifier {
	return &BanNotifier{transport: transport, urls: urls, cfg: cfg}
}

func (n *BanNotifier) Register(events *hooks.Bus[domain.AccountEvent], notifications *Notifications) {
	events.On(domain.EventBan, "ban_notifier", hooks.DefaultPriority, n.OnBan)
	notifications.Subscriptions().Register("ban_notifier", hooks.DefaultPriority, n.AddSubscriber)
	notifications.OnPrepare(domain.EventUnban, "ban_notifier", hooks.DefaultPriority, n.PrepareUnban)
}

// OnBan sends the ban notice right away. The account is already banned by
// now, so the message has to bypass the banned-recipient filter.
func (n *BanNotifier) OnBan(event *domain.AccountEvent) error {
	if !n.cfg.Notifications.NotifyOnBan {
		return nil
	}
	account := event.Account
	site := n.urls.SiteURL()
	body := fmt.Sprintf(`Hello %s,

Your account on %s has been banned.

%s
`, account.Name(), n.cfg.Site.Name, site)

	err := n.transport.Send(domain.Notification{
		RecipientId:     account.Id,
		Recipient:       account.Email,
		Subject:         fmt.Sprintf("%s: your account has been banned", n.cfg.Site.Name),
		Body:            body,
		URL:             site,
		Channel:         domain.ChannelEmail,
		Language:        account.Language,
		BypassBanFilter: true,
	})
	if err != nil {
		notificationsTotal.WithLabelValues(domain.EventBan, "failed").Inc()
		return err
	}
	notificationsTotal.WithLabelValues(domain.EventBan, "sent").Inc()
	return nil
}

// AddSubscriber makes the affected account a recipient of its own ban and
// unban events.
func (n *BanNotifier) AddSubscriber(subs *domain.Subscriptions) error {
	switch subs.Event.Name {
	case domain.EventBan, domain.EventUnban:
		subs.Add(subs.Event.Account.Id, domain.ChannelEmail)
	}
	return nil
}

// PrepareUnban only writes the notice for the unbanned account itself; other
// subscribers are left untouched.
func (n *BanNotifier) PrepareUnban(p *domain.PreparedNotification) error {
	if p.Recipient.Id != p.Event.Account.Id {
		return nil
	}
	site := n.urls.SiteURL()
	p.Notification.Subject = fmt.Sprintf("%s: your account has been unbanned", n.cfg.Site.Name)
	p.Notification.Body = fmt.Sprintf(`Hello %s,

Your account on %s is active again. You can log in here: %s
`, p.Recipient.Name(), n.cfg.Site.Name, n.urls.LoginURL(nil, ""))
	p.Notification.URL = site
	return nil
}
