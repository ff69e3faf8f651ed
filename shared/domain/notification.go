package domain

type Notification struct {
	RecipientId AccountId
	Recipient   Email
	Subject     string
	Body        string // markdown
	URL         string
	Channel     string
	Language    Language

	// The ban notice is the one message that must reach a banned account.
	BypassBanFilter bool
}

// AccountEvent is what the event bus and the deferred notification queue carry.
type AccountEvent struct {
	Name    string
	Account Account
	ActorId *AccountId
	Reason  string
}

// Subscriptions is the mutable recipient set computed for one event.
type Subscriptions struct {
	Event      AccountEvent
	Recipients map[AccountId][]string // account -> channels
}

func (s *Subscriptions) Add(id AccountId, channel string) {
	if s.Recipients == nil {
		s.Recipients = make(map[AccountId][]string)
	}
	for _, c := range s.Recipients[id] {
		if c == channel {
			return
		}
	}
	s.Recipients[id] = append(s.Recipients[id], channel)
}

// PreparedNotification is passed through the compose chain once per recipient.
// A handler that leaves Notification.Subject empty produces nothing.
type PreparedNotification struct {
	Event        AccountEvent
	Recipient    Account
	Channel      string
	Notification Notification
}
