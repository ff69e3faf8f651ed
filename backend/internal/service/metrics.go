package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_registrations_total",
			Help: "Registration attempts by result",
		},
		[]string{"result"},
	)

	passwordResetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_password_resets_total",
			Help: "Password reset token events",
		},
		[]string{"event"}, // issued, consumed, rejected, forced
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_notifications_total",
			Help: "Notifications by event and outcome",
		},
		[]string{"event", "result"}, // sent, failed, filtered
	)

	bansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_ban_transitions_total",
			Help: "Ban state transitions",
		},
		[]string{"action"},
	)
)
