package domain

import "github.com/google/uuid"

type (
	AccountId = uuid.UUID
	Username  = string
	Email     = string
	Password  = string
	Language  = string
)

type BanState string

const (
	Active BanState = "active"
	Banned BanState = "banned"
)

// Event names dispatched on the account event bus.
const (
	EventBan   = "ban"
	EventUnban = "unban"
)

const ChannelEmail = "email"
