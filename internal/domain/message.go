package domain

import "time"

type InboundMessage struct {
	Channel   string
	GroupID   string
	SenderID  string
	Content   string
	Timestamp time.Time
}

type OutboundMessage struct {
	Channel string
	GroupID string
	Content string
}
