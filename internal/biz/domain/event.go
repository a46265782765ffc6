package domain

import "time"

// GroupMessageEvent is one inbound group message as delivered by the event
// source, already decoded into the element tree. The collector assumes
// at-most-once delivery per logical message and performs no deduplication.
type GroupMessageEvent struct {
	Time       time.Time
	MessageID  int64 // platform message id, for diagnostics only
	GroupID    int64
	GroupName  string
	SenderID   int64
	SenderName string // account nickname
	SenderCard string // in-group display name, may be empty
	Elements   []Element
}
