package domain

// Document is the immutable record persisted for one group message. It is
// created once with an externally assigned identifier and never updated.
type Document struct {
	Timestamp      int64    `json:"@timestamp"` // epoch milliseconds
	GroupID        int64    `json:"group_id"`
	GroupName      string   `json:"group_name"`
	SenderID       int64    `json:"sender_id"`
	SenderName     string   `json:"sender_name"`
	SenderNickname string   `json:"sender_nickname"`
	Message        string   `json:"message"`
	MessageExtra   []Parsed `json:"message_extra"`
}
