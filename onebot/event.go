package onebot

import "encoding/json"

// Event is one push frame from the OneBot endpoint. Message stays raw here,
// segment decoding happens downstream.
type Event struct {
	Time        int64           `json:"time"`
	SelfID      int64           `json:"self_id"`
	PostType    string          `json:"post_type"`
	MessageType string          `json:"message_type"`
	SubType     string          `json:"sub_type"`
	MessageID   int64           `json:"message_id"`
	GroupID     int64           `json:"group_id"`
	UserID      int64           `json:"user_id"`
	Sender      *Sender         `json:"sender"`
	Message     json.RawMessage `json:"message"`
	RawMessage  string          `json:"raw_message"`
}

// Sender is the sender block attached to a message event. Endpoints may omit
// it or leave fields empty.
type Sender struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Card     string `json:"card"`
}

// Segment is one element of the OneBot array message format.
type Segment struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// GroupInfo is the group profile returned by get_group_info.
type GroupInfo struct {
	GroupID   int64  `json:"group_id"`
	GroupName string `json:"group_name"`
}

// GroupMember is the member profile returned by get_group_member_info.
type GroupMember struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Card     string `json:"card"`
}
