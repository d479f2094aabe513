package model

import "time"

// Chat sender roles.
const (
	ChatSenderUser  = "user"
	ChatSenderStaff = "staff"
)

// ChatMessage is one message in a support conversation. Each user has a
// single conversation with the studio staff, keyed by UserID.
type ChatMessage struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"` // conversation owner
	SenderRole  string    `json:"senderRole"`
	Content     string    `json:"content"`
	ReadByUser  bool      `json:"readByUser"`
	ReadByStaff bool      `json:"readByStaff"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ChatSendRequest is the request body for sending a message.
type ChatSendRequest struct {
	Content string `json:"content"`
	UserID  int64  `json:"userId,omitempty"` // staff only: target conversation
}

// ChatUnreadResponse reports how many messages await the caller.
type ChatUnreadResponse struct {
	Unread int64 `json:"unread"`
}

// ChatPush is the frame pushed over the websocket when a new message lands.
type ChatPush struct {
	Type    string       `json:"type"` // "message"
	Message *ChatMessage `json:"message"`
}
