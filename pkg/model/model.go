package model

import "time"

// Message type codes as persisted in the message tables.
const (
	TypeDirectText = 1
	TypeGroupText  = 2
	TypeDirectFile = 3
	TypeGroupFile  = 4
)

type User struct {
	UserID   int64  `json:"userId"`
	UserName string `json:"userName"`
	UserIcon string `json:"userIcon"`

	// OfflineTime marks the end of the user's last session. Zero means the
	// user has never logged in.
	OfflineTime time.Time `json:"userOfflineTime"`
}

type Group struct {
	GroupID   int64   `json:"groupId"`
	GroupName string  `json:"groupName"`
	Members   []int64 `json:"members"`
}

// Message is one persisted chat message. Exactly one of ToUserID/GroupID is
// set, and exactly one of Content / the file triplet, depending on Type.
type Message struct {
	MessageID  int64     `json:"messageId"`
	Type       int       `json:"type"`
	FromUserID int64     `json:"fromUserId"`
	ToUserID   int64     `json:"toUserId,omitempty"`
	GroupID    int64     `json:"groupId,omitempty"`
	Content    string    `json:"content,omitempty"`
	FileName   string    `json:"fileName,omitempty"`
	FileSize   string    `json:"fileSize,omitempty"`
	FileURL    string    `json:"fileUrl,omitempty"`
	UserTime   time.Time `json:"userTime"`
}

func (m *Message) IsDirect() bool {
	return m.Type == TypeDirectText || m.Type == TypeDirectFile
}
