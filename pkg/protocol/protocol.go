package protocol

import (
	"encoding/json"
	"time"
)

// ChatType tags are the stable wire strings carried in the "type" field of
// inbound and outbound frames.
type ChatType string

const (
	Register          ChatType = "REGISTER"
	SingleSending     ChatType = "SINGLE_SENDING"
	GroupSending      ChatType = "GROUP_SENDING"
	FileSingleSending ChatType = "FILE_MSG_SINGLE_SENDING"
	FileGroupSending  ChatType = "FILE_MSG_GROUP_SENDING"
)

// TimeLayout is the sendTime format, rendered in the server's local timezone.
const TimeLayout = "2006-01-02 15:04:05"

func FormatTime(t time.Time) string {
	return t.Local().Format(TimeLayout)
}

// Inbound is one decoded client frame. Identifiers travel as strings on the
// wire and are parsed to integers at the store boundary.
type Inbound struct {
	Type             string `json:"type"`
	UserID           string `json:"userId"`
	FromUserID       string `json:"fromUserId"`
	ToUserID         string `json:"toUserId"`
	ToGroupID        string `json:"toGroupId"`
	Content          string `json:"content"`
	OriginalFilename string `json:"originalFilename"`
	FileSize         string `json:"fileSize"`
	FileURL          string `json:"fileUrl"`
}

func ParseInbound(raw []byte) (*Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// Envelope is a self-describing outbound record: status, type and a
// flow-specific payload.
type Envelope map[string]any

func Success(t ChatType) Envelope {
	return Envelope{"status": "success", "type": string(t)}
}

// Failure builds an error envelope. A zero ChatType leaves the type field out
// entirely; an unrecognized inbound type has no tag to echo back.
func Failure(t ChatType, message string) Envelope {
	e := Envelope{"status": "error", "message": message}
	if t != "" {
		e["type"] = string(t)
	}
	return e
}

func (e Envelope) With(key string, value any) Envelope {
	e[key] = value
	return e
}

func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}
