package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gocql/gocql"

	"github.com/ritvik/chat-dispatch/pkg/db"
	"github.com/ritvik/chat-dispatch/pkg/model"
	"github.com/ritvik/chat-dispatch/pkg/snowflake"
)

type Messages struct {
	db  *db.Session
	ids *snowflake.Node
}

func NewMessages(session *db.Session, ids *snowflake.Node) *Messages {
	return &Messages{db: session, ids: ids}
}

// Insert persists msg and assigns its MessageID. Direct messages land in the
// recipient's partition, group messages in the group's.
func (s *Messages) Insert(ctx context.Context, msg *model.Message) error {
	msg.MessageID = s.ids.Generate()

	var q *gocql.Query
	switch msg.Type {
	case model.TypeDirectText, model.TypeDirectFile:
		q = s.db.Query(`INSERT INTO messages_by_recipient
			(recipient_id, user_time, message_id, msg_type, from_user_id, content, file_name, file_size, file_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.ToUserID, msg.UserTime, msg.MessageID, msg.Type, msg.FromUserID,
			msg.Content, msg.FileName, msg.FileSize, msg.FileURL)
	case model.TypeGroupText, model.TypeGroupFile:
		q = s.db.Query(`INSERT INTO messages_by_group
			(group_id, user_time, message_id, msg_type, from_user_id, content, file_name, file_size, file_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.GroupID, msg.UserTime, msg.MessageID, msg.Type, msg.FromUserID,
			msg.Content, msg.FileName, msg.FileSize, msg.FileURL)
	default:
		return fmt.Errorf("insert message: unknown type %d", msg.Type)
	}

	if err := q.WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("insert message %d: %w", msg.MessageID, err)
	}
	return nil
}

// PendingSince returns all messages addressed to userID, directly or through
// any of groupIDs, with user_time strictly after since, in ascending order.
// CQL cannot OR across partitions, so each partition is read separately and
// the results merged in process; per-partition clustering order keeps every
// read a range scan.
func (s *Messages) PendingSince(ctx context.Context, userID int64, groupIDs []int64, since time.Time) ([]model.Message, error) {
	var out []model.Message

	direct := s.db.Query(`SELECT message_id, user_time, msg_type, from_user_id, content, file_name, file_size, file_url
		FROM messages_by_recipient WHERE recipient_id = ? AND user_time > ?`, userID, since).
		WithContext(ctx).Iter()
	out, err := scanMessages(direct, out, func(m *model.Message) { m.ToUserID = userID })
	if err != nil {
		return nil, fmt.Errorf("select pending for user %d: %w", userID, err)
	}

	for _, groupID := range groupIDs {
		iter := s.db.Query(`SELECT message_id, user_time, msg_type, from_user_id, content, file_name, file_size, file_url
			FROM messages_by_group WHERE group_id = ? AND user_time > ?`, groupID, since).
			WithContext(ctx).Iter()
		gid := groupID
		out, err = scanMessages(iter, out, func(m *model.Message) { m.GroupID = gid })
		if err != nil {
			return nil, fmt.Errorf("select pending for group %d: %w", gid, err)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UserTime.Equal(out[j].UserTime) {
			return out[i].MessageID < out[j].MessageID
		}
		return out[i].UserTime.Before(out[j].UserTime)
	})
	return out, nil
}

func scanMessages(iter *gocql.Iter, out []model.Message, tag func(*model.Message)) ([]model.Message, error) {
	var m model.Message
	for iter.Scan(&m.MessageID, &m.UserTime, &m.Type, &m.FromUserID, &m.Content, &m.FileName, &m.FileSize, &m.FileURL) {
		tag(&m)
		out = append(out, m)
		m = model.Message{}
	}
	if err := iter.Close(); err != nil {
		return out, err
	}
	return out, nil
}
