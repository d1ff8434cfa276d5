package store

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"

	"github.com/ritvik/chat-dispatch/pkg/db"
	"github.com/ritvik/chat-dispatch/pkg/model"
)

type Groups struct {
	db *db.Session
}

func NewGroups(session *db.Session) *Groups {
	return &Groups{db: session}
}

// GetGroup loads the group row and its member set.
func (s *Groups) GetGroup(ctx context.Context, groupID int64) (*model.Group, error) {
	g := &model.Group{GroupID: groupID}
	err := s.db.Query(`SELECT group_name FROM groups WHERE group_id = ?`, groupID).
		WithContext(ctx).Scan(&g.GroupName)
	if err == gocql.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select group %d: %w", groupID, err)
	}

	iter := s.db.Query(`SELECT user_id FROM group_members WHERE group_id = ?`, groupID).
		WithContext(ctx).Iter()
	var member int64
	for iter.Scan(&member) {
		g.Members = append(g.Members, member)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("select members of group %d: %w", groupID, err)
	}
	return g, nil
}

// GroupsOf returns the ids of every group the user belongs to, from the
// member-keyed index table.
func (s *Groups) GroupsOf(ctx context.Context, userID int64) ([]int64, error) {
	iter := s.db.Query(`SELECT group_id FROM groups_by_member WHERE user_id = ?`, userID).
		WithContext(ctx).Iter()
	var ids []int64
	var id int64
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("select groups of user %d: %w", userID, err)
	}
	return ids, nil
}
