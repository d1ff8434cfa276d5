package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/ritvik/chat-dispatch/pkg/db"
	"github.com/ritvik/chat-dispatch/pkg/model"
)

type Users struct {
	db *db.Session
}

func NewUsers(session *db.Session) *Users {
	return &Users{db: session}
}

func (s *Users) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	u := &model.User{UserID: userID}
	err := s.db.Query(`SELECT user_name, user_icon, offline_time FROM users WHERE user_id = ?`, userID).
		WithContext(ctx).Scan(&u.UserName, &u.UserIcon, &u.OfflineTime)
	if err == gocql.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user %d: %w", userID, err)
	}
	return u, nil
}

func (s *Users) SetOfflineTime(ctx context.Context, userID int64, at time.Time) error {
	err := s.db.Query(`UPDATE users SET offline_time = ? WHERE user_id = ?`, at, userID).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("update offline time for user %d: %w", userID, err)
	}
	return nil
}
