package main

import (
	"log"
	"os"
	"strings"

	"github.com/ritvik/chat-dispatch/pkg/db"
)

// Seeds the demo users and one group. User creation is out of the gateway's
// scope, so a fresh cluster needs these rows before the flows can be tried.
func main() {
	hostsStr := os.Getenv("SCYLLA_HOSTS")
	if hostsStr == "" {
		hostsStr = "localhost:9042"
	}
	keyspace := os.Getenv("SCYLLA_KEYSPACE")
	if keyspace == "" {
		keyspace = "chat"
	}

	session, err := db.NewSession(strings.Split(hostsStr, ","), keyspace)
	if err != nil {
		log.Fatalf("failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	users := []struct {
		id   int64
		name string
		icon string
	}{
		{1, "alice", "/icons/alice.png"},
		{2, "bob", "/icons/bob.png"},
		{3, "carol", "/icons/carol.png"},
		{4, "dave", "/icons/dave.png"},
	}
	for _, u := range users {
		err := session.Query(`INSERT INTO users (user_id, user_name, user_icon) VALUES (?, ?, ?)`,
			u.id, u.name, u.icon).Exec()
		if err != nil {
			log.Fatalf("failed to insert user %d: %v", u.id, err)
		}
	}

	const groupID = int64(1)
	if err := session.Query(`INSERT INTO groups (group_id, group_name) VALUES (?, ?)`, groupID, "general").Exec(); err != nil {
		log.Fatalf("failed to insert group: %v", err)
	}
	for _, u := range users {
		if err := session.Query(`INSERT INTO group_members (group_id, user_id) VALUES (?, ?)`, groupID, u.id).Exec(); err != nil {
			log.Fatalf("failed to insert member %d: %v", u.id, err)
		}
		if err := session.Query(`INSERT INTO groups_by_member (user_id, group_id) VALUES (?, ?)`, u.id, groupID).Exec(); err != nil {
			log.Fatalf("failed to index member %d: %v", u.id, err)
		}
	}

	log.Printf("seeded %d users and group %d", len(users), groupID)
}
