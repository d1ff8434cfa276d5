package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gocql/gocql"
)

// Table DDL, %[1]s is the keyspace.
var tables = []string{
	`CREATE TABLE IF NOT EXISTS %[1]s.users (
		user_id bigint PRIMARY KEY,
		user_name text,
		user_icon text,
		offline_time timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.groups (
		group_id bigint PRIMARY KEY,
		group_name text
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.group_members (
		group_id bigint,
		user_id bigint,
		PRIMARY KEY (group_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.groups_by_member (
		user_id bigint,
		group_id bigint,
		PRIMARY KEY (user_id, group_id)
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.messages_by_recipient (
		recipient_id bigint,
		user_time timestamp,
		message_id bigint,
		msg_type int,
		from_user_id bigint,
		content text,
		file_name text,
		file_size text,
		file_url text,
		PRIMARY KEY ((recipient_id), user_time, message_id)
	) WITH CLUSTERING ORDER BY (user_time ASC, message_id ASC)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.messages_by_group (
		group_id bigint,
		user_time timestamp,
		message_id bigint,
		msg_type int,
		from_user_id bigint,
		content text,
		file_name text,
		file_size text,
		file_url text,
		PRIMARY KEY ((group_id), user_time, message_id)
	) WITH CLUSTERING ORDER BY (user_time ASC, message_id ASC)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.user_conversations (
		user_id text,
		other_user_id text,
		last_updated timestamp,
		PRIMARY KEY (user_id, other_user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.conversation_counters (
		user_id text,
		other_user_id text,
		unread_count counter,
		PRIMARY KEY (user_id, other_user_id)
	)`,
}

func main() {
	hostsStr := os.Getenv("SCYLLA_HOSTS")
	if hostsStr == "" {
		hostsStr = "localhost:9042"
	}
	keyspace := os.Getenv("SCYLLA_KEYSPACE")
	if keyspace == "" {
		keyspace = "chat"
	}

	cluster := gocql.NewCluster(strings.Split(hostsStr, ",")...)
	cluster.Consistency = gocql.Quorum
	session, err := cluster.CreateSession()
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	err = session.Query(fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`,
		keyspace)).Exec()
	if err != nil {
		log.Fatalf("failed to create keyspace: %v", err)
	}

	for _, ddl := range tables {
		if err := session.Query(fmt.Sprintf(ddl, keyspace)).Exec(); err != nil {
			log.Fatalf("failed to create table: %v", err)
		}
	}

	log.Printf("schema created in keyspace %s", keyspace)
}
