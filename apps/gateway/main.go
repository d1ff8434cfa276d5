package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ritvik/chat-dispatch/pkg/auth"
	"github.com/ritvik/chat-dispatch/pkg/db"
	"github.com/ritvik/chat-dispatch/pkg/snowflake"
	"github.com/ritvik/chat-dispatch/pkg/store"
)

func main() {
	cfg := LoadConfig()

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	session, err := db.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		log.Fatalf("failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		log.Fatalf("failed to initialize snowflake node: %v", err)
	}

	users := store.NewUsers(session)
	groups := store.NewGroups(session)
	messages := store.NewMessages(session, node)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	registry := NewRegistry(rdb)

	var events *EventFeed
	if len(cfg.KafkaBrokers) > 0 {
		events = NewEventFeed(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer events.Close()
	} else {
		log.Println("KAFKA_BROKERS not set, event feed disabled")
	}

	dispatcher := NewDispatcher(registry, users, groups, messages, events, cfg.PersistDeliveredFiles)
	tokens := auth.NewTokens(cfg.JWTSecret, 24*time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(dispatcher, tokens, w, r)
	})

	lc := net.ListenConfig{KeepAlive: 3 * time.Minute}
	listener, err := lc.Listen(context.Background(), "tcp", cfg.Addr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", cfg.Addr, err)
	}

	server := &http.Server{Handler: mux}
	go func() {
		log.Printf("gateway listening on %s", cfg.Addr)
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Fatalf("gateway server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	// Acceptor first, then live connections; their read pumps run the usual
	// disconnect path and advance the offline marks.
	log.Println("gateway shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("gateway shutdown: %v", err)
	}
	registry.CloseAll()
}
