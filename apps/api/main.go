package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ritvik/chat-dispatch/pkg/auth"
	"github.com/ritvik/chat-dispatch/pkg/db"
)

func main() {
	godotenv.Load()

	addr := envOr("API_ADDR", ":8081")
	hosts := strings.Split(envOr("SCYLLA_HOSTS", "localhost:9042"), ",")
	keyspace := envOr("SCYLLA_KEYSPACE", "chat")
	redisAddr := envOr("REDIS_ADDR", "localhost:6379")

	session, err := db.NewSession(hosts, keyspace)
	if err != nil {
		log.Fatalf("failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	tokens := auth.NewTokens(os.Getenv("JWT_SECRET"), 24*time.Hour)

	mux := http.NewServeMux()
	mux.Handle("/login", CORSMiddleware(LoginHandler(tokens)))
	mux.Handle("/online", CORSMiddleware(AuthMiddleware(tokens, OnlineHandler(rdb))))
	mux.Handle("/conversations", CORSMiddleware(AuthMiddleware(tokens, ConversationsHandler(session))))

	log.Printf("api listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
