package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type LoginResponse struct {
	Token string `json:"token"`
}

func login(apiAddr, userID string) (string, error) {
	reqBody, _ := json.Marshal(map[string]string{"userId": userID})
	resp, err := http.Post(apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login failed: %s", string(body))
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return "", err
	}
	return loginResp.Token, nil
}

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "gateway service address")
	apiAddr := flag.String("api", "", "api service address, used to fetch a token")
	userID := flag.String("user", "1", "user id")
	flag.Parse()

	var token string
	if *apiAddr != "" {
		t, err := login(*apiAddr, *userID)
		if err != nil {
			log.Fatalf("login: %v", err)
		}
		token = t
	}

	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send := func(frame map[string]string) {
		payload, _ := json.Marshal(frame)
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Fatalf("write: %v", err)
		}
	}

	send(map[string]string{"type": "REGISTER", "userId": *userID})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				log.Printf("read: %v", err)
				return
			}
			fmt.Printf("<< %s\n", frame)
		}
	}()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Println("commands: /msg <userId> <text> | /group <groupId> <text> | /file <userId> <name> <size> <url> | /gfile <groupId> <name> <size> <url>")
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "/msg":
				if len(fields) < 3 {
					fmt.Println("usage: /msg <userId> <text>")
					continue
				}
				send(map[string]string{
					"type": "SINGLE_SENDING", "fromUserId": *userID,
					"toUserId": fields[1], "content": strings.Join(fields[2:], " "),
				})
			case "/group":
				if len(fields) < 3 {
					fmt.Println("usage: /group <groupId> <text>")
					continue
				}
				send(map[string]string{
					"type": "GROUP_SENDING", "fromUserId": *userID,
					"toGroupId": fields[1], "content": strings.Join(fields[2:], " "),
				})
			case "/file":
				if len(fields) != 5 {
					fmt.Println("usage: /file <userId> <name> <size> <url>")
					continue
				}
				send(map[string]string{
					"type": "FILE_MSG_SINGLE_SENDING", "fromUserId": *userID,
					"toUserId": fields[1], "originalFilename": fields[2],
					"fileSize": fields[3], "fileUrl": fields[4],
				})
			case "/gfile":
				if len(fields) != 5 {
					fmt.Println("usage: /gfile <groupId> <name> <size> <url>")
					continue
				}
				send(map[string]string{
					"type": "FILE_MSG_GROUP_SENDING", "fromUserId": *userID,
					"toGroupId": fields[1], "originalFilename": fields[2],
					"fileSize": fields[3], "fileUrl": fields[4],
				})
			default:
				fmt.Println("unknown command")
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	select {
	case <-done:
	case <-interrupt:
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
