package main

import (
	"testing"
	"time"

	"github.com/ritvik/chat-dispatch/pkg/model"
	"github.com/ritvik/chat-dispatch/pkg/protocol"
)

// registerRaw runs the REGISTER flow and returns every frame, ack included.
func registerRaw(t *testing.T, env *testEnv, userID string) *fakeHandle {
	t.Helper()
	h := &fakeHandle{}
	env.dispatch(t, h, map[string]string{"type": "REGISTER", "userId": userID})
	return h
}

func TestReplayAscendingSinceOfflineMark(t *testing.T) {
	env := newTestEnv()
	mark := time.Now().Add(-time.Hour)
	env.users.users[2].OfflineTime = mark
	env.messages.pending = []model.Message{
		{MessageID: 10, Type: model.TypeDirectText, FromUserID: 1, ToUserID: 2,
			Content: "second", UserTime: mark.Add(2 * time.Second)},
		{MessageID: 11, Type: model.TypeDirectText, FromUserID: 1, ToUserID: 2,
			Content: "first", UserTime: mark.Add(time.Second)},
		{MessageID: 9, Type: model.TypeDirectText, FromUserID: 1, ToUserID: 2,
			Content: "already seen", UserTime: mark.Add(-time.Second)},
	}

	h := registerRaw(t, env, "2")

	got := h.decoded(t)
	if len(got) != 3 {
		t.Fatalf("expected ack + 2 replayed envelopes, got %d frames: %v", len(got), got)
	}
	if got[0]["type"] != "REGISTER" || got[0]["status"] != "success" {
		t.Fatalf("first frame must be the ack, got %v", got[0])
	}
	if got[1]["content"] != "first" || got[2]["content"] != "second" {
		t.Errorf("replay out of order: %v then %v", got[1]["content"], got[2]["content"])
	}
	for _, e := range got[1:] {
		if e["type"] != "SINGLE_SENDING" || e["fromUserName"] != "alice" {
			t.Errorf("unexpected replayed envelope: %v", e)
		}
	}
}

func TestReplayMergesGroupMessages(t *testing.T) {
	env := newTestEnv()
	mark := time.Now().Add(-time.Hour)
	env.users.users[2].OfflineTime = mark
	env.messages.pending = []model.Message{
		{MessageID: 20, Type: model.TypeGroupText, FromUserID: 3, GroupID: 1,
			Content: "group hello", UserTime: mark.Add(time.Second)},
		{MessageID: 21, Type: model.TypeDirectText, FromUserID: 1, ToUserID: 2,
			Content: "direct hello", UserTime: mark.Add(2 * time.Second)},
	}

	h := registerRaw(t, env, "2")

	got := h.decoded(t)
	if len(got) != 3 {
		t.Fatalf("expected ack + 2 replayed envelopes, got %d", len(got))
	}
	if got[1]["type"] != "GROUP_SENDING" || got[1]["toGroupId"] != "1" || got[1]["fromUserName"] != "carol" {
		t.Errorf("unexpected group envelope: %v", got[1])
	}
	if got[2]["type"] != "SINGLE_SENDING" || got[2]["content"] != "direct hello" {
		t.Errorf("unexpected direct envelope: %v", got[2])
	}
}

func TestReplaySkippedOnReRegisterWithoutDisconnect(t *testing.T) {
	env := newTestEnv()
	mark := time.Now().Add(-time.Hour)
	env.users.users[2].OfflineTime = mark
	env.messages.pending = []model.Message{
		{MessageID: 15, Type: model.TypeDirectText, FromUserID: 1, ToUserID: 2,
			Content: "hi", UserTime: mark.Add(time.Second)},
	}

	first := registerRaw(t, env, "2")
	if got := first.decoded(t); len(got) != 2 {
		t.Fatalf("first register expected ack + 1 replayed envelope, got %d", len(got))
	}

	// Same user registers again on a fresh connection, no disconnect between.
	// The offline mark has not advanced, so the window must not be re-sent.
	second := registerRaw(t, env, "2")
	got := second.decoded(t)
	if len(got) != 1 {
		t.Fatalf("re-register expected only the ack, got %d frames: %v", len(got), got)
	}
	if got[0]["type"] != "REGISTER" || got[0]["status"] != "success" {
		t.Errorf("unexpected ack: %v", got[0])
	}
	if !first.isClosed() {
		t.Error("displaced handle was not closed")
	}
}

func TestReplaySkippedOnFirstLogin(t *testing.T) {
	env := newTestEnv()
	env.messages.pending = []model.Message{
		{MessageID: 30, Type: model.TypeDirectText, FromUserID: 1, ToUserID: 2,
			Content: "hi", UserTime: time.Now()},
	}

	h := registerRaw(t, env, "2") // zero offline mark, never logged in before

	got := h.decoded(t)
	if len(got) != 1 {
		t.Fatalf("first login must only get the ack, got %d frames: %v", len(got), got)
	}
}

func TestReplayReportsStoreFailure(t *testing.T) {
	env := newTestEnv()
	env.users.users[2].OfflineTime = time.Now().Add(-time.Hour)
	env.messages.failPending = true

	h := registerRaw(t, env, "2")

	got := h.decoded(t)
	if len(got) != 2 {
		t.Fatalf("expected ack + failure, got %d frames: %v", len(got), got)
	}
	if got[1]["status"] != "error" || got[1]["message"] != "failed to load offline messages" || got[1]["type"] != string(protocol.Register) {
		t.Errorf("unexpected failure envelope: %v", got[1])
	}
	if _, ok := env.registry.Get("2"); !ok {
		t.Error("a replay failure must not tear down the registration")
	}
}

func TestReplaySkipsUnknownStoredType(t *testing.T) {
	env := newTestEnv()
	mark := time.Now().Add(-time.Hour)
	env.users.users[2].OfflineTime = mark
	env.messages.pending = []model.Message{
		{MessageID: 40, Type: 9, FromUserID: 1, ToUserID: 2,
			Content: "corrupt", UserTime: mark.Add(time.Second)},
		{MessageID: 41, Type: model.TypeDirectText, FromUserID: 1, ToUserID: 2,
			Content: "ok", UserTime: mark.Add(2 * time.Second)},
	}

	h := registerRaw(t, env, "2")

	got := h.decoded(t)
	if len(got) != 2 {
		t.Fatalf("expected ack + 1 replayed envelope, got %d: %v", len(got), got)
	}
	if got[1]["content"] != "ok" {
		t.Errorf("unexpected replayed envelope: %v", got[1])
	}
}
