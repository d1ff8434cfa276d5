package protocol

import (
	"encoding/json"
	"testing"
	"time"
)

func decode(t *testing.T, e Envelope) map[string]any {
	t.Helper()
	payload, err := e.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestSuccessEnvelope(t *testing.T) {
	got := decode(t, Success(Register))
	if got["status"] != "success" || got["type"] != "REGISTER" {
		t.Errorf("unexpected envelope: %v", got)
	}
}

func TestFailureEnvelope(t *testing.T) {
	got := decode(t, Failure(SingleSending, "userId 2 not logged in"))
	if got["status"] != "error" || got["type"] != "SINGLE_SENDING" || got["message"] != "userId 2 not logged in" {
		t.Errorf("unexpected envelope: %v", got)
	}
}

func TestFailureWithoutTypeOmitsField(t *testing.T) {
	got := decode(t, Failure("", "type not recognized"))
	if _, ok := got["type"]; ok {
		t.Errorf("type field must be absent, got %v", got)
	}
	if got["status"] != "error" || got["message"] != "type not recognized" {
		t.Errorf("unexpected envelope: %v", got)
	}
}

func TestWithChains(t *testing.T) {
	got := decode(t, Success(GroupSending).With("fromUserId", "1").With("toGroupId", "2"))
	if got["fromUserId"] != "1" || got["toGroupId"] != "2" {
		t.Errorf("unexpected envelope: %v", got)
	}
}

func TestFormatTime(t *testing.T) {
	at := time.Date(2025, 6, 1, 14, 30, 5, 0, time.Local)
	if got := FormatTime(at); got != "2025-06-01 14:30:05" {
		t.Errorf("FormatTime = %q", got)
	}
}

func TestParseInbound(t *testing.T) {
	raw := []byte(`{"type":"FILE_MSG_SINGLE_SENDING","fromUserId":"1","toUserId":"2","originalFilename":"a.pdf","fileSize":"1024","fileUrl":"/files/a.pdf"}`)
	in, err := ParseInbound(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if in.Type != string(FileSingleSending) || in.FromUserID != "1" || in.ToUserID != "2" {
		t.Errorf("unexpected inbound: %+v", in)
	}
	if in.OriginalFilename != "a.pdf" || in.FileSize != "1024" || in.FileURL != "/files/a.pdf" {
		t.Errorf("file fields not decoded: %+v", in)
	}

	if _, err := ParseInbound([]byte("not json")); err == nil {
		t.Error("expected an error for a malformed frame")
	}
}
