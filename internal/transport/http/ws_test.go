package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketLeaderboardStream(t *testing.T) {
	server := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws/leaderboard?contestId=contest-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial snapshot arrives first.
	typ, payload := readNext(conn, t)
	if typ != "leaderboard" {
		t.Fatalf("expected leaderboard, got %s", typ)
	}
	if entries := payload["entries"].([]interface{}); len(entries) != 0 {
		t.Fatalf("expected empty initial board, got %+v", entries)
	}

	// A submission over HTTP pushes an update on the socket.
	body := map[string]interface{}{
		"contestId": "contest-1",
		"answers":   map[string][]string{"q1": {"o2"}},
	}
	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/participation", body, "u1", "user")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status %d", resp.StatusCode)
	}

	typ, payload = readNext(conn, t)
	if typ != "leaderboard" {
		t.Fatalf("expected leaderboard update, got %s", typ)
	}
	entries := payload["entries"].([]interface{})
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %+v", entries)
	}
	entry := entries[0].(map[string]interface{})
	if entry["userId"] != "u1" || entry["score"].(float64) != 1 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestWebSocketSubmissionAtConnectTimeIsDelivered(t *testing.T) {
	server := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws/leaderboard?contestId=contest-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Submit before reading a single frame. The subscription is registered
	// before the handler takes its snapshot, so the entry must land either
	// in the snapshot or in a later update, never fall in between.
	body := map[string]interface{}{
		"contestId": "contest-1",
		"answers":   map[string][]string{"q1": {"o2"}},
	}
	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/participation", body, "u1", "user")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status %d", resp.StatusCode)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		_, payload := readNext(conn, t)
		entries := payload["entries"].([]interface{})
		if len(entries) == 1 {
			entry := entries[0].(map[string]interface{})
			if entry["userId"] != "u1" {
				t.Fatalf("unexpected entry: %+v", entry)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("submission never observed on the socket")
		}
	}
}

func TestWebSocketUnknownContest(t *testing.T) {
	server := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws/leaderboard?contestId=ghost"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail for unknown contest")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %+v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T) (string, map[string]interface{}) {
	t.Helper()
	var msg struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}
