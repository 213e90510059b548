package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/classbeacon/classbeacon-backend/internal/websocket"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Check-in payloads and pong replies share one connection; every frame
// must come out intact while both flow at once.
func TestStreamRosterInterleavesCheckinsAndPongs(t *testing.T) {
	const checkins = 50
	const pings = 50

	events := make(chan []byte, checkins)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		streamRoster(context.Background(), conn, events, zerolog.Nop())
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Feed check-in payloads while the client pings, so forwarded events
	// and pong replies contend for the connection.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < checkins; i++ {
			events <- []byte(`{"event":"checkin"}`)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < pings; i++ {
			if err := conn.WriteJSON(ws.RequestEnvelope{Action: ws.ActionPing}); err != nil {
				t.Errorf("write ping: %v", err)
				return
			}
		}
	}()

	got := map[string]int{}
	deadline := time.Now().Add(5 * time.Second)
	for got["checkin"] < checkins || got["pong"] < pings {
		conn.SetReadDeadline(deadline)
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v (checkins %d, pongs %d)", err, got["checkin"], got["pong"])
		}

		var frame struct {
			Event string `json:"event"`
		}
		if err := json.Unmarshal(payload, &frame); err != nil {
			t.Fatalf("unmarshal %q: %v", payload, err)
		}
		got[frame.Event]++
	}
	wg.Wait()

	if got["checkin"] != checkins || got["pong"] != pings {
		t.Errorf("got %d checkins and %d pongs, want %d and %d",
			got["checkin"], got["pong"], checkins, pings)
	}
}

func TestStreamRosterRepliesErrorOnUnknownAction(t *testing.T) {
	events := make(chan []byte)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		streamRoster(context.Background(), conn, events, zerolog.Nop())
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(ws.RequestEnvelope{Action: "subscribe"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var resp ws.ErrorResponse
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Event != ws.EventError {
		t.Errorf("event = %q, want %q", resp.Event, ws.EventError)
	}
}
