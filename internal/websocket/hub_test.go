package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idqcli/internal/config"
	"idqcli/internal/pipeline"
)

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, nil)
	hub.Start()
	defer hub.Stop()

	conn := dialTestHub(t, hub)

	// Registration races with the broadcast, give the hub loop a beat.
	time.Sleep(50 * time.Millisecond)

	sent := pipeline.Event{
		RunID:   "run-1",
		Stage:   pipeline.StageFilter,
		Message: "filtering catalog",
		Percent: 10,
	}
	hub.BroadcastEvent(sent)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got pipeline.Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, sent, got)
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, nil)
	hub.Start()
	defer hub.Stop()

	first := dialTestHub(t, hub)
	second := dialTestHub(t, hub)
	time.Sleep(50 * time.Millisecond)

	hub.BroadcastEvent(pipeline.Event{RunID: "run-2", Stage: pipeline.StageBarcode, Percent: 100})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(data), "run-2")
	}
}

func TestHubStopIsIdempotent(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, nil)
	hub.Start()
	hub.Stop()
	hub.Stop()

	// Broadcasting after Stop must not block.
	done := make(chan struct{})
	go func() {
		hub.BroadcastEvent(pipeline.Event{Stage: pipeline.StageListing})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastEvent blocked after Stop")
	}
}
