package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auron/internal/history"
)

func dialHub(t *testing.T, ts *httptest.Server) *ws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Clients() == n },
		time.Second, 5*time.Millisecond)
}

func readEvent(t *testing.T, conn *ws.Conn) history.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev history.Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	return ev
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	ts := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer ts.Close()

	conn := dialHub(t, ts)
	waitClients(t, hub, 1)

	hub.Broadcast(history.Event{Kind: "log", Line: "hello"})

	ev := readEvent(t, conn)
	assert.Equal(t, "log", ev.Kind)
	assert.Equal(t, "hello", ev.Line)
}

func TestHubStreamsStoreEvents(t *testing.T) {
	hub := NewHub()
	store := history.NewStore(10, 10)
	store.SetNotify(hub.Broadcast)

	ts := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer ts.Close()
	conn := dialHub(t, ts)
	waitClients(t, hub, 1)

	store.AppendMessage("user", "hi")
	store.NotifyState(history.State{VoiceEnabled: true, TTSEnabled: true})

	ev := readEvent(t, conn)
	assert.Equal(t, "chat", ev.Kind)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "hi", ev.Message.Text)

	ev = readEvent(t, conn)
	assert.Equal(t, "state", ev.Kind)
	require.NotNil(t, ev.State)
	assert.True(t, ev.State.VoiceEnabled)
	assert.True(t, ev.State.TTSEnabled)
	assert.False(t, ev.State.DiscordEnabled)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	ts := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer ts.Close()

	fast := dialHub(t, ts)
	dialHub(t, ts) // slow: never reads
	waitClients(t, hub, 2)

	// drain the fast client so only the slow one backs up
	go func() {
		for {
			if _, _, err := fast.ReadMessage(); err != nil {
				return
			}
		}
	}()

	line := strings.Repeat("x", 1<<15)
	deadline := time.Now().Add(5 * time.Second)
	for hub.Clients() == 2 && time.Now().Before(deadline) {
		hub.Broadcast(history.Event{Kind: "log", Line: line})
		time.Sleep(time.Millisecond)
	}

	assert.Equal(t, 1, hub.Clients())
}

func TestHubDropsClosedClient(t *testing.T) {
	hub := NewHub()
	ts := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer ts.Close()

	conn := dialHub(t, ts)
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)
}
