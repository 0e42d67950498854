package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	go hub.Run(context.Background())

	handler := NewHandler(hub, nil, zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		topicID := int64(1)
		if r.URL.Query().Get("topic_id") == "2" {
			topicID = 2
		}
		_ = handler.ServeTopic(w, r, topicID)
	}))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hub.Stop(ctx)
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubDeliversToTopicSubscribers(t *testing.T) {
	hub, srv := startHub(t)

	one := dial(t, srv, "topic_id=1")
	two := dial(t, srv, "topic_id=2")

	require.Eventually(t, func() bool {
		return hub.ClientsCount(1) == 1 && hub.ClientsCount(2) == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Publish(&StatusEvent{MetaDocumentID: 7, TopicID: 1, ProcessingStatus: "completed", ChunkCount: 2, TokenCount: 99})

	one.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := one.ReadMessage()
	require.NoError(t, err)

	var got StatusEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, EventTypeStatus, got.Type)
	assert.Equal(t, int64(7), got.MetaDocumentID)
	assert.Equal(t, "completed", got.ProcessingStatus)
	assert.Equal(t, 99, got.TokenCount)
	assert.False(t, got.Timestamp.IsZero())

	two.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = two.ReadMessage()
	assert.Error(t, err, "other topics receive nothing")
}

func TestHubUnsubscribesClosedClients(t *testing.T) {
	hub, srv := startHub(t)

	conn := dial(t, srv, "topic_id=1")
	require.Eventually(t, func() bool { return hub.ClientsCount(1) == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientsCount(1) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubStopClosesConnections(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "topic_id=1")
	require.Eventually(t, func() bool { return hub.ClientsCount(1) == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Stop(ctx))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Equal(t, 0, hub.ClientsCount(1))

	// Publishing after stop is a no-op
	hub.Publish(&StatusEvent{TopicID: 1})
	assert.False(t, hub.Subscribe(&Client{topicID: 1}))
}

func TestHubListeners(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ch := make(chan *StatusEvent, 1)
	hub.AddListener(ch)

	hub.Publish(&StatusEvent{TopicID: 3, ProcessingStatus: "processing"})
	select {
	case ev := <-ch:
		assert.Equal(t, int64(3), ev.TopicID)
	default:
		t.Fatal("listener did not receive the event")
	}

	hub.RemoveListener(ch)
	hub.Publish(&StatusEvent{TopicID: 3})
	assert.Len(t, ch, 0)
}

func TestUpgraderOrigins(t *testing.T) {
	up := Upgrader([]string{"http://localhost:3000"})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, up.CheckOrigin(r))

	r.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, up.CheckOrigin(r))

	r.Header.Set("Origin", "http://evil.example")
	assert.False(t, up.CheckOrigin(r))

	assert.True(t, Upgrader(nil).CheckOrigin(r))
}
