package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kapu/herobuilds-api-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dialEvents(t *testing.T, hub *EventHub) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(NewRouter(RouterDeps{
		Heroes: &fakeHeroes{},
		Health: fakeHealth{},
		Events: hub,
		Logger: zap.NewNop(),
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	return conn, func() {
		_ = conn.Close()
		hub.Close()
		srv.Close()
	}
}

func TestEventHubBroadcastsRefresh(t *testing.T) {
	hub := NewEventHub(zap.NewNop())
	conn, cleanup := dialEvents(t, hub)
	defer cleanup()

	lastUpdate := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	hub.RecordRefreshed(&domain.CacheRecord{
		Key:        domain.HeroKey("Abathur"),
		LastUpdate: lastUpdate,
		Detail:     &domain.EntityDetail{},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event RefreshEvent
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, "entity-detail:Abathur", event.Key)
	assert.Equal(t, "detail", event.Source)
	assert.True(t, lastUpdate.Equal(event.LastUpdate))
}

func TestEventHubForgetsClosedSubscriber(t *testing.T) {
	hub := NewEventHub(zap.NewNop())
	conn, cleanup := dialEvents(t, hub)
	defer cleanup()

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	// Broadcasting with no subscribers is a no-op.
	hub.RecordRefreshed(&domain.CacheRecord{Key: domain.RosterKey(), Roster: &domain.RosterSnapshot{}})
}

func TestEventHubCloseDisconnectsSubscribers(t *testing.T) {
	hub := NewEventHub(zap.NewNop())
	conn, cleanup := dialEvents(t, hub)
	defer cleanup()

	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}

func TestEventHubRejectsSubscribersAfterClose(t *testing.T) {
	hub := NewEventHub(zap.NewNop())
	srv := httptest.NewServer(NewRouter(RouterDeps{
		Heroes: &fakeHeroes{},
		Health: fakeHealth{},
		Events: hub,
		Logger: zap.NewNop(),
	}))
	defer srv.Close()

	hub.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestEventHubRegisterAfterCloseIsRefused(t *testing.T) {
	hub := NewEventHub(zap.NewNop())
	hub.Close()

	assert.False(t, hub.register(&eventClient{send: make(chan []byte, 1)}))
	assert.Equal(t, 0, hub.ClientCount())
	// A refused client never reaches the wait group, so Close stays prompt.
	hub.Close()
}
