package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kapu/herobuilds-api-go/internal/constants"
	"github.com/kapu/herobuilds-api-go/internal/domain"
	"go.uber.org/zap"
)

// RefreshEvent is pushed to subscribers whenever a record is refreshed.
type RefreshEvent struct {
	Key        string    `json:"key"`
	LastUpdate time.Time `json:"lastUpdate"`
	Source     string    `json:"source"`
}

type eventClient struct {
	conn *websocket.Conn
	send chan []byte
}

// EventHub fans refresh events out to websocket subscribers. Slow subscribers whose
// buffer is full are disconnected rather than blocking the refresh path.
type EventHub struct {
	upgrader  websocket.Upgrader
	clients   map[*eventClient]struct{}
	clientsMu sync.RWMutex
	closed    bool
	logger    *zap.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewEventHub(logger *zap.Logger) *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*eventClient]struct{}),
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// RecordRefreshed implements orchestrator.RefreshNotifier.
func (h *EventHub) RecordRefreshed(record *domain.CacheRecord) {
	if record == nil {
		return
	}
	source := string(domain.FetchKindRoster)
	if record.Detail != nil {
		source = string(domain.FetchKindDetail)
	}
	payload, err := json.Marshal(RefreshEvent{
		Key:        record.Key.String(),
		LastUpdate: record.LastUpdate,
		Source:     source,
	})
	if err != nil {
		h.logger.Error("Failed to encode refresh event", zap.Error(err))
		return
	}

	h.clientsMu.RLock()
	var slow []*eventClient
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.clientsMu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow event subscriber", zap.String("remote", c.conn.RemoteAddr().String()))
		h.unregister(c)
	}
}

func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.isClosed() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &eventClient{conn: conn, send: make(chan []byte, constants.WebSocketConfig.SendBufferSize)}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(constants.WebSocketConfig.WriteWait))
		_ = conn.Close()
		return
	}

	h.logger.Info("Event subscriber connected", zap.String("remote", conn.RemoteAddr().String()))

	go h.writePump(c)
	h.readPump(c)
}

// register adds the client and its writer to the wait group, unless Close already ran.
func (h *EventHub) register(c *eventClient) bool {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	return true
}

func (h *EventHub) isClosed() bool {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return h.closed
}

func (h *EventHub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Close disconnects all subscribers and waits for their writers to exit.
func (h *EventHub) Close() {
	h.stopOnce.Do(func() {
		h.clientsMu.Lock()
		h.closed = true
		h.clientsMu.Unlock()
		close(h.stopCh)
	})

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		h.logger.Warn("Timeout waiting for event subscribers to stop")
	}
}

// unregister removes the client once; only the remover closes the send channel.
func (h *EventHub) unregister(c *eventClient) {
	h.clientsMu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.clientsMu.Unlock()

	if ok {
		close(c.send)
	}
}

// readPump discards client frames and keeps the pong deadline moving.
func (h *EventHub) readPump(c *eventClient) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		h.logger.Info("Event subscriber disconnected")
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketConfig.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketConfig.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Event subscriber read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *EventHub) writePump(c *eventClient) {
	ticker := time.NewTicker(constants.WebSocketConfig.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		h.wg.Done()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketConfig.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketConfig.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-h.stopCh:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
				time.Now().Add(constants.WebSocketConfig.WriteWait))
			return
		}
	}
}
