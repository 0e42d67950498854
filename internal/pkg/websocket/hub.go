package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventTypeStatus marks a meta document status change
const EventTypeStatus = "status"

// StatusEvent is pushed to every subscriber of a topic when one of its meta
// documents changes state
type StatusEvent struct {
	Type             string    `json:"type"`
	MetaDocumentID   int64     `json:"meta_document_id"`
	TopicID          int64     `json:"topic_id"`
	ProcessingStatus string    `json:"processing_status"`
	ErrorMessage     *string   `json:"error_message,omitempty"`
	ChunkCount       int       `json:"chunk_count"`
	TokenCount       int       `json:"token_count"`
	Timestamp        time.Time `json:"timestamp"`
}

// Hub keeps the clients subscribed to each topic and fans status events out to them
type Hub struct {
	// Subscribed clients organized by topic ID, owned by the Run goroutine
	clients map[int64]map[*Client]bool

	broadcast  chan *StatusEvent
	register   chan *Client
	unregister chan *Client

	// Number of clients per topic, readable from any goroutine
	mu     sync.RWMutex
	counts map[int64]int

	// Listeners receive every published event, used by tests and internal consumers
	listenersMu sync.RWMutex
	listeners   []chan *StatusEvent

	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		broadcast:  make(chan *StatusEvent, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		counts:     make(map[int64]int),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		logger:     logger,
	}
}

// Run handles registrations and broadcasts until Stop is called or ctx ends
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	defer h.closeAll()
	defer h.once.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// Stop shuts the hub down and closes every client connection. It waits for
// Run to exit or ctx to end.
func (h *Hub) Stop(ctx context.Context) error {
	h.once.Do(func() { close(h.done) })
	select {
	case <-h.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish queues an event for broadcast without blocking the caller.
// Events published after Stop or while the buffer is full are dropped.
func (h *Hub) Publish(event *StatusEvent) {
	if event == nil {
		return
	}
	if event.Type == "" {
		event.Type = EventTypeStatus
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.notifyListeners(event)

	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn().
			Int64("topicID", event.TopicID).
			Int64("metaDocumentID", event.MetaDocumentID).
			Msg("Hub broadcast buffer full, dropping status event")
	}
}

// Subscribe adds a client to the hub. It returns false if the hub is stopped.
func (h *Hub) Subscribe(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	topicID := client.topicID
	if _, ok := h.clients[topicID]; !ok {
		h.clients[topicID] = make(map[*Client]bool)
	}
	h.clients[topicID][client] = true
	h.setCount(topicID, len(h.clients[topicID]))

	h.logger.Info().
		Int64("topicID", topicID).
		Str("addr", client.remoteAddr()).
		Msg("Client subscribed")
}

func (h *Hub) unregisterClient(client *Client) {
	topicID := client.topicID
	clients, ok := h.clients[topicID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, topicID)
	}
	h.setCount(topicID, len(clients))

	h.logger.Info().
		Int64("topicID", topicID).
		Str("addr", client.remoteAddr()).
		Msg("Client unsubscribed")
}

// broadcastEvent sends an event to all clients of its topic. Clients whose
// buffer is full are dropped.
func (h *Hub) broadcastEvent(event *StatusEvent) {
	clients, ok := h.clients[event.TopicID]
	if !ok {
		h.logger.Debug().
			Int64("topicID", event.TopicID).
			Msg("No subscribers for topic")
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("topicID", event.TopicID).
			Msg("Failed to marshal status event")
		return
	}

	var slow []*Client
	for client := range clients {
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		h.logger.Warn().Int64("topicID", event.TopicID).Msg("Dropping slow client")
		h.unregisterClient(client)
	}

	h.logger.Debug().
		Int64("topicID", event.TopicID).
		Int("clientCount", len(clients)).
		Str("status", event.ProcessingStatus).
		Msg("Status event broadcasted")
}

func (h *Hub) closeAll() {
	for topicID, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
		delete(h.clients, topicID)
		h.setCount(topicID, 0)
	}
}

func (h *Hub) setCount(topicID int64, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n == 0 {
		delete(h.counts, topicID)
		return
	}
	h.counts[topicID] = n
}

// ClientsCount returns the number of connected clients for a topic
func (h *Hub) ClientsCount(topicID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.counts[topicID]
}

func (h *Hub) notifyListeners(event *StatusEvent) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()

	for _, listener := range h.listeners {
		select {
		case listener <- event:
		default:
			h.logger.Warn().Msg("Skipped slow status listener")
		}
	}
}

// AddListener registers a channel to receive every published event
func (h *Hub) AddListener(listener chan *StatusEvent) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, listener)
}

// RemoveListener removes a listener from the hub
func (h *Hub) RemoveListener(listener chan *StatusEvent) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()

	for i, l := range h.listeners {
		if l == listener {
			h.listeners[i] = h.listeners[len(h.listeners)-1]
			h.listeners = h.listeners[:len(h.listeners)-1]
			break
		}
	}
}
