package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	sseChannelBuffer = 16
	sseHeartbeat     = 30 * time.Second
)

// Event types pushed to players.
const (
	EventGameState    = "game_state"
	EventPlayerJoined = "player_joined"
	EventPlayerLeft   = "player_left"
	EventCellUpdate   = "cell_update"
)

// Event is one message of a session's event stream.
type Event struct {
	Type     string            `json:"type"`
	Pseudo   string            `json:"pseudo,omitempty"`
	Color    string            `json:"color,omitempty"`
	Row      *int              `json:"row,omitempty"`
	Col      *int              `json:"col,omitempty"`
	Mark     *int              `json:"mark,omitempty"`
	State    [][]int           `json:"state,omitempty"`
	Players  map[string]Player `json:"players,omitempty"`
	Progress *Progress         `json:"progress,omitempty"`
}

// Progress reports how many cells of a board agree with the solution.
type Progress struct {
	Matched int  `json:"matched"`
	Total   int  `json:"total"`
	Solved  bool `json:"solved"`
}

// client represents a single SSE connection.
type client struct {
	ch     chan []byte
	gameID string
}

// Broadcaster fans events out to the SSE clients of each game session.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *slog.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// Register adds a client for a game session and returns it.
func (b *Broadcaster) Register(gameID string) *client {
	c := &client{
		ch:     make(chan []byte, sseChannelBuffer),
		gameID: gameID,
	}
	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()
	return c
}

// Unregister removes a client and closes its channel.
func (b *Broadcaster) Unregister(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.ch)
	}
	b.mu.Unlock()
}

// Publish encodes evt and broadcasts it to a game session.
func (b *Broadcaster) Publish(gameID string, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		b.logger.Error("encode event", "type", evt.Type, "err", err)
		return
	}
	b.Broadcast(gameID, data)
}

// Broadcast sends a message to all clients of a game session.
// Clients whose buffer is full miss the message.
func (b *Broadcaster) Broadcast(gameID string, data []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for c := range b.clients {
		if c.gameID != gameID {
			continue
		}
		select {
		case c.ch <- data:
		default:
			b.logger.Debug("dropping event for slow client", "game", gameID)
		}
	}
}

// ClientCount returns the number of connected clients for a game.
func (b *Broadcaster) ClientCount(gameID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for c := range b.clients {
		if c.gameID == gameID {
			n++
		}
	}
	return n
}

// ServeSSE streams a game session's events until the request ends.
// onConnect may queue initial events on the new client.
func (b *Broadcaster) ServeSSE(w http.ResponseWriter, r *http.Request, gameID string, onConnect func(c *client), onDisconnect func()) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming non supporté", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := b.Register(gameID)
	defer func() {
		b.Unregister(c)
		if onDisconnect != nil {
			onDisconnect()
		}
	}()

	if onConnect != nil {
		onConnect(c)
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-c.ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

// send queues an event on a single client.
func (c *client) send(evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", evt.Type, err)
	}
	select {
	case c.ch <- data:
		return nil
	default:
		return fmt.Errorf("client buffer full")
	}
}
