// CLASSIFICATION: COMMUNITY
// Filename: hub.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"wolfgym/internal/gym"
	"wolfgym/internal/logging"
)

const writeWait = time.Second

// Event is one message on the observer stream.
type Event struct {
	Type    string              `json:"type"`
	Step    *gym.StepEvent      `json:"step,omitempty"`
	Episode *gym.EpisodeSummary `json:"episode,omitempty"`
}

// Hub fans gym events out to websocket observers. Publishing never blocks:
// when the queue is full the event is dropped.
type Hub struct {
	upgrader  websocket.Upgrader
	log       *logging.Logger
	clients   map[*websocket.Conn]bool
	register  chan *websocket.Conn
	remove    chan *websocket.Conn
	broadcast chan []byte
	done      chan struct{}
	count     atomic.Int64
	dropped   atomic.Uint64
}

// NewHub returns a hub; call Run to start delivering.
func NewHub(log *logging.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:       log,
		clients:   make(map[*websocket.Conn]bool),
		register:  make(chan *websocket.Conn),
		remove:    make(chan *websocket.Conn),
		broadcast: make(chan []byte, 64),
		done:      make(chan struct{}),
	}
}

// Run delivers events until ctx is done, then closes every observer.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.count.Store(0)
			return
		case conn := <-h.register:
			h.clients[conn] = true
			h.count.Store(int64(len(h.clients)))
		case conn := <-h.remove:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
				h.count.Store(int64(len(h.clients)))
			}
		case msg := <-h.broadcast:
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.log.Warnf("observer write: %v", err)
					delete(h.clients, conn)
					conn.Close()
				}
			}
			h.count.Store(int64(len(h.clients)))
		}
	}
}

// Clients returns the number of connected observers.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Dropped counts events discarded because the queue was full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Publish queues ev for every observer.
func (h *Hub) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Errorf("observer event: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.dropped.Add(1)
	}
}

// PublishStep is a gym.WithStepHook callback.
func (h *Hub) PublishStep(ev gym.StepEvent) {
	h.Publish(Event{Type: "step", Step: &ev})
}

// PublishEpisode is a gym.WithEpisodeHook callback.
func (h *Hub) PublishEpisode(s gym.EpisodeSummary) {
	h.Publish(Event{Type: "episode", Episode: &s})
}

// Handle serves GET /ws. Observers are read-only; incoming messages are
// discarded.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("websocket upgrade: %v", err)
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}
	go func() {
		defer func() {
			select {
			case h.remove <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Warnf("observer: %v", err)
				}
				return
			}
		}
	}()
}
