// Package stream broadcasts simulation frames to websocket viewers.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/san-kum/sandglass/internal/sand"
	"github.com/san-kum/sandglass/internal/sim"
)

const frameQueue = 4

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type job struct {
	msg    Message
	grains *[]sand.Grain
}

// Hub maintains the set of active clients and broadcasts frames to them.
// It implements sim.Observer.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	frames     chan job
	done       chan struct{}
	pool       *sim.GrainPool
	every      int
	mu         sync.Mutex
	logger     *slog.Logger
	dropped    atomic.Int64
	packed     []int32
}

// NewHub publishes every nth frame.
func NewHub(every int, logger *slog.Logger) *Hub {
	if every < 1 {
		every = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		frames:     make(chan job, frameQueue),
		done:       make(chan struct{}),
		pool:       sim.NewGrainPool(),
		every:      every,
		logger:     logger,
	}
}

// Run handles client connections and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("stream hub shutting down", "dropped", h.dropped.Load())
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("viewer connected", "remote", client.conn.RemoteAddr().String())
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("viewer disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.fanOut(message)
		case j := <-h.frames:
			h.packed = packGrains(h.packed, *j.grains)
			h.pool.Put(j.grains)
			j.msg.Grains = h.packed
			payload, err := json.Marshal(j.msg)
			if err != nil {
				h.logger.Error("encode frame", "step", j.msg.Step, "error", err)
				continue
			}
			h.fanOut(payload)
		}
	}
}

func (h *Hub) fanOut(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Broadcast sends a raw message to every client. It blocks until Run picks
// it up or has stopped.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// OnStep publishes every nth frame.
func (h *Hub) OnStep(f *sim.Frame) {
	if f.Step%h.every != 0 {
		return
	}
	h.Publish(f)
}

// Publish snapshots the frame and queues it for encoding. Frames are dropped
// rather than stalling the run when the queue is full.
func (h *Hub) Publish(f *sim.Frame) {
	j := job{
		msg: Message{
			Step:    f.Step,
			Time:    f.Time,
			Sample:  f.Sample(),
			Outline: outlineOf(f.Geometry),
		},
		grains: h.pool.Copy(f.Grains),
	}
	select {
	case h.frames <- j:
	default:
		h.pool.Put(j.grains)
		h.dropped.Add(1)
	}
}

// Clients is the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// ServeHTTP upgrades the request to a websocket and registers the viewer.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h, conn)
	client.Register()

	go client.WritePump()
	go client.ReadPump()
}
