package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/kickroom/game/engine"
	"github.com/wricardo/kickroom/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// TopicAll receives events for every run.
	TopicAll = "*"

	// Default minimum gap between two progress events of one run.
	defaultProgressInterval = 100 * time.Millisecond
)

// Event names sent to clients.
const (
	EventSolveStarted  = "solve_started"
	EventProgress      = "progress"
	EventSolveFinished = "solve_finished"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// Message represents a WebSocket message
type Message struct {
	Topic    string           `json:"topic"`
	RunID    string           `json:"run_id"`
	Event    string           `json:"event"`
	Run      *service.Run     `json:"run,omitempty"`
	Progress *engine.Progress `json:"progress,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	topic string
}

// Hub maintains the set of active clients and fans run events out to them.
// It implements service.ProgressSink.
type Hub struct {
	// Registered clients by topic (puzzle ID, RunTopic or TopicAll)
	topics map[string]map[*Client]bool
	mu     sync.RWMutex

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	logger           *slog.Logger
	progressInterval time.Duration
	lastProgress     map[string]time.Time
	progressMu       sync.Mutex
}

var _ service.ProgressSink = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		topics:           make(map[string]map[*Client]bool),
		register:         make(chan *Client),
		unregister:       make(chan *Client),
		logger:           slog.Default().With("component", "websocket"),
		progressInterval: defaultProgressInterval,
		lastProgress:     make(map[string]time.Time),
	}
}

// SetProgressInterval changes how often progress of one run is forwarded.
// Zero forwards every report.
func (h *Hub) SetProgressInterval(d time.Duration) {
	h.progressMu.Lock()
	h.progressInterval = d
	h.progressMu.Unlock()
}

// Run starts the hub's registration loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// ServeWS upgrades the request and subscribes the client to topic
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, topic string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, 256),
		topic: topic,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// SolveStarted implements service.ProgressSink
func (h *Hub) SolveStarted(run *service.Run) {
	h.publish(&Message{RunID: run.ID, Event: EventSolveStarted, Run: run}, run)
}

// SolveProgress implements service.ProgressSink. Reports closer together
// than the progress interval are dropped.
func (h *Hub) SolveProgress(run *service.Run, p engine.Progress) {
	h.progressMu.Lock()
	now := time.Now()
	if last, ok := h.lastProgress[run.ID]; ok && now.Sub(last) < h.progressInterval {
		h.progressMu.Unlock()
		return
	}
	h.lastProgress[run.ID] = now
	h.progressMu.Unlock()

	h.publish(&Message{RunID: run.ID, Event: EventProgress, Progress: &p}, run)
}

// SolveFinished implements service.ProgressSink
func (h *Hub) SolveFinished(run *service.Run) {
	h.progressMu.Lock()
	delete(h.lastProgress, run.ID)
	h.progressMu.Unlock()

	h.publish(&Message{RunID: run.ID, Event: EventSolveFinished, Run: run}, run)
}

// RunTopic is the topic carrying the events of a single run.
func RunTopic(runID string) string {
	return "run:" + runID
}

// ClientCount returns the number of clients subscribed to topic
func (h *Hub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// publish sends message to subscribers of the run, its puzzle and TopicAll
func (h *Hub) publish(message *Message, run *service.Run) {
	for _, t := range []string{RunTopic(run.ID), run.PuzzleID, TopicAll} {
		message.Topic = t
		data, err := json.Marshal(message)
		if err != nil {
			h.logger.Warn("failed to marshal websocket message", "error", err)
			return
		}
		h.broadcast(t, data)
	}
}

func (h *Hub) broadcast(topic string, data []byte) {
	h.mu.RLock()
	var slow []*Client
	for client := range h.topics[topic] {
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// Client's send channel is full, drop it
	for _, client := range slow {
		h.unregisterClient(client)
	}
}

// registerClient adds a client to a topic
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[client.topic] == nil {
		h.topics[client.topic] = make(map[*Client]bool)
	}
	h.topics[client.topic][client] = true

	h.logger.Debug("client registered", "topic", client.topic, "clients", len(h.topics[client.topic]))
}

// unregisterClient removes a client from its topic
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.topics[client.topic]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)

	// Clean up empty topics
	if len(clients) == 0 {
		delete(h.topics, client.topic)
	}

	h.logger.Debug("client unregistered", "topic", client.topic, "clients", len(clients))
}

// readPump keeps the connection alive; clients never send anything useful
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// one JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
