package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"tradepulse/internal/infrastructure"
)

// Message type constants for frames sent to subscribers
const (
	TypeConnection = "connection"
	TypeProgress   = "progress"
	TypeResult     = "result"
	TypeError      = "error"
)

// Hub maintains the set of active subscribers and broadcasts progress
// frames to them. All running analyses share one audience: every frame
// goes to every connected subscriber.
type Hub struct {
	// Registered subscribers
	clients map[*Client]bool

	// Outbound frames, fan-out and client-targeted alike. One queue,
	// so targeted frames never overtake broadcasts queued before them.
	broadcast chan frame

	// Register requests from new connections
	register chan *Client

	// Unregister requests from closing connections
	unregister chan *Client

	mu sync.RWMutex

	logger *slog.Logger

	quit    chan struct{}
	done    chan struct{}
	running bool
}

// frame is one outbound unit of work for the run loop. A nil target
// fans out to every subscriber; otherwise only the target receives it.
type frame struct {
	target  *Client
	payload []byte
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	return &Hub{
		broadcast:  make(chan frame, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start starts the hub's run loop. Idempotent.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run executes the hub's main loop until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			// The run loop owns the registry; closing subscriber
			// channels here keeps shutdown from racing a broadcast
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			activeConnections.Set(0)

			h.logger.Info("hub shutting down")
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()

			connectionsTotal.Inc()
			activeConnections.Set(float64(count))

			h.logger.Info("subscriber registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			// Greet the new subscriber so the frontend can confirm the stream
			connMsg := map[string]interface{}{
				"type": TypeConnection,
				"data": map[string]interface{}{
					"status":    "connected",
					"client_id": client.id,
				},
				"timestamp": time.Now().Format(time.RFC3339),
			}
			if jsonData, err := json.Marshal(connMsg); err == nil {
				select {
				case client.send <- jsonData:
				default:
					h.logger.Warn("failed to send connection message, client buffer full",
						slog.String("client_id", client.id))
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.mu.Unlock()

				activeConnections.Set(float64(count))

				h.logger.Info("subscriber unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			} else {
				// Already removed; unregistration is a no-op the second time
				h.mu.Unlock()
			}

		case fr := <-h.broadcast:
			if fr.target != nil {
				h.deliver(fr.target, fr.payload)
				continue
			}
			message := fr.payload

			// Snapshot the registry so sends happen without holding the lock
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			failCount := 0
			for _, client := range clients {
				select {
				case client.send <- message:
					messagesSent.Inc()
				default:
					// Send buffer full means a dead or stalled transport.
					// Evict this subscriber only; the rest still receive.
					failCount++
					broadcastDrops.Inc()
					h.mu.Lock()
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
					h.mu.Unlock()

					h.logger.Warn("subscriber send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}

			if failCount > 0 {
				h.logger.Warn("some subscribers missed a broadcast",
					slog.Int("delivered", len(clients)-failCount),
					slog.Int("dropped", failCount))
			}
		}
	}
}

// deliver hands a targeted frame to one subscriber
func (h *Hub) deliver(client *Client, message []byte) {
	if client.TrySend(message) {
		messagesSent.Inc()
		return
	}
	broadcastDrops.Inc()
	h.logger.Warn("targeted frame dropped, subscriber gone or stalled",
		slog.String("client_id", client.id))
}

// Register adds a subscriber to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a subscriber from the hub. Safe to call more than
// once for the same client.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast queues a raw frame for delivery to every current subscriber.
// Delivery is best-effort per subscriber and never blocks the caller
// beyond the hub queue.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- frame{payload: message}:
	case <-h.quit:
	}
}

// SendToClient queues a frame for a single subscriber. Ordered with
// respect to Broadcast: frames queued earlier are delivered first, so
// a terminal result sent after the last progress broadcast arrives
// after it too.
func (h *Hub) SendToClient(client *Client, message []byte) {
	select {
	case h.broadcast <- frame{target: client, payload: message}:
	case <-h.quit:
	}
}

// BroadcastProgress sends a progress frame. step and totalSteps are
// omitted from the payload when totalSteps is zero.
func (h *Hub) BroadcastProgress(message string, step, totalSteps int) {
	data := map[string]interface{}{
		"message": message,
	}
	if totalSteps > 0 {
		data["step"] = step
		data["total_steps"] = totalSteps
	}

	h.broadcastJSON(map[string]interface{}{
		"type":      TypeProgress,
		"data":      data,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastError sends an error frame to all subscribers
func (h *Hub) BroadcastError(message string) {
	h.broadcastJSON(map[string]interface{}{
		"type": TypeError,
		"data": map[string]interface{}{
			"message": message,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// broadcastJSON marshals and queues a frame
func (h *Hub) broadcastJSON(message map[string]interface{}) {
	jsonData, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("error marshaling frame",
			slog.String("error", err.Error()))
		return
	}
	h.Broadcast(jsonData)
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop gracefully stops the hub and disconnects all subscribers.
// Blocks until the run loop has closed every subscriber channel.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}
