// Package realtime pushes availability changes to websocket subscribers.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	facilityDomain "github.com/parkwise/service-parking/internal/domain/facility"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 256
)

// AllFacilities subscribes a client to every facility.
const AllFacilities = "*"

// Event types sent to clients.
const (
	EventAvailability = "availability"
	EventSubscribed   = "subscribed"
)

// Upgrader is shared by the websocket handler. Origins are checked by the CORS layer.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is a message pushed to clients.
type Event struct {
	Type      string      `json:"type"`
	CarParkNo string      `json:"car_park_no,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

// clientMessage is what clients send: subscribe or unsubscribe to a facility.
type clientMessage struct {
	Type      string `json:"type"`
	CarParkNo string `json:"car_park_no"`
}

type connection struct {
	conn       *websocket.Conn
	send       chan []byte
	facilities map[string]bool
}

// Hub tracks websocket clients and their facility subscriptions.
type Hub struct {
	logger *zap.Logger

	mu          sync.RWMutex
	connections map[*connection]struct{}
}

// NewHub creates an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:      logger,
		connections: make(map[*connection]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = struct{}{}
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c]; ok {
		delete(h.connections, c)
		close(c.send)
	}
}

// BroadcastAvailability sends a snapshot to clients subscribed to its facility.
// Slow clients miss the update rather than block the caller.
func (h *Hub) BroadcastAvailability(snapshot facilityDomain.Availability) {
	data, err := json.Marshal(Event{
		Type:      EventAvailability,
		CarParkNo: snapshot.CarParkNo,
		Payload:   snapshot,
	})
	if err != nil {
		h.logger.Warn("failed to encode availability event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections {
		if c.facilities[snapshot.CarParkNo] || c.facilities[AllFacilities] {
			select {
			case c.send <- data:
			default:
			}
		}
	}
}

// ServeWS registers conn, subscribes it to the initial facilities and blocks
// until the client disconnects.
func (h *Hub) ServeWS(conn *websocket.Conn, initial []string) {
	c := &connection{
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		facilities: make(map[string]bool),
	}
	for _, id := range initial {
		if id != "" {
			c.facilities[id] = true
		}
	}

	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}

		var m clientMessage
		if err := json.Unmarshal(msg, &m); err != nil || m.CarParkNo == "" {
			continue
		}

		switch m.Type {
		case "subscribe":
			h.mu.Lock()
			c.facilities[m.CarParkNo] = true
			h.mu.Unlock()
			h.ack(c, m.CarParkNo)
		case "unsubscribe":
			h.mu.Lock()
			delete(c.facilities, m.CarParkNo)
			h.mu.Unlock()
		}
	}
}

func (h *Hub) ack(c *connection, carParkNo string) {
	data, err := json.Marshal(Event{Type: EventSubscribed, CarParkNo: carParkNo})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
