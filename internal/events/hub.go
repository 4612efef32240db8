// Package events pushes finished automation runs to websocket
// subscribers (live feed for operator dashboards).
package events

import (
	"net/http"
	"sync"
	"time"

	"scriptify/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// RunEvent is the wire form of one finished run.
type RunEvent struct {
	Type         string    `json:"type"`
	AutomationID uint      `json:"automation_id"`
	Script       string    `json:"script"`
	Trigger      string    `json:"trigger"`
	Status       string    `json:"status"`
	Message      string    `json:"message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin checks belong to the fronting proxy
	},
}

// Hub fans RunEvents out to connected websocket clients.
type Hub struct {
	logger *logrus.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan RunEvent
}

func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.New()
	}
	return &Hub{logger: logger, clients: make(map[*websocket.Conn]chan RunEvent)}
}

// PublishRun implements the automation service's run publisher. Slow
// clients drop events rather than block the run path.
func (h *Hub) PublishRun(run models.AutomationRun) {
	event := RunEvent{
		Type:         "automation_run",
		AutomationID: run.AutomationID,
		Script:       run.ScriptName,
		Trigger:      run.TriggerName,
		Status:       run.Status,
		Message:      run.Message,
		Timestamp:    run.CreatedAt,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.clients {
		select {
		case send <- event:
		default:
			h.logger.Warnf("events: dropping event for slow client %s", conn.RemoteAddr())
		}
	}
}

// ClientCount reports connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams events until the client
// goes away.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnf("events: upgrade failed: %v", err)
		return
	}

	send := make(chan RunEvent, 16)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	done := make(chan struct{})
	// reader only detects disconnects; the feed is one-way
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer h.drop(conn)
		for {
			select {
			case <-done:
				return
			case event := <-send:
				if err := conn.WriteJSON(event); err != nil {
					return
				}
			}
		}
	}()
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if send, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()
	conn.Close()
}
