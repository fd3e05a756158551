package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/survey-pulse-api/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second

	// EventStatisticsUpdate is pushed to a survey room after every
	// admitted submission.
	EventStatisticsUpdate = "survey:statistics:update"
)

// Frame is the wire envelope for hub messages in both directions.
type Frame struct {
	Action   string          `json:"action,omitempty"`
	Event    string          `json:"event,omitempty"`
	SurveyID string          `json:"survey_id,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Hub fans statistics updates out to websocket subscribers grouped by
// survey. Clients join a room by sending {"action":"join","survey_id":...}.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*client]struct{}
	logger *zap.Logger
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	rooms  map[string]struct{}
	closed bool
	mu     sync.Mutex
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[string]map[*client]struct{}),
		logger: logger,
	}
}

// Serve takes ownership of an upgraded connection and pumps it until the
// peer goes away.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := &client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, 16),
		rooms: make(map[string]struct{}),
	}
	go c.writePump()
	c.readPump()
}

// PublishStatistics broadcasts fresh statistics to every subscriber of
// the survey's room. Marshal failures are logged and dropped.
func (h *Hub) PublishStatistics(surveyID string, stats *models.SurveyStatistics) {
	data, err := json.Marshal(stats)
	if err != nil {
		h.logger.Error("marshal statistics frame", zap.String("survey_id", surveyID), zap.Error(err))
		return
	}
	frame, err := json.Marshal(Frame{
		Event:    EventStatisticsUpdate,
		SurveyID: surveyID,
		Data:     data,
	})
	if err != nil {
		h.logger.Error("marshal statistics envelope", zap.String("survey_id", surveyID), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[surveyID] {
		select {
		case c.send <- frame:
		default:
			// Slow consumer: drop the frame rather than block the
			// publisher.
		}
	}
}

// SubscriberCount reports how many clients watch a survey.
func (h *Hub) SubscriberCount(surveyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[surveyID])
}

func (h *Hub) join(surveyID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[surveyID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[surveyID] = room
	}
	room[c] = struct{}{}
	c.rooms[surveyID] = struct{}{}
}

func (h *Hub) leave(surveyID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[surveyID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, surveyID)
		}
	}
	delete(c.rooms, surveyID)
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for surveyID := range c.rooms {
		if room, ok := h.rooms[surveyID]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, surveyID)
			}
		}
	}
	c.rooms = make(map[string]struct{})
}

func (c *client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.close()
	}()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		switch frame.Action {
		case "join":
			if frame.SurveyID != "" {
				c.hub.join(frame.SurveyID, c)
			}
		case "leave":
			if frame.SurveyID != "" {
				c.hub.leave(frame.SurveyID, c)
			}
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.conn.Close() //nolint:errcheck
}
