package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Event names sent to live viewers.
const (
	EventAnswerRecorded = "answer_recorded"
	EventViewers        = "viewers"
	EventPong           = "pong"
)

// Hub maintains survey_id -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: events are published to Redis
// and every instance delivers them to its own viewers.
type Hub struct {
	// surveyID -> map[clientID]*Client
	rooms  map[uuid.UUID]map[string]*Client
	subs   map[uuid.UUID]func() // cancel Redis subscription per survey
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// Publisher publishes survey events to other instances.
type Publisher interface {
	PublishSurveyEvent(surveyID uuid.UUID, event string, payload []byte) error
}

// Subscriber subscribes to survey channels and invokes handler for incoming events.
type Subscriber interface {
	SubscribeSurvey(surveyID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[uuid.UUID]map[string]*Client),
		subs:   make(map[uuid.UUID]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client to a survey room. Starts the Redis subscription for
// the survey if the room has none yet, so a failed subscribe is retried by
// the next viewer to join.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.SurveyID] == nil {
		h.rooms[c.SurveyID] = make(map[string]*Client)
	}
	if h.sub != nil && h.subs[c.SurveyID] == nil {
		surveyID := c.SurveyID
		cancel, err := h.sub.SubscribeSurvey(surveyID, func(event string, payload []byte) {
			h.Broadcast(surveyID, event, json.RawMessage(payload))
		})
		if err != nil {
			h.logger.Warn("subscribe survey events", zap.String("survey_id", surveyID.String()), zap.Error(err))
		} else {
			h.subs[surveyID] = cancel
		}
	}
	h.rooms[c.SurveyID][c.ID] = c
	count := len(h.rooms[c.SurveyID])
	h.mu.Unlock()

	h.Broadcast(c.SurveyID, EventViewers, map[string]int{"count": count})
	h.logger.Debug("viewer joined survey", zap.String("client_id", c.ID), zap.String("survey_id", c.SurveyID.String()))
}

// Unregister removes a client from a survey room. Cancels the Redis subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	count := 0
	if m, ok := h.rooms[c.SurveyID]; ok {
		delete(m, c.ID)
		count = len(m)
		if count == 0 {
			delete(h.rooms, c.SurveyID)
			if cancel, ok := h.subs[c.SurveyID]; ok {
				cancel()
				delete(h.subs, c.SurveyID)
			}
		}
	}
	h.mu.Unlock()

	if count > 0 {
		h.Broadcast(c.SurveyID, EventViewers, map[string]int{"count": count})
	}
	h.logger.Debug("viewer left survey", zap.String("client_id", c.ID), zap.String("survey_id", c.SurveyID.String()))
}

// Broadcast sends a message to all local clients of a survey.
func (h *Hub) Broadcast(surveyID uuid.UUID, event string, payload interface{}) {
	msg, err := newMessage(event, payload)
	if err != nil {
		h.logger.Warn("encode live event", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[surveyID] {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish delivers an event to the survey's viewers on every instance.
// With Redis configured the local broadcast happens through the
// subscription, so local viewers receive it exactly once. Without a
// working subscription, or when publishing fails, local viewers are
// served directly.
func (h *Hub) Publish(surveyID uuid.UUID, event string, payload interface{}) {
	if h.pub == nil {
		h.Broadcast(surveyID, event, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("encode live event", zap.String("event", event), zap.Error(err))
		return
	}
	h.mu.RLock()
	_, subscribed := h.subs[surveyID]
	h.mu.RUnlock()
	if err := h.pub.PublishSurveyEvent(surveyID, event, data); err != nil {
		h.logger.Warn("publish live event", zap.String("survey_id", surveyID.String()), zap.Error(err))
		subscribed = false
	}
	if !subscribed {
		h.Broadcast(surveyID, event, json.RawMessage(data))
	}
}

// ViewerCount returns the number of local clients watching a survey.
func (h *Hub) ViewerCount(surveyID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[surveyID])
}

// Shutdown cancels every Redis subscription.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, cancel := range h.subs {
		cancel()
		delete(h.subs, id)
	}
}

func newMessage(event string, payload interface{}) (WSMessage, error) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return WSMessage{}, err
		}
	}
	return WSMessage{Event: event, Data: data}, nil
}
