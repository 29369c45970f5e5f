package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryBus stands in for Redis pub/sub.
type memoryBus struct {
	mu       sync.Mutex
	handlers map[uuid.UUID]func(string, []byte)
	cancels  int
	// failSubscribe makes that many SubscribeSurvey calls fail.
	failSubscribe int
	subscribes    int
}

func newMemoryBus() *memoryBus {
	return &memoryBus{handlers: map[uuid.UUID]func(string, []byte){}}
}

func (b *memoryBus) PublishSurveyEvent(surveyID uuid.UUID, event string, payload []byte) error {
	b.mu.Lock()
	h := b.handlers[surveyID]
	b.mu.Unlock()
	if h != nil {
		h(event, payload)
	}
	return nil
}

func (b *memoryBus) SubscribeSurvey(surveyID uuid.UUID, handler func(string, []byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribes++
	if b.failSubscribe > 0 {
		b.failSubscribe--
		return nil, errors.New("redis unavailable")
	}
	b.handlers[surveyID] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, surveyID)
		b.cancels++
	}, nil
}

func testClient(surveyID uuid.UUID) *Client {
	return &Client{ID: uuid.NewString(), SurveyID: surveyID, send: make(chan WSMessage, 16)}
}

func next(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case m := <-c.send:
		return m
	case <-time.After(time.Second):
		t.Fatal("no message")
		return WSMessage{}
	}
}

func TestHub_PublishDeliversOncePerRoom(t *testing.T) {
	bus := newMemoryBus()
	hub := NewHub(nil, bus, bus)
	survey, other := uuid.New(), uuid.New()

	a, b, c := testClient(survey), testClient(survey), testClient(other)
	hub.Register(a)
	hub.Register(b)
	hub.Register(c)
	assert.Equal(t, 2, hub.ViewerCount(survey))

	// drain viewer counts
	for len(a.send) > 0 {
		<-a.send
	}
	for len(b.send) > 0 {
		<-b.send
	}
	for len(c.send) > 0 {
		<-c.send
	}

	hub.Publish(survey, EventAnswerRecorded, map[string]string{"question": "q1"})

	for _, cl := range []*Client{a, b} {
		m := next(t, cl)
		assert.Equal(t, EventAnswerRecorded, m.Event)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(m.Data, &payload))
		assert.Equal(t, "q1", payload["question"])
		assert.Empty(t, cl.send, "delivered exactly once")
	}
	assert.Empty(t, c.send)
}

func TestHub_ViewerCountAndUnsubscribe(t *testing.T) {
	bus := newMemoryBus()
	hub := NewHub(nil, bus, bus)
	survey := uuid.New()

	a, b := testClient(survey), testClient(survey)
	hub.Register(a)
	m := next(t, a)
	assert.Equal(t, EventViewers, m.Event)
	assert.JSONEq(t, `{"count":1}`, string(m.Data))

	hub.Register(b)
	assert.JSONEq(t, `{"count":2}`, string(next(t, a).Data))

	hub.Unregister(b)
	for len(a.send) > 1 {
		<-a.send
	}
	assert.JSONEq(t, `{"count":1}`, string(next(t, a).Data))

	hub.Unregister(a)
	assert.Equal(t, 0, hub.ViewerCount(survey))
	assert.Equal(t, 1, bus.cancels)
}

func TestHub_WithoutRedisBroadcastsLocally(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	survey := uuid.New()
	a := testClient(survey)
	hub.Register(a)
	<-a.send

	hub.Publish(survey, EventAnswerRecorded, map[string]int{"answers": 3})
	m := next(t, a)
	assert.Equal(t, EventAnswerRecorded, m.Event)
}

func drain(c *Client) {
	for len(c.send) > 0 {
		<-c.send
	}
}

func TestHub_RetriesFailedSubscription(t *testing.T) {
	bus := newMemoryBus()
	bus.failSubscribe = 1
	hub := NewHub(nil, bus, bus)
	survey := uuid.New()

	a := testClient(survey)
	hub.Register(a)
	drain(a)

	// No subscription yet: the event still reaches the local viewer once.
	hub.Publish(survey, EventAnswerRecorded, map[string]int{"answers": 1})
	assert.Equal(t, EventAnswerRecorded, next(t, a).Event)
	assert.Empty(t, a.send)

	b := testClient(survey)
	hub.Register(b)
	assert.Equal(t, 2, bus.subscribes)
	drain(a)
	drain(b)

	hub.Publish(survey, EventAnswerRecorded, map[string]int{"answers": 2})
	for _, cl := range []*Client{a, b} {
		m := next(t, cl)
		assert.Equal(t, EventAnswerRecorded, m.Event)
		assert.JSONEq(t, `{"answers":2}`, string(m.Data))
		assert.Empty(t, cl.send, "delivered exactly once")
	}

	hub.Unregister(a)
	hub.Unregister(b)
	assert.Equal(t, 1, bus.cancels)
}
