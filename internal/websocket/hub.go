package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

const (
	EntityPerson    = "person"
	EntityHousehold = "household"

	ActionCreated             = "created"
	ActionUpdated             = "updated"
	ActionProfileImageUpdated = "profile_image_updated"
	ActionImageAdded          = "image_added"
)

const (
	subscriberBuffer = 16
	// maxMissed is how many events in a row a subscriber may miss before it
	// is disconnected.
	maxMissed = 8
)

// Event announces a committed change to a person or household. ImageID is
// set for image events.
type Event struct {
	Type    string `json:"type"`
	Entity  string `json:"entity"`
	Action  string `json:"action"`
	ID      int64  `json:"id"`
	ImageID int64  `json:"image_id,omitempty"`
}

func newEvent(entity, action string, id int64) Event {
	return Event{Type: entity + "_" + action, Entity: entity, Action: action, ID: id}
}

func PersonCreated(id int64) Event { return newEvent(EntityPerson, ActionCreated, id) }
func PersonUpdated(id int64) Event { return newEvent(EntityPerson, ActionUpdated, id) }

func ProfileImageUpdated(personID, imageID int64) Event {
	ev := newEvent(EntityPerson, ActionProfileImageUpdated, personID)
	ev.ImageID = imageID
	return ev
}

func HouseholdCreated(id int64) Event { return newEvent(EntityHousehold, ActionCreated, id) }

func HouseholdImageAdded(householdID, imageID int64) Event {
	ev := newEvent(EntityHousehold, ActionImageAdded, householdID)
	ev.ImageID = imageID
	return ev
}

// Subscription receives encoded events on C. C is closed when the
// subscription ends, either through Close or because it fell too far behind.
type Subscription struct {
	C <-chan []byte

	hub    *Hub
	ch     chan []byte
	missed int
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Hub fans committed change events out to subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

func (h *Hub) Subscribe() *Subscription {
	ch := make(chan []byte, subscriberBuffer)
	s := &Subscription{C: ch, hub: h, ch: ch}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

func (h *Hub) removeLocked(s *Subscription) {
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}

// Publish delivers ev to every subscriber without blocking. A subscriber
// whose buffer stays full for maxMissed events in a row is dropped.
func (h *Hub) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "type", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		select {
		case s.ch <- data:
			s.missed = 0
		default:
			s.missed++
			if s.missed >= maxMissed {
				h.logger.Warn("dropping stalled subscriber", "missed", s.missed, "type", ev.Type)
				h.removeLocked(s)
			}
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
