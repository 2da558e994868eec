// Package broadcaster manages subscribers and distributes niceness-change
// events.
package broadcaster

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents one applied niceness change.
type Event struct {
	Time    time.Time
	PID     int32
	Name    string
	Action  string
	OldNice int
	NewNice int
}

// Subscriber represents a client subscribed to niceness-change events.
type Subscriber struct {
	ID      string
	Names   []string // glob patterns; empty matches every process
	Actions []string // empty matches every action
	Events  chan *Event
}

// Broadcaster manages subscribers and distributes niceness-change events.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
}

// New creates a new Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe creates a new subscription for niceness-change events.
func (b *Broadcaster) Subscribe(names, actions []string) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		ID:      uuid.New().String(),
		Names:   names,
		Actions: actions,
		Events:  make(chan *Event, 100),
	}

	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// Publish sends an event to all matching subscribers.
func (b *Broadcaster) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		if b.matches(sub, &event) {
			ev := event
			select {
			case sub.Events <- &ev:
			default:
				// Channel full, event dropped
			}
		}
	}
}

// matches checks if an event matches a subscriber's filters.
func (b *Broadcaster) matches(sub *Subscriber, event *Event) bool {
	if len(sub.Names) > 0 {
		found := false
		for _, pattern := range sub.Names {
			if matched, _ := filepath.Match(pattern, event.Name); matched {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(sub.Actions) > 0 {
		found := false
		for _, action := range sub.Actions {
			if action == event.Action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// Close closes the broadcaster and all subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber)
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
