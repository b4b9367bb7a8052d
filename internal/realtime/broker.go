// Package realtime fans out change notifications for portal collections.
package realtime

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Collection names a stream of records that observers can watch.
type Collection string

const (
	CollectionAppeals       Collection = "appeals"
	CollectionTransactions  Collection = "transactions"
	CollectionUsers         Collection = "users"
	CollectionKnowledgeBase Collection = "knowledge_base"
)

// Op is the kind of write that produced an event.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpUpsert Op = "UPSERT"
	OpDelete Op = "DELETE"
)

// Event describes one committed write.
type Event struct {
	Collection Collection `json:"collection"`
	Op         Op         `json:"op"`
	ID         string     `json:"id"`
	UserID     string     `json:"user_id,omitempty"` // Owner of the record, when it has one.
	At         time.Time  `json:"at"`
}

// Publisher accepts committed change events.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Broker is a Publisher that observers can subscribe to.
type Broker interface {
	Publisher
	// Subscribe returns a channel of events for the given collections (all when empty)
	// and a cancel func that closes the channel.
	Subscribe(collections ...Collection) (<-chan Event, func())
}

const subscriberBuffer = 32

type subscriber struct {
	ch          chan Event
	collections map[Collection]struct{}
}

func (s *subscriber) wants(c Collection) bool {
	if len(s.collections) == 0 {
		return true
	}
	_, ok := s.collections[c]
	return ok
}

// MemoryBroker delivers events to subscribers in the same process.
// A subscriber whose buffer is full misses the event rather than blocking publishers.
type MemoryBroker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscriber
}

// NewMemoryBroker constructs an empty MemoryBroker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[int]*subscriber)}
}

// Publish delivers evt to every interested subscriber.
func (b *MemoryBroker) Publish(_ context.Context, evt Event) error {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, sub := range b.subs {
		if !sub.wants(evt.Collection) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			log.WithFields(log.Fields{"subscriber": id, "collection": evt.Collection}).Debug("realtime: subscriber buffer full, event dropped")
		}
	}
	return nil
}

// Subscribe registers a subscriber.
func (b *MemoryBroker) Subscribe(collections ...Collection) (<-chan Event, func()) {
	sub := &subscriber{
		ch:          make(chan Event, subscriberBuffer),
		collections: make(map[Collection]struct{}, len(collections)),
	}
	for _, c := range collections {
		sub.collections[c] = struct{}{}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Subscribers returns the number of live subscriptions.
func (b *MemoryBroker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, Event) error { return nil }
