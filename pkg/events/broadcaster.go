package events

import (
	"sync"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/golang-collections/collections/queue"
	jww "github.com/spf13/jwalterweatherman"
)

// Broadcaster delivers every published event to every subscribed outbox.
// Events published while nobody is subscribed are kept and handed to the
// next subscriber.
type Broadcaster struct {
	mu      sync.Mutex
	subs    map[string]*Outbox
	backlog *queue.Queue
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs:    make(map[string]*Outbox),
		backlog: queue.New(),
	}
}

// Publish fans ev out. It never blocks on slow subscribers.
func (b *Broadcaster) Publish(ev protocol.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.subs) == 0 {
		b.backlog.Enqueue(ev)
		return
	}
	for id, o := range b.subs {
		if !o.Push(Message{Event: ev}) {
			jww.DEBUG.Printf("Removing closed subscriber %s", id)
			delete(b.subs, id)
		}
	}
}

// Subscribe registers o under id and flushes the backlog into it
func (b *Broadcaster) Subscribe(id string, o *Outbox) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.backlog.Len() > 0 {
		o.Push(Message{Event: b.backlog.Dequeue().(protocol.Event)})
	}
	b.subs[id] = o
}

func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Subscribers returns the number of subscribed outboxes
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Backlog returns the number of events waiting for a subscriber
func (b *Broadcaster) Backlog() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.backlog.Len()
}
