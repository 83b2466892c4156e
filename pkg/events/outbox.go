// Package events fans network events out to client sessions. Every
// session owns an unbounded FIFO outbox and nothing is ever dropped.
package events

import (
	"context"
	"sync"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/golang-collections/collections/queue"
	"github.com/pkg/errors"
)

// ErrClosed is returned by Pop once a closed outbox is empty
var ErrClosed = errors.New("outbox closed")

// Message is one frame queued for a client. Exactly one field is set.
type Message struct {
	Response protocol.Response
	Event    protocol.Event
}

// Encode renders the message as a wire frame
func (m Message) Encode() ([]byte, error) {
	if m.Response != nil {
		return protocol.EncodeResponse(m.Response)
	}
	if m.Event != nil {
		return protocol.EncodeEvent(m.Event)
	}
	return nil, errors.New("empty message")
}

// Outbox is a FIFO with one consumer and any number of producers
type Outbox struct {
	mu     sync.Mutex
	q      *queue.Queue
	notify chan struct{}
	closed bool
}

func NewOutbox() *Outbox {
	return &Outbox{
		q:      queue.New(),
		notify: make(chan struct{}, 1),
	}
}

// Push appends m. It reports false when the outbox is closed.
func (o *Outbox) Push(m Message) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	o.q.Enqueue(m)
	o.mu.Unlock()

	o.wake()
	return true
}

// Pop waits for the next message. Messages queued before Close are still
// handed out; after that Pop returns ErrClosed.
func (o *Outbox) Pop(ctx context.Context) (Message, error) {
	for {
		o.mu.Lock()
		if o.q.Len() > 0 {
			m := o.q.Dequeue().(Message)
			o.mu.Unlock()
			return m, nil
		}
		closed := o.closed
		o.mu.Unlock()
		if closed {
			return Message{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-o.notify:
		}
	}
}

// Close stops accepting messages
func (o *Outbox) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.wake()
}

// Len returns the number of queued messages
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.q.Len()
}

func (o *Outbox) wake() {
	select {
	case o.notify <- struct{}{}:
	default:
	}
}
