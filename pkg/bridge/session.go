package bridge

import (
	"context"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/events"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/google/uuid"
	jww "github.com/spf13/jwalterweatherman"
)

// Session is one client attached to a Node. Requests of a session are
// answered strictly in order; events of the node are interleaved into the
// same outbox.
type Session struct {
	id     string
	node   *Node
	outbox *events.Outbox
}

// Open attaches a new session. The first session also receives the events
// raised while nobody was attached.
func (n *Node) Open() (*Session, error) {
	s := &Session{id: uuid.NewString(), node: n, outbox: events.NewOutbox()}

	n.mu.Lock()
	if n.err != nil {
		n.mu.Unlock()
		return nil, ErrStopped
	}
	n.sessions[s.id] = s
	count := len(n.sessions)
	n.mu.Unlock()

	n.events.Subscribe(s.id, s.outbox)
	n.metrics.Sessions.Set(float64(count))
	jww.INFO.Printf("Session %s opened (%d attached)", s.id, count)
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// Next waits for the next frame to deliver to the client
func (s *Session) Next(ctx context.Context) (events.Message, error) {
	return s.outbox.Pop(ctx)
}

// Submit queues req on the loop and waits until its response is in the
// outbox
func (s *Session) Submit(ctx context.Context, req protocol.Request) error {
	j := &job{
		name:  req.RequestName(),
		run:   func() (protocol.Response, error) { return s.node.dispatch(req) },
		reply: s.outbox,
		done:  make(chan struct{}),
	}
	if err := s.node.enqueue(j); err != nil {
		return err
	}
	return s.node.wait(ctx, j)
}

// Reject answers a frame that could not be decoded
func (s *Session) Reject(err error) {
	resp := protocol.Malformed(err)
	jww.DEBUG.Printf("Session %s: rejected frame: %v", s.id, err)
	s.node.metrics.Malformed.WithLabelValues(string(resp.Error)).Inc()
	s.outbox.Push(events.Message{Response: resp})
}

// HandleFrame decodes one client frame and submits it
func (s *Session) HandleFrame(ctx context.Context, data []byte) error {
	req, err := protocol.DecodeRequest(data)
	if err != nil {
		s.Reject(err)
		return nil
	}
	return s.Submit(ctx, req)
}

// Close detaches the session. Queued frames are still handed out by Next.
func (s *Session) Close() {
	n := s.node
	n.events.Unsubscribe(s.id)

	n.mu.Lock()
	_, attached := n.sessions[s.id]
	delete(n.sessions, s.id)
	count := len(n.sessions)
	n.mu.Unlock()

	s.outbox.Close()
	if attached {
		n.metrics.Sessions.Set(float64(count))
		jww.INFO.Printf("Session %s closed", s.id)
	}
}
