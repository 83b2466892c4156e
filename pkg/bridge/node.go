// Package bridge runs the single loop that owns a network stack and
// serializes every client request against it.
package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/events"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/filetransfer"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/registry"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/golang-collections/collections/queue"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// ErrStopped is returned for work submitted after the loop terminated
var ErrStopped = errors.New("bridge stopped")

// Config holds the optional collaborators of a Node
type Config struct {
	// Nospam is applied to the stack unless State overrides it
	Nospam  uint32
	State   *registry.State
	Store   registry.Persister
	Now     func() time.Time
	Metrics *Metrics
}

// Node is one bridged identity. Run drives it; sessions talk to it.
type Node struct {
	stack   toxnet.Stack
	friends *registry.Friends
	confs   *registry.Conferences
	files   *filetransfer.Manager
	events  *events.Broadcaster
	metrics *Metrics

	mu       sync.Mutex
	jobs     *queue.Queue
	wake     chan struct{}
	sessions map[string]*Session
	done     chan struct{}
	err      error
}

// job is a unit of work executed on the loop
type job struct {
	name  string
	run   func() (protocol.Response, error)
	reply *events.Outbox
	done  chan struct{}
	err   error
}

func (j *job) finish(err error) {
	j.err = err
	close(j.done)
}

// Info is a snapshot of the node for status endpoints
type Info struct {
	PublicKey   string                    `json:"public_key"`
	Address     string                    `json:"address"`
	Name        string                    `json:"name"`
	Connection  protocol.ConnectionStatus `json:"connection"`
	Friends     int                       `json:"friends"`
	Conferences int                       `json:"conferences"`
	Sessions    int                       `json:"sessions"`
}

func New(stack toxnet.Stack, cfg *Config) (*Node, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	n := &Node{
		stack:    stack,
		events:   events.NewBroadcaster(),
		metrics:  metrics,
		jobs:     queue.New(),
		wake:     make(chan struct{}, 1),
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}

	stack.SetNospam(cfg.Nospam)
	n.friends = registry.NewFriends(stack, cfg.Nospam, n.publish, &registry.Config{Store: cfg.Store, Now: cfg.Now})
	n.confs = registry.NewConferences(stack, n.friends, n.publish)
	n.files = filetransfer.New(stack, n.friends, n.publish)
	n.friends.OnRemove(n.files.DropFriend)

	if cfg.State != nil {
		if err := n.friends.Restore(*cfg.State); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Done is closed when the loop terminates
func (n *Node) Done() <-chan struct{} {
	return n.done
}

// Err returns the reason the loop terminated, if it did
func (n *Node) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

// Run drives the loop until ctx is done or the stack fails. Each round
// iterates the stack, publishes the raised callbacks as events, offers chunk
// windows, executes at most one queued job and then sleeps until the next
// iteration is due or new work arrives.
func (n *Node) Run(ctx context.Context) error {
	jww.INFO.Printf("Bridge loop started for %s", n.stack.SelfPublicKey().Short())

	timer := time.NewTimer(n.stack.IterationInterval())
	defer timer.Stop()

	for {
		if err := n.step(ctx); err != nil {
			return n.stop(err)
		}
		if j := n.next(); j != nil {
			if err := n.execute(j); err != nil {
				return n.stop(err)
			}
		}
		if n.pending() > 0 {
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(n.stack.IterationInterval())

		select {
		case <-ctx.Done():
			return n.stop(ctx.Err())
		case <-timer.C:
		case <-n.wake:
		}
	}
}

func (n *Node) step(ctx context.Context) error {
	start := time.Now()
	if err := n.stack.Iterate(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(err, "network iteration failed")
	}
	n.metrics.Iteration.Observe(time.Since(start).Seconds())

	n.drain()
	if err := n.files.Pump(); err != nil {
		return err
	}
	n.observe()
	return nil
}

func (n *Node) drain() {
	n.stack.Drain(n.handle)
}

func (n *Node) handle(cb toxnet.Callback) {
	if n.friends.Handle(cb) || n.confs.Handle(cb) || n.files.Handle(cb) {
		return
	}
	jww.WARN.Printf("Unhandled stack callback %T", cb)
}

func (n *Node) publish(ev protocol.Event) {
	jww.TRACE.Printf("Event %s", ev.EventName())
	n.metrics.Events.WithLabelValues(ev.EventName()).Inc()
	n.events.Publish(ev)
}

// execute runs j and queues its response after the events it caused
func (n *Node) execute(j *job) error {
	resp, err := j.run()
	if err != nil {
		j.finish(ErrStopped)
		return errors.Wrapf(err, "%s failed", j.name)
	}
	n.drain()

	if j.reply != nil && resp != nil {
		n.metrics.Requests.WithLabelValues(j.name, resp.ResponseName()).Inc()
		if !j.reply.Push(events.Message{Response: resp}) {
			jww.DEBUG.Printf("Dropped %s response for a closed session", resp.ResponseName())
		}
	}
	j.finish(nil)
	return nil
}

func (n *Node) enqueue(j *job) error {
	n.mu.Lock()
	if n.err != nil {
		n.mu.Unlock()
		return ErrStopped
	}
	n.jobs.Enqueue(j)
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
	return nil
}

func (n *Node) next() *job {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.jobs.Len() == 0 {
		return nil
	}
	return n.jobs.Dequeue().(*job)
}

func (n *Node) pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.jobs.Len()
}

func (n *Node) wait(ctx context.Context, j *job) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	case <-n.done:
		return ErrStopped
	}
}

// stop terminates the node. Queued jobs fail and every session is closed.
func (n *Node) stop(cause error) error {
	n.mu.Lock()
	if n.err != nil {
		n.mu.Unlock()
		return cause
	}
	n.err = cause
	for n.jobs.Len() > 0 {
		n.jobs.Dequeue().(*job).finish(ErrStopped)
	}
	sessions := make([]*Session, 0, len(n.sessions))
	for _, s := range n.sessions {
		sessions = append(sessions, s)
	}
	n.sessions = map[string]*Session{}
	close(n.done)
	n.mu.Unlock()

	for _, s := range sessions {
		n.events.Unsubscribe(s.id)
		s.outbox.Close()
	}
	n.metrics.Sessions.Set(0)
	if err := n.stack.Close(); err != nil {
		jww.WARN.Printf("Failed to close network stack: %v", err)
	}

	if errors.Is(cause, context.Canceled) {
		jww.INFO.Printf("Bridge loop stopped")
	} else {
		jww.ERROR.Printf("Bridge loop failed: %+v", cause)
	}
	return cause
}

// Call runs fn on the loop and waits for it
func (n *Node) Call(ctx context.Context, fn func()) error {
	j := &job{
		name: "call",
		run: func() (protocol.Response, error) {
			fn()
			return nil, nil
		},
		done: make(chan struct{}),
	}
	if err := n.enqueue(j); err != nil {
		return err
	}
	return n.wait(ctx, j)
}

// Info returns a snapshot taken on the loop
func (n *Node) Info(ctx context.Context) (Info, error) {
	var info Info
	err := n.Call(ctx, func() {
		pk, name := n.friends.Self()
		conn := n.friends.GetConnectionStatus().(*protocol.ConnectionStatusResponse)
		info = Info{
			PublicKey:   pk.String(),
			Address:     n.friends.Address().String(),
			Name:        name,
			Connection:  conn.Status,
			Friends:     n.friends.Count(),
			Conferences: n.confs.Count(),
		}
	})
	if err != nil {
		return info, err
	}

	n.mu.Lock()
	info.Sessions = len(n.sessions)
	n.mu.Unlock()
	return info, nil
}
