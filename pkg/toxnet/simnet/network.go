// Package simnet is an in-process network of toxnet stacks. Every node
// lives in the same address space and deliveries are processed on the
// receiver's next Iterate, which makes it suitable for tests and demos.
package simnet

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/pkg/errors"
)

const (
	// DefaultChunkSize matches the Tox maximum file data size
	DefaultChunkSize = 1371

	// DefaultInterval is the recommended iteration interval
	DefaultInterval = 20 * time.Millisecond
)

// Network holds every simulated node. A single mutex serializes all state.
type Network struct {
	mu        sync.Mutex
	nodes     map[crypto.PublicKey]*Node
	confs     map[toxnet.ConferenceID]*conference
	chunkSize int
	interval  time.Duration
}

type conference struct {
	kind    protocol.ConferenceType
	title   string
	members []crypto.PublicKey
}

// Option configures a Network
type Option func(*Network)

// WithChunkSize sets the capacity reported by FileSendCapacity
func WithChunkSize(n int) Option {
	return func(net *Network) {
		net.chunkSize = n
	}
}

// WithInterval sets the iteration interval reported by every node
func WithInterval(d time.Duration) Option {
	return func(net *Network) {
		net.interval = d
	}
}

// New creates an empty network
func New(opts ...Option) *Network {
	net := &Network{
		nodes:     make(map[crypto.PublicKey]*Node),
		confs:     make(map[toxnet.ConferenceID]*conference),
		chunkSize: DefaultChunkSize,
		interval:  DefaultInterval,
	}
	for _, opt := range opts {
		opt(net)
	}
	return net
}

// NewNode joins a node with a random identity. It comes online on its
// first Iterate.
func (net *Network) NewNode() (*Node, error) {
	var pk crypto.PublicKey
	if _, err := rand.Read(pk[:]); err != nil {
		return nil, errors.Wrap(err, "failed to generate public key")
	}
	return net.NewNodeWithKey(pk)
}

// NewNodeWithKey joins a node with the given identity
func (net *Network) NewNodeWithKey(pk crypto.PublicKey) (*Node, error) {
	net.mu.Lock()
	defer net.mu.Unlock()

	if _, exists := net.nodes[pk]; exists {
		return nil, errors.Errorf("node %s already joined", pk.Short())
	}

	nospam, err := crypto.GenerateNospam()
	if err != nil {
		return nil, err
	}

	n := &Node{
		net:     net,
		pk:      pk,
		nospam:  nospam,
		profile: toxnet.Profile{Status: protocol.UserStatusNone},
		friends: make(map[crypto.PublicKey]*link),
	}
	net.nodes[pk] = n
	return n, nil
}

// connected reports whether a and b can exchange data
func (net *Network) connected(a, b *Node) bool {
	if a == nil || b == nil || !a.up() || !b.up() {
		return false
	}
	_, ab := a.friends[b.pk]
	_, ba := b.friends[a.pk]
	return ab && ba
}

// refresh recomputes the link state between a and b and notifies the sides
// that still hold the link
func (net *Network) refresh(a, b *Node) {
	if b == nil {
		return
	}
	now := net.connected(a, b)
	for _, pair := range [][2]*Node{{a, b}, {b, a}} {
		self, other := pair[0], pair[1]
		l, ok := self.friends[other.pk]
		if !ok || l.connected == now {
			continue
		}
		l.connected = now
		status := protocol.ConnectionNone
		if now {
			status = protocol.ConnectionUDP
		}
		self.raise(toxnet.FriendConnectionStatus{PublicKey: other.pk, Status: status})
		if now {
			p := other.profile
			self.raise(toxnet.FriendName{PublicKey: other.pk, Name: p.Name})
			self.raise(toxnet.FriendStatusMessage{PublicKey: other.pk, Message: p.StatusMessage})
			self.raise(toxnet.FriendStatus{PublicKey: other.pk, Status: p.Status})
		}
	}
}

// refreshAll recomputes every link of n
func (net *Network) refreshAll(n *Node) {
	for pk := range n.friends {
		net.refresh(n, net.nodes[pk])
	}
	for _, other := range net.nodes {
		if _, ok := other.friends[n.pk]; ok {
			net.refresh(other, n)
		}
	}
}

// peerList builds the member list of c with current names
func (net *Network) peerList(c *conference) []toxnet.Peer {
	peers := make([]toxnet.Peer, 0, len(c.members))
	for _, pk := range c.members {
		p := toxnet.Peer{PublicKey: pk}
		if n, ok := net.nodes[pk]; ok {
			p.Name = n.profile.Name
		}
		peers = append(peers, p)
	}
	return peers
}

// broadcast delivers cb to every member of c except skip
func (net *Network) broadcast(c *conference, skip crypto.PublicKey, cb func(*Node) toxnet.Callback) {
	for _, pk := range c.members {
		if pk == skip {
			continue
		}
		if n, ok := net.nodes[pk]; ok && n.up() {
			n.deliver(cb(n))
		}
	}
}

func newConferenceID() (toxnet.ConferenceID, error) {
	var id toxnet.ConferenceID
	if _, err := rand.Read(id[:]); err != nil {
		return id, errors.Wrap(err, "failed to generate conference id")
	}
	return id, nil
}

func isMember(c *conference, pk crypto.PublicKey) bool {
	for _, m := range c.members {
		if m == pk {
			return true
		}
	}
	return false
}
