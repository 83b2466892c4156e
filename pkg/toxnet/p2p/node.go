// Package p2p implements toxnet.Stack on libp2p. A node's Ed25519 identity
// doubles as its public key; friends are located through a private Kademlia
// DHT and linked by one JSON stream in each direction.
package p2p

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/golang-collections/collections/queue"
	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	lpcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

const (
	// DefaultInterval is the recommended iteration interval
	DefaultInterval = 50 * time.Millisecond

	dhtPrefix = "/toxbridge"
	seenLimit = 4096
)

// Config contains configuration for creating a Node
type Config struct {
	Identity       *crypto.Identity
	ListenAddrs    []string
	BootstrapPeers []string
	// NAT enables port mapping and the NAT service
	NAT bool
	// Interval is returned by IterationInterval
	Interval time.Duration
	// RetryInterval is the delay between attempts to link a friend
	RetryInterval time.Duration
	// Keepalive is how often an idle link is pinged
	Keepalive time.Duration
}

// DefaultConfig returns a config listening on all interfaces at port
func DefaultConfig(id *crypto.Identity, port int) *Config {
	return &Config{
		Identity:      id,
		ListenAddrs:   []string{multiaddrFor("0.0.0.0", port)},
		NAT:           true,
		Interval:      DefaultInterval,
		RetryInterval: 5 * time.Second,
		Keepalive:     15 * time.Second,
	}
}

func multiaddrFor(ip string, port int) string {
	return fmt.Sprintf("/ip4/%s/tcp/%d", ip, port)
}

// Node is one identity on the libp2p network. It implements toxnet.Stack.
type Node struct {
	host      host.Host
	dht       *dht.IpfsDHT
	self      crypto.PublicKey
	interval  time.Duration
	retry     time.Duration
	keepalive time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	nospam    uint32
	profile   toxnet.Profile
	friends   map[crypto.PublicKey]*friend
	requested map[crypto.PublicKey]bool
	confs     map[toxnet.ConferenceID]*conference
	seen      map[string]struct{}
	seenOrder *queue.Queue
	inbox     []toxnet.Callback
	pending   []toxnet.Callback
	status    protocol.ConnectionStatus
	closed    bool
}

var _ toxnet.Stack = (*Node)(nil)

// New creates a libp2p host and DHT for cfg.Identity and connects to the
// bootstrap peers, if any
func New(ctx context.Context, cfg *Config) (*Node, error) {
	if cfg == nil || cfg.Identity == nil {
		return nil, errors.New("p2p: identity required")
	}

	priv, err := lpcrypto.UnmarshalEd25519PrivateKey(cfg.Identity.Private)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert identity")
	}

	opts := []libp2p.Option{
		libp2p.Identity(priv),
		libp2p.ListenAddrStrings(cfg.ListenAddrs...),
		libp2p.DefaultTransports,
		libp2p.DefaultMuxers,
		libp2p.DefaultSecurity,
	}
	if cfg.NAT {
		opts = append(opts, libp2p.NATPortMap(), libp2p.EnableNATService())
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create libp2p host")
	}

	kad, err := dht.New(ctx, h,
		dht.Mode(dht.ModeServer),
		dht.ProtocolPrefix(dhtPrefix),
	)
	if err != nil {
		h.Close()
		return nil, errors.Wrap(err, "failed to create DHT")
	}

	nodeCtx, cancel := context.WithCancel(context.Background())
	n := &Node{
		host:      h,
		dht:       kad,
		self:      cfg.Identity.PublicKey(),
		interval:  orDefault(cfg.Interval, DefaultInterval),
		retry:     orDefault(cfg.RetryInterval, 5*time.Second),
		keepalive: orDefault(cfg.Keepalive, 15*time.Second),
		ctx:       nodeCtx,
		cancel:    cancel,
		profile:   toxnet.Profile{Status: protocol.UserStatusNone},
		friends:   make(map[crypto.PublicKey]*friend),
		requested: make(map[crypto.PublicKey]bool),
		confs:     make(map[toxnet.ConferenceID]*conference),
		seen:      make(map[string]struct{}),
		seenOrder: queue.New(),
		status:    protocol.ConnectionNone,
	}
	h.SetStreamHandler(ProtocolID, n.handleStream)

	if len(cfg.BootstrapPeers) > 0 {
		if err := n.Bootstrap(ctx, cfg.BootstrapPeers); err != nil {
			n.Close()
			return nil, err
		}
	}

	jww.INFO.Printf("p2p node %s listening on %v", n.self.Short(), h.Addrs())
	return n, nil
}

// Bootstrap connects to bootstrap peers and joins the DHT
func (n *Node) Bootstrap(ctx context.Context, peers []string) error {
	var connected int
	for _, s := range peers {
		maddr, err := multiaddr.NewMultiaddr(s)
		if err != nil {
			jww.WARN.Printf("Invalid bootstrap peer address %s: %v", s, err)
			continue
		}
		info, err := peer.AddrInfoFromP2pAddr(maddr)
		if err != nil {
			jww.WARN.Printf("Failed to parse peer info from %s: %v", s, err)
			continue
		}
		if err := n.Connect(ctx, *info); err != nil {
			jww.WARN.Printf("Failed to connect to bootstrap peer %s: %v", info.ID, err)
			continue
		}
		connected++
	}

	if connected == 0 {
		return errors.New("failed to connect to any bootstrap peers")
	}
	if err := n.dht.Bootstrap(ctx); err != nil {
		return errors.Wrap(err, "failed to bootstrap DHT")
	}
	jww.INFO.Printf("Bootstrapped with %d peers", connected)
	return nil
}

// Connect dials info directly
func (n *Node) Connect(ctx context.Context, info peer.AddrInfo) error {
	return n.host.Connect(ctx, info)
}

// AddrInfo is the dialable address of the node
func (n *Node) AddrInfo() peer.AddrInfo {
	return peer.AddrInfo{ID: n.host.ID(), Addrs: n.host.Addrs()}
}

// Addrs returns the full multiaddrs of the node, peer id included
func (n *Node) Addrs() []string {
	addrs, err := peer.AddrInfoToP2pAddrs(&peer.AddrInfo{ID: n.host.ID(), Addrs: n.host.Addrs()})
	if err != nil {
		return nil
	}
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}

// Nospam returns the nospam currently accepted for friend requests
func (n *Node) Nospam() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nospam
}

// raise records a callback for the next Iterate. Callers hold n.mu.
func (n *Node) raise(cb toxnet.Callback) {
	n.inbox = append(n.inbox, cb)
}

func (n *Node) Iterate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	online := len(n.host.Network().Peers()) > 0

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return toxnet.ErrClosed
	}

	status := protocol.ConnectionNone
	if online {
		status = protocol.ConnectionTCP
	}
	if status != n.status {
		n.status = status
		n.pending = append(n.pending, toxnet.SelfConnectionStatus{Status: status})
	}

	n.pending = append(n.pending, n.inbox...)
	n.inbox = nil
	return nil
}

func (n *Node) IterationInterval() time.Duration {
	return n.interval
}

func (n *Node) Drain(fn func(toxnet.Callback)) {
	n.mu.Lock()
	pending := n.pending
	n.pending = nil
	n.mu.Unlock()

	for _, cb := range pending {
		fn(cb)
	}
}

func (n *Node) SelfPublicKey() crypto.PublicKey {
	return n.self
}

func (n *Node) SetNospam(nospam uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nospam = nospam
}

func (n *Node) SetProfile(p toxnet.Profile) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return toxnet.ErrClosed
	}

	old := n.profile
	n.profile = p
	if old == p {
		return nil
	}

	msg, err := newMessage(MsgProfile, profileOf(p))
	if err != nil {
		return err
	}
	for _, f := range n.friends {
		if f.connected {
			n.enqueue(f, msg)
		}
	}

	if old.Name != p.Name {
		for id, c := range n.confs {
			for i := range c.members {
				if c.members[i].PublicKey == n.self {
					c.members[i].Name = p.Name
				}
			}
			n.gossip(id, &gossipPayload{Op: opName, Text: p.Name})
		}
	}
	return nil
}

// Close stops every link and shuts the host down
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	for _, f := range n.friends {
		f.shutdown()
	}
	n.mu.Unlock()

	n.cancel()
	n.wg.Wait()

	err := n.dht.Close()
	if cerr := n.host.Close(); err == nil {
		err = cerr
	}
	return errors.Wrap(err, "failed to close p2p node")
}

// markSeen reports whether event is new and remembers it. Callers hold n.mu.
func (n *Node) markSeen(event string) bool {
	if _, ok := n.seen[event]; ok {
		return false
	}
	n.seen[event] = struct{}{}
	n.seenOrder.Enqueue(event)
	for n.seenOrder.Len() > seenLimit {
		delete(n.seen, n.seenOrder.Dequeue().(string))
	}
	return true
}

// peerIDOf derives the libp2p peer id of a public key
func peerIDOf(pk crypto.PublicKey) (peer.ID, error) {
	pub, err := lpcrypto.UnmarshalEd25519PublicKey(pk[:])
	if err != nil {
		return "", errors.Wrap(err, "invalid public key")
	}
	return peer.IDFromPublicKey(pub)
}

// publicKeyOf recovers the public key embedded in an Ed25519 peer id
func publicKeyOf(id peer.ID) (crypto.PublicKey, error) {
	var pk crypto.PublicKey
	pub, err := id.ExtractPublicKey()
	if err != nil {
		return pk, errors.Wrapf(err, "peer %s has no inline key", id)
	}
	if pub.Type() != lpcrypto.Ed25519 {
		return pk, errors.Errorf("peer %s is not an Ed25519 identity", id)
	}
	raw, err := pub.Raw()
	if err != nil {
		return pk, err
	}
	if len(raw) != crypto.PublicKeySize {
		return pk, crypto.ErrPublicKeyLength
	}
	copy(pk[:], raw)
	return pk, nil
}

func connectedness(h host.Host, id peer.ID) bool {
	return h.Network().Connectedness(id) == network.Connected
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
