package simnet

import (
	"context"
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// Node is one simulated identity. It implements toxnet.Stack.
type Node struct {
	net     *Network
	pk      crypto.PublicKey
	nospam  uint32
	profile toxnet.Profile
	friends map[crypto.PublicKey]*link

	inbox   []func()
	pending []toxnet.Callback

	online  bool
	offline bool // forced offline by SetOnline(false)
	closed  bool
}

type link struct {
	connected bool
	request   *friendRequest
}

type friendRequest struct {
	nospam  uint32
	message string
}

var _ toxnet.Stack = (*Node)(nil)

func (n *Node) up() bool {
	return n.online && !n.offline && !n.closed
}

// raise records a callback for the next Drain
func (n *Node) raise(cb toxnet.Callback) {
	n.pending = append(n.pending, cb)
}

// deliver queues a callback that surfaces on the node's next Iterate
func (n *Node) deliver(cb toxnet.Callback) {
	n.inbox = append(n.inbox, func() { n.raise(cb) })
}

// Nospam returns the nospam currently accepted for friend requests
func (n *Node) Nospam() uint32 {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()
	return n.nospam
}

// Address returns the full address of the node
func (n *Node) Address() crypto.Address {
	return crypto.NewAddress(n.pk, n.Nospam())
}

// SetOnline forces the node off the network or back on
func (n *Node) SetOnline(online bool) {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	if n.offline == !online {
		return
	}
	n.offline = !online
	if n.online {
		status := protocol.ConnectionNone
		if online {
			status = protocol.ConnectionUDP
		}
		n.raise(toxnet.SelfConnectionStatus{Status: status})
	}
	n.net.refreshAll(n)
	if online {
		n.net.resendRequests(n)
	}
}

func (n *Node) Iterate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	if n.closed {
		return toxnet.ErrClosed
	}

	if !n.online {
		n.online = true
		if !n.offline {
			n.raise(toxnet.SelfConnectionStatus{Status: protocol.ConnectionUDP})
			n.net.refreshAll(n)
			n.net.resendRequests(n)
		}
	}

	inbox := n.inbox
	n.inbox = nil
	for _, fn := range inbox {
		fn()
	}
	return nil
}

func (n *Node) IterationInterval() time.Duration {
	return n.net.interval
}

func (n *Node) Drain(fn func(toxnet.Callback)) {
	n.net.mu.Lock()
	pending := n.pending
	n.pending = nil
	n.net.mu.Unlock()

	for _, cb := range pending {
		fn(cb)
	}
}

func (n *Node) SelfPublicKey() crypto.PublicKey {
	return n.pk
}

func (n *Node) SetNospam(nospam uint32) {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()
	n.nospam = nospam
}

func (n *Node) SetProfile(p toxnet.Profile) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	if n.closed {
		return toxnet.ErrClosed
	}

	old := n.profile
	n.profile = p

	for pk, l := range n.friends {
		friend := n.net.nodes[pk]
		if !l.connected || friend == nil {
			continue
		}
		if old.Name != p.Name {
			friend.deliver(toxnet.FriendName{PublicKey: n.pk, Name: p.Name})
		}
		if old.StatusMessage != p.StatusMessage {
			friend.deliver(toxnet.FriendStatusMessage{PublicKey: n.pk, Message: p.StatusMessage})
		}
		if old.Status != p.Status {
			friend.deliver(toxnet.FriendStatus{PublicKey: n.pk, Status: p.Status})
		}
	}

	if old.Name != p.Name {
		for id, c := range n.net.confs {
			if !isMember(c, n.pk) {
				continue
			}
			n.net.broadcast(c, n.pk, func(*Node) toxnet.Callback {
				return toxnet.ConferencePeerName{ID: id, Peer: n.pk, Name: p.Name}
			})
		}
	}
	return nil
}

// ===== FRIENDS =====

func (n *Node) AddFriend(pk crypto.PublicKey, nospam uint32, message string) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	if n.closed {
		return toxnet.ErrClosed
	}

	l, ok := n.friends[pk]
	if !ok {
		l = &link{}
		n.friends[pk] = l
	}
	l.request = &friendRequest{nospam: nospam, message: message}

	n.net.sendRequest(n, pk)
	n.net.refresh(n, n.net.nodes[pk])
	return nil
}

func (n *Node) AddFriendNorequest(pk crypto.PublicKey) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	if n.closed {
		return toxnet.ErrClosed
	}
	if _, ok := n.friends[pk]; !ok {
		n.friends[pk] = &link{}
	}
	n.net.refresh(n, n.net.nodes[pk])
	return nil
}

func (n *Node) RemoveFriend(pk crypto.PublicKey) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	if _, ok := n.friends[pk]; !ok {
		return toxnet.ErrUnknownFriend
	}
	delete(n.friends, pk)
	n.net.refresh(n, n.net.nodes[pk])
	return nil
}

func (n *Node) SendMessage(pk crypto.PublicKey, kind protocol.MessageType, text string, id uint32) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	friend, err := n.peer(pk)
	if err != nil {
		return err
	}

	sender := n
	friend.inbox = append(friend.inbox, func() {
		friend.raise(toxnet.FriendMessage{PublicKey: sender.pk, Kind: kind, Text: text})
		sender.deliver(toxnet.FriendReadReceipt{PublicKey: friend.pk, MessageID: id})
	})
	return nil
}

func (n *Node) SetTyping(pk crypto.PublicKey, typing bool) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	friend, err := n.peer(pk)
	if errors.Is(err, toxnet.ErrNotConnected) {
		return nil
	}
	if err != nil {
		return err
	}
	friend.deliver(toxnet.FriendTyping{PublicKey: n.pk, Typing: typing})
	return nil
}

// peer resolves a connected friend. Callers hold the network lock.
func (n *Node) peer(pk crypto.PublicKey) (*Node, error) {
	if n.closed {
		return nil, toxnet.ErrClosed
	}
	l, ok := n.friends[pk]
	if !ok {
		return nil, toxnet.ErrUnknownFriend
	}
	friend := n.net.nodes[pk]
	if !l.connected || friend == nil {
		return nil, toxnet.ErrNotConnected
	}
	return friend, nil
}

// sendRequest delivers the pending friend request of from to pk, if the
// target is reachable and the nospam matches
func (net *Network) sendRequest(from *Node, pk crypto.PublicKey) {
	l := from.friends[pk]
	target := net.nodes[pk]
	if l == nil || l.request == nil || target == nil || !from.up() || !target.up() {
		return
	}
	if _, known := target.friends[from.pk]; known {
		return
	}
	if l.request.nospam != target.nospam {
		jww.DEBUG.Printf("simnet: %s dropped request from %s, wrong nospam", pk.Short(), from.pk.Short())
		return
	}
	target.deliver(toxnet.FriendRequest{PublicKey: from.pk, Message: l.request.message})
	l.request = nil
}

// resendRequests retries requests sent to or by n while it was offline
func (net *Network) resendRequests(n *Node) {
	for pk := range n.friends {
		net.sendRequest(n, pk)
	}
	for _, other := range net.nodes {
		if _, ok := other.friends[n.pk]; ok {
			net.sendRequest(other, n.pk)
		}
	}
}

func (n *Node) Close() error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true
	n.net.refreshAll(n)
	return nil
}
