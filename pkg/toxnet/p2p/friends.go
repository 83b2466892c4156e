package p2p

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

const (
	outboxSize       = 128
	sendReserve      = 16
	handshakeTimeout = 10 * time.Second
)

var errRejected = errors.New("link rejected")

// friend is the link state towards one public key. The link is up once our
// stream to them was welcomed and their stream to us was accepted.
type friend struct {
	pk      crypto.PublicKey
	id      peer.ID
	request *requestPayload
	out     chan *Message
	stop    chan struct{}
	inbound network.Stream

	outUp     bool
	inUp      bool
	connected bool
	remote    toxnet.Profile
}

func (f *friend) shutdown() {
	select {
	case <-f.stop:
	default:
		close(f.stop)
	}
	if f.inbound != nil {
		f.inbound.Reset()
		f.inbound = nil
	}
}

func (n *Node) AddFriend(pk crypto.PublicKey, nospam uint32, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	f, err := n.ensureFriend(pk)
	if err != nil {
		return err
	}
	f.request = &requestPayload{Nospam: nospam, Message: message}
	return nil
}

func (n *Node) AddFriendNorequest(pk crypto.PublicKey) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, err := n.ensureFriend(pk)
	return err
}

// ensureFriend returns the friend for pk, creating it and starting its
// dialer if needed. Callers hold n.mu.
func (n *Node) ensureFriend(pk crypto.PublicKey) (*friend, error) {
	if n.closed {
		return nil, toxnet.ErrClosed
	}
	if f, ok := n.friends[pk]; ok {
		return f, nil
	}

	id, err := peerIDOf(pk)
	if err != nil {
		return nil, errors.Wrap(toxnet.ErrFailSend, err.Error())
	}
	f := &friend{
		pk:     pk,
		id:     id,
		out:    make(chan *Message, outboxSize),
		stop:   make(chan struct{}),
		remote: toxnet.Profile{Status: protocol.UserStatusNone},
	}
	n.friends[pk] = f
	delete(n.requested, pk)

	n.wg.Add(1)
	go n.dialLoop(f)
	return f, nil
}

func (n *Node) RemoveFriend(pk crypto.PublicKey) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	f, ok := n.friends[pk]
	if !ok {
		return toxnet.ErrUnknownFriend
	}
	delete(n.friends, pk)
	f.shutdown()
	return nil
}

func (n *Node) SendMessage(pk crypto.PublicKey, kind protocol.MessageType, text string, id uint32) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sendTo(pk, MsgMessage, messagePayload{ID: id, Kind: kind, Text: text})
}

func (n *Node) SetTyping(pk crypto.PublicKey, typing bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	err := n.sendTo(pk, MsgTyping, typingPayload{Typing: typing})
	if errors.Is(err, toxnet.ErrNotConnected) {
		return nil
	}
	return err
}

// peer resolves a connected friend. Callers hold n.mu.
func (n *Node) peer(pk crypto.PublicKey) (*friend, error) {
	if n.closed {
		return nil, toxnet.ErrClosed
	}
	f, ok := n.friends[pk]
	if !ok {
		return nil, toxnet.ErrUnknownFriend
	}
	if !f.connected {
		return nil, toxnet.ErrNotConnected
	}
	return f, nil
}

// sendTo queues a frame for a connected friend. Callers hold n.mu.
func (n *Node) sendTo(pk crypto.PublicKey, typ string, payload any) error {
	f, err := n.peer(pk)
	if err != nil {
		return err
	}
	msg, err := newMessage(typ, payload)
	if err != nil {
		return errors.Wrap(toxnet.ErrFailSend, err.Error())
	}
	if !n.enqueue(f, msg) {
		return toxnet.ErrSendQ
	}
	return nil
}

func (n *Node) enqueue(f *friend, msg *Message) bool {
	select {
	case f.out <- msg:
		return true
	default:
		return false
	}
}

// update recomputes the connection of f and raises the change. Callers
// hold n.mu.
func (n *Node) update(f *friend) {
	if n.closed || n.friends[f.pk] != f {
		f.connected = false
		return
	}
	now := f.outUp && f.inUp
	if now == f.connected {
		return
	}
	f.connected = now

	status := protocol.ConnectionNone
	if now {
		status = protocol.ConnectionTCP
	}
	jww.DEBUG.Printf("p2p: %s link to %s is %s", n.self.Short(), f.pk.Short(), status)
	n.raise(toxnet.FriendConnectionStatus{PublicKey: f.pk, Status: status})
	if now {
		p := f.remote
		n.raise(toxnet.FriendName{PublicKey: f.pk, Name: p.Name})
		n.raise(toxnet.FriendStatusMessage{PublicKey: f.pk, Message: p.StatusMessage})
		n.raise(toxnet.FriendStatus{PublicKey: f.pk, Status: p.Status})
	}
}

// setRemote stores the profile announced by f and raises what changed.
// Callers hold n.mu.
func (n *Node) setRemote(f *friend, p toxnet.Profile) {
	old := f.remote
	f.remote = p
	if !f.connected {
		return
	}
	if old.Name != p.Name {
		n.raise(toxnet.FriendName{PublicKey: f.pk, Name: p.Name})
	}
	if old.StatusMessage != p.StatusMessage {
		n.raise(toxnet.FriendStatusMessage{PublicKey: f.pk, Message: p.StatusMessage})
	}
	if old.Status != p.Status {
		n.raise(toxnet.FriendStatus{PublicKey: f.pk, Status: p.Status})
	}
}

// dialLoop keeps our side of the link to f open until f is removed or the
// node closes
func (n *Node) dialLoop(f *friend) {
	defer n.wg.Done()

	for {
		err := n.link(f)

		n.mu.Lock()
		f.outUp = false
		n.update(f)
		n.mu.Unlock()
		drain(f.out)

		if err != nil && !errors.Is(err, errRejected) {
			jww.DEBUG.Printf("p2p: link to %s: %v", f.pk.Short(), err)
		}

		timer := time.NewTimer(n.retry)
		select {
		case <-n.ctx.Done():
			timer.Stop()
			return
		case <-f.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// link opens our stream to f, says hello and then writes queued frames
// until the stream breaks
func (n *Node) link(f *friend) error {
	ctx, cancel := context.WithTimeout(n.ctx, handshakeTimeout)
	defer cancel()

	if err := n.locate(ctx, f.id); err != nil {
		return err
	}
	s, err := n.host.NewStream(ctx, f.id, ProtocolID)
	if err != nil {
		return errors.Wrap(err, "failed to open stream")
	}
	defer s.Close()

	n.mu.Lock()
	hello := helloPayload{Profile: profileOf(n.profile)}
	if f.request != nil {
		r := *f.request
		hello.Request = &r
	}
	n.mu.Unlock()

	msg, err := newMessage(MsgHello, hello)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(s)
	dec := json.NewDecoder(s)

	_ = s.SetDeadline(time.Now().Add(handshakeTimeout))
	if err := enc.Encode(msg); err != nil {
		s.Reset()
		return errors.Wrap(err, "failed to send hello")
	}
	var reply Message
	if err := dec.Decode(&reply); err != nil {
		s.Reset()
		return errors.Wrap(err, "failed to read hello reply")
	}
	if reply.Type != MsgWelcome {
		return errRejected
	}
	_ = s.SetDeadline(time.Time{})

	n.mu.Lock()
	f.request = nil
	f.outUp = true
	n.update(f)
	n.mu.Unlock()

	broken := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, s)
		close(broken)
	}()

	ticker := time.NewTicker(n.keepalive)
	defer ticker.Stop()
	ping := &Message{Type: MsgPing}

	for {
		var msg *Message
		select {
		case msg = <-f.out:
		case <-ticker.C:
			msg = ping
		case <-broken:
			return errors.New("link closed by peer")
		case <-f.stop:
			return nil
		case <-n.ctx.Done():
			return nil
		}

		_ = s.SetWriteDeadline(time.Now().Add(handshakeTimeout))
		if err := enc.Encode(msg); err != nil {
			s.Reset()
			return errors.Wrapf(err, "failed to send %s", msg.Type)
		}
	}
}

// locate makes sure the peerstore can dial id, asking the DHT if needed
func (n *Node) locate(ctx context.Context, id peer.ID) error {
	if connectedness(n.host, id) || len(n.host.Peerstore().Addrs(id)) > 0 {
		return nil
	}
	info, err := n.dht.FindPeer(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "failed to locate %s", id)
	}
	n.host.Peerstore().AddAddrs(info.ID, info.Addrs, peerstore.TempAddrTTL)
	return nil
}

func drain(out chan *Message) {
	for {
		select {
		case <-out:
		default:
			return
		}
	}
}
