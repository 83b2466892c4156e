package p2p

import (
	"encoding/json"
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// handleStream accepts the stream a friend opened to us and reads its
// frames until it breaks. Strangers are rejected; their hello may carry a
// friend request.
func (n *Node) handleStream(s network.Stream) {
	pk, err := publicKeyOf(s.Conn().RemotePeer())
	if err != nil {
		jww.DEBUG.Printf("p2p: refusing stream: %v", err)
		s.Reset()
		return
	}

	_ = s.SetDeadline(time.Now().Add(handshakeTimeout))
	dec := json.NewDecoder(s)
	var msg Message
	if err := dec.Decode(&msg); err != nil || msg.Type != MsgHello {
		s.Reset()
		return
	}
	var hello helloPayload
	if err := msg.decode(&hello); err != nil {
		s.Reset()
		return
	}

	n.mu.Lock()
	f, ok := n.friends[pk]
	if n.closed || !ok {
		if !n.closed {
			n.offer(pk, hello.Request)
		}
		n.mu.Unlock()
		_ = reply(s, MsgReject)
		s.Close()
		return
	}
	if f.inbound != nil {
		f.inbound.Reset()
	}
	f.inbound = s
	n.mu.Unlock()

	if err := reply(s, MsgWelcome); err != nil {
		n.dropInbound(f, s)
		return
	}
	_ = s.SetDeadline(time.Time{})

	n.mu.Lock()
	if f.inbound == s {
		f.inUp = true
		n.setRemote(f, hello.Profile.profile())
		n.update(f)
	}
	n.mu.Unlock()

	for {
		_ = s.SetReadDeadline(time.Now().Add(3 * n.keepalive))
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			break
		}
		n.receive(f, &msg)
	}
	n.dropInbound(f, s)
}

func reply(s network.Stream, typ string) error {
	return json.NewEncoder(s).Encode(&Message{Type: typ})
}

func (n *Node) dropInbound(f *friend, s network.Stream) {
	s.Reset()

	n.mu.Lock()
	defer n.mu.Unlock()

	if f.inbound != s {
		return
	}
	f.inbound = nil
	f.inUp = false
	n.update(f)
}

// offer raises a friend request from a stranger once per run. Callers hold
// n.mu.
func (n *Node) offer(pk crypto.PublicKey, req *requestPayload) {
	if req == nil || n.requested[pk] {
		return
	}
	if req.Nospam != n.nospam {
		jww.DEBUG.Printf("p2p: dropped request from %s, wrong nospam", pk.Short())
		return
	}
	n.requested[pk] = true
	n.raise(toxnet.FriendRequest{PublicKey: pk, Message: req.Message})
}

// receive applies one frame from f
func (n *Node) receive(f *friend, msg *Message) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed || n.friends[f.pk] != f {
		return
	}

	var err error
	switch msg.Type {
	case MsgPing:
	case MsgProfile:
		var p profilePayload
		if err = msg.decode(&p); err == nil {
			n.setRemote(f, p.profile())
		}
	case MsgMessage:
		var p messagePayload
		if err = msg.decode(&p); err == nil {
			n.raise(toxnet.FriendMessage{PublicKey: f.pk, Kind: p.Kind, Text: p.Text})
			err = n.sendTo(f.pk, MsgReceipt, receiptPayload{ID: p.ID})
		}
	case MsgReceipt:
		var p receiptPayload
		if err = msg.decode(&p); err == nil {
			n.raise(toxnet.FriendReadReceipt{PublicKey: f.pk, MessageID: p.ID})
		}
	case MsgTyping:
		var p typingPayload
		if err = msg.decode(&p); err == nil {
			n.raise(toxnet.FriendTyping{PublicKey: f.pk, Typing: p.Typing})
		}
	case MsgConferenceInvite:
		err = n.receiveInvite(f, msg)
	case MsgConferenceJoin:
		err = n.receiveJoin(f, msg)
	case MsgConferenceState:
		err = n.receiveState(f, msg)
	case MsgConference:
		err = n.receiveGossip(f, msg)
	case MsgFileSend, MsgFileChunk, MsgFileControl, MsgFileSeek:
		err = n.receiveFile(f, msg)
	default:
		err = errors.Errorf("unknown message type %q", msg.Type)
	}
	if err != nil {
		jww.DEBUG.Printf("p2p: dropping %s from %s: %v", msg.Type, f.pk.Short(), err)
	}
}
