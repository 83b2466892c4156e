package p2p

import (
	"crypto/rand"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Conferences have no owner. Every member keeps the ordered member list and
// relays operations to the members it is linked to until each member has
// seen an operation once.

type conference struct {
	kind    protocol.ConferenceType
	title   string
	members []toxnet.Peer
}

func (c *conference) has(pk crypto.PublicKey) bool {
	for _, m := range c.members {
		if m.PublicKey == pk {
			return true
		}
	}
	return false
}

func (c *conference) peers() []toxnet.Peer {
	return append([]toxnet.Peer(nil), c.members...)
}

func (n *Node) NewConference(kind protocol.ConferenceType) (toxnet.ConferenceID, error) {
	var id toxnet.ConferenceID
	if _, err := rand.Read(id[:]); err != nil {
		return id, errors.Wrap(err, "failed to generate conference id")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return id, toxnet.ErrClosed
	}
	n.confs[id] = &conference{
		kind:    kind,
		members: []toxnet.Peer{{PublicKey: n.self, Name: n.profile.Name}},
	}
	return id, nil
}

func (n *Node) LeaveConference(id toxnet.ConferenceID) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, err := n.membership(id); err != nil {
		return err
	}
	n.gossip(id, &gossipPayload{Op: opLeave})
	delete(n.confs, id)
	return nil
}

func (n *Node) InviteToConference(pk crypto.PublicKey, id toxnet.ConferenceID) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	c, err := n.membership(id)
	if err != nil {
		return err
	}
	return n.sendTo(pk, MsgConferenceInvite, invitePayload{ID: id.String(), Kind: c.kind})
}

// JoinConference asks the inviting friend for the conference state. The
// conference appears once the state arrives.
func (n *Node) JoinConference(pk crypto.PublicKey, kind protocol.ConferenceType, id toxnet.ConferenceID) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.sendTo(pk, MsgConferenceJoin, invitePayload{ID: id.String(), Kind: kind})
}

func (n *Node) SendConferenceMessage(id toxnet.ConferenceID, kind protocol.MessageType, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, err := n.membership(id); err != nil {
		return err
	}
	n.gossip(id, &gossipPayload{Op: opMessage, Kind: kind, Text: text})
	return nil
}

func (n *Node) SetConferenceTitle(id toxnet.ConferenceID, title string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	c, err := n.membership(id)
	if err != nil {
		return err
	}
	c.title = title
	n.gossip(id, &gossipPayload{Op: opTitle, Text: title})
	return nil
}

// membership resolves a conference n belongs to. Callers hold n.mu.
func (n *Node) membership(id toxnet.ConferenceID) (*conference, error) {
	if n.closed {
		return nil, toxnet.ErrClosed
	}
	c, ok := n.confs[id]
	if !ok {
		return nil, toxnet.ErrUnknownConference
	}
	return c, nil
}

// gossip issues a new operation of our own. Callers hold n.mu.
func (n *Node) gossip(id toxnet.ConferenceID, g *gossipPayload, skip ...crypto.PublicKey) {
	c, ok := n.confs[id]
	if !ok {
		return
	}
	g.ID = id.String()
	g.Event = uuid.NewString()
	g.Origin = n.self.String()
	n.markSeen(g.Event)
	n.relay(c, g, skip...)
}

// relay forwards g to every linked member except the origin and skip
func (n *Node) relay(c *conference, g *gossipPayload, skip ...crypto.PublicKey) {
	msg, err := newMessage(MsgConference, g)
	if err != nil {
		return
	}
	origin, _ := crypto.ParsePublicKey(g.Origin)

next:
	for _, m := range c.members {
		if m.PublicKey == n.self || m.PublicKey == origin {
			continue
		}
		for _, pk := range skip {
			if m.PublicKey == pk {
				continue next
			}
		}
		if f, ok := n.friends[m.PublicKey]; ok && f.connected {
			n.enqueue(f, msg)
		}
	}
}

func (n *Node) receiveInvite(f *friend, msg *Message) error {
	var p invitePayload
	if err := msg.decode(&p); err != nil {
		return err
	}
	id, err := parseConferenceID(p.ID)
	if err != nil {
		return err
	}
	n.raise(toxnet.ConferenceInvite{PublicKey: f.pk, Kind: p.Kind, ID: id})
	return nil
}

// receiveJoin admits f into a conference we belong to
func (n *Node) receiveJoin(f *friend, msg *Message) error {
	var p invitePayload
	if err := msg.decode(&p); err != nil {
		return err
	}
	id, err := parseConferenceID(p.ID)
	if err != nil {
		return err
	}
	c, ok := n.confs[id]
	if !ok {
		return toxnet.ErrUnknownConference
	}
	if c.kind != p.Kind {
		return toxnet.ErrInitFail
	}

	if !c.has(f.pk) {
		c.members = append(c.members, toxnet.Peer{PublicKey: f.pk, Name: f.remote.Name})
	}
	state := statePayload{ID: p.ID, Kind: c.kind, Title: c.title, Peers: encodePeers(c.members)}
	if err := n.sendTo(f.pk, MsgConferenceState, state); err != nil {
		return err
	}

	n.raise(toxnet.ConferencePeerList{ID: id, Peers: c.peers()})
	n.gossip(id, &gossipPayload{Op: opPeers, Peers: state.Peers}, f.pk)
	return nil
}

// receiveState completes our own join
func (n *Node) receiveState(f *friend, msg *Message) error {
	var p statePayload
	if err := msg.decode(&p); err != nil {
		return err
	}
	id, err := parseConferenceID(p.ID)
	if err != nil {
		return err
	}
	members := decodePeers(p.Peers)

	c, ok := n.confs[id]
	if !ok {
		c = &conference{kind: p.Kind}
		n.confs[id] = c
	}
	c.members = members
	c.title = p.Title
	if !c.has(n.self) {
		c.members = append(c.members, toxnet.Peer{PublicKey: n.self, Name: n.profile.Name})
	}

	n.raise(toxnet.ConferencePeerList{ID: id, Peers: c.peers()})
	n.raise(toxnet.ConferenceConnected{ID: id})
	if c.title != "" {
		n.raise(toxnet.ConferenceTitle{ID: id, Peer: f.pk, Title: c.title})
	}
	return nil
}

func (n *Node) receiveGossip(f *friend, msg *Message) error {
	var p gossipPayload
	if err := msg.decode(&p); err != nil {
		return err
	}
	id, err := parseConferenceID(p.ID)
	if err != nil {
		return err
	}
	origin, err := crypto.ParsePublicKey(p.Origin)
	if err != nil {
		return err
	}
	if p.Event == "" || !n.markSeen(p.Event) {
		return nil
	}
	c, ok := n.confs[id]
	if !ok {
		return nil
	}

	switch p.Op {
	case opMessage:
		n.raise(toxnet.ConferenceMessage{ID: id, Peer: origin, Kind: p.Kind, Text: p.Text})
	case opTitle:
		c.title = p.Text
		n.raise(toxnet.ConferenceTitle{ID: id, Peer: origin, Title: p.Text})
	case opName:
		for i := range c.members {
			if c.members[i].PublicKey == origin {
				c.members[i].Name = p.Text
			}
		}
		n.raise(toxnet.ConferencePeerName{ID: id, Peer: origin, Name: p.Text})
	case opPeers:
		members := decodePeers(p.Peers)
		updated := &conference{members: members}
		if !updated.has(n.self) {
			return nil
		}
		c.members = members
		n.raise(toxnet.ConferencePeerList{ID: id, Peers: c.peers()})
	case opLeave:
		members := c.members[:0]
		for _, m := range c.members {
			if m.PublicKey != origin {
				members = append(members, m)
			}
		}
		c.members = members
		n.raise(toxnet.ConferencePeerList{ID: id, Peers: c.peers()})
	default:
		return errors.Errorf("unknown conference op %q", p.Op)
	}

	n.relay(c, &p, f.pk)
	return nil
}

func encodePeers(peers []toxnet.Peer) []peerPayload {
	out := make([]peerPayload, len(peers))
	for i, p := range peers {
		out[i] = peerPayload{PublicKey: p.PublicKey.String(), Name: p.Name}
	}
	return out
}

func decodePeers(peers []peerPayload) []toxnet.Peer {
	out := make([]toxnet.Peer, 0, len(peers))
	for _, p := range peers {
		pk, err := crypto.ParsePublicKey(p.PublicKey)
		if err != nil {
			continue
		}
		out = append(out, toxnet.Peer{PublicKey: pk, Name: p.Name})
	}
	return out
}
