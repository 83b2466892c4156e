package simnet

import (
	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
)

func (n *Node) NewConference(kind protocol.ConferenceType) (toxnet.ConferenceID, error) {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	if n.closed {
		return toxnet.ConferenceID{}, toxnet.ErrClosed
	}
	id, err := newConferenceID()
	if err != nil {
		return id, err
	}
	n.net.confs[id] = &conference{kind: kind, members: []crypto.PublicKey{n.pk}}
	return id, nil
}

func (n *Node) LeaveConference(id toxnet.ConferenceID) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	c, err := n.membership(id)
	if err != nil {
		return err
	}

	members := c.members[:0]
	for _, pk := range c.members {
		if pk != n.pk {
			members = append(members, pk)
		}
	}
	c.members = members
	if len(c.members) == 0 {
		delete(n.net.confs, id)
		return nil
	}

	peers := n.net.peerList(c)
	n.net.broadcast(c, n.pk, func(*Node) toxnet.Callback {
		return toxnet.ConferencePeerList{ID: id, Peers: peers}
	})
	return nil
}

func (n *Node) InviteToConference(pk crypto.PublicKey, id toxnet.ConferenceID) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	c, err := n.membership(id)
	if err != nil {
		return err
	}
	friend, err := n.peer(pk)
	if err != nil {
		return err
	}
	friend.deliver(toxnet.ConferenceInvite{PublicKey: n.pk, Kind: c.kind, ID: id})
	return nil
}

func (n *Node) JoinConference(pk crypto.PublicKey, kind protocol.ConferenceType, id toxnet.ConferenceID) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	if _, err := n.peer(pk); err != nil {
		return err
	}
	c, ok := n.net.confs[id]
	if !ok || !isMember(c, pk) {
		return toxnet.ErrFailSend
	}
	if c.kind != kind {
		return toxnet.ErrInitFail
	}
	if !isMember(c, n.pk) {
		c.members = append(c.members, n.pk)
	}

	peers := n.net.peerList(c)
	n.net.broadcast(c, crypto.PublicKey{}, func(*Node) toxnet.Callback {
		return toxnet.ConferencePeerList{ID: id, Peers: peers}
	})
	n.deliver(toxnet.ConferenceConnected{ID: id})
	if c.title != "" {
		n.deliver(toxnet.ConferenceTitle{ID: id, Peer: pk, Title: c.title})
	}
	return nil
}

func (n *Node) SendConferenceMessage(id toxnet.ConferenceID, kind protocol.MessageType, text string) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	c, err := n.membership(id)
	if err != nil {
		return err
	}
	n.net.broadcast(c, n.pk, func(*Node) toxnet.Callback {
		return toxnet.ConferenceMessage{ID: id, Peer: n.pk, Kind: kind, Text: text}
	})
	return nil
}

func (n *Node) SetConferenceTitle(id toxnet.ConferenceID, title string) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	c, err := n.membership(id)
	if err != nil {
		return err
	}
	c.title = title
	n.net.broadcast(c, n.pk, func(*Node) toxnet.Callback {
		return toxnet.ConferenceTitle{ID: id, Peer: n.pk, Title: title}
	})
	return nil
}

// membership resolves a conference n belongs to. Callers hold the network lock.
func (n *Node) membership(id toxnet.ConferenceID) (*conference, error) {
	if n.closed {
		return nil, toxnet.ErrClosed
	}
	c, ok := n.net.confs[id]
	if !ok || !isMember(c, n.pk) {
		return nil, toxnet.ErrUnknownConference
	}
	return c, nil
}
