package filetransfer

import (
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	jww "github.com/spf13/jwalterweatherman"
)

// Handle applies a file callback. It reports false for callbacks it does
// not own. Callbacks naming released transfers are protocol violations and
// only logged.
func (m *Manager) Handle(cb toxnet.Callback) bool {
	switch c := cb.(type) {
	case toxnet.FileReceive:
		m.onReceive(c)
	case toxnet.FileChunk:
		m.onChunk(c)
	case toxnet.FileControl:
		m.onControl(c)
	case toxnet.FileSeek:
		m.onSeek(c)
	default:
		return false
	}
	return true
}

func (m *Manager) onReceive(c toxnet.FileReceive) {
	friend, found := m.friends.NumberOf(c.PublicKey)
	if !found {
		jww.WARN.Printf("Dropped file offer from unknown friend %s", c.PublicKey.Short())
		return
	}
	if c.Number > MaxIncoming {
		jww.WARN.Printf("Dropped file offer %d from %s, number out of range", c.Number, c.PublicKey.Short())
		return
	}
	number := IncomingNumber(c.Number)
	if old := m.get(c.PublicKey, number); old != nil {
		jww.WARN.Printf("Friend %d reused file number %d, replacing transfer", friend, number)
	}
	m.insert(&transfer{
		friend:    friend,
		pk:        c.PublicKey,
		number:    number,
		direction: Incoming,
		kind:      c.Kind,
		size:      c.Size,
		name:      c.Name,
		id:        c.ID,
	})
	m.emit(&protocol.FileReceiptEvent{
		Friend:     friend,
		FileNumber: number,
		Kind:       c.Kind,
		FileSize:   c.Size,
		FileName:   c.Name,
	})
}

func (m *Manager) onChunk(c toxnet.FileChunk) {
	t := m.get(c.PublicKey, IncomingNumber(c.Number))
	if t == nil {
		jww.WARN.Printf("Dropped chunk for unknown transfer %d from %s", c.Number, c.PublicKey.Short())
		return
	}
	// chunks sent before the peer saw a local pause are still delivered
	if !t.accepted {
		jww.WARN.Printf("Dropped chunk for %s transfer %d of friend %d", t.state(), t.number, t.friend)
		return
	}
	data := c.Data
	if data == nil {
		data = []byte{}
	}
	if c.Position > t.size || uint64(len(data)) > t.size-c.Position {
		jww.WARN.Printf("Dropped chunk [%d,+%d) past the end of transfer %d (size %d) of friend %d",
			c.Position, len(data), t.number, t.size, t.friend)
		return
	}
	if c.Position != t.position {
		jww.DEBUG.Printf("Transfer %d jumped from %d to %d", t.number, t.position, c.Position)
	}

	t.position = c.Position + uint64(len(data))
	m.emit(&protocol.FileChunkReceiptEvent{Friend: t.friend, FileNumber: t.number, Position: c.Position, Data: data})
	if len(data) == 0 {
		m.finish(t, Completed)
	}
}

func (m *Manager) onControl(c toxnet.FileControl) {
	number := c.Number
	if c.Incoming {
		number = IncomingNumber(c.Number)
	}
	t := m.get(c.PublicKey, number)
	if t == nil {
		jww.WARN.Printf("Dropped %s for unknown transfer %d from %s", c.Control, number, c.PublicKey.Short())
		return
	}

	switch c.Control {
	case protocol.FileControlResume:
		if t.direction == Outgoing && !t.accepted {
			t.accepted = true
		} else {
			t.pausedRemote = false
		}
	case protocol.FileControlPause:
		t.pausedRemote = true
		t.window = nil
	case protocol.FileControlCancel:
		m.finish(t, Cancelled)
	}
	m.emit(&protocol.FileControlReceiptEvent{Friend: t.friend, FileNumber: t.number, Control: c.Control})
}

// onSeek moves an outgoing transfer the receiver has not accepted yet
func (m *Manager) onSeek(c toxnet.FileSeek) {
	t := m.get(c.PublicKey, c.Number)
	switch {
	case t == nil || t.direction != Outgoing:
		jww.WARN.Printf("Dropped seek for unknown transfer %d from %s", c.Number, c.PublicKey.Short())
	case t.accepted || c.Position >= t.size:
		jww.WARN.Printf("Rejected seek of transfer %d to %d", t.number, c.Position)
	default:
		t.position = c.Position
	}
}
