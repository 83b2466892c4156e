package filetransfer

import (
	"sort"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// Friends resolves friend numbers. It is satisfied by *registry.Friends.
type Friends interface {
	Lookup(number uint32) (pk crypto.PublicKey, connected bool, found bool)
	NumberOf(pk crypto.PublicKey) (uint32, bool)
}

// Manager owns every transfer of one bridge, keyed by friend and file number
type Manager struct {
	stack     toxnet.Stack
	friends   Friends
	emit      func(protocol.Event)
	transfers map[key]*transfer
}

func New(stack toxnet.Stack, friends Friends, emit func(protocol.Event)) *Manager {
	return &Manager{
		stack:     stack,
		friends:   friends,
		emit:      emit,
		transfers: make(map[key]*transfer),
	}
}

// Count returns the number of live transfers in the given state
func (m *Manager) Count(s State) int {
	n := 0
	for _, t := range m.transfers {
		if t.state() == s {
			n++
		}
	}
	return n
}

// DropFriend forgets every transfer of a removed friend
func (m *Manager) DropFriend(pk crypto.PublicKey) {
	for k := range m.transfers {
		if k.pk == pk {
			delete(m.transfers, k)
		}
	}
}

func (m *Manager) get(pk crypto.PublicKey, number uint32) *transfer {
	return m.transfers[key{pk: pk, number: number}]
}

func (m *Manager) insert(t *transfer) {
	m.transfers[key{pk: t.pk, number: t.number}] = t
}

// finish releases the file number of a transfer reaching a terminal state
func (m *Manager) finish(t *transfer, s State) {
	delete(m.transfers, key{pk: t.pk, number: t.number})
	jww.INFO.Printf("Transfer %d with friend %d %s at %d/%d", t.number, t.friend, s, t.position, t.size)
}

// freeNumber returns the lowest outgoing number not in use for pk
func (m *Manager) freeNumber(pk crypto.PublicKey) (uint32, bool) {
	for n := uint32(0); n < MaxOutgoing; n++ {
		if _, used := m.transfers[key{pk: pk, number: n}]; !used {
			return n, true
		}
	}
	return 0, false
}

// Pump offers one chunk window to every accepted outgoing transfer that has
// none outstanding, sized by the stack's current send capacity. Transfers
// that reached their end get the terminal zero-length request and complete.
func (m *Manager) Pump() error {
	ready := make([]*transfer, 0)
	for _, t := range m.transfers {
		if t.direction == Outgoing && t.state() == Active && t.window == nil {
			ready = append(ready, t)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		if ready[i].friend != ready[j].friend {
			return ready[i].friend < ready[j].friend
		}
		return ready[i].number < ready[j].number
	})

	for _, t := range ready {
		capacity := m.stack.FileSendCapacity(t.pk)
		if capacity <= 0 {
			continue
		}
		if t.position >= t.size {
			if err := m.stack.FileSendChunk(t.pk, t.number, t.position, []byte{}); err != nil {
				if !toxnet.IsDomain(err) {
					return errors.Wrapf(err, "failed to end transfer %d", t.number)
				}
				// retried on the next pump
				continue
			}
			m.emit(&protocol.FileChunkRequestEvent{Friend: t.friend, FileNumber: t.number, Position: t.position, Length: 0})
			m.finish(t, Completed)
			continue
		}

		length := t.size - t.position
		if uint64(capacity) < length {
			length = uint64(capacity)
		}
		t.window = &window{position: t.position, length: length}
		m.emit(&protocol.FileChunkRequestEvent{Friend: t.friend, FileNumber: t.number, Position: t.position, Length: length})
	}
	return nil
}
