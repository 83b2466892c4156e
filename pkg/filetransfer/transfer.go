// Package filetransfer drives the pull-based chunk protocol for file and
// avatar transfers. Like the registries it is owned by the bridge loop and
// is not safe for concurrent use.
package filetransfer

import (
	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
)

// MaxOutgoing is the number of simultaneous outgoing transfers per friend
const MaxOutgoing = 256

// MaxIncoming is the highest stack file number IncomingNumber can map
// without overflowing
const MaxIncoming = 1<<16 - 2

// State of a transfer
type State int

const (
	Requested State = iota
	Active
	Paused
	Cancelled
	Completed
)

func (s State) String() string {
	switch s {
	case Requested:
		return "Requested"
	case Active:
		return "Active"
	case Paused:
		return "Paused"
	case Cancelled:
		return "Cancelled"
	case Completed:
		return "Completed"
	}
	return "Unknown"
}

// Direction of a transfer, seen from this bridge
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

// IncomingNumber maps a stack file number of an incoming transfer to the
// number exposed to clients. Outgoing numbers stay below MaxOutgoing, so
// the two ranges never collide.
func IncomingNumber(stackNumber uint32) uint32 {
	return (stackNumber + 1) << 16
}

// stackNumber reverses IncomingNumber
func stackNumber(number uint32) uint32 {
	return number>>16 - 1
}

type key struct {
	pk     crypto.PublicKey
	number uint32
}

// window is an outstanding chunk request
type window struct {
	position uint64
	length   uint64
}

type transfer struct {
	friend    uint32
	pk        crypto.PublicKey
	number    uint32
	direction Direction
	kind      protocol.FileKind
	size      uint64
	name      string
	id        crypto.FileID
	position  uint64

	accepted     bool
	pausedLocal  bool
	pausedRemote bool
	window       *window
}

func (t *transfer) state() State {
	switch {
	case !t.accepted:
		return Requested
	case t.pausedLocal || t.pausedRemote:
		return Paused
	}
	return Active
}

// wire returns the number the stack knows the transfer by
func (t *transfer) wire() uint32 {
	if t.direction == Incoming {
		return stackNumber(t.number)
	}
	return t.number
}
