// Package toxnet defines the contract between the bridge and the encrypted
// network stack it drives. The stack is an event source and a command sink
// addressed by public key; friend, conference and file numbers are owned by
// the bridge.
package toxnet

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/pkg/errors"
)

// Domain errors. Any other error returned by a Stack is fatal to the loop
// that drives it.
var (
	ErrNotConnected      = errors.New("peer not connected")
	ErrSendQ             = errors.New("send queue full")
	ErrFailSend          = errors.New("failed to send")
	ErrUnknownFriend     = errors.New("unknown friend")
	ErrUnknownConference = errors.New("unknown conference")
	ErrUnknownTransfer   = errors.New("unknown file transfer")
	ErrInitFail          = errors.New("conference init failed")
	ErrClosed            = errors.New("stack closed")
)

// IsDomain reports whether err is a recoverable per-operation failure
func IsDomain(err error) bool {
	for _, target := range []error{
		ErrNotConnected, ErrSendQ, ErrFailSend, ErrUnknownFriend,
		ErrUnknownConference, ErrUnknownTransfer, ErrInitFail,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ConferenceIDSize is the length of a conference identifier
const ConferenceIDSize = 32

// ConferenceID identifies a conference network-wide
type ConferenceID [ConferenceIDSize]byte

func (id ConferenceID) String() string {
	return strings.ToUpper(hex.EncodeToString(id[:]))
}

// Profile is the self description announced to friends
type Profile struct {
	Name          string
	Status        protocol.UserStatus
	StatusMessage string
}

// Peer is a conference member as reported by the stack
type Peer struct {
	PublicKey crypto.PublicKey
	Name      string
}

// Stack is a single-writer network handle. All methods are called from one
// goroutine, the loop that owns the handle.
type Stack interface {
	// Iterate performs one round of network work. Callbacks raised are
	// collected until the next Drain.
	Iterate(ctx context.Context) error
	// IterationInterval is the recommended delay until the next Iterate
	IterationInterval() time.Duration
	// Drain hands every pending callback to fn in the order raised
	Drain(fn func(Callback))

	SelfPublicKey() crypto.PublicKey
	SetNospam(nospam uint32)
	SetProfile(p Profile) error

	AddFriend(pk crypto.PublicKey, nospam uint32, message string) error
	AddFriendNorequest(pk crypto.PublicKey) error
	RemoveFriend(pk crypto.PublicKey) error
	SendMessage(pk crypto.PublicKey, kind protocol.MessageType, text string, id uint32) error
	SetTyping(pk crypto.PublicKey, typing bool) error

	NewConference(kind protocol.ConferenceType) (ConferenceID, error)
	LeaveConference(id ConferenceID) error
	InviteToConference(pk crypto.PublicKey, id ConferenceID) error
	JoinConference(pk crypto.PublicKey, kind protocol.ConferenceType, id ConferenceID) error
	SendConferenceMessage(id ConferenceID, kind protocol.MessageType, text string) error
	SetConferenceTitle(id ConferenceID, title string) error

	// FileSend announces an outgoing transfer under a bridge-chosen number
	FileSend(pk crypto.PublicKey, number uint32, kind protocol.FileKind, size uint64, id crypto.FileID, name string) error
	// FileSendChunk forwards data for an outgoing transfer. Empty data at
	// the final position terminates it.
	FileSendChunk(pk crypto.PublicKey, number uint32, position uint64, data []byte) error
	// FileControl sends a control command. incoming selects the peer's
	// numbering of the transfer.
	FileControl(pk crypto.PublicKey, number uint32, incoming bool, control protocol.FileControl) error
	FileSeek(pk crypto.PublicKey, number uint32, position uint64) error
	// FileSendCapacity is the largest chunk the friend link accepts right
	// now; zero means congested
	FileSendCapacity(pk crypto.PublicKey) int

	Close() error
}
