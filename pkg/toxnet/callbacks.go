package toxnet

import (
	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
)

// Callback is data raised by the stack during Iterate
type Callback interface {
	callback()
}

// ===== SELF / FRIENDS =====

type SelfConnectionStatus struct {
	Status protocol.ConnectionStatus
}

type FriendRequest struct {
	PublicKey crypto.PublicKey
	Message   string
}

type FriendMessage struct {
	PublicKey crypto.PublicKey
	Kind      protocol.MessageType
	Text      string
}

type FriendName struct {
	PublicKey crypto.PublicKey
	Name      string
}

type FriendStatusMessage struct {
	PublicKey crypto.PublicKey
	Message   string
}

type FriendStatus struct {
	PublicKey crypto.PublicKey
	Status    protocol.UserStatus
}

type FriendConnectionStatus struct {
	PublicKey crypto.PublicKey
	Status    protocol.ConnectionStatus
}

type FriendTyping struct {
	PublicKey crypto.PublicKey
	Typing    bool
}

// FriendReadReceipt acknowledges the message sent with MessageID
type FriendReadReceipt struct {
	PublicKey crypto.PublicKey
	MessageID uint32
}

// ===== CONFERENCES =====

type ConferenceInvite struct {
	PublicKey crypto.PublicKey
	Kind      protocol.ConferenceType
	ID        ConferenceID
}

type ConferenceConnected struct {
	ID ConferenceID
}

type ConferenceMessage struct {
	ID   ConferenceID
	Peer crypto.PublicKey
	Kind protocol.MessageType
	Text string
}

type ConferenceTitle struct {
	ID    ConferenceID
	Peer  crypto.PublicKey
	Title string
}

type ConferencePeerName struct {
	ID   ConferenceID
	Peer crypto.PublicKey
	Name string
}

// ConferencePeerList carries the complete, ordered member list, own peer
// included
type ConferencePeerList struct {
	ID    ConferenceID
	Peers []Peer
}

// ===== FILE TRANSFER =====

// FileReceive announces an incoming transfer under the sender's number
type FileReceive struct {
	PublicKey crypto.PublicKey
	Number    uint32
	Kind      protocol.FileKind
	Size      uint64
	ID        crypto.FileID
	Name      string
}

// FileChunk is incoming data. Empty data marks end of file.
type FileChunk struct {
	PublicKey crypto.PublicKey
	Number    uint32
	Position  uint64
	Data      []byte
}

// FileControl is a control command issued by the peer. Incoming is true
// when the transfer flows towards us.
type FileControl struct {
	PublicKey crypto.PublicKey
	Number    uint32
	Incoming  bool
	Control   protocol.FileControl
}

// FileSeek moves the position of one of our outgoing transfers
type FileSeek struct {
	PublicKey crypto.PublicKey
	Number    uint32
	Position  uint64
}

func (SelfConnectionStatus) callback()   {}
func (FriendRequest) callback()          {}
func (FriendMessage) callback()          {}
func (FriendName) callback()             {}
func (FriendStatusMessage) callback()    {}
func (FriendStatus) callback()           {}
func (FriendConnectionStatus) callback() {}
func (FriendTyping) callback()           {}
func (FriendReadReceipt) callback()      {}
func (ConferenceInvite) callback()       {}
func (ConferenceConnected) callback()    {}
func (ConferenceMessage) callback()      {}
func (ConferenceTitle) callback()        {}
func (ConferencePeerName) callback()     {}
func (ConferencePeerList) callback()     {}
func (FileReceive) callback()            {}
func (FileChunk) callback()              {}
func (FileControl) callback()            {}
func (FileSeek) callback()               {}
