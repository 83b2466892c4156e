package protocol

// Event is an unsolicited push raised by the network stack
type Event interface {
	EventName() string
}

// ===== IDENTITY / FRIENDS =====

// ConnectionStatusEvent reports a change of the node's own connectivity
type ConnectionStatusEvent struct {
	Status ConnectionStatus `json:"status"`
}

// FriendRequestEvent is an incoming friend request. PublicKey is encoded as
// an array of numbers; accept it with AddFriendNorequest.
type FriendRequestEvent struct {
	PublicKey [32]byte `json:"public_key"`
	Message   string   `json:"message"`
}

type FriendMessageEvent struct {
	Friend  uint32      `json:"friend"`
	Kind    MessageType `json:"kind"`
	Message string      `json:"message"`
}

type FriendNameEvent struct {
	Friend uint32 `json:"friend"`
	Name   string `json:"name"`
}

type FriendStatusMessageEvent struct {
	Friend uint32 `json:"friend"`
	Status string `json:"status"`
}

type FriendStatusEvent struct {
	Friend uint32     `json:"friend"`
	Status UserStatus `json:"status"`
}

type FriendConnectionStatusEvent struct {
	Friend uint32           `json:"friend"`
	Status ConnectionStatus `json:"status"`
}

type FriendTypingEvent struct {
	Friend   uint32 `json:"friend"`
	IsTyping bool   `json:"is_typing"`
}

// FriendReadReceiptEvent echoes the message id returned by MessageSent
type FriendReadReceiptEvent struct {
	Friend    uint32 `json:"friend"`
	MessageID uint32 `json:"message_id"`
}

func (ConnectionStatusEvent) EventName() string       { return "ConnectionStatus" }
func (FriendRequestEvent) EventName() string          { return "FriendRequest" }
func (FriendMessageEvent) EventName() string          { return "FriendMessage" }
func (FriendNameEvent) EventName() string             { return "FriendName" }
func (FriendStatusMessageEvent) EventName() string    { return "FriendStatusMessage" }
func (FriendStatusEvent) EventName() string           { return "FriendStatus" }
func (FriendConnectionStatusEvent) EventName() string { return "FriendConnectionStatus" }
func (FriendTypingEvent) EventName() string           { return "FriendTyping" }
func (FriendReadReceiptEvent) EventName() string      { return "FriendReadReceipt" }

// ===== CONFERENCES =====

// ConferenceInviteEvent carries the cookie consumed by JoinConference
type ConferenceInviteEvent struct {
	Friend uint32         `json:"friend"`
	Kind   ConferenceType `json:"kind"`
	Cookie string         `json:"cookie"`
}

type ConferenceConnectedEvent struct {
	Conference uint32 `json:"conference"`
}

type ConferenceMessageEvent struct {
	Conference uint32      `json:"conference"`
	Peer       uint32      `json:"peer"`
	Kind       MessageType `json:"kind"`
	Message    string      `json:"message"`
}

type ConferenceTitleEvent struct {
	Conference uint32 `json:"conference"`
	Peer       uint32 `json:"peer"`
	Title      string `json:"title"`
}

type ConferencePeerNameEvent struct {
	Conference uint32 `json:"conference"`
	Peer       uint32 `json:"peer"`
	Name       string `json:"name"`
}

// ConferencePeerListChangedEvent invalidates previously reported peer numbers
type ConferencePeerListChangedEvent struct {
	Conference uint32 `json:"conference"`
}

func (ConferenceInviteEvent) EventName() string          { return "ConferenceInvite" }
func (ConferenceConnectedEvent) EventName() string       { return "ConferenceConnected" }
func (ConferenceMessageEvent) EventName() string         { return "ConferenceMessage" }
func (ConferenceTitleEvent) EventName() string           { return "ConferenceTitle" }
func (ConferencePeerNameEvent) EventName() string        { return "ConferencePeerName" }
func (ConferencePeerListChangedEvent) EventName() string { return "ConferencePeerListChanged" }

// ===== FILE TRANSFER =====

// FileReceiptEvent announces an incoming transfer, to be accepted or refused
// with ControlFile
type FileReceiptEvent struct {
	Friend     uint32   `json:"friend"`
	FileNumber uint32   `json:"file_number"`
	Kind       FileKind `json:"kind"`
	FileSize   uint64   `json:"file_size"`
	FileName   string   `json:"file_name"`
}

// FileChunkRequestEvent asks the client for the window [position, position+length).
// A zero length means the transfer is complete.
type FileChunkRequestEvent struct {
	Friend     uint32 `json:"friend"`
	FileNumber uint32 `json:"file_number"`
	Position   uint64 `json:"position"`
	Length     uint64 `json:"length"`
}

// FileChunkReceiptEvent delivers incoming data. Empty data marks end of file.
type FileChunkReceiptEvent struct {
	Friend     uint32 `json:"friend"`
	FileNumber uint32 `json:"file_number"`
	Position   uint64 `json:"position"`
	Data       []byte `json:"data"`
}

// FileControlReceiptEvent reports a control command issued by the peer
type FileControlReceiptEvent struct {
	Friend     uint32      `json:"friend"`
	FileNumber uint32      `json:"file_number"`
	Control    FileControl `json:"control"`
}

func (FileReceiptEvent) EventName() string        { return "FileReceipt" }
func (FileChunkRequestEvent) EventName() string   { return "FileChunkRequest" }
func (FileChunkReceiptEvent) EventName() string   { return "FileChunkReceipt" }
func (FileControlReceiptEvent) EventName() string { return "FileControlReceipt" }
