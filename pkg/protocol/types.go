package protocol

// Wire discriminant keys
const (
	KeyRequest  = "request"
	KeyResponse = "response"
	KeyEvent    = "event"
)

// Protocol limits, in bytes
const (
	MaxNameLength            = 128
	MaxStatusMessageLength   = 1007
	MaxFriendRequestLength   = 1016
	MaxMessageLength         = 1372
	MaxFileNameLength        = 255
	MaxConferenceTitleLength = MaxNameLength
)

// enum is implemented by every closed string enumeration on the wire
type enum interface {
	Valid() bool
}

// UserStatus is the away state of a user
type UserStatus string

const (
	UserStatusNone UserStatus = "None"
	UserStatusAway UserStatus = "Away"
	UserStatusBusy UserStatus = "Busy"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusNone, UserStatusAway, UserStatusBusy:
		return true
	}
	return false
}

// ConnectionStatus describes how a node or friend is reachable
type ConnectionStatus string

const (
	ConnectionNone ConnectionStatus = "None"
	ConnectionTCP  ConnectionStatus = "Tcp"
	ConnectionUDP  ConnectionStatus = "Udp"
)

func (s ConnectionStatus) Valid() bool {
	switch s {
	case ConnectionNone, ConnectionTCP, ConnectionUDP:
		return true
	}
	return false
}

// MessageType distinguishes plain messages from actions ("/me")
type MessageType string

const (
	MessageNormal MessageType = "Normal"
	MessageAction MessageType = "Action"
)

func (t MessageType) Valid() bool {
	return t == MessageNormal || t == MessageAction
}

// ConferenceType is the kind of a conference
type ConferenceType string

const (
	ConferenceText ConferenceType = "Text"
	ConferenceAV   ConferenceType = "Av"
)

func (t ConferenceType) Valid() bool {
	return t == ConferenceText || t == ConferenceAV
}

// FileKind is the kind of a file transfer
type FileKind string

const (
	FileKindData   FileKind = "Data"
	FileKindAvatar FileKind = "Avatar"
)

func (k FileKind) Valid() bool {
	return k == FileKindData || k == FileKindAvatar
}

// FileControl is a transfer control command
type FileControl string

const (
	FileControlResume FileControl = "Resume"
	FileControlPause  FileControl = "Pause"
	FileControlCancel FileControl = "Cancel"
)

func (c FileControl) Valid() bool {
	switch c {
	case FileControlResume, FileControlPause, FileControlCancel:
		return true
	}
	return false
}

// Friend is a contact as reported by Info and GetFriendList
type Friend struct {
	Number        uint32     `json:"number"`
	PublicKey     string     `json:"public_key"`
	Name          string     `json:"name"`
	Status        UserStatus `json:"status"`
	StatusMessage string     `json:"status_message"`
	LastOnline    uint64     `json:"last_online"`
}

// Peer is a conference member
type Peer struct {
	Number    uint32 `json:"number"`
	PublicKey string `json:"public_key"`
	Name      string `json:"name"`
}
