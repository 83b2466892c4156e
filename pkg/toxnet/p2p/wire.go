package p2p

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/pkg/errors"
)

const (
	// ProtocolID is the stream protocol spoken between friends
	ProtocolID = "/toxbridge/link/1.0.0"

	// ChunkSize matches the Tox maximum file data size
	ChunkSize = 1371
)

// Message types
const (
	MsgHello   = "hello"
	MsgWelcome = "welcome"
	MsgReject  = "reject"
	MsgPing    = "ping"

	MsgProfile = "profile"
	MsgMessage = "message"
	MsgReceipt = "receipt"
	MsgTyping  = "typing"

	MsgConferenceInvite = "conference_invite"
	MsgConferenceJoin   = "conference_join"
	MsgConferenceState  = "conference_state"
	MsgConference       = "conference"

	MsgFileSend    = "file_send"
	MsgFileChunk   = "file_chunk"
	MsgFileControl = "file_control"
	MsgFileSeek    = "file_seek"
)

// Message is one frame on a link stream
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func newMessage(typ string, payload any) (*Message, error) {
	msg := &Message{Type: typ}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s", typ)
	}
	msg.Payload = data
	return msg, nil
}

func (m *Message) decode(v any) error {
	return errors.Wrapf(json.Unmarshal(m.Payload, v), "malformed %s", m.Type)
}

// helloPayload opens a link. Request is set while a friend request is
// still unanswered.
type helloPayload struct {
	Profile profilePayload  `json:"profile"`
	Request *requestPayload `json:"request,omitempty"`
}

type requestPayload struct {
	Nospam  uint32 `json:"nospam"`
	Message string `json:"message"`
}

type profilePayload struct {
	Name          string              `json:"name"`
	Status        protocol.UserStatus `json:"status"`
	StatusMessage string              `json:"status_message"`
}

func profileOf(p toxnet.Profile) profilePayload {
	return profilePayload{Name: p.Name, Status: p.Status, StatusMessage: p.StatusMessage}
}

func (p profilePayload) profile() toxnet.Profile {
	status := p.Status
	if !status.Valid() {
		status = protocol.UserStatusNone
	}
	return toxnet.Profile{Name: p.Name, Status: status, StatusMessage: p.StatusMessage}
}

type messagePayload struct {
	ID   uint32               `json:"id"`
	Kind protocol.MessageType `json:"kind"`
	Text string               `json:"text"`
}

type receiptPayload struct {
	ID uint32 `json:"id"`
}

type typingPayload struct {
	Typing bool `json:"typing"`
}

// ===== CONFERENCES =====

type invitePayload struct {
	ID   string                  `json:"id"`
	Kind protocol.ConferenceType `json:"kind"`
}

type statePayload struct {
	ID    string                  `json:"id"`
	Kind  protocol.ConferenceType `json:"kind"`
	Title string                  `json:"title,omitempty"`
	Peers []peerPayload           `json:"peers"`
}

type peerPayload struct {
	PublicKey string `json:"public_key"`
	Name      string `json:"name"`
}

// Conference operations carried by gossip
const (
	opMessage = "message"
	opTitle   = "title"
	opName    = "name"
	opPeers   = "peers"
	opLeave   = "leave"
)

// gossipPayload is relayed between members until every member has seen
// Event once
type gossipPayload struct {
	ID     string               `json:"id"`
	Event  string               `json:"event"`
	Origin string               `json:"origin"`
	Op     string               `json:"op"`
	Kind   protocol.MessageType `json:"kind,omitempty"`
	Text   string               `json:"text,omitempty"`
	Peers  []peerPayload        `json:"peers,omitempty"`
}

// ===== FILE TRANSFER =====

type fileSendPayload struct {
	Number uint32            `json:"number"`
	Kind   protocol.FileKind `json:"kind"`
	Size   uint64            `json:"size"`
	ID     string            `json:"id"`
	Name   string            `json:"name"`
}

type fileChunkPayload struct {
	Number   uint32 `json:"number"`
	Position uint64 `json:"position"`
	Data     []byte `json:"data"`
}

type fileControlPayload struct {
	Number   uint32               `json:"number"`
	Incoming bool                 `json:"incoming"`
	Control  protocol.FileControl `json:"control"`
}

type fileSeekPayload struct {
	Number   uint32 `json:"number"`
	Position uint64 `json:"position"`
}

func parseConferenceID(s string) (toxnet.ConferenceID, error) {
	var id toxnet.ConferenceID
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil || len(raw) != toxnet.ConferenceIDSize {
		return id, errors.Errorf("invalid conference id %q", s)
	}
	copy(id[:], raw)
	return id, nil
}
