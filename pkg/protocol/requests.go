package protocol

// Request is a client command. Every request yields exactly one Response.
type Request interface {
	RequestName() string
}

// ===== IDENTITY =====

// InfoRequest asks for the identity summary and the friend list
type InfoRequest struct{}

// SetInfoRequest replaces name, status and status message at once
type SetInfoRequest struct {
	Name          string     `json:"name"`
	Status        UserStatus `json:"status"`
	StatusMessage string     `json:"status_message"`
}

type GetNospamRequest struct{}

type SetNospamRequest struct {
	Nospam uint32 `json:"nospam"`
}

type GetNameRequest struct{}

type SetNameRequest struct {
	Name string `json:"name"`
}

type GetStatusRequest struct{}

type SetStatusRequest struct {
	Status UserStatus `json:"status"`
}

type GetStatusMessageRequest struct{}

type SetStatusMessageRequest struct {
	StatusMessage string `json:"status_message"`
}

type GetPublicKeyRequest struct{}

// GetAddressRequest asks for the shareable address (public key, nospam, checksum)
type GetAddressRequest struct{}

// GetConnectionStatusRequest asks how the node itself is connected to the network
type GetConnectionStatusRequest struct{}

func (InfoRequest) RequestName() string                { return "Info" }
func (SetInfoRequest) RequestName() string             { return "SetInfo" }
func (GetNospamRequest) RequestName() string           { return "GetNospam" }
func (SetNospamRequest) RequestName() string           { return "SetNospam" }
func (GetNameRequest) RequestName() string             { return "GetName" }
func (SetNameRequest) RequestName() string             { return "SetName" }
func (GetStatusRequest) RequestName() string           { return "GetStatus" }
func (SetStatusRequest) RequestName() string           { return "SetStatus" }
func (GetStatusMessageRequest) RequestName() string    { return "GetStatusMessage" }
func (SetStatusMessageRequest) RequestName() string    { return "SetStatusMessage" }
func (GetPublicKeyRequest) RequestName() string        { return "GetPublicKey" }
func (GetAddressRequest) RequestName() string          { return "GetAddress" }
func (GetConnectionStatusRequest) RequestName() string { return "GetConnectionStatus" }

// ===== FRIENDS =====

// AddFriendRequest sends a friend request to a full address
type AddFriendRequest struct {
	ToxID   string `json:"tox_id"`
	Message string `json:"message"`
}

// AddFriendNorequestRequest adds a friend without sending a request. ToxID may be a
// full address or a bare public key, the latter being how incoming requests
// are accepted.
type AddFriendNorequestRequest struct {
	ToxID string `json:"tox_id"`
}

type DeleteFriendRequest struct {
	Friend uint32 `json:"friend"`
}

type FriendByPublicKeyRequest struct {
	PublicKey string `json:"public_key"`
}

type FriendExistsRequest struct {
	Friend uint32 `json:"friend"`
}

type GetFriendListRequest struct{}

type GetFriendPublicKeyRequest struct {
	Friend uint32 `json:"friend"`
}

type GetFriendNameRequest struct {
	Friend uint32 `json:"friend"`
}

type GetFriendStatusRequest struct {
	Friend uint32 `json:"friend"`
}

type GetFriendStatusMessageRequest struct {
	Friend uint32 `json:"friend"`
}

type GetFriendLastOnlineRequest struct {
	Friend uint32 `json:"friend"`
}

type GetFriendConnectionStatusRequest struct {
	Friend uint32 `json:"friend"`
}

type SetTypingRequest struct {
	Friend   uint32 `json:"friend"`
	IsTyping bool   `json:"is_typing"`
}

// SendFriendMessageRequest sends a chat message. The MessageSent response
// carries the id later echoed by FriendReadReceipt.
type SendFriendMessageRequest struct {
	Friend  uint32      `json:"friend"`
	Kind    MessageType `json:"kind"`
	Message string      `json:"message"`
}

func (AddFriendRequest) RequestName() string                 { return "AddFriend" }
func (AddFriendNorequestRequest) RequestName() string        { return "AddFriendNorequest" }
func (DeleteFriendRequest) RequestName() string              { return "DeleteFriend" }
func (FriendByPublicKeyRequest) RequestName() string         { return "FriendByPublicKey" }
func (FriendExistsRequest) RequestName() string              { return "FriendExists" }
func (GetFriendListRequest) RequestName() string             { return "GetFriendList" }
func (GetFriendPublicKeyRequest) RequestName() string        { return "GetFriendPublicKey" }
func (GetFriendNameRequest) RequestName() string             { return "GetFriendName" }
func (GetFriendStatusRequest) RequestName() string           { return "GetFriendStatus" }
func (GetFriendStatusMessageRequest) RequestName() string    { return "GetFriendStatusMessage" }
func (GetFriendLastOnlineRequest) RequestName() string       { return "GetFriendLastOnline" }
func (GetFriendConnectionStatusRequest) RequestName() string { return "GetFriendConnectionStatus" }
func (SetTypingRequest) RequestName() string                 { return "SetTyping" }
func (SendFriendMessageRequest) RequestName() string         { return "SendFriendMessage" }

// ===== CONFERENCES =====

type NewConferenceRequest struct{}

type DeleteConferenceRequest struct {
	Conference uint32 `json:"conference"`
}

type ConferencePeerCountRequest struct {
	Conference uint32 `json:"conference"`
}

type GetPeerListRequest struct {
	Conference uint32 `json:"conference"`
}

type GetPeerNameRequest struct {
	Conference uint32 `json:"conference"`
	Peer       uint32 `json:"peer"`
}

type GetPeerPublicKeyRequest struct {
	Conference uint32 `json:"conference"`
	Peer       uint32 `json:"peer"`
}

type IsOwnPeerNumberRequest struct {
	Conference uint32 `json:"conference"`
	PeerNumber uint32 `json:"peer_number"`
}

type InviteToConferenceRequest struct {
	Friend     uint32 `json:"friend"`
	Conference uint32 `json:"conference"`
}

// JoinConferenceRequest joins the conference named by a cookie taken from a
// ConferenceInvite event
type JoinConferenceRequest struct {
	Friend uint32 `json:"friend"`
	Cookie string `json:"cookie"`
}

type SendConferenceMessageRequest struct {
	Conference uint32      `json:"conference"`
	Kind       MessageType `json:"kind"`
	Message    string      `json:"message"`
}

type GetConferenceTitleRequest struct {
	Conference uint32 `json:"conference"`
}

type SetConferenceTitleRequest struct {
	Conference uint32 `json:"conference"`
	Title      string `json:"title"`
}

type GetConferenceListRequest struct{}

type GetConferenceTypeRequest struct {
	Conference uint32 `json:"conference"`
}

func (NewConferenceRequest) RequestName() string         { return "NewConference" }
func (DeleteConferenceRequest) RequestName() string      { return "DeleteConference" }
func (ConferencePeerCountRequest) RequestName() string   { return "ConferencePeerCount" }
func (GetPeerListRequest) RequestName() string           { return "GetPeerList" }
func (GetPeerNameRequest) RequestName() string           { return "GetPeerName" }
func (GetPeerPublicKeyRequest) RequestName() string      { return "GetPeerPublicKey" }
func (IsOwnPeerNumberRequest) RequestName() string       { return "IsOwnPeerNumber" }
func (InviteToConferenceRequest) RequestName() string    { return "InviteToConference" }
func (JoinConferenceRequest) RequestName() string        { return "JoinConference" }
func (SendConferenceMessageRequest) RequestName() string { return "SendConferenceMessage" }
func (GetConferenceTitleRequest) RequestName() string    { return "GetConferenceTitle" }
func (SetConferenceTitleRequest) RequestName() string    { return "SetConferenceTitle" }
func (GetConferenceListRequest) RequestName() string     { return "GetConferenceList" }
func (GetConferenceTypeRequest) RequestName() string     { return "GetConferenceType" }

// ===== FILE TRANSFER =====

// SendFileRequest offers a file to a friend. Chunks are pulled afterwards
// through FileChunkRequest events.
type SendFileRequest struct {
	Friend   uint32   `json:"friend"`
	Kind     FileKind `json:"kind"`
	FileSize uint64   `json:"file_size"`
	FileName string   `json:"file_name"`
}

// SendAvatarRequest offers an avatar identified by its hex hash
type SendAvatarRequest struct {
	Friend   uint32 `json:"friend"`
	FileSize uint64 `json:"file_size"`
	Hash     string `json:"hash"`
}

// SendFileChunkRequest answers a FileChunkRequest. Data shorter than the
// requested window ends the transfer.
type SendFileChunkRequest struct {
	Friend     uint32 `json:"friend"`
	FileNumber uint32 `json:"file_number"`
	Position   uint64 `json:"position"`
	Data       []byte `json:"data"`
}

type ControlFileRequest struct {
	Friend     uint32      `json:"friend"`
	FileNumber uint32      `json:"file_number"`
	Control    FileControl `json:"control"`
}

type SeekFileRequest struct {
	Friend     uint32 `json:"friend"`
	FileNumber uint32 `json:"file_number"`
	Position   uint64 `json:"position"`
}

type GetFileIdRequest struct {
	Friend     uint32 `json:"friend"`
	FileNumber uint32 `json:"file_number"`
}

func (SendFileRequest) RequestName() string      { return "SendFile" }
func (SendAvatarRequest) RequestName() string    { return "SendAvatar" }
func (SendFileChunkRequest) RequestName() string { return "SendFileChunk" }
func (ControlFileRequest) RequestName() string   { return "ControlFile" }
func (SeekFileRequest) RequestName() string      { return "SeekFile" }
func (GetFileIdRequest) RequestName() string     { return "GetFileId" }
