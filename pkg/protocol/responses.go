package protocol

// Response answers exactly one Request
type Response interface {
	ResponseName() string
}

// ===== GENERIC =====

// OkResponse is the bare acknowledgment
type OkResponse struct{}

// MalformedRequestResponse rejects a frame that could not be decoded into a
// known request
type MalformedRequestResponse struct {
	Error MalformedReason `json:"error"`
}

// FriendNotFoundErrorResponse is shared by friend-keyed operations without a
// dedicated error enumeration
type FriendNotFoundErrorResponse struct{}

// ConferenceNotFoundErrorResponse is shared by conference-keyed operations
// without a dedicated error enumeration
type ConferenceNotFoundErrorResponse struct{}

func (OkResponse) ResponseName() string                      { return "Ok" }
func (MalformedRequestResponse) ResponseName() string        { return "MalformedRequest" }
func (FriendNotFoundErrorResponse) ResponseName() string     { return "FriendNotFoundError" }
func (ConferenceNotFoundErrorResponse) ResponseName() string { return "ConferenceNotFoundError" }

// ===== IDENTITY =====

type InfoResponse struct {
	ToxID         string     `json:"tox_id"`
	Name          string     `json:"name"`
	Status        UserStatus `json:"status"`
	StatusMessage string     `json:"status_message"`
	Friends       []Friend   `json:"friends"`
}

type NospamResponse struct {
	Nospam uint32 `json:"nospam"`
}

// NameResponse carries an own, friend or peer name
type NameResponse struct {
	Name string `json:"name"`
}

type StatusResponse struct {
	Status UserStatus `json:"status"`
}

type StatusMessageResponse struct {
	StatusMessage string `json:"status_message"`
}

// PublicKeyResponse carries an own, friend or peer public key in hex
type PublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

type AddressResponse struct {
	ToxID string `json:"tox_id"`
}

type ConnectionStatusResponse struct {
	Status ConnectionStatus `json:"status"`
}

type SetInfoErrorResponse struct {
	Error SetInfoError `json:"error"`
}

func (InfoResponse) ResponseName() string             { return "Info" }
func (NospamResponse) ResponseName() string           { return "Nospam" }
func (NameResponse) ResponseName() string             { return "Name" }
func (StatusResponse) ResponseName() string           { return "Status" }
func (StatusMessageResponse) ResponseName() string    { return "StatusMessage" }
func (PublicKeyResponse) ResponseName() string        { return "PublicKey" }
func (AddressResponse) ResponseName() string          { return "Address" }
func (ConnectionStatusResponse) ResponseName() string { return "ConnectionStatus" }
func (SetInfoErrorResponse) ResponseName() string     { return "SetInfoError" }

// ===== FRIENDS =====

type FriendAddedResponse struct {
	Friend uint32 `json:"friend"`
}

type AddFriendErrorResponse struct {
	Error AddFriendError `json:"error"`
}

// FriendResponse answers FriendByPublicKey
type FriendResponse struct {
	Friend uint32 `json:"friend"`
}

type FriendExistsResponse struct {
	Exists bool `json:"exists"`
}

type FriendListResponse struct {
	Friends []Friend `json:"friends"`
}

type LastOnlineResponse struct {
	LastOnline uint64 `json:"last_online"`
}

type MessageSentResponse struct {
	MessageID uint32 `json:"message_id"`
}

type SendFriendMessageErrorResponse struct {
	Error SendFriendMessageError `json:"error"`
}

func (FriendAddedResponse) ResponseName() string            { return "FriendAdded" }
func (AddFriendErrorResponse) ResponseName() string         { return "AddFriendError" }
func (FriendResponse) ResponseName() string                 { return "Friend" }
func (FriendExistsResponse) ResponseName() string           { return "FriendExists" }
func (FriendListResponse) ResponseName() string             { return "FriendList" }
func (LastOnlineResponse) ResponseName() string             { return "LastOnline" }
func (MessageSentResponse) ResponseName() string            { return "MessageSent" }
func (SendFriendMessageErrorResponse) ResponseName() string { return "SendFriendMessageError" }

// ===== CONFERENCES =====

// ConferenceResponse answers NewConference and JoinConference
type ConferenceResponse struct {
	Conference uint32 `json:"conference"`
}

type ConferenceListResponse struct {
	Conferences []uint32 `json:"conferences"`
}

type ConferenceTypeResponse struct {
	Kind ConferenceType `json:"kind"`
}

type PeerCountResponse struct {
	Count uint32 `json:"count"`
}

type PeerListResponse struct {
	Peers []Peer `json:"peers"`
}

type IsOwnPeerResponse struct {
	IsOwn bool `json:"is_own"`
}

type TitleResponse struct {
	Title string `json:"title"`
}

type ConferenceInviteErrorResponse struct {
	Error ConferenceInviteError `json:"error"`
}

type ConferenceJoinErrorResponse struct {
	Error ConferenceJoinError `json:"error"`
}

type ConferencePeerQueryErrorResponse struct {
	Error ConferencePeerQueryError `json:"error"`
}

type ConferenceSendErrorResponse struct {
	Error ConferenceSendError `json:"error"`
}

type ConferenceTitleErrorResponse struct {
	Error ConferenceTitleError `json:"error"`
}

func (ConferenceResponse) ResponseName() string               { return "Conference" }
func (ConferenceListResponse) ResponseName() string           { return "ConferenceList" }
func (ConferenceTypeResponse) ResponseName() string           { return "ConferenceType" }
func (PeerCountResponse) ResponseName() string                { return "PeerCount" }
func (PeerListResponse) ResponseName() string                 { return "PeerList" }
func (IsOwnPeerResponse) ResponseName() string                { return "IsOwnPeer" }
func (TitleResponse) ResponseName() string                    { return "Title" }
func (ConferenceInviteErrorResponse) ResponseName() string    { return "ConferenceInviteError" }
func (ConferenceJoinErrorResponse) ResponseName() string      { return "ConferenceJoinError" }
func (ConferencePeerQueryErrorResponse) ResponseName() string { return "ConferencePeerQueryError" }
func (ConferenceSendErrorResponse) ResponseName() string      { return "ConferenceSendError" }
func (ConferenceTitleErrorResponse) ResponseName() string     { return "ConferenceTitleError" }

// ===== FILE TRANSFER =====

type FileNumberResponse struct {
	FileNumber uint32 `json:"file_number"`
}

// FileIdResponse carries the hex file id used to resume a transfer
type FileIdResponse struct {
	FileID string `json:"file_id"`
}

type SendFileErrorResponse struct {
	Error SendFileError `json:"error"`
}

type SendFileChunkErrorResponse struct {
	Error SendFileChunkError `json:"error"`
}

type ControlFileErrorResponse struct {
	Error ControlFileError `json:"error"`
}

type SeekFileErrorResponse struct {
	Error SeekFileError `json:"error"`
}

type GetFileIdErrorResponse struct {
	Error GetFileIdError `json:"error"`
}

func (FileNumberResponse) ResponseName() string         { return "FileNumber" }
func (FileIdResponse) ResponseName() string             { return "FileId" }
func (SendFileErrorResponse) ResponseName() string      { return "SendFileError" }
func (SendFileChunkErrorResponse) ResponseName() string { return "SendFileChunkError" }
func (ControlFileErrorResponse) ResponseName() string   { return "ControlFileError" }
func (SeekFileErrorResponse) ResponseName() string      { return "SeekFileError" }
func (GetFileIdErrorResponse) ResponseName() string     { return "GetFileIdError" }
