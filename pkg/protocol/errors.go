package protocol

// Closed per-operation error enumerations. The string values are part of the
// wire contract.

// MalformedReason explains why a frame was rejected before dispatch
type MalformedReason string

const (
	MalformedInvalidJSON    MalformedReason = "InvalidJson"
	MalformedUnknownRequest MalformedReason = "UnknownRequest"
	MalformedMissingField   MalformedReason = "MissingField"
	MalformedInvalidValue   MalformedReason = "InvalidValue"
)

func (r MalformedReason) Valid() bool {
	switch r {
	case MalformedInvalidJSON, MalformedUnknownRequest, MalformedMissingField, MalformedInvalidValue:
		return true
	}
	return false
}

// ===== IDENTITY / FRIEND ERRORS =====

// SetInfoError is returned by identity setters
type SetInfoError string

const (
	SetInfoTooLong SetInfoError = "TooLong"
)

func (e SetInfoError) Valid() bool { return e == SetInfoTooLong }

// AddFriendError is returned by AddFriend and AddFriendNorequest
type AddFriendError string

const (
	AddFriendTooLong      AddFriendError = "TooLong"
	AddFriendNoMessage    AddFriendError = "NoMessage"
	AddFriendOwnKey       AddFriendError = "OwnKey"
	AddFriendAlreadySent  AddFriendError = "AlreadySent"
	AddFriendBadChecksum  AddFriendError = "BadChecksum"
	AddFriendSetNewNospam AddFriendError = "SetNewNospam"
)

func (e AddFriendError) Valid() bool {
	switch e {
	case AddFriendTooLong, AddFriendNoMessage, AddFriendOwnKey,
		AddFriendAlreadySent, AddFriendBadChecksum, AddFriendSetNewNospam:
		return true
	}
	return false
}

// SendFriendMessageError is returned by SendFriendMessage
type SendFriendMessageError string

const (
	SendFriendMessageNotFound     SendFriendMessageError = "NotFound"
	SendFriendMessageNotConnected SendFriendMessageError = "NotConnected"
	SendFriendMessageTooLong      SendFriendMessageError = "TooLong"
	SendFriendMessageEmpty        SendFriendMessageError = "Empty"
)

func (e SendFriendMessageError) Valid() bool {
	switch e {
	case SendFriendMessageNotFound, SendFriendMessageNotConnected,
		SendFriendMessageTooLong, SendFriendMessageEmpty:
		return true
	}
	return false
}

// ===== CONFERENCE ERRORS =====

// ConferenceInviteError is returned by InviteToConference
type ConferenceInviteError string

const (
	ConferenceInviteConferenceNotFound ConferenceInviteError = "ConferenceNotFound"
	ConferenceInviteFailSend           ConferenceInviteError = "FailSend"
	ConferenceInviteNoConnection       ConferenceInviteError = "NoConnection"
)

func (e ConferenceInviteError) Valid() bool {
	switch e {
	case ConferenceInviteConferenceNotFound, ConferenceInviteFailSend, ConferenceInviteNoConnection:
		return true
	}
	return false
}

// ConferenceJoinError is returned by JoinConference
type ConferenceJoinError string

const (
	ConferenceJoinInvalidLength  ConferenceJoinError = "InvalidLength"
	ConferenceJoinWrongType      ConferenceJoinError = "WrongType"
	ConferenceJoinFriendNotFound ConferenceJoinError = "FriendNotFound"
	ConferenceJoinDuplicate      ConferenceJoinError = "Duplicate"
	ConferenceJoinInitFail       ConferenceJoinError = "InitFail"
	ConferenceJoinFailSend       ConferenceJoinError = "FailSend"
)

func (e ConferenceJoinError) Valid() bool {
	switch e {
	case ConferenceJoinInvalidLength, ConferenceJoinWrongType, ConferenceJoinFriendNotFound,
		ConferenceJoinDuplicate, ConferenceJoinInitFail, ConferenceJoinFailSend:
		return true
	}
	return false
}

// ConferencePeerQueryError is returned by peer queries
type ConferencePeerQueryError string

const (
	ConferencePeerQueryConferenceNotFound ConferencePeerQueryError = "ConferenceNotFound"
	ConferencePeerQueryPeerNotFound       ConferencePeerQueryError = "PeerNotFound"
	ConferencePeerQueryNoConnection       ConferencePeerQueryError = "PeerQueryNoConnection"
)

func (e ConferencePeerQueryError) Valid() bool {
	switch e {
	case ConferencePeerQueryConferenceNotFound, ConferencePeerQueryPeerNotFound, ConferencePeerQueryNoConnection:
		return true
	}
	return false
}

// ConferenceSendError is returned by SendConferenceMessage
type ConferenceSendError string

const (
	ConferenceSendConferenceNotFound ConferenceSendError = "ConferenceNotFound"
	ConferenceSendTooLong            ConferenceSendError = "TooLong"
	ConferenceSendNoConnection       ConferenceSendError = "NoConnection"
	ConferenceSendFailSend           ConferenceSendError = "FailSend"
)

func (e ConferenceSendError) Valid() bool {
	switch e {
	case ConferenceSendConferenceNotFound, ConferenceSendTooLong, ConferenceSendNoConnection, ConferenceSendFailSend:
		return true
	}
	return false
}

// ConferenceTitleError is returned by the title accessors
type ConferenceTitleError string

const (
	ConferenceTitleConferenceNotFound ConferenceTitleError = "ConferenceNotFound"
	ConferenceTitleInvalidLength      ConferenceTitleError = "InvalidLength"
	ConferenceTitleFailSend           ConferenceTitleError = "FailSend"
)

func (e ConferenceTitleError) Valid() bool {
	switch e {
	case ConferenceTitleConferenceNotFound, ConferenceTitleInvalidLength, ConferenceTitleFailSend:
		return true
	}
	return false
}

// ===== FILE TRANSFER ERRORS =====

// SendFileError is returned by SendFile and SendAvatar
type SendFileError string

const (
	SendFileFriendNotFound     SendFileError = "FriendNotFound"
	SendFileFriendNotConnected SendFileError = "FriendNotConnected"
	SendFileNameTooLong        SendFileError = "NameTooLong"
	SendFileTooMany            SendFileError = "TooMany"
)

func (e SendFileError) Valid() bool {
	switch e {
	case SendFileFriendNotFound, SendFileFriendNotConnected, SendFileNameTooLong, SendFileTooMany:
		return true
	}
	return false
}

// SendFileChunkError is returned by SendFileChunk
type SendFileChunkError string

const (
	SendFileChunkFriendNotFound     SendFileChunkError = "FriendNotFound"
	SendFileChunkFriendNotConnected SendFileChunkError = "FriendNotConnected"
	SendFileChunkNotFound           SendFileChunkError = "NotFound"
	SendFileChunkNotTransferring    SendFileChunkError = "NotTransferring"
	SendFileChunkInvalidLength      SendFileChunkError = "InvalidLength"
	SendFileChunkSendQ              SendFileChunkError = "SendQ"
	SendFileChunkWrongPosition      SendFileChunkError = "WrongPosition"
)

func (e SendFileChunkError) Valid() bool {
	switch e {
	case SendFileChunkFriendNotFound, SendFileChunkFriendNotConnected, SendFileChunkNotFound,
		SendFileChunkNotTransferring, SendFileChunkInvalidLength, SendFileChunkSendQ,
		SendFileChunkWrongPosition:
		return true
	}
	return false
}

// ControlFileError is returned by ControlFile
type ControlFileError string

const (
	ControlFileFriendNotFound     ControlFileError = "FriendNotFound"
	ControlFileFriendNotConnected ControlFileError = "FriendNotConnected"
	ControlFileNotFound           ControlFileError = "NotFound"
	ControlFileNotPaused          ControlFileError = "NotPaused"
	ControlFileDenied             ControlFileError = "Denied"
	ControlFileAlreadyPaused      ControlFileError = "AlreadyPaused"
	ControlFileSendQ              ControlFileError = "SendQ"
)

func (e ControlFileError) Valid() bool {
	switch e {
	case ControlFileFriendNotFound, ControlFileFriendNotConnected, ControlFileNotFound,
		ControlFileNotPaused, ControlFileDenied, ControlFileAlreadyPaused, ControlFileSendQ:
		return true
	}
	return false
}

// SeekFileError is returned by SeekFile
type SeekFileError string

const (
	SeekFileFriendNotFound     SeekFileError = "FriendNotFound"
	SeekFileFriendNotConnected SeekFileError = "FriendNotConnected"
	SeekFileNotFound           SeekFileError = "NotFound"
	SeekFileDenied             SeekFileError = "Denied"
	SeekFileInvalidPosition    SeekFileError = "InvalidPosition"
	SeekFileSendQ              SeekFileError = "SendQ"
)

func (e SeekFileError) Valid() bool {
	switch e {
	case SeekFileFriendNotFound, SeekFileFriendNotConnected, SeekFileNotFound,
		SeekFileDenied, SeekFileInvalidPosition, SeekFileSendQ:
		return true
	}
	return false
}

// GetFileIdError is returned by GetFileId
type GetFileIdError string

const (
	GetFileIdFriendNotFound GetFileIdError = "FriendNotFound"
	GetFileIdNotFound       GetFileIdError = "NotFound"
)

func (e GetFileIdError) Valid() bool {
	return e == GetFileIdFriendNotFound || e == GetFileIdNotFound
}
