package bridge

import (
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
)

var unknownRequest = &protocol.MalformedRequestResponse{Error: protocol.MalformedUnknownRequest}

// dispatch routes one decoded request to its owner. A returned error is
// fatal to the node; domain failures are always responses.
func (n *Node) dispatch(req protocol.Request) (protocol.Response, error) {
	f, c, m := n.friends, n.confs, n.files

	switch r := req.(type) {
	// identity
	case *protocol.InfoRequest:
		return f.Info(), nil
	case *protocol.SetInfoRequest:
		return f.SetInfo(r)
	case *protocol.GetNospamRequest:
		return f.GetNospam(), nil
	case *protocol.SetNospamRequest:
		return f.SetNospam(r), nil
	case *protocol.GetNameRequest:
		return f.GetName(), nil
	case *protocol.SetNameRequest:
		return f.SetName(r)
	case *protocol.GetStatusRequest:
		return f.GetStatus(), nil
	case *protocol.SetStatusRequest:
		return f.SetStatus(r)
	case *protocol.GetStatusMessageRequest:
		return f.GetStatusMessage(), nil
	case *protocol.SetStatusMessageRequest:
		return f.SetStatusMessage(r)
	case *protocol.GetPublicKeyRequest:
		return f.GetPublicKey(), nil
	case *protocol.GetAddressRequest:
		return f.GetAddress(), nil
	case *protocol.GetConnectionStatusRequest:
		return f.GetConnectionStatus(), nil

	// friends
	case *protocol.AddFriendRequest:
		return f.AddFriend(r)
	case *protocol.AddFriendNorequestRequest:
		return f.AddFriendNorequest(r)
	case *protocol.DeleteFriendRequest:
		return f.DeleteFriend(r)
	case *protocol.FriendByPublicKeyRequest:
		return f.FriendByPublicKey(r), nil
	case *protocol.FriendExistsRequest:
		return f.FriendExists(r), nil
	case *protocol.GetFriendListRequest:
		return f.GetFriendList(), nil
	case *protocol.GetFriendPublicKeyRequest:
		return f.GetFriendPublicKey(r), nil
	case *protocol.GetFriendNameRequest:
		return f.GetFriendName(r), nil
	case *protocol.GetFriendStatusRequest:
		return f.GetFriendStatus(r), nil
	case *protocol.GetFriendStatusMessageRequest:
		return f.GetFriendStatusMessage(r), nil
	case *protocol.GetFriendLastOnlineRequest:
		return f.GetFriendLastOnline(r), nil
	case *protocol.GetFriendConnectionStatusRequest:
		return f.GetFriendConnectionStatus(r), nil
	case *protocol.SetTypingRequest:
		return f.SetTyping(r)
	case *protocol.SendFriendMessageRequest:
		return f.SendFriendMessage(r)

	// conferences
	case *protocol.NewConferenceRequest:
		return c.NewConference()
	case *protocol.DeleteConferenceRequest:
		return c.DeleteConference(r)
	case *protocol.ConferencePeerCountRequest:
		return c.ConferencePeerCount(r), nil
	case *protocol.GetPeerListRequest:
		return c.GetPeerList(r), nil
	case *protocol.GetPeerNameRequest:
		return c.GetPeerName(r), nil
	case *protocol.GetPeerPublicKeyRequest:
		return c.GetPeerPublicKey(r), nil
	case *protocol.IsOwnPeerNumberRequest:
		return c.IsOwnPeerNumber(r), nil
	case *protocol.InviteToConferenceRequest:
		return c.InviteToConference(r)
	case *protocol.JoinConferenceRequest:
		return c.JoinConference(r)
	case *protocol.SendConferenceMessageRequest:
		return c.SendConferenceMessage(r)
	case *protocol.GetConferenceTitleRequest:
		return c.GetConferenceTitle(r), nil
	case *protocol.SetConferenceTitleRequest:
		return c.SetConferenceTitle(r)
	case *protocol.GetConferenceListRequest:
		return c.GetConferenceList(), nil
	case *protocol.GetConferenceTypeRequest:
		return c.GetConferenceType(r), nil

	// file transfer
	case *protocol.SendFileRequest:
		return m.SendFile(r)
	case *protocol.SendAvatarRequest:
		return m.SendAvatar(r)
	case *protocol.SendFileChunkRequest:
		return m.SendFileChunk(r)
	case *protocol.ControlFileRequest:
		return m.ControlFile(r)
	case *protocol.SeekFileRequest:
		return m.SeekFile(r)
	case *protocol.GetFileIdRequest:
		return m.GetFileId(r), nil
	}
	return unknownRequest, nil
}
