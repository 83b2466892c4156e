package registry

import (
	"strings"
	"testing"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieRoundTrip(t *testing.T) {
	var id toxnet.ConferenceID
	id[0], id[31] = 0xAB, 0xCD

	cookie := EncodeCookie(protocol.ConferenceAV, id)
	assert.Len(t, cookie, CookieSize*2)

	kind, got, _, valid := DecodeCookie(cookie)
	require.True(t, valid)
	assert.Equal(t, protocol.ConferenceAV, kind)
	assert.Equal(t, id, got)

	_, _, reason, valid := DecodeCookie("00FF")
	assert.False(t, valid)
	assert.Equal(t, protocol.ConferenceJoinInvalidLength, reason)

	_, _, reason, valid = DecodeCookie("07" + strings.Repeat("00", toxnet.ConferenceIDSize))
	assert.False(t, valid)
	assert.Equal(t, protocol.ConferenceJoinWrongType, reason)
}

func TestNewConference(t *testing.T) {
	h := newHarness(t)
	_, err := h.friends.SetName(&protocol.SetNameRequest{Name: "Me"})
	require.NoError(t, err)

	resp, err := h.confs.NewConference()
	require.NoError(t, err)
	assert.Equal(t, &protocol.ConferenceResponse{Conference: 0}, resp)

	assert.Equal(t, &protocol.PeerCountResponse{Count: 1}, h.confs.ConferencePeerCount(&protocol.ConferencePeerCountRequest{Conference: 0}))
	assert.Equal(t, &protocol.PeerListResponse{Peers: []protocol.Peer{
		{Number: 0, PublicKey: h.node.SelfPublicKey().String(), Name: "Me"},
	}}, h.confs.GetPeerList(&protocol.GetPeerListRequest{Conference: 0}))
	assert.Equal(t, &protocol.IsOwnPeerResponse{IsOwn: true}, h.confs.IsOwnPeerNumber(&protocol.IsOwnPeerNumberRequest{Conference: 0, PeerNumber: 0}))
	assert.Equal(t, &protocol.ConferenceTypeResponse{Kind: protocol.ConferenceText}, h.confs.GetConferenceType(&protocol.GetConferenceTypeRequest{Conference: 0}))
	assert.Equal(t, &protocol.ConferenceListResponse{Conferences: []uint32{0}}, h.confs.GetConferenceList())

	_, err = h.friends.SetName(&protocol.SetNameRequest{Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, &protocol.NameResponse{Name: "Renamed"}, h.confs.GetPeerName(&protocol.GetPeerNameRequest{Conference: 0, Peer: 0}))
}

func TestConferenceNotFound(t *testing.T) {
	h := newHarness(t)
	number := h.connect(h.newPeer())

	peerQuery := &protocol.ConferencePeerQueryErrorResponse{Error: protocol.ConferencePeerQueryConferenceNotFound}
	assert.Equal(t, peerQuery, h.confs.ConferencePeerCount(&protocol.ConferencePeerCountRequest{Conference: 3}))
	assert.Equal(t, peerQuery, h.confs.GetPeerList(&protocol.GetPeerListRequest{Conference: 3}))
	assert.Equal(t, peerQuery, h.confs.GetPeerName(&protocol.GetPeerNameRequest{Conference: 3}))
	assert.Equal(t, peerQuery, h.confs.GetPeerPublicKey(&protocol.GetPeerPublicKeyRequest{Conference: 3}))
	assert.Equal(t, peerQuery, h.confs.IsOwnPeerNumber(&protocol.IsOwnPeerNumberRequest{Conference: 3}))

	assert.Equal(t, &protocol.ConferenceNotFoundErrorResponse{}, h.confs.GetConferenceType(&protocol.GetConferenceTypeRequest{Conference: 3}))
	resp, err := h.confs.DeleteConference(&protocol.DeleteConferenceRequest{Conference: 3})
	require.NoError(t, err)
	assert.Equal(t, &protocol.ConferenceNotFoundErrorResponse{}, resp)

	assert.Equal(t, &protocol.ConferenceTitleErrorResponse{Error: protocol.ConferenceTitleConferenceNotFound},
		h.confs.GetConferenceTitle(&protocol.GetConferenceTitleRequest{Conference: 3}))
	resp, err = h.confs.SetConferenceTitle(&protocol.SetConferenceTitleRequest{Conference: 3, Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, &protocol.ConferenceTitleErrorResponse{Error: protocol.ConferenceTitleConferenceNotFound}, resp)

	resp, err = h.confs.SendConferenceMessage(&protocol.SendConferenceMessageRequest{Conference: 3, Kind: protocol.MessageNormal, Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, &protocol.ConferenceSendErrorResponse{Error: protocol.ConferenceSendConferenceNotFound}, resp)

	resp, err = h.confs.InviteToConference(&protocol.InviteToConferenceRequest{Friend: number, Conference: 3})
	require.NoError(t, err)
	assert.Equal(t, &protocol.ConferenceInviteErrorResponse{Error: protocol.ConferenceInviteConferenceNotFound}, resp)

	resp, err = h.confs.InviteToConference(&protocol.InviteToConferenceRequest{Friend: 99, Conference: 3})
	require.NoError(t, err)
	assert.Equal(t, &protocol.FriendNotFoundErrorResponse{}, resp)
}

func TestConferenceTitleAndMessageLimits(t *testing.T) {
	h := newHarness(t)
	_, err := h.confs.NewConference()
	require.NoError(t, err)

	resp, err := h.confs.SetConferenceTitle(&protocol.SetConferenceTitleRequest{Conference: 0, Title: ""})
	require.NoError(t, err)
	assert.Equal(t, &protocol.ConferenceTitleErrorResponse{Error: protocol.ConferenceTitleInvalidLength}, resp)

	resp, err = h.confs.SetConferenceTitle(&protocol.SetConferenceTitleRequest{Conference: 0, Title: strings.Repeat("t", protocol.MaxConferenceTitleLength+1)})
	require.NoError(t, err)
	assert.Equal(t, &protocol.ConferenceTitleErrorResponse{Error: protocol.ConferenceTitleInvalidLength}, resp)

	resp, err = h.confs.SetConferenceTitle(&protocol.SetConferenceTitleRequest{Conference: 0, Title: "Lobby"})
	require.NoError(t, err)
	assert.Equal(t, &protocol.OkResponse{}, resp)
	assert.Equal(t, &protocol.TitleResponse{Title: "Lobby"}, h.confs.GetConferenceTitle(&protocol.GetConferenceTitleRequest{Conference: 0}))

	resp, err = h.confs.SendConferenceMessage(&protocol.SendConferenceMessageRequest{Conference: 0, Kind: protocol.MessageNormal, Message: strings.Repeat("m", protocol.MaxMessageLength+1)})
	require.NoError(t, err)
	assert.Equal(t, &protocol.ConferenceSendErrorResponse{Error: protocol.ConferenceSendTooLong}, resp)

	assert.Equal(t, &protocol.ConferencePeerQueryErrorResponse{Error: protocol.ConferencePeerQueryPeerNotFound},
		h.confs.GetPeerName(&protocol.GetPeerNameRequest{Conference: 0, Peer: 1}))
}

// TestInviteAndJoin runs two registries against each other
func TestInviteAndJoin(t *testing.T) {
	alice := newHarness(t)
	bob := &harness{t: t, net: alice.net, store: newMemoryStore()}
	node, err := alice.net.NewNode()
	require.NoError(t, err)
	bob.node = node
	bob.friends = NewFriends(node, node.Nospam(), bob.record, &Config{Store: bob.store})
	bob.confs = NewConferences(node, bob.friends, bob.record)
	bob.pump()
	bob.take()

	aliceSideBob, err := alice.friends.AddFriendNorequest(&protocol.AddFriendNorequestRequest{ToxID: node.SelfPublicKey().String()})
	require.NoError(t, err)
	bobSideAlice, err := bob.friends.AddFriendNorequest(&protocol.AddFriendNorequestRequest{ToxID: alice.node.SelfPublicKey().String()})
	require.NoError(t, err)
	alice.pump()
	bob.pump()
	alice.take()
	bob.take()
	bobNumber := aliceSideBob.(*protocol.FriendAddedResponse).Friend
	aliceNumber := bobSideAlice.(*protocol.FriendAddedResponse).Friend

	_, err = alice.confs.NewConference()
	require.NoError(t, err)
	_, err = alice.confs.SetConferenceTitle(&protocol.SetConferenceTitleRequest{Conference: 0, Title: "Lobby"})
	require.NoError(t, err)

	resp, err := alice.confs.InviteToConference(&protocol.InviteToConferenceRequest{Friend: bobNumber, Conference: 0})
	require.NoError(t, err)
	assert.Equal(t, &protocol.OkResponse{}, resp)

	bob.pump()
	events := bob.take()
	require.Len(t, events, 1)
	invite, ok := events[0].(*protocol.ConferenceInviteEvent)
	require.True(t, ok)
	assert.Equal(t, aliceNumber, invite.Friend)
	assert.Equal(t, protocol.ConferenceText, invite.Kind)

	resp, err = bob.confs.JoinConference(&protocol.JoinConferenceRequest{Friend: aliceNumber + 7, Cookie: invite.Cookie})
	require.NoError(t, err)
	assert.Equal(t, &protocol.ConferenceJoinErrorResponse{Error: protocol.ConferenceJoinFriendNotFound}, resp)

	resp, err = bob.confs.JoinConference(&protocol.JoinConferenceRequest{Friend: aliceNumber, Cookie: "XYZ"})
	require.NoError(t, err)
	assert.Equal(t, &protocol.ConferenceJoinErrorResponse{Error: protocol.ConferenceJoinInvalidLength}, resp)

	resp, err = bob.confs.JoinConference(&protocol.JoinConferenceRequest{Friend: aliceNumber, Cookie: "01" + invite.Cookie[2:]})
	require.NoError(t, err)
	assert.Equal(t, &protocol.ConferenceJoinErrorResponse{Error: protocol.ConferenceJoinWrongType}, resp)
	assert.Zero(t, bob.confs.Count())

	resp, err = bob.confs.JoinConference(&protocol.JoinConferenceRequest{Friend: aliceNumber, Cookie: invite.Cookie})
	require.NoError(t, err)
	assert.Equal(t, &protocol.ConferenceResponse{Conference: 0}, resp)

	assert.Equal(t, &protocol.ConferencePeerQueryErrorResponse{Error: protocol.ConferencePeerQueryNoConnection},
		bob.confs.ConferencePeerCount(&protocol.ConferencePeerCountRequest{Conference: 0}))

	resp, err = bob.confs.JoinConference(&protocol.JoinConferenceRequest{Friend: aliceNumber, Cookie: invite.Cookie})
	require.NoError(t, err)
	assert.Equal(t, &protocol.ConferenceJoinErrorResponse{Error: protocol.ConferenceJoinDuplicate}, resp)

	bob.pump()
	assert.Equal(t, []protocol.Event{
		&protocol.ConferencePeerListChangedEvent{Conference: 0},
		&protocol.ConferenceConnectedEvent{Conference: 0},
		&protocol.ConferenceTitleEvent{Conference: 0, Peer: 0, Title: "Lobby"},
	}, bob.take())

	count := bob.confs.ConferencePeerCount(&protocol.ConferencePeerCountRequest{Conference: 0}).(*protocol.PeerCountResponse)
	list := bob.confs.GetPeerList(&protocol.GetPeerListRequest{Conference: 0}).(*protocol.PeerListResponse)
	assert.Equal(t, int(count.Count), len(list.Peers))
	assert.Equal(t, uint32(2), count.Count)
	assert.Equal(t, &protocol.IsOwnPeerResponse{IsOwn: true}, bob.confs.IsOwnPeerNumber(&protocol.IsOwnPeerNumberRequest{Conference: 0, PeerNumber: 1}))
	assert.Equal(t, &protocol.PublicKeyResponse{PublicKey: alice.node.SelfPublicKey().String()},
		bob.confs.GetPeerPublicKey(&protocol.GetPeerPublicKeyRequest{Conference: 0, Peer: 0}))

	alice.pump()
	assert.Equal(t, []protocol.Event{&protocol.ConferencePeerListChangedEvent{Conference: 0}}, alice.take())

	resp, err = bob.confs.SendConferenceMessage(&protocol.SendConferenceMessageRequest{Conference: 0, Kind: protocol.MessageNormal, Message: "hello all"})
	require.NoError(t, err)
	assert.Equal(t, &protocol.OkResponse{}, resp)
	_, err = bob.friends.SetName(&protocol.SetNameRequest{Name: "Bob"})
	require.NoError(t, err)

	alice.pump()
	assert.Equal(t, []protocol.Event{
		&protocol.ConferenceMessageEvent{Conference: 0, Peer: 1, Kind: protocol.MessageNormal, Message: "hello all"},
		&protocol.FriendNameEvent{Friend: bobNumber, Name: "Bob"},
		&protocol.ConferencePeerNameEvent{Conference: 0, Peer: 1, Name: "Bob"},
	}, alice.take())
	assert.Equal(t, &protocol.NameResponse{Name: "Bob"}, alice.confs.GetPeerName(&protocol.GetPeerNameRequest{Conference: 0, Peer: 1}))

	resp, err = bob.confs.DeleteConference(&protocol.DeleteConferenceRequest{Conference: 0})
	require.NoError(t, err)
	assert.Equal(t, &protocol.OkResponse{}, resp)
	assert.Equal(t, &protocol.ConferenceListResponse{Conferences: []uint32{}}, bob.confs.GetConferenceList())

	alice.pump()
	assert.Equal(t, []protocol.Event{&protocol.ConferencePeerListChangedEvent{Conference: 0}}, alice.take())
	assert.Equal(t, &protocol.PeerCountResponse{Count: 1}, alice.confs.ConferencePeerCount(&protocol.ConferencePeerCountRequest{Conference: 0}))
}

func TestInviteDisconnectedFriend(t *testing.T) {
	h := newHarness(t)
	peer := h.newPeer()
	number := h.connect(peer)
	_, err := h.confs.NewConference()
	require.NoError(t, err)

	peer.SetOnline(false)
	h.pump()

	resp, err := h.confs.InviteToConference(&protocol.InviteToConferenceRequest{Friend: number, Conference: 0})
	require.NoError(t, err)
	assert.Equal(t, &protocol.ConferenceInviteErrorResponse{Error: protocol.ConferenceInviteNoConnection}, resp)
}
