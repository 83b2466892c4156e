package registry

import (
	"context"
	"testing"
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet/simnet"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t       *testing.T
	net     *simnet.Network
	node    *simnet.Node
	friends *Friends
	confs   *Conferences
	events  []protocol.Event
	now     time.Time
	store   *memoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	net := simnet.New()
	node, err := net.NewNode()
	require.NoError(t, err)

	h := &harness{t: t, net: net, node: node, now: time.Unix(1000, 0), store: newMemoryStore()}
	h.friends = NewFriends(node, node.Nospam(), h.record, &Config{
		Store: h.store,
		Now:   func() time.Time { return h.now },
	})
	h.confs = NewConferences(node, h.friends, h.record)
	h.pump()
	h.events = nil
	return h
}

func (h *harness) record(ev protocol.Event) {
	h.events = append(h.events, ev)
}

// pump runs one iteration of the node under test
func (h *harness) pump() {
	h.t.Helper()
	require.NoError(h.t, h.node.Iterate(context.Background()))
	h.node.Drain(func(cb toxnet.Callback) {
		if !h.friends.Handle(cb) && !h.confs.Handle(cb) {
			h.t.Fatalf("unhandled callback %T", cb)
		}
	})
}

// take returns and clears the recorded events
func (h *harness) take() []protocol.Event {
	events := h.events
	h.events = nil
	return events
}

// newPeer joins a raw stack that the test drives directly
func (h *harness) newPeer() *simnet.Node {
	h.t.Helper()
	peer, err := h.net.NewNode()
	require.NoError(h.t, err)
	stepPeer(h.t, peer)
	return peer
}

// connect adds peer as a connected friend and returns its number
func (h *harness) connect(peer *simnet.Node) uint32 {
	h.t.Helper()
	resp, err := h.friends.AddFriendNorequest(&protocol.AddFriendNorequestRequest{ToxID: peer.SelfPublicKey().String()})
	require.NoError(h.t, err)
	added, ok := resp.(*protocol.FriendAddedResponse)
	require.True(h.t, ok, "unexpected response %#v", resp)

	require.NoError(h.t, peer.AddFriendNorequest(h.node.SelfPublicKey()))
	stepPeer(h.t, peer)
	h.pump()
	return added.Friend
}

func stepPeer(t *testing.T, peer *simnet.Node) []toxnet.Callback {
	t.Helper()
	require.NoError(t, peer.Iterate(context.Background()))
	var out []toxnet.Callback
	peer.Drain(func(cb toxnet.Callback) { out = append(out, cb) })
	return out
}

type memoryStore struct {
	profile toxnet.Profile
	nospam  uint32
	friends map[crypto.PublicKey]SavedFriend
}

func newMemoryStore() *memoryStore {
	return &memoryStore{friends: make(map[crypto.PublicKey]SavedFriend)}
}

func (m *memoryStore) SaveProfile(p toxnet.Profile, nospam uint32) error {
	m.profile, m.nospam = p, nospam
	return nil
}

func (m *memoryStore) SaveFriend(f SavedFriend) error {
	m.friends[f.PublicKey] = f
	return nil
}

func (m *memoryStore) DeleteFriend(pk crypto.PublicKey) error {
	delete(m.friends, pk)
	return nil
}
