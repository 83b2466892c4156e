package bridge

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/events"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet/simnet"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const timeout = 5 * time.Second

func newNetwork() *simnet.Network {
	return simnet.New(simnet.WithChunkSize(64), simnet.WithInterval(2*time.Millisecond))
}

// start runs a bridge for a fresh node of net until the test ends
func start(t *testing.T, net *simnet.Network) (*Node, *simnet.Node) {
	t.Helper()
	stack, err := net.NewNode()
	require.NoError(t, err)
	node, err := New(stack, &Config{Nospam: stack.Nospam(), Metrics: NewMetrics(prometheus.NewRegistry())})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = node.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return node, stack
}

func open(t *testing.T, n *Node) *Session {
	t.Helper()
	s, err := n.Open()
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// call submits req and returns its response, skipping interleaved events
func call(t *testing.T, s *Session, req protocol.Request) protocol.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	require.NoError(t, s.Submit(ctx, req))
	for {
		m, err := s.Next(ctx)
		require.NoError(t, err)
		if m.Response != nil {
			return m.Response
		}
	}
}

// waitEvent returns the next event of type T, skipping everything else
func waitEvent[T protocol.Event](t *testing.T, s *Session) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		m, err := s.Next(ctx)
		require.NoError(t, err)
		if ev, ok := m.Event.(T); ok {
			return ev
		}
	}
}

// befriend makes a and b friends through their bridges and returns the
// number b has on a
func befriend(t *testing.T, a, b *Session) uint32 {
	t.Helper()
	addr := call(t, b, &protocol.GetAddressRequest{}).(*protocol.AddressResponse).ToxID
	added := call(t, a, &protocol.AddFriendRequest{ToxID: addr, Message: "hi"})
	require.IsType(t, &protocol.FriendAddedResponse{}, added)

	req := waitEvent[*protocol.FriendRequestEvent](t, b)
	assert.Equal(t, "hi", req.Message)
	resp := call(t, b, &protocol.AddFriendNorequestRequest{ToxID: crypto.PublicKey(req.PublicKey).String()})
	require.IsType(t, &protocol.FriendAddedResponse{}, resp)

	waitEvent[*protocol.FriendConnectionStatusEvent](t, a)
	waitEvent[*protocol.FriendConnectionStatusEvent](t, b)
	return added.(*protocol.FriendAddedResponse).Friend
}

func TestPipelineOrder(t *testing.T) {
	node, _ := start(t, newNetwork())
	s := open(t, node)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	requests := []protocol.Request{
		&protocol.SetNameRequest{Name: "Alice"},
		&protocol.GetNameRequest{},
		&protocol.SetStatusMessageRequest{StatusMessage: "here"},
		&protocol.GetStatusMessageRequest{},
		&protocol.DeleteFriendRequest{Friend: 5},
		&protocol.GetFriendNameRequest{Friend: 5},
	}
	for _, req := range requests {
		require.NoError(t, s.Submit(ctx, req))
	}

	var responses []protocol.Response
	for len(responses) < len(requests) {
		m, err := s.Next(ctx)
		require.NoError(t, err)
		if m.Response != nil {
			responses = append(responses, m.Response)
		}
	}
	assert.Equal(t, []protocol.Response{
		&protocol.OkResponse{},
		&protocol.NameResponse{Name: "Alice"},
		&protocol.OkResponse{},
		&protocol.StatusMessageResponse{StatusMessage: "here"},
		&protocol.FriendNotFoundErrorResponse{},
		&protocol.FriendNotFoundErrorResponse{},
	}, responses)
}

// Callbacks raised while AddFriendNorequest runs are flushed to the session
// before its response.
func TestEventsPrecedeTheirResponse(t *testing.T) {
	net := newNetwork()
	alice, _ := start(t, net)
	bob, _ := start(t, net)
	a, b := open(t, alice), open(t, bob)

	addr := call(t, b, &protocol.GetAddressRequest{}).(*protocol.AddressResponse).ToxID
	require.IsType(t, &protocol.FriendAddedResponse{}, call(t, a, &protocol.AddFriendRequest{ToxID: addr, Message: "hi"}))
	req := waitEvent[*protocol.FriendRequestEvent](t, b)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	require.NoError(t, b.Submit(ctx, &protocol.AddFriendNorequestRequest{ToxID: crypto.PublicKey(req.PublicKey).String()}))

	var frames []string
	for {
		m, err := b.Next(ctx)
		require.NoError(t, err)
		if m.Response != nil {
			frames = append(frames, m.Response.ResponseName())
			break
		}
		if _, self := m.Event.(*protocol.ConnectionStatusEvent); self {
			continue
		}
		frames = append(frames, m.Event.EventName())
	}
	assert.Equal(t, []string{
		"FriendConnectionStatus",
		"FriendName",
		"FriendStatusMessage",
		"FriendStatus",
		"FriendAdded",
	}, frames)
}

func TestMalformedFrames(t *testing.T) {
	node, _ := start(t, newNetwork())
	s := open(t, node)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	frames := map[string]protocol.MalformedReason{
		`not json`:                           protocol.MalformedInvalidJSON,
		`{"request":"Teleport"}`:             protocol.MalformedUnknownRequest,
		`{"request":"SetName"}`:              protocol.MalformedMissingField,
		`{"request":"SetStatus","status":7}`: protocol.MalformedInvalidValue,
	}
	for frame, reason := range frames {
		require.NoError(t, s.HandleFrame(ctx, []byte(frame)))
		m, err := s.Next(ctx)
		require.NoError(t, err)
		for m.Response == nil {
			m, err = s.Next(ctx)
			require.NoError(t, err)
		}
		assert.Equal(t, &protocol.MalformedRequestResponse{Error: reason}, m.Response, frame)
	}

	require.NoError(t, s.HandleFrame(ctx, []byte(`{"request":"GetName"}`)))
	m, err := s.Next(ctx)
	require.NoError(t, err)
	for m.Response == nil {
		m, err = s.Next(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, &protocol.NameResponse{Name: ""}, m.Response)
}

type bogusRequest struct{}

func (bogusRequest) RequestName() string { return "Bogus" }

func TestUnknownRequestType(t *testing.T) {
	node, _ := start(t, newNetwork())
	s := open(t, node)
	assert.Equal(t, unknownRequest, call(t, s, bogusRequest{}))
}

func TestAddFriendErrors(t *testing.T) {
	node, _ := start(t, newNetwork())
	s := open(t, node)
	own := call(t, s, &protocol.GetAddressRequest{}).(*protocol.AddressResponse).ToxID

	peer, err := newNetwork().NewNode()
	require.NoError(t, err)
	other := peer.Address().String()

	assert.Equal(t, &protocol.AddFriendErrorResponse{Error: protocol.AddFriendNoMessage},
		call(t, s, &protocol.AddFriendRequest{ToxID: other, Message: ""}))
	assert.Equal(t, &protocol.AddFriendErrorResponse{Error: protocol.AddFriendOwnKey},
		call(t, s, &protocol.AddFriendRequest{ToxID: own, Message: "me"}))

	resp := call(t, s, &protocol.AddFriendNorequestRequest{ToxID: other})
	assert.IsType(t, &protocol.FriendAddedResponse{}, resp, "no message checks without a request")
}

func TestMessagingBetweenBridges(t *testing.T) {
	net := newNetwork()
	alice, _ := start(t, net)
	bob, _ := start(t, net)
	as, bs := open(t, alice), open(t, bob)

	bobOnAlice := befriend(t, as, bs)

	resp := call(t, as, &protocol.SendFriendMessageRequest{Friend: bobOnAlice, Kind: protocol.MessageNormal, Message: "hello"})
	assert.Equal(t, &protocol.MessageSentResponse{MessageID: 1}, resp)

	msg := waitEvent[*protocol.FriendMessageEvent](t, bs)
	assert.Equal(t, "hello", msg.Message)
	assert.Equal(t, protocol.MessageNormal, msg.Kind)

	receipt := waitEvent[*protocol.FriendReadReceiptEvent](t, as)
	assert.Equal(t, &protocol.FriendReadReceiptEvent{Friend: bobOnAlice, MessageID: 1}, receipt)

	info := call(t, as, &protocol.InfoRequest{}).(*protocol.InfoResponse)
	require.Len(t, info.Friends, 1)
	again := call(t, as, &protocol.InfoRequest{}).(*protocol.InfoResponse)
	assert.GreaterOrEqual(t, again.Friends[0].LastOnline, info.Friends[0].LastOnline)
	info.Friends[0].LastOnline, again.Friends[0].LastOnline = 0, 0
	assert.Equal(t, info, again)
}

func TestFileTransferBetweenBridges(t *testing.T) {
	net := newNetwork()
	alice, _ := start(t, net)
	bob, _ := start(t, net)
	as, bs := open(t, alice), open(t, bob)

	// occupy friend numbers 0-2 with nodes that never come online
	for i := 0; i < 3; i++ {
		idle, err := net.NewNode()
		require.NoError(t, err)
		call(t, as, &protocol.AddFriendNorequestRequest{ToxID: idle.SelfPublicKey().String()})
	}
	friend := befriend(t, as, bs)
	require.Equal(t, uint32(3), friend)

	resp := call(t, as, &protocol.SendFileRequest{Friend: 3, Kind: protocol.FileKindData, FileSize: 100, FileName: "a"})
	n := resp.(*protocol.FileNumberResponse).FileNumber

	receipt := waitEvent[*protocol.FileReceiptEvent](t, bs)
	assert.Equal(t, uint64(100), receipt.FileSize)
	assert.Equal(t, &protocol.OkResponse{}, call(t, bs, &protocol.ControlFileRequest{
		Friend: receipt.Friend, FileNumber: receipt.FileNumber, Control: protocol.FileControlResume,
	}))

	payload := bytes.Repeat([]byte("x"), 100)
	assert.Equal(t, &protocol.FileChunkRequestEvent{Friend: 3, FileNumber: n, Position: 0, Length: 64},
		waitEvent[*protocol.FileChunkRequestEvent](t, as))
	assert.Equal(t, &protocol.OkResponse{}, call(t, as, &protocol.SendFileChunkRequest{Friend: 3, FileNumber: n, Position: 0, Data: payload[:64]}))

	assert.Equal(t, &protocol.FileChunkRequestEvent{Friend: 3, FileNumber: n, Position: 64, Length: 36},
		waitEvent[*protocol.FileChunkRequestEvent](t, as))
	assert.Equal(t, &protocol.OkResponse{}, call(t, as, &protocol.SendFileChunkRequest{Friend: 3, FileNumber: n, Position: 64, Data: payload[64:]}))

	assert.Equal(t, &protocol.FileChunkRequestEvent{Friend: 3, FileNumber: n, Position: 100, Length: 0},
		waitEvent[*protocol.FileChunkRequestEvent](t, as))
	assert.Equal(t, &protocol.GetFileIdErrorResponse{Error: protocol.GetFileIdNotFound},
		call(t, as, &protocol.GetFileIdRequest{Friend: 3, FileNumber: n}))

	var received []byte
	for {
		chunk := waitEvent[*protocol.FileChunkReceiptEvent](t, bs)
		if len(chunk.Data) == 0 {
			break
		}
		assert.Equal(t, uint64(len(received)), chunk.Position)
		received = append(received, chunk.Data...)
	}
	assert.Equal(t, payload, received)
}

func TestConferenceBetweenBridges(t *testing.T) {
	net := newNetwork()
	alice, _ := start(t, net)
	bob, _ := start(t, net)
	as, bs := open(t, alice), open(t, bob)
	friend := befriend(t, as, bs)

	conf := call(t, as, &protocol.NewConferenceRequest{}).(*protocol.ConferenceResponse).Conference
	assert.Equal(t, &protocol.OkResponse{}, call(t, as, &protocol.InviteToConferenceRequest{Friend: friend, Conference: conf}))

	invite := waitEvent[*protocol.ConferenceInviteEvent](t, bs)
	joined := call(t, bs, &protocol.JoinConferenceRequest{Friend: invite.Friend, Cookie: invite.Cookie})
	require.IsType(t, &protocol.ConferenceResponse{}, joined)
	number := joined.(*protocol.ConferenceResponse).Conference

	waitEvent[*protocol.ConferenceConnectedEvent](t, bs)
	count := call(t, bs, &protocol.ConferencePeerCountRequest{Conference: number}).(*protocol.PeerCountResponse)
	list := call(t, bs, &protocol.GetPeerListRequest{Conference: number}).(*protocol.PeerListResponse)
	assert.Equal(t, int(count.Count), len(list.Peers))

	assert.Equal(t, &protocol.OkResponse{}, call(t, bs, &protocol.SendConferenceMessageRequest{Conference: number, Kind: protocol.MessageAction, Message: "waves"}))
	msg := waitEvent[*protocol.ConferenceMessageEvent](t, as)
	assert.Equal(t, "waves", msg.Message)
	assert.Equal(t, conf, msg.Conference)
}

func TestBacklogGoesToFirstSession(t *testing.T) {
	node, _ := start(t, newNetwork())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	// a call runs after the first iteration, which reports the connection
	_, err := node.Info(ctx)
	require.NoError(t, err)

	s := open(t, node)
	m, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, &protocol.ConnectionStatusEvent{Status: protocol.ConnectionUDP}, m.Event)
}

func TestSessionsShareEvents(t *testing.T) {
	net := newNetwork()
	alice, _ := start(t, net)
	bob, _ := start(t, net)
	first, second := open(t, alice), open(t, alice)
	bs := open(t, bob)

	befriend(t, first, bs)
	waitEvent[*protocol.FriendConnectionStatusEvent](t, second)

	// responses only go to the session that asked
	assert.Equal(t, &protocol.NameResponse{Name: ""}, call(t, second, &protocol.GetNameRequest{}))
	assert.Zero(t, countResponses(first))
}

func countResponses(s *Session) int {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	n := 0
	for {
		m, err := s.Next(ctx)
		if err != nil {
			return n
		}
		if m.Response != nil {
			n++
		}
	}
}

func TestInfo(t *testing.T) {
	node, stack := start(t, newNetwork())
	s := open(t, node)
	call(t, s, &protocol.SetNameRequest{Name: "Node"})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	info, err := node.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, stack.SelfPublicKey().String(), info.PublicKey)
	assert.Equal(t, stack.Address().String(), info.Address)
	assert.Equal(t, "Node", info.Name)
	assert.Equal(t, 1, info.Sessions)
}

// failingStack breaks on demand like a stack that lost its state
type failingStack struct {
	*simnet.Node
	broken atomic.Bool
}

func (f *failingStack) Iterate(ctx context.Context) error {
	if f.broken.Load() {
		return errors.New("stack not initialized")
	}
	return f.Node.Iterate(ctx)
}

func TestStackFailureClosesSessions(t *testing.T) {
	inner, err := newNetwork().NewNode()
	require.NoError(t, err)
	stack := &failingStack{Node: inner}

	node, err := New(stack, &Config{Nospam: inner.Nospam()})
	require.NoError(t, err)
	result := make(chan error, 1)
	go func() { result <- node.Run(context.Background()) }()

	s, err := node.Open()
	require.NoError(t, err)
	call(t, s, &protocol.GetNameRequest{})

	stack.broken.Store(true)
	select {
	case err := <-result:
		assert.ErrorContains(t, err, "stack not initialized")
	case <-time.After(timeout):
		t.Fatal("loop did not stop")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for {
		if _, err := s.Next(ctx); err != nil {
			assert.ErrorIs(t, err, events.ErrClosed)
			break
		}
	}
	assert.ErrorIs(t, s.Submit(ctx, &protocol.GetNameRequest{}), ErrStopped)
	assert.Error(t, node.Err())
	_, err = node.Open()
	assert.ErrorIs(t, err, ErrStopped)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	stack, err := newNetwork().NewNode()
	require.NoError(t, err)
	node, err := New(stack, &Config{Nospam: stack.Nospam(), Metrics: NewMetrics(reg)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = node.Run(ctx) }()

	s := open(t, node)
	call(t, s, &protocol.GetNameRequest{})
	require.NoError(t, s.HandleFrame(ctx, []byte(`{}`)))

	assert.Equal(t, 1.0, testutil.ToFloat64(node.metrics.Requests.WithLabelValues("GetName", "Name")))
	assert.Equal(t, 1.0, testutil.ToFloat64(node.metrics.Malformed.WithLabelValues(string(protocol.MalformedMissingField))))
	assert.Equal(t, 1.0, testutil.ToFloat64(node.metrics.Sessions))
}
