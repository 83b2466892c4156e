package events

import (
	"context"
	"testing"
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxOrder(t *testing.T) {
	o := NewOutbox()
	for i := uint32(0); i < 100; i++ {
		require.True(t, o.Push(Message{Event: &protocol.FriendTypingEvent{Friend: i}}))
	}
	assert.Equal(t, 100, o.Len())

	ctx := context.Background()
	for i := uint32(0); i < 100; i++ {
		m, err := o.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, &protocol.FriendTypingEvent{Friend: i}, m.Event)
	}
	assert.Zero(t, o.Len())
}

func TestOutboxPopWaits(t *testing.T) {
	o := NewOutbox()
	got := make(chan Message, 1)
	go func() {
		m, err := o.Pop(context.Background())
		if err == nil {
			got <- m
		}
	}()

	time.Sleep(10 * time.Millisecond)
	o.Push(Message{Response: &protocol.OkResponse{}})

	select {
	case m := <-got:
		assert.Equal(t, &protocol.OkResponse{}, m.Response)
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake up")
	}
}

func TestOutboxClose(t *testing.T) {
	o := NewOutbox()
	o.Push(Message{Response: &protocol.OkResponse{}})
	o.Close()
	assert.False(t, o.Push(Message{Response: &protocol.OkResponse{}}))

	m, err := o.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &protocol.OkResponse{}, m.Response)

	_, err = o.Pop(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOutboxContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := NewOutbox().Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBroadcasterFanOut(t *testing.T) {
	b := NewBroadcaster()
	first, second := NewOutbox(), NewOutbox()
	b.Subscribe("a", first)
	b.Subscribe("b", second)
	assert.Equal(t, 2, b.Subscribers())

	b.Publish(&protocol.FriendTypingEvent{Friend: 1, IsTyping: true})
	b.Publish(&protocol.FriendTypingEvent{Friend: 1, IsTyping: true})

	assert.Equal(t, 2, first.Len(), "duplicates are kept")
	assert.Equal(t, 2, second.Len())

	b.Unsubscribe("b")
	b.Publish(&protocol.FriendTypingEvent{Friend: 2})
	assert.Equal(t, 3, first.Len())
	assert.Equal(t, 2, second.Len())
}

func TestBroadcasterBacklog(t *testing.T) {
	b := NewBroadcaster()
	b.Publish(&protocol.ConferenceConnectedEvent{Conference: 1})
	b.Publish(&protocol.ConferenceConnectedEvent{Conference: 2})
	assert.Equal(t, 2, b.Backlog())

	o := NewOutbox()
	b.Subscribe("late", o)
	assert.Zero(t, b.Backlog())

	ctx := context.Background()
	for _, want := range []uint32{1, 2} {
		m, err := o.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, &protocol.ConferenceConnectedEvent{Conference: want}, m.Event)
	}
}

func TestBroadcasterDropsClosedOutboxes(t *testing.T) {
	b := NewBroadcaster()
	o := NewOutbox()
	b.Subscribe("gone", o)
	o.Close()

	b.Publish(&protocol.ConferenceConnectedEvent{Conference: 1})
	assert.Zero(t, b.Subscribers())
}

func TestMessageEncode(t *testing.T) {
	data, err := Message{Response: &protocol.OkResponse{}}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"Ok"}`, string(data))

	data, err = Message{Event: &protocol.ConferenceConnectedEvent{Conference: 4}}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"ConferenceConnected","conference":4}`, string(data))

	_, err = Message{}.Encode()
	assert.Error(t, err)
}
