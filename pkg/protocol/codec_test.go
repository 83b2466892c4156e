package protocol

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Request
	}{
		{
			name:  "no fields",
			frame: `{"request":"Info"}`,
			want:  &InfoRequest{},
		},
		{
			name:  "add friend",
			frame: `{"request":"AddFriend","tox_id":"AB","message":"hi"}`,
			want:  &AddFriendRequest{ToxID: "AB", Message: "hi"},
		},
		{
			name:  "enum field",
			frame: `{"request":"SendFriendMessage","friend":2,"kind":"Action","message":"waves"}`,
			want:  &SendFriendMessageRequest{Friend: 2, Kind: MessageAction, Message: "waves"},
		},
		{
			name:  "base64 chunk",
			frame: `{"request":"SendFileChunk","friend":3,"file_number":0,"position":64,"data":"aGk="}`,
			want:  &SendFileChunkRequest{Friend: 3, FileNumber: 0, Position: 64, Data: []byte("hi")},
		},
		{
			name:  "unknown fields ignored",
			frame: `{"request":"SetNospam","nospam":7,"extra":true}`,
			want:  &SetNospamRequest{Nospam: 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequest([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRequestMalformed(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  MalformedReason
	}{
		{"not json", `{"request":`, MalformedInvalidJSON},
		{"not an object", `[1,2]`, MalformedInvalidJSON},
		{"no discriminant", `{"friend":1}`, MalformedMissingField},
		{"discriminant not a string", `{"request":5}`, MalformedInvalidValue},
		{"unknown request", `{"request":"Teleport"}`, MalformedUnknownRequest},
		{"missing field", `{"request":"AddFriend","tox_id":"AB"}`, MalformedMissingField},
		{"null field", `{"request":"SetName","name":null}`, MalformedMissingField},
		{"wrong type", `{"request":"DeleteFriend","friend":"five"}`, MalformedInvalidValue},
		{"negative number", `{"request":"DeleteFriend","friend":-1}`, MalformedInvalidValue},
		{"bad enum", `{"request":"SetStatus","status":"Asleep"}`, MalformedInvalidValue},
		{"bad control", `{"request":"ControlFile","friend":0,"file_number":0,"control":"Stop"}`, MalformedInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(tt.frame))
			require.Error(t, err)

			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.want, de.Reason)
			assert.Equal(t, tt.want, Malformed(err).Error)
		})
	}
}

func TestEncodeResponse(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want string
	}{
		{"bare ok", &OkResponse{}, `{"response":"Ok"}`},
		{"value receiver", FriendNotFoundErrorResponse{}, `{"response":"FriendNotFoundError"}`},
		{"with field", &FriendAddedResponse{Friend: 3}, `{"response":"FriendAdded","friend":3}`},
		{"error enum", &AddFriendErrorResponse{Error: AddFriendOwnKey}, `{"response":"AddFriendError","error":"OwnKey"}`},
		{"malformed", Malformed(nil), `{"response":"MalformedRequest","error":"InvalidJson"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeResponse(tt.resp)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
			assert.Regexp(t, `^\{"response":`, string(got))
		})
	}
}

func TestEncodeEvent(t *testing.T) {
	var pk [32]byte
	pk[0] = 0xFF
	pk[31] = 1

	data, err := EncodeEvent(&FriendRequestEvent{PublicKey: pk, Message: "hello"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FriendRequest", decoded["event"])

	key, ok := decoded["public_key"].([]any)
	require.True(t, ok, "public key must be a number array")
	require.Len(t, key, 32)
	assert.Equal(t, float64(255), key[0])
	assert.Equal(t, float64(1), key[31])

	data, err = EncodeEvent(&FileChunkReceiptEvent{Friend: 1, FileNumber: 1 << 16, Position: 4, Data: []byte{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"FileChunkReceipt","friend":1,"file_number":65536,"position":4,"data":""}`, string(data))
}

func TestDecodeServerMessage(t *testing.T) {
	resp, ev, err := DecodeServerMessage([]byte(`{"response":"MessageSent","message_id":9}`))
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.Equal(t, &MessageSentResponse{MessageID: 9}, resp)

	resp, ev, err = DecodeServerMessage([]byte(`{"event":"FriendTyping","friend":1,"is_typing":true}`))
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, &FriendTypingEvent{Friend: 1, IsTyping: true}, ev)

	_, _, err = DecodeServerMessage([]byte(`{"response":"Info","tox_id":"","name":"","status":"Gone","status_message":"","friends":[]}`))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, MalformedInvalidValue, de.Reason)
}

func TestNestedEnumValidation(t *testing.T) {
	frame := `{"response":"FriendList","friends":[{"number":0,"public_key":"","name":"","status":"Idle","status_message":"","last_online":0}]}`

	_, err := DecodeResponse([]byte(frame))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, MalformedInvalidValue, de.Reason)
	assert.Equal(t, "friends[0].status", de.Field)
}

func TestRequestRoundTrip(t *testing.T) {
	req := &SetInfoRequest{Name: "Alice", Status: UserStatusBusy, StatusMessage: "coding"}

	data, err := EncodeRequest(req)
	require.NoError(t, err)

	got, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestRegisteredNames(t *testing.T) {
	for name, typ := range requestTypes {
		v := newValue(typ)
		r, ok := v.(Request)
		require.True(t, ok, name)
		assert.Equal(t, name, r.RequestName())
	}
	for name, typ := range responseTypes {
		r, ok := newValue(typ).(Response)
		require.True(t, ok, name)
		assert.Equal(t, name, r.ResponseName())
	}
	for name, typ := range eventTypes {
		e, ok := newValue(typ).(Event)
		require.True(t, ok, name)
		assert.Equal(t, name, e.EventName())
	}

	assert.Len(t, requestTypes, 47)
	assert.Len(t, eventTypes, 19)
}

func newValue(typ reflect.Type) any {
	return reflect.New(typ).Interface()
}
