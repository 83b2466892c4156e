package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

var (
	requestTypes = index[Request](Request.RequestName,
		&InfoRequest{}, &SetInfoRequest{}, &GetNospamRequest{}, &SetNospamRequest{},
		&GetNameRequest{}, &SetNameRequest{}, &GetStatusRequest{}, &SetStatusRequest{},
		&GetStatusMessageRequest{}, &SetStatusMessageRequest{}, &GetPublicKeyRequest{},
		&GetAddressRequest{}, &GetConnectionStatusRequest{},
		&AddFriendRequest{}, &AddFriendNorequestRequest{}, &DeleteFriendRequest{},
		&FriendByPublicKeyRequest{}, &FriendExistsRequest{}, &GetFriendListRequest{},
		&GetFriendPublicKeyRequest{}, &GetFriendNameRequest{}, &GetFriendStatusRequest{},
		&GetFriendStatusMessageRequest{}, &GetFriendLastOnlineRequest{},
		&GetFriendConnectionStatusRequest{}, &SetTypingRequest{}, &SendFriendMessageRequest{},
		&NewConferenceRequest{}, &DeleteConferenceRequest{}, &ConferencePeerCountRequest{},
		&GetPeerListRequest{}, &GetPeerNameRequest{}, &GetPeerPublicKeyRequest{},
		&IsOwnPeerNumberRequest{}, &InviteToConferenceRequest{}, &JoinConferenceRequest{},
		&SendConferenceMessageRequest{}, &GetConferenceTitleRequest{},
		&SetConferenceTitleRequest{}, &GetConferenceListRequest{}, &GetConferenceTypeRequest{},
		&SendFileRequest{}, &SendAvatarRequest{}, &SendFileChunkRequest{},
		&ControlFileRequest{}, &SeekFileRequest{}, &GetFileIdRequest{},
	)

	responseTypes = index[Response](Response.ResponseName,
		&OkResponse{}, &MalformedRequestResponse{}, &FriendNotFoundErrorResponse{},
		&ConferenceNotFoundErrorResponse{},
		&InfoResponse{}, &NospamResponse{}, &NameResponse{}, &StatusResponse{},
		&StatusMessageResponse{}, &PublicKeyResponse{}, &AddressResponse{},
		&ConnectionStatusResponse{}, &SetInfoErrorResponse{},
		&FriendAddedResponse{}, &AddFriendErrorResponse{}, &FriendResponse{},
		&FriendExistsResponse{}, &FriendListResponse{}, &LastOnlineResponse{},
		&MessageSentResponse{}, &SendFriendMessageErrorResponse{},
		&ConferenceResponse{}, &ConferenceListResponse{}, &ConferenceTypeResponse{},
		&PeerCountResponse{}, &PeerListResponse{}, &IsOwnPeerResponse{}, &TitleResponse{},
		&ConferenceInviteErrorResponse{}, &ConferenceJoinErrorResponse{},
		&ConferencePeerQueryErrorResponse{}, &ConferenceSendErrorResponse{},
		&ConferenceTitleErrorResponse{},
		&FileNumberResponse{}, &FileIdResponse{}, &SendFileErrorResponse{},
		&SendFileChunkErrorResponse{}, &ControlFileErrorResponse{}, &SeekFileErrorResponse{},
		&GetFileIdErrorResponse{},
	)

	eventTypes = index[Event](Event.EventName,
		&ConnectionStatusEvent{}, &FriendRequestEvent{}, &FriendMessageEvent{},
		&FriendNameEvent{}, &FriendStatusMessageEvent{}, &FriendStatusEvent{},
		&FriendConnectionStatusEvent{}, &FriendTypingEvent{}, &FriendReadReceiptEvent{},
		&ConferenceInviteEvent{}, &ConferenceConnectedEvent{}, &ConferenceMessageEvent{},
		&ConferenceTitleEvent{}, &ConferencePeerNameEvent{}, &ConferencePeerListChangedEvent{},
		&FileReceiptEvent{}, &FileChunkRequestEvent{}, &FileChunkReceiptEvent{},
		&FileControlReceiptEvent{},
	)
)

func index[T any](name func(T) string, protos ...T) map[string]reflect.Type {
	types := make(map[string]reflect.Type, len(protos))
	for _, p := range protos {
		types[name(p)] = reflect.TypeOf(p).Elem()
	}
	return types
}

// DecodeError describes a frame that could not be decoded
type DecodeError struct {
	Reason MalformedReason
	Field  string
	cause  error
}

func (e *DecodeError) Error() string {
	msg := "malformed message: " + string(e.Reason)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %q)", e.Field)
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Cause returns the underlying json error, if any
func (e *DecodeError) Cause() error { return e.cause }

func (e *DecodeError) Unwrap() error { return e.cause }

// Malformed builds the generic rejection for a decode failure
func Malformed(err error) *MalformedRequestResponse {
	var de *DecodeError
	if errors.As(err, &de) {
		return &MalformedRequestResponse{Error: de.Reason}
	}
	return &MalformedRequestResponse{Error: MalformedInvalidJSON}
}

// DecodeRequest decodes one client frame. The returned value is always a
// pointer to one of the request structs of this package.
func DecodeRequest(data []byte) (Request, error) {
	v, err := decode(data, KeyRequest, requestTypes)
	if err != nil {
		return nil, err
	}
	return v.(Request), nil
}

// DecodeResponse decodes a response frame, for clients of the bridge
func DecodeResponse(data []byte) (Response, error) {
	v, err := decode(data, KeyResponse, responseTypes)
	if err != nil {
		return nil, err
	}
	return v.(Response), nil
}

// DecodeEvent decodes an event frame, for clients of the bridge
func DecodeEvent(data []byte) (Event, error) {
	v, err := decode(data, KeyEvent, eventTypes)
	if err != nil {
		return nil, err
	}
	return v.(Event), nil
}

// DecodeServerMessage decodes a frame sent by the bridge. Exactly one of the
// returned Response and Event is non-nil on success.
func DecodeServerMessage(data []byte) (Response, Event, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, nil, &DecodeError{Reason: MalformedInvalidJSON, cause: err}
	}
	if _, ok := probe[KeyEvent]; ok {
		ev, err := DecodeEvent(data)
		return nil, ev, err
	}
	resp, err := DecodeResponse(data)
	return resp, nil, err
}

// EncodeRequest encodes a request frame, for clients of the bridge
func EncodeRequest(r Request) ([]byte, error) {
	return encode(KeyRequest, r.RequestName(), r)
}

// EncodeResponse encodes a response frame
func EncodeResponse(r Response) ([]byte, error) {
	return encode(KeyResponse, r.ResponseName(), r)
}

// EncodeEvent encodes an event frame
func EncodeEvent(e Event) ([]byte, error) {
	return encode(KeyEvent, e.EventName(), e)
}

// encode marshals v and puts the discriminant first
func encode(key, name string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s", name)
	}
	tag, err := json.Marshal(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s", name)
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(key) + len(tag) + 4)
	buf.WriteString(`{"`)
	buf.WriteString(key)
	buf.WriteString(`":`)
	buf.Write(tag)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

func decode(data []byte, key string, types map[string]reflect.Type) (any, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &DecodeError{Reason: MalformedInvalidJSON, cause: err}
	}
	raw, ok := fields[key]
	if !ok {
		return nil, &DecodeError{Reason: MalformedMissingField, Field: key}
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return nil, &DecodeError{Reason: MalformedInvalidValue, Field: key, cause: err}
	}
	typ, ok := types[name]
	if !ok {
		return nil, &DecodeError{Reason: MalformedUnknownRequest, Field: key,
			cause: errors.Errorf("unknown %s %q", key, name)}
	}

	if err := requireFields(typ, fields); err != nil {
		return nil, err
	}
	ptr := reflect.New(typ)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		de := &DecodeError{Reason: MalformedInvalidValue, cause: err}
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			de.Field = te.Field
		}
		return nil, de
	}
	if err := validate(ptr.Elem(), ""); err != nil {
		return nil, err
	}
	return ptr.Interface(), nil
}

// requireFields checks that every field without omitempty is present.
// An explicit null counts as missing except for slices.
func requireFields(typ reflect.Type, fields map[string]json.RawMessage) error {
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		name, optional := jsonName(f)
		if name == "" || optional {
			continue
		}
		raw, ok := fields[name]
		if !ok || (f.Type.Kind() != reflect.Slice && bytes.Equal(bytes.TrimSpace(raw), []byte("null"))) {
			return &DecodeError{Reason: MalformedMissingField, Field: name}
		}
	}
	return nil
}

// validate walks v and rejects any enumeration holding an unknown value
func validate(v reflect.Value, path string) error {
	if e, ok := v.Interface().(enum); ok && v.Kind() == reflect.String {
		if !e.Valid() {
			return &DecodeError{Reason: MalformedInvalidValue, Field: path,
				cause: errors.Errorf("unexpected value %q", v.String())}
		}
		return nil
	}

	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			name, _ := jsonName(t.Field(i))
			if name == "" {
				continue
			}
			if err := validate(v.Field(i), join(path, name)); err != nil {
				return err
			}
		}
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := validate(v.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func jsonName(f reflect.StructField) (name string, optional bool) {
	if !f.IsExported() {
		return "", false
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, strings.Contains(opts, "omitempty")
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
