// Package protocol implements the toxbridge client message protocol.
//
// A bridge exposes one Tox identity to local client programs over a single
// channel of JSON text frames. Three kinds of message share the channel:
//
//   - Requests, sent by the client, discriminated by the "request" field
//   - Responses, sent by the bridge, discriminated by the "response" field
//   - Events, pushed by the bridge, discriminated by the "event" field
//
// # Correlation
//
// Requests carry no correlation identifier. A client must not send request
// N+1 before it has read the response to request N; the bridge answers every
// request with exactly one response, in order. Events may arrive at any time,
// including between a request and its response.
//
// # Error Taxonomy
//
// A response is either a content-bearing success variant, the bare "Ok"
// acknowledgment, or a named error variant whose "error" field is a closed
// enumeration specific to the failing operation. Operations without a
// dedicated error variant fail with "FriendNotFoundError" or
// "ConferenceNotFoundError".
//
// Frames that cannot be decoded (invalid JSON, unknown discriminant, missing
// field, out-of-range value) are answered with "MalformedRequest".
//
// # Binary Content
//
// Public keys, addresses and file ids are upper-case hex strings. Chunk data
// is base64. The public key of a FriendRequest event is an array of 32
// numbers.
//
// # Usage Example
//
//	req, err := protocol.DecodeRequest(frame)
//	if err != nil {
//	    out, _ := protocol.EncodeResponse(protocol.Malformed(err))
//	    conn.Write(out)
//	    return
//	}
//
//	switch r := req.(type) {
//	case *protocol.SetNameRequest:
//	    // ...
//	}
package protocol
