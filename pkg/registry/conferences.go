package registry

import (
	"encoding/hex"
	"sort"
	"strings"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// CookieSize is the decoded length of a conference invite cookie
const CookieSize = 1 + toxnet.ConferenceIDSize

type conference struct {
	number    uint32
	id        toxnet.ConferenceID
	kind      protocol.ConferenceType
	title     string
	peers     []toxnet.Peer
	connected bool
}

// Conferences is the conference registry. Peer numbers are positions in
// the peer list last reported by the stack.
type Conferences struct {
	stack   toxnet.Stack
	friends *Friends
	emit    Emitter

	next     uint32
	byNumber map[uint32]*conference
	byID     map[toxnet.ConferenceID]uint32
}

func NewConferences(stack toxnet.Stack, friends *Friends, emit Emitter) *Conferences {
	return &Conferences{
		stack:    stack,
		friends:  friends,
		emit:     emit,
		byNumber: make(map[uint32]*conference),
		byID:     make(map[toxnet.ConferenceID]uint32),
	}
}

// Count returns the number of conferences
func (r *Conferences) Count() int {
	return len(r.byNumber)
}

func (r *Conferences) insert(c *conference) {
	c.number = r.next
	r.next++
	r.byNumber[c.number] = c
	r.byID[c.id] = c.number
}

// EncodeCookie builds the invite token for a conference
func EncodeCookie(kind protocol.ConferenceType, id toxnet.ConferenceID) string {
	raw := make([]byte, 0, CookieSize)
	if kind == protocol.ConferenceAV {
		raw = append(raw, 1)
	} else {
		raw = append(raw, 0)
	}
	raw = append(raw, id[:]...)
	return strings.ToUpper(hex.EncodeToString(raw))
}

// DecodeCookie parses an invite token produced by EncodeCookie
func DecodeCookie(cookie string) (protocol.ConferenceType, toxnet.ConferenceID, protocol.ConferenceJoinError, bool) {
	var id toxnet.ConferenceID
	raw, err := hex.DecodeString(cookie)
	if err != nil || len(raw) != CookieSize {
		return "", id, protocol.ConferenceJoinInvalidLength, false
	}
	var kind protocol.ConferenceType
	switch raw[0] {
	case 0:
		kind = protocol.ConferenceText
	case 1:
		kind = protocol.ConferenceAV
	default:
		return "", id, protocol.ConferenceJoinWrongType, false
	}
	copy(id[:], raw[1:])
	return kind, id, "", true
}

// ===== REQUESTS =====

func (r *Conferences) NewConference() (protocol.Response, error) {
	id, err := r.stack.NewConference(protocol.ConferenceText)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create conference")
	}
	self, _ := r.friends.Self()
	c := &conference{
		id:        id,
		kind:      protocol.ConferenceText,
		peers:     []toxnet.Peer{{PublicKey: self}},
		connected: true,
	}
	r.insert(c)
	jww.INFO.Printf("Created conference %d (%s)", c.number, id.String()[:8])
	return &protocol.ConferenceResponse{Conference: c.number}, nil
}

func (r *Conferences) DeleteConference(req *protocol.DeleteConferenceRequest) (protocol.Response, error) {
	c, found := r.byNumber[req.Conference]
	if !found {
		return conferenceNotFound, nil
	}
	if err := r.stack.LeaveConference(c.id); err != nil && !toxnet.IsDomain(err) {
		return nil, errors.Wrapf(err, "failed to leave conference %d", c.number)
	}
	delete(r.byNumber, c.number)
	delete(r.byID, c.id)
	return okResponse, nil
}

func (r *Conferences) ConferencePeerCount(req *protocol.ConferencePeerCountRequest) protocol.Response {
	c, failure := r.queryable(req.Conference)
	if failure != nil {
		return failure
	}
	return &protocol.PeerCountResponse{Count: uint32(len(c.peers))}
}

func (r *Conferences) GetPeerList(req *protocol.GetPeerListRequest) protocol.Response {
	c, failure := r.queryable(req.Conference)
	if failure != nil {
		return failure
	}
	peers := make([]protocol.Peer, 0, len(c.peers))
	for i := range c.peers {
		peers = append(peers, r.peer(c, uint32(i)))
	}
	return &protocol.PeerListResponse{Peers: peers}
}

func (r *Conferences) GetPeerName(req *protocol.GetPeerNameRequest) protocol.Response {
	c, failure := r.queryable(req.Conference)
	if failure != nil {
		return failure
	}
	if int(req.Peer) >= len(c.peers) {
		return peerQueryError(protocol.ConferencePeerQueryPeerNotFound)
	}
	return &protocol.NameResponse{Name: r.peer(c, req.Peer).Name}
}

func (r *Conferences) GetPeerPublicKey(req *protocol.GetPeerPublicKeyRequest) protocol.Response {
	c, failure := r.queryable(req.Conference)
	if failure != nil {
		return failure
	}
	if int(req.Peer) >= len(c.peers) {
		return peerQueryError(protocol.ConferencePeerQueryPeerNotFound)
	}
	return &protocol.PublicKeyResponse{PublicKey: c.peers[req.Peer].PublicKey.String()}
}

func (r *Conferences) IsOwnPeerNumber(req *protocol.IsOwnPeerNumberRequest) protocol.Response {
	c, failure := r.queryable(req.Conference)
	if failure != nil {
		return failure
	}
	if int(req.PeerNumber) >= len(c.peers) {
		return peerQueryError(protocol.ConferencePeerQueryPeerNotFound)
	}
	self, _ := r.friends.Self()
	return &protocol.IsOwnPeerResponse{IsOwn: c.peers[req.PeerNumber].PublicKey == self}
}

// queryable resolves a conference for a peer query
func (r *Conferences) queryable(number uint32) (*conference, protocol.Response) {
	c, found := r.byNumber[number]
	if !found {
		return nil, peerQueryError(protocol.ConferencePeerQueryConferenceNotFound)
	}
	if !c.connected {
		return nil, peerQueryError(protocol.ConferencePeerQueryNoConnection)
	}
	return c, nil
}

// peer renders peer i. The own entry always carries the current own name.
func (r *Conferences) peer(c *conference, i uint32) protocol.Peer {
	p := c.peers[i]
	name := p.Name
	if self, ownName := r.friends.Self(); p.PublicKey == self {
		name = ownName
	}
	return protocol.Peer{Number: i, PublicKey: p.PublicKey.String(), Name: name}
}

func (r *Conferences) InviteToConference(req *protocol.InviteToConferenceRequest) (protocol.Response, error) {
	pk, connected, found := r.friends.Lookup(req.Friend)
	if !found {
		return friendNotFound, nil
	}
	c, found := r.byNumber[req.Conference]
	if !found {
		return inviteError(protocol.ConferenceInviteConferenceNotFound), nil
	}
	if !connected {
		return inviteError(protocol.ConferenceInviteNoConnection), nil
	}

	err := r.stack.InviteToConference(pk, c.id)
	switch {
	case err == nil:
		return okResponse, nil
	case errors.Is(err, toxnet.ErrNotConnected):
		return inviteError(protocol.ConferenceInviteNoConnection), nil
	case errors.Is(err, toxnet.ErrUnknownConference):
		return inviteError(protocol.ConferenceInviteConferenceNotFound), nil
	case toxnet.IsDomain(err):
		return inviteError(protocol.ConferenceInviteFailSend), nil
	}
	return nil, errors.Wrapf(err, "failed to invite friend %d", req.Friend)
}

func (r *Conferences) JoinConference(req *protocol.JoinConferenceRequest) (protocol.Response, error) {
	pk, _, found := r.friends.Lookup(req.Friend)
	if !found {
		return joinError(protocol.ConferenceJoinFriendNotFound), nil
	}
	kind, id, reason, valid := DecodeCookie(req.Cookie)
	if !valid {
		return joinError(reason), nil
	}
	// audio conferences have no join path here
	if kind != protocol.ConferenceText {
		return joinError(protocol.ConferenceJoinWrongType), nil
	}
	if _, dup := r.byID[id]; dup {
		return joinError(protocol.ConferenceJoinDuplicate), nil
	}

	err := r.stack.JoinConference(pk, kind, id)
	switch {
	case errors.Is(err, toxnet.ErrInitFail):
		return joinError(protocol.ConferenceJoinInitFail), nil
	case toxnet.IsDomain(err):
		return joinError(protocol.ConferenceJoinFailSend), nil
	case err != nil:
		return nil, errors.Wrapf(err, "failed to join conference via friend %d", req.Friend)
	}

	c := &conference{id: id, kind: kind}
	r.insert(c)
	jww.INFO.Printf("Joining conference %d via friend %d", c.number, req.Friend)
	return &protocol.ConferenceResponse{Conference: c.number}, nil
}

func (r *Conferences) SendConferenceMessage(req *protocol.SendConferenceMessageRequest) (protocol.Response, error) {
	c, found := r.byNumber[req.Conference]
	switch {
	case !found:
		return sendError(protocol.ConferenceSendConferenceNotFound), nil
	case len(req.Message) > protocol.MaxMessageLength:
		return sendError(protocol.ConferenceSendTooLong), nil
	case !c.connected:
		return sendError(protocol.ConferenceSendNoConnection), nil
	}

	err := r.stack.SendConferenceMessage(c.id, req.Kind, req.Message)
	switch {
	case err == nil:
		return okResponse, nil
	case errors.Is(err, toxnet.ErrNotConnected):
		return sendError(protocol.ConferenceSendNoConnection), nil
	case errors.Is(err, toxnet.ErrUnknownConference):
		return sendError(protocol.ConferenceSendConferenceNotFound), nil
	case toxnet.IsDomain(err):
		return sendError(protocol.ConferenceSendFailSend), nil
	}
	return nil, errors.Wrapf(err, "failed to send to conference %d", c.number)
}

func (r *Conferences) GetConferenceTitle(req *protocol.GetConferenceTitleRequest) protocol.Response {
	c, found := r.byNumber[req.Conference]
	if !found {
		return titleError(protocol.ConferenceTitleConferenceNotFound)
	}
	return &protocol.TitleResponse{Title: c.title}
}

func (r *Conferences) SetConferenceTitle(req *protocol.SetConferenceTitleRequest) (protocol.Response, error) {
	c, found := r.byNumber[req.Conference]
	if !found {
		return titleError(protocol.ConferenceTitleConferenceNotFound), nil
	}
	if req.Title == "" || len(req.Title) > protocol.MaxConferenceTitleLength {
		return titleError(protocol.ConferenceTitleInvalidLength), nil
	}

	err := r.stack.SetConferenceTitle(c.id, req.Title)
	switch {
	case errors.Is(err, toxnet.ErrUnknownConference):
		return titleError(protocol.ConferenceTitleConferenceNotFound), nil
	case toxnet.IsDomain(err):
		return titleError(protocol.ConferenceTitleFailSend), nil
	case err != nil:
		return nil, errors.Wrapf(err, "failed to set title of conference %d", c.number)
	}
	c.title = req.Title
	return okResponse, nil
}

func (r *Conferences) GetConferenceList() protocol.Response {
	numbers := make([]uint32, 0, len(r.byNumber))
	for n := range r.byNumber {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	return &protocol.ConferenceListResponse{Conferences: numbers}
}

func (r *Conferences) GetConferenceType(req *protocol.GetConferenceTypeRequest) protocol.Response {
	c, found := r.byNumber[req.Conference]
	if !found {
		return conferenceNotFound
	}
	return &protocol.ConferenceTypeResponse{Kind: c.kind}
}

func peerQueryError(e protocol.ConferencePeerQueryError) protocol.Response {
	return &protocol.ConferencePeerQueryErrorResponse{Error: e}
}

func inviteError(e protocol.ConferenceInviteError) protocol.Response {
	return &protocol.ConferenceInviteErrorResponse{Error: e}
}

func joinError(e protocol.ConferenceJoinError) protocol.Response {
	return &protocol.ConferenceJoinErrorResponse{Error: e}
}

func sendError(e protocol.ConferenceSendError) protocol.Response {
	return &protocol.ConferenceSendErrorResponse{Error: e}
}

func titleError(e protocol.ConferenceTitleError) protocol.Response {
	return &protocol.ConferenceTitleErrorResponse{Error: e}
}

// ===== CALLBACKS =====

// Handle applies a conference callback. It reports false for callbacks it
// does not own.
func (r *Conferences) Handle(cb toxnet.Callback) bool {
	switch c := cb.(type) {
	case toxnet.ConferenceInvite:
		number, found := r.friends.NumberOf(c.PublicKey)
		if !found {
			jww.WARN.Printf("Dropped conference invite from unknown friend %s", c.PublicKey.Short())
			break
		}
		r.emit(&protocol.ConferenceInviteEvent{Friend: number, Kind: c.Kind, Cookie: EncodeCookie(c.Kind, c.ID)})
	case toxnet.ConferenceConnected:
		if conf := r.known(c.ID); conf != nil {
			conf.connected = true
			r.emit(&protocol.ConferenceConnectedEvent{Conference: conf.number})
		}
	case toxnet.ConferenceMessage:
		if conf := r.known(c.ID); conf != nil {
			if peer, found := r.peerNumber(conf, c.Peer); found {
				r.emit(&protocol.ConferenceMessageEvent{Conference: conf.number, Peer: peer, Kind: c.Kind, Message: c.Text})
			}
		}
	case toxnet.ConferenceTitle:
		if conf := r.known(c.ID); conf != nil {
			conf.title = c.Title
			if peer, found := r.peerNumber(conf, c.Peer); found {
				r.emit(&protocol.ConferenceTitleEvent{Conference: conf.number, Peer: peer, Title: c.Title})
			}
		}
	case toxnet.ConferencePeerName:
		if conf := r.known(c.ID); conf != nil {
			if peer, found := r.peerNumber(conf, c.Peer); found {
				conf.peers[peer].Name = c.Name
				r.emit(&protocol.ConferencePeerNameEvent{Conference: conf.number, Peer: peer, Name: c.Name})
			}
		}
	case toxnet.ConferencePeerList:
		if conf := r.known(c.ID); conf != nil {
			conf.peers = append([]toxnet.Peer(nil), c.Peers...)
			r.emit(&protocol.ConferencePeerListChangedEvent{Conference: conf.number})
		}
	default:
		return false
	}
	return true
}

func (r *Conferences) known(id toxnet.ConferenceID) *conference {
	number, found := r.byID[id]
	if !found {
		jww.WARN.Printf("Dropped callback for unknown conference %s", id.String()[:8])
		return nil
	}
	return r.byNumber[number]
}

func (r *Conferences) peerNumber(c *conference, pk crypto.PublicKey) (uint32, bool) {
	for i, p := range c.peers {
		if p.PublicKey == pk {
			return uint32(i), true
		}
	}
	jww.WARN.Printf("Dropped callback for unknown peer %s in conference %d", pk.Short(), c.number)
	return 0, false
}
