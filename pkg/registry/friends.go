package registry

import (
	"sort"
	"strings"
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/aquilax/truncate"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

type friend struct {
	number        uint32
	pk            crypto.PublicKey
	nospam        uint32
	name          string
	status        protocol.UserStatus
	statusMessage string
	conn          protocol.ConnectionStatus
	lastOnline    time.Time
	nextMessageID uint32
}

// Friends is the identity and friend list registry
type Friends struct {
	stack toxnet.Stack
	emit  Emitter
	cfg   *Config

	profile toxnet.Profile
	nospam  uint32
	conn    protocol.ConnectionStatus

	next     uint32
	byNumber map[uint32]*friend
	byKey    map[crypto.PublicKey]uint32

	removed []func(pk crypto.PublicKey)
}

// NewFriends creates an empty registry. The nospam starts at the value the
// caller already configured on the stack.
func NewFriends(stack toxnet.Stack, nospam uint32, emit Emitter, cfg *Config) *Friends {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Friends{
		stack:    stack,
		emit:     emit,
		cfg:      cfg,
		profile:  toxnet.Profile{Status: protocol.UserStatusNone},
		nospam:   nospam,
		conn:     protocol.ConnectionNone,
		byNumber: make(map[uint32]*friend),
		byKey:    make(map[crypto.PublicKey]uint32),
	}
}

// Restore loads a persisted state and re-registers every friend with the
// stack under its saved number
func (r *Friends) Restore(st State) error {
	r.profile = st.Profile
	if r.profile.Status == "" {
		r.profile.Status = protocol.UserStatusNone
	}
	r.nospam = st.Nospam
	r.stack.SetNospam(st.Nospam)
	if err := r.stack.SetProfile(r.profile); err != nil {
		return errors.Wrap(err, "failed to restore profile")
	}

	for _, sf := range st.Friends {
		if err := r.stack.AddFriendNorequest(sf.PublicKey); err != nil {
			return errors.Wrapf(err, "failed to restore friend %d", sf.Number)
		}
		status := sf.Status
		if status == "" {
			status = protocol.UserStatusNone
		}
		r.insert(&friend{
			number:        sf.Number,
			pk:            sf.PublicKey,
			nospam:        sf.Nospam,
			name:          sf.Name,
			status:        status,
			statusMessage: sf.StatusMessage,
			conn:          protocol.ConnectionNone,
			lastOnline:    sf.LastOnline,
			nextMessageID: 1,
		})
		if sf.Number >= r.next {
			r.next = sf.Number + 1
		}
	}
	jww.INFO.Printf("Restored profile %q with %d friends", r.profile.Name, len(st.Friends))
	return nil
}

// OnRemove registers fn to run whenever a friend is deleted
func (r *Friends) OnRemove(fn func(pk crypto.PublicKey)) {
	r.removed = append(r.removed, fn)
}

// Lookup resolves a friend number
func (r *Friends) Lookup(number uint32) (pk crypto.PublicKey, connected bool, found bool) {
	f, found := r.byNumber[number]
	if !found {
		return pk, false, false
	}
	return f.pk, f.conn != protocol.ConnectionNone, true
}

// NumberOf resolves a public key to a friend number
func (r *Friends) NumberOf(pk crypto.PublicKey) (uint32, bool) {
	n, found := r.byKey[pk]
	return n, found
}

// Self returns the own public key and name
func (r *Friends) Self() (crypto.PublicKey, string) {
	return r.stack.SelfPublicKey(), r.profile.Name
}

// Address returns the current shareable address
func (r *Friends) Address() crypto.Address {
	return crypto.NewAddress(r.stack.SelfPublicKey(), r.nospam)
}

// Count returns the number of friends
func (r *Friends) Count() int {
	return len(r.byNumber)
}

func (r *Friends) insert(f *friend) {
	r.byNumber[f.number] = f
	r.byKey[f.pk] = f.number
}

// ===== IDENTITY =====

func (r *Friends) Info() protocol.Response {
	return &protocol.InfoResponse{
		ToxID:         r.Address().String(),
		Name:          r.profile.Name,
		Status:        r.profile.Status,
		StatusMessage: r.profile.StatusMessage,
		Friends:       r.list(),
	}
}

func (r *Friends) SetInfo(req *protocol.SetInfoRequest) (protocol.Response, error) {
	if len(req.Name) > protocol.MaxNameLength || len(req.StatusMessage) > protocol.MaxStatusMessageLength {
		return &protocol.SetInfoErrorResponse{Error: protocol.SetInfoTooLong}, nil
	}
	return r.updateProfile(toxnet.Profile{Name: req.Name, Status: req.Status, StatusMessage: req.StatusMessage})
}

func (r *Friends) GetNospam() protocol.Response {
	return &protocol.NospamResponse{Nospam: r.nospam}
}

func (r *Friends) SetNospam(req *protocol.SetNospamRequest) protocol.Response {
	r.nospam = req.Nospam
	r.stack.SetNospam(req.Nospam)
	r.saveProfile()
	return okResponse
}

func (r *Friends) GetName() protocol.Response {
	return &protocol.NameResponse{Name: r.profile.Name}
}

func (r *Friends) SetName(req *protocol.SetNameRequest) (protocol.Response, error) {
	if len(req.Name) > protocol.MaxNameLength {
		return &protocol.SetInfoErrorResponse{Error: protocol.SetInfoTooLong}, nil
	}
	p := r.profile
	p.Name = req.Name
	return r.updateProfile(p)
}

func (r *Friends) GetStatus() protocol.Response {
	return &protocol.StatusResponse{Status: r.profile.Status}
}

func (r *Friends) SetStatus(req *protocol.SetStatusRequest) (protocol.Response, error) {
	p := r.profile
	p.Status = req.Status
	return r.updateProfile(p)
}

func (r *Friends) GetStatusMessage() protocol.Response {
	return &protocol.StatusMessageResponse{StatusMessage: r.profile.StatusMessage}
}

func (r *Friends) SetStatusMessage(req *protocol.SetStatusMessageRequest) (protocol.Response, error) {
	if len(req.StatusMessage) > protocol.MaxStatusMessageLength {
		return &protocol.SetInfoErrorResponse{Error: protocol.SetInfoTooLong}, nil
	}
	p := r.profile
	p.StatusMessage = req.StatusMessage
	return r.updateProfile(p)
}

func (r *Friends) GetPublicKey() protocol.Response {
	return &protocol.PublicKeyResponse{PublicKey: r.stack.SelfPublicKey().String()}
}

func (r *Friends) GetAddress() protocol.Response {
	return &protocol.AddressResponse{ToxID: r.Address().String()}
}

func (r *Friends) GetConnectionStatus() protocol.Response {
	return &protocol.ConnectionStatusResponse{Status: r.conn}
}

func (r *Friends) updateProfile(p toxnet.Profile) (protocol.Response, error) {
	if err := r.stack.SetProfile(p); err != nil {
		return nil, errors.Wrap(err, "failed to update profile")
	}
	r.profile = p
	r.saveProfile()
	return okResponse, nil
}

func (r *Friends) saveProfile() {
	if r.cfg.Store == nil {
		return
	}
	if err := r.cfg.Store.SaveProfile(r.profile, r.nospam); err != nil {
		jww.WARN.Printf("Failed to save profile: %v", err)
	}
}

// ===== FRIEND LIST =====

func (r *Friends) AddFriend(req *protocol.AddFriendRequest) (protocol.Response, error) {
	if idTooLong(req.ToxID) {
		return addFriendError(protocol.AddFriendTooLong), nil
	}
	addr, err := crypto.ParseAddress(req.ToxID)
	if err != nil {
		return addFriendError(protocol.AddFriendBadChecksum), nil
	}
	if len(req.Message) > protocol.MaxFriendRequestLength {
		return addFriendError(protocol.AddFriendTooLong), nil
	}
	if req.Message == "" {
		return addFriendError(protocol.AddFriendNoMessage), nil
	}
	return r.add(addr.PublicKey, addr.Nospam, &req.Message)
}

func (r *Friends) AddFriendNorequest(req *protocol.AddFriendNorequestRequest) (protocol.Response, error) {
	if idTooLong(req.ToxID) {
		return addFriendError(protocol.AddFriendTooLong), nil
	}

	var pk crypto.PublicKey
	var nospam uint32

	switch len(req.ToxID) {
	case crypto.PublicKeySize * 2:
		key, err := crypto.ParsePublicKey(req.ToxID)
		if err != nil {
			return addFriendError(protocol.AddFriendBadChecksum), nil
		}
		pk = key
	default:
		addr, err := crypto.ParseAddress(req.ToxID)
		if err != nil {
			return addFriendError(protocol.AddFriendBadChecksum), nil
		}
		pk, nospam = addr.PublicKey, addr.Nospam
	}
	return r.add(pk, nospam, nil)
}

// idTooLong reports ids longer than a full hex address
func idTooLong(id string) bool {
	return len(strings.TrimSpace(id)) > crypto.AddressSize*2
}

// add registers pk. A nil message adds without sending a request.
func (r *Friends) add(pk crypto.PublicKey, nospam uint32, message *string) (protocol.Response, error) {
	if pk == r.stack.SelfPublicKey() {
		return addFriendError(protocol.AddFriendOwnKey), nil
	}

	if number, exists := r.byKey[pk]; exists {
		f := r.byNumber[number]
		if message == nil || f.nospam == nospam {
			return addFriendError(protocol.AddFriendAlreadySent), nil
		}
		f.nospam = nospam
		if err := r.stack.AddFriend(pk, nospam, *message); err != nil {
			return nil, errors.Wrap(err, "failed to resend friend request")
		}
		r.saveFriend(f)
		return addFriendError(protocol.AddFriendSetNewNospam), nil
	}

	var err error
	if message != nil {
		err = r.stack.AddFriend(pk, nospam, *message)
	} else {
		err = r.stack.AddFriendNorequest(pk)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to add friend %s", pk.Short())
	}

	f := &friend{
		number:        r.next,
		pk:            pk,
		nospam:        nospam,
		status:        protocol.UserStatusNone,
		conn:          protocol.ConnectionNone,
		nextMessageID: 1,
	}
	r.next++
	r.insert(f)
	r.saveFriend(f)

	jww.INFO.Printf("Added friend %d (%s)", f.number, pk.Short())
	return &protocol.FriendAddedResponse{Friend: f.number}, nil
}

func (r *Friends) DeleteFriend(req *protocol.DeleteFriendRequest) (protocol.Response, error) {
	f, found := r.byNumber[req.Friend]
	if !found {
		return friendNotFound, nil
	}
	if err := r.stack.RemoveFriend(f.pk); err != nil && !errors.Is(err, toxnet.ErrUnknownFriend) {
		return nil, errors.Wrapf(err, "failed to remove friend %d", f.number)
	}

	delete(r.byNumber, f.number)
	delete(r.byKey, f.pk)
	for _, fn := range r.removed {
		fn(f.pk)
	}
	if r.cfg.Store != nil {
		if err := r.cfg.Store.DeleteFriend(f.pk); err != nil {
			jww.WARN.Printf("Failed to delete friend %d from store: %v", f.number, err)
		}
	}

	jww.INFO.Printf("Deleted friend %d (%s)", f.number, f.pk.Short())
	return okResponse, nil
}

func (r *Friends) FriendByPublicKey(req *protocol.FriendByPublicKeyRequest) protocol.Response {
	pk, err := crypto.ParsePublicKey(req.PublicKey)
	if err != nil {
		return invalidValue
	}
	number, found := r.byKey[pk]
	if !found {
		return friendNotFound
	}
	return &protocol.FriendResponse{Friend: number}
}

func (r *Friends) FriendExists(req *protocol.FriendExistsRequest) protocol.Response {
	_, found := r.byNumber[req.Friend]
	return &protocol.FriendExistsResponse{Exists: found}
}

func (r *Friends) GetFriendList() protocol.Response {
	return &protocol.FriendListResponse{Friends: r.list()}
}

func (r *Friends) list() []protocol.Friend {
	friends := make([]protocol.Friend, 0, len(r.byNumber))
	for _, f := range r.byNumber {
		friends = append(friends, protocol.Friend{
			Number:        f.number,
			PublicKey:     f.pk.String(),
			Name:          f.name,
			Status:        f.status,
			StatusMessage: f.statusMessage,
			LastOnline:    r.lastOnline(f),
		})
	}
	sort.Slice(friends, func(i, j int) bool {
		return friends[i].Number < friends[j].Number
	})
	return friends
}

// lastOnline is "now" while connected, otherwise the time the friend was
// last seen, in unix seconds
func (r *Friends) lastOnline(f *friend) uint64 {
	if f.conn != protocol.ConnectionNone {
		return uint64(r.cfg.now().Unix())
	}
	if f.lastOnline.IsZero() {
		return 0
	}
	return uint64(f.lastOnline.Unix())
}

// ===== PER-FRIEND ATTRIBUTES =====

func (r *Friends) GetFriendPublicKey(req *protocol.GetFriendPublicKeyRequest) protocol.Response {
	f, found := r.byNumber[req.Friend]
	if !found {
		return friendNotFound
	}
	return &protocol.PublicKeyResponse{PublicKey: f.pk.String()}
}

func (r *Friends) GetFriendName(req *protocol.GetFriendNameRequest) protocol.Response {
	f, found := r.byNumber[req.Friend]
	if !found {
		return friendNotFound
	}
	return &protocol.NameResponse{Name: f.name}
}

func (r *Friends) GetFriendStatus(req *protocol.GetFriendStatusRequest) protocol.Response {
	f, found := r.byNumber[req.Friend]
	if !found {
		return friendNotFound
	}
	return &protocol.StatusResponse{Status: f.status}
}

func (r *Friends) GetFriendStatusMessage(req *protocol.GetFriendStatusMessageRequest) protocol.Response {
	f, found := r.byNumber[req.Friend]
	if !found {
		return friendNotFound
	}
	return &protocol.StatusMessageResponse{StatusMessage: f.statusMessage}
}

func (r *Friends) GetFriendLastOnline(req *protocol.GetFriendLastOnlineRequest) protocol.Response {
	f, found := r.byNumber[req.Friend]
	if !found {
		return friendNotFound
	}
	return &protocol.LastOnlineResponse{LastOnline: r.lastOnline(f)}
}

func (r *Friends) GetFriendConnectionStatus(req *protocol.GetFriendConnectionStatusRequest) protocol.Response {
	f, found := r.byNumber[req.Friend]
	if !found {
		return friendNotFound
	}
	return &protocol.ConnectionStatusResponse{Status: f.conn}
}

func (r *Friends) SetTyping(req *protocol.SetTypingRequest) (protocol.Response, error) {
	f, found := r.byNumber[req.Friend]
	if !found {
		return friendNotFound, nil
	}
	if err := r.stack.SetTyping(f.pk, req.IsTyping); err != nil && !toxnet.IsDomain(err) {
		return nil, errors.Wrap(err, "failed to set typing")
	}
	return okResponse, nil
}

func (r *Friends) SendFriendMessage(req *protocol.SendFriendMessageRequest) (protocol.Response, error) {
	f, found := r.byNumber[req.Friend]
	switch {
	case !found:
		return sendMessageError(protocol.SendFriendMessageNotFound), nil
	case req.Message == "":
		return sendMessageError(protocol.SendFriendMessageEmpty), nil
	case len(req.Message) > protocol.MaxMessageLength:
		return sendMessageError(protocol.SendFriendMessageTooLong), nil
	case f.conn == protocol.ConnectionNone:
		return sendMessageError(protocol.SendFriendMessageNotConnected), nil
	}

	id := f.nextMessageID
	err := r.stack.SendMessage(f.pk, req.Kind, req.Message, id)
	switch {
	case errors.Is(err, toxnet.ErrUnknownFriend):
		return sendMessageError(protocol.SendFriendMessageNotFound), nil
	case toxnet.IsDomain(err):
		return sendMessageError(protocol.SendFriendMessageNotConnected), nil
	case err != nil:
		return nil, errors.Wrapf(err, "failed to send message to friend %d", f.number)
	}
	f.nextMessageID++

	jww.DEBUG.Printf("Sent message %d to friend %d: %s", id, f.number,
		truncate.Truncate(req.Message, 32, "...", truncate.PositionEnd))
	return &protocol.MessageSentResponse{MessageID: id}, nil
}

func addFriendError(e protocol.AddFriendError) protocol.Response {
	return &protocol.AddFriendErrorResponse{Error: e}
}

func sendMessageError(e protocol.SendFriendMessageError) protocol.Response {
	return &protocol.SendFriendMessageErrorResponse{Error: e}
}

// ===== CALLBACKS =====

// Handle applies a friend or self callback. It reports false for callbacks
// it does not own.
func (r *Friends) Handle(cb toxnet.Callback) bool {
	switch c := cb.(type) {
	case toxnet.SelfConnectionStatus:
		r.conn = c.Status
		jww.INFO.Printf("Connection status: %s", c.Status)
		r.emit(&protocol.ConnectionStatusEvent{Status: c.Status})
	case toxnet.FriendRequest:
		r.emit(&protocol.FriendRequestEvent{PublicKey: c.PublicKey, Message: c.Message})
	case toxnet.FriendMessage:
		if f := r.known(c.PublicKey, "message"); f != nil {
			r.emit(&protocol.FriendMessageEvent{Friend: f.number, Kind: c.Kind, Message: c.Text})
		}
	case toxnet.FriendName:
		if f := r.known(c.PublicKey, "name"); f != nil {
			f.name = c.Name
			r.saveFriend(f)
			r.emit(&protocol.FriendNameEvent{Friend: f.number, Name: c.Name})
		}
	case toxnet.FriendStatusMessage:
		if f := r.known(c.PublicKey, "status message"); f != nil {
			f.statusMessage = c.Message
			r.saveFriend(f)
			r.emit(&protocol.FriendStatusMessageEvent{Friend: f.number, Status: c.Message})
		}
	case toxnet.FriendStatus:
		if f := r.known(c.PublicKey, "status"); f != nil {
			f.status = c.Status
			r.saveFriend(f)
			r.emit(&protocol.FriendStatusEvent{Friend: f.number, Status: c.Status})
		}
	case toxnet.FriendConnectionStatus:
		if f := r.known(c.PublicKey, "connection status"); f != nil {
			if f.conn != protocol.ConnectionNone || c.Status != protocol.ConnectionNone {
				f.lastOnline = r.cfg.now()
			}
			f.conn = c.Status
			r.saveFriend(f)
			r.emit(&protocol.FriendConnectionStatusEvent{Friend: f.number, Status: c.Status})
		}
	case toxnet.FriendTyping:
		if f := r.known(c.PublicKey, "typing"); f != nil {
			r.emit(&protocol.FriendTypingEvent{Friend: f.number, IsTyping: c.Typing})
		}
	case toxnet.FriendReadReceipt:
		if f := r.known(c.PublicKey, "read receipt"); f != nil {
			r.emit(&protocol.FriendReadReceiptEvent{Friend: f.number, MessageID: c.MessageID})
		}
	default:
		return false
	}
	return true
}

// known resolves the sender of a callback, logging stale references
func (r *Friends) known(pk crypto.PublicKey, what string) *friend {
	number, found := r.byKey[pk]
	if !found {
		jww.WARN.Printf("Dropped %s callback from unknown friend %s", what, pk.Short())
		return nil
	}
	return r.byNumber[number]
}

func (r *Friends) saveFriend(f *friend) {
	if r.cfg.Store == nil {
		return
	}
	err := r.cfg.Store.SaveFriend(SavedFriend{
		Number:        f.number,
		PublicKey:     f.pk,
		Nospam:        f.nospam,
		Name:          f.name,
		Status:        f.status,
		StatusMessage: f.statusMessage,
		LastOnline:    f.lastOnline,
	})
	if err != nil {
		jww.WARN.Printf("Failed to save friend %d: %v", f.number, err)
	}
}
