package filetransfer

import (
	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// nonceSize is the amount of randomness mixed into derived file ids
const nonceSize = 8

var ok = &protocol.OkResponse{}

func (m *Manager) SendFile(req *protocol.SendFileRequest) (protocol.Response, error) {
	pk, connected, found := m.friends.Lookup(req.Friend)
	switch {
	case !found:
		return sendError(protocol.SendFileFriendNotFound), nil
	case !connected:
		return sendError(protocol.SendFileFriendNotConnected), nil
	case len(req.FileName) > protocol.MaxFileNameLength:
		return sendError(protocol.SendFileNameTooLong), nil
	}
	nonce, err := crypto.GenerateNonce(nonceSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate file id")
	}
	id := crypto.DeriveFileID(pk, req.FileSize, req.FileName, nonce)
	return m.send(req.Friend, req.Kind, req.FileSize, req.FileName, id)
}

// SendAvatar offers an avatar. The hash doubles as the file id so the peer
// can skip avatars it already has.
func (m *Manager) SendAvatar(req *protocol.SendAvatarRequest) (protocol.Response, error) {
	id, err := crypto.ParseFileID(req.Hash)
	if err != nil {
		return &protocol.MalformedRequestResponse{Error: protocol.MalformedInvalidValue}, nil
	}
	return m.send(req.Friend, protocol.FileKindAvatar, req.FileSize, "", id)
}

func (m *Manager) send(friend uint32, kind protocol.FileKind, size uint64, name string, id crypto.FileID) (protocol.Response, error) {
	pk, connected, found := m.friends.Lookup(friend)
	switch {
	case !found:
		return sendError(protocol.SendFileFriendNotFound), nil
	case !connected:
		return sendError(protocol.SendFileFriendNotConnected), nil
	}
	number, free := m.freeNumber(pk)
	if !free {
		return sendError(protocol.SendFileTooMany), nil
	}

	err := m.stack.FileSend(pk, number, kind, size, id, name)
	switch {
	case errors.Is(err, toxnet.ErrSendQ):
		return sendError(protocol.SendFileTooMany), nil
	case toxnet.IsDomain(err):
		return sendError(protocol.SendFileFriendNotConnected), nil
	case err != nil:
		return nil, errors.Wrapf(err, "failed to offer file to friend %d", friend)
	}

	m.insert(&transfer{
		friend:    friend,
		pk:        pk,
		number:    number,
		direction: Outgoing,
		kind:      kind,
		size:      size,
		name:      name,
		id:        id,
	})
	jww.INFO.Printf("Offered %s transfer %d of %d bytes to friend %d", kind, number, size, friend)
	return &protocol.FileNumberResponse{FileNumber: number}, nil
}

// SendFileChunk answers the outstanding window of an outgoing transfer.
// Data shorter than the window ends the transfer.
func (m *Manager) SendFileChunk(req *protocol.SendFileChunkRequest) (protocol.Response, error) {
	pk, connected, found := m.friends.Lookup(req.Friend)
	switch {
	case !found:
		return chunkError(protocol.SendFileChunkFriendNotFound), nil
	case !connected:
		return chunkError(protocol.SendFileChunkFriendNotConnected), nil
	}
	t := m.get(pk, req.FileNumber)
	switch {
	case t == nil || t.direction != Outgoing:
		return chunkError(protocol.SendFileChunkNotFound), nil
	case t.state() != Active || t.window == nil:
		return chunkError(protocol.SendFileChunkNotTransferring), nil
	case req.Position != t.window.position:
		return chunkError(protocol.SendFileChunkWrongPosition), nil
	case uint64(len(req.Data)) > t.window.length:
		return chunkError(protocol.SendFileChunkInvalidLength), nil
	}

	data := req.Data
	if data == nil {
		data = []byte{}
	}
	err := m.stack.FileSendChunk(pk, t.number, req.Position, data)
	switch {
	case errors.Is(err, toxnet.ErrSendQ):
		return chunkError(protocol.SendFileChunkSendQ), nil
	case errors.Is(err, toxnet.ErrNotConnected):
		return chunkError(protocol.SendFileChunkFriendNotConnected), nil
	case errors.Is(err, toxnet.ErrUnknownTransfer):
		m.finish(t, Cancelled)
		return chunkError(protocol.SendFileChunkNotFound), nil
	case toxnet.IsDomain(err):
		return chunkError(protocol.SendFileChunkSendQ), nil
	case err != nil:
		return nil, errors.Wrapf(err, "failed to send chunk of transfer %d", t.number)
	}

	short := uint64(len(data)) < t.window.length
	t.position += uint64(len(data))
	t.window = nil
	if !short {
		return ok, nil
	}

	// Early end of file. An empty chunk already is the terminal marker.
	if len(data) > 0 {
		if err := m.stack.FileSendChunk(pk, t.number, t.position, []byte{}); err != nil && !toxnet.IsDomain(err) {
			return nil, errors.Wrapf(err, "failed to end transfer %d", t.number)
		}
	}
	m.finish(t, Completed)
	return ok, nil
}

func (m *Manager) ControlFile(req *protocol.ControlFileRequest) (protocol.Response, error) {
	pk, connected, found := m.friends.Lookup(req.Friend)
	switch {
	case !found:
		return controlError(protocol.ControlFileFriendNotFound), nil
	case !connected:
		return controlError(protocol.ControlFileFriendNotConnected), nil
	}
	t := m.get(pk, req.FileNumber)
	if t == nil {
		return controlError(protocol.ControlFileNotFound), nil
	}

	switch req.Control {
	case protocol.FileControlResume:
		switch {
		case t.pausedLocal:
		case t.pausedRemote:
			return controlError(protocol.ControlFileDenied), nil
		case t.accepted:
			return controlError(protocol.ControlFileNotPaused), nil
		case t.direction == Outgoing:
			// only the receiver accepts an offer
			return controlError(protocol.ControlFileDenied), nil
		}
	case protocol.FileControlPause:
		if t.pausedLocal {
			return controlError(protocol.ControlFileAlreadyPaused), nil
		}
	}

	err := m.stack.FileControl(pk, t.wire(), t.direction == Incoming, req.Control)
	switch {
	case errors.Is(err, toxnet.ErrSendQ):
		return controlError(protocol.ControlFileSendQ), nil
	case errors.Is(err, toxnet.ErrNotConnected):
		return controlError(protocol.ControlFileFriendNotConnected), nil
	case errors.Is(err, toxnet.ErrUnknownTransfer):
		m.finish(t, Cancelled)
		return controlError(protocol.ControlFileNotFound), nil
	case toxnet.IsDomain(err):
		return controlError(protocol.ControlFileSendQ), nil
	case err != nil:
		return nil, errors.Wrapf(err, "failed to control transfer %d", t.number)
	}

	switch req.Control {
	case protocol.FileControlResume:
		t.pausedLocal = false
		t.accepted = true
	case protocol.FileControlPause:
		t.pausedLocal = true
		t.window = nil
	case protocol.FileControlCancel:
		m.finish(t, Cancelled)
	}
	return ok, nil
}

// SeekFile moves the position of an incoming transfer before data flows
func (m *Manager) SeekFile(req *protocol.SeekFileRequest) (protocol.Response, error) {
	pk, connected, found := m.friends.Lookup(req.Friend)
	switch {
	case !found:
		return seekError(protocol.SeekFileFriendNotFound), nil
	case !connected:
		return seekError(protocol.SeekFileFriendNotConnected), nil
	}
	t := m.get(pk, req.FileNumber)
	switch {
	case t == nil:
		return seekError(protocol.SeekFileNotFound), nil
	case t.direction != Incoming:
		return seekError(protocol.SeekFileDenied), nil
	case t.state() != Requested && t.state() != Paused:
		return seekError(protocol.SeekFileDenied), nil
	case req.Position >= t.size:
		return seekError(protocol.SeekFileInvalidPosition), nil
	}

	err := m.stack.FileSeek(pk, t.wire(), req.Position)
	switch {
	case errors.Is(err, toxnet.ErrNotConnected):
		return seekError(protocol.SeekFileFriendNotConnected), nil
	case errors.Is(err, toxnet.ErrUnknownTransfer):
		m.finish(t, Cancelled)
		return seekError(protocol.SeekFileNotFound), nil
	case toxnet.IsDomain(err):
		return seekError(protocol.SeekFileSendQ), nil
	case err != nil:
		return nil, errors.Wrapf(err, "failed to seek transfer %d", t.number)
	}
	t.position = req.Position
	return ok, nil
}

func (m *Manager) GetFileId(req *protocol.GetFileIdRequest) protocol.Response {
	pk, _, found := m.friends.Lookup(req.Friend)
	if !found {
		return &protocol.GetFileIdErrorResponse{Error: protocol.GetFileIdFriendNotFound}
	}
	t := m.get(pk, req.FileNumber)
	if t == nil {
		return &protocol.GetFileIdErrorResponse{Error: protocol.GetFileIdNotFound}
	}
	return &protocol.FileIdResponse{FileID: t.id.String()}
}

func sendError(e protocol.SendFileError) protocol.Response {
	return &protocol.SendFileErrorResponse{Error: e}
}

func chunkError(e protocol.SendFileChunkError) protocol.Response {
	return &protocol.SendFileChunkErrorResponse{Error: e}
}

func controlError(e protocol.ControlFileError) protocol.Response {
	return &protocol.ControlFileErrorResponse{Error: e}
}

func seekError(e protocol.SeekFileError) protocol.Response {
	return &protocol.SeekFileErrorResponse{Error: e}
}
