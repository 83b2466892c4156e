package p2p

import (
	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/pkg/errors"
)

// File transfer frames mirror the stack commands; numbering and state are
// owned by the bridges on both ends.

func (n *Node) FileSend(pk crypto.PublicKey, number uint32, kind protocol.FileKind, size uint64, id crypto.FileID, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.sendTo(pk, MsgFileSend, fileSendPayload{
		Number: number,
		Kind:   kind,
		Size:   size,
		ID:     id.String(),
		Name:   name,
	})
}

func (n *Node) FileSendChunk(pk crypto.PublicKey, number uint32, position uint64, data []byte) error {
	if len(data) > ChunkSize {
		return toxnet.ErrSendQ
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	return n.sendTo(pk, MsgFileChunk, fileChunkPayload{Number: number, Position: position, Data: data})
}

func (n *Node) FileControl(pk crypto.PublicKey, number uint32, incoming bool, control protocol.FileControl) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.sendTo(pk, MsgFileControl, fileControlPayload{Number: number, Incoming: incoming, Control: control})
}

func (n *Node) FileSeek(pk crypto.PublicKey, number uint32, position uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.sendTo(pk, MsgFileSeek, fileSeekPayload{Number: number, Position: position})
}

// FileSendCapacity reports congestion while the link outbox is nearly full
func (n *Node) FileSendCapacity(pk crypto.PublicKey) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	f, err := n.peer(pk)
	if err != nil || cap(f.out)-len(f.out) <= sendReserve {
		return 0
	}
	return ChunkSize
}

func (n *Node) receiveFile(f *friend, msg *Message) error {
	switch msg.Type {
	case MsgFileSend:
		var p fileSendPayload
		if err := msg.decode(&p); err != nil {
			return err
		}
		id, err := crypto.ParseFileID(p.ID)
		if err != nil {
			return errors.Wrap(err, "invalid file id")
		}
		n.raise(toxnet.FileReceive{PublicKey: f.pk, Number: p.Number, Kind: p.Kind, Size: p.Size, ID: id, Name: p.Name})
	case MsgFileChunk:
		var p fileChunkPayload
		if err := msg.decode(&p); err != nil {
			return err
		}
		n.raise(toxnet.FileChunk{PublicKey: f.pk, Number: p.Number, Position: p.Position, Data: p.Data})
	case MsgFileControl:
		var p fileControlPayload
		if err := msg.decode(&p); err != nil {
			return err
		}
		n.raise(toxnet.FileControl{PublicKey: f.pk, Number: p.Number, Incoming: !p.Incoming, Control: p.Control})
	case MsgFileSeek:
		var p fileSeekPayload
		if err := msg.decode(&p); err != nil {
			return err
		}
		n.raise(toxnet.FileSeek{PublicKey: f.pk, Number: p.Number, Position: p.Position})
	}
	return nil
}
