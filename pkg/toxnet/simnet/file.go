package simnet

import (
	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
)

// File transfer commands are relayed verbatim; numbering and state are
// owned by the bridges on both ends.

func (n *Node) FileSend(pk crypto.PublicKey, number uint32, kind protocol.FileKind, size uint64, id crypto.FileID, name string) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	friend, err := n.peer(pk)
	if err != nil {
		return err
	}
	friend.deliver(toxnet.FileReceive{PublicKey: n.pk, Number: number, Kind: kind, Size: size, ID: id, Name: name})
	return nil
}

func (n *Node) FileSendChunk(pk crypto.PublicKey, number uint32, position uint64, data []byte) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	friend, err := n.peer(pk)
	if err != nil {
		return err
	}
	if len(data) > n.net.chunkSize {
		return toxnet.ErrSendQ
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)
	friend.deliver(toxnet.FileChunk{PublicKey: n.pk, Number: number, Position: position, Data: chunk})
	return nil
}

func (n *Node) FileControl(pk crypto.PublicKey, number uint32, incoming bool, control protocol.FileControl) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	friend, err := n.peer(pk)
	if err != nil {
		return err
	}
	friend.deliver(toxnet.FileControl{PublicKey: n.pk, Number: number, Incoming: !incoming, Control: control})
	return nil
}

func (n *Node) FileSeek(pk crypto.PublicKey, number uint32, position uint64) error {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	friend, err := n.peer(pk)
	if err != nil {
		return err
	}
	friend.deliver(toxnet.FileSeek{PublicKey: n.pk, Number: number, Position: position})
	return nil
}

func (n *Node) FileSendCapacity(pk crypto.PublicKey) int {
	n.net.mu.Lock()
	defer n.net.mu.Unlock()

	if _, err := n.peer(pk); err != nil {
		return 0
	}
	return n.net.chunkSize
}
