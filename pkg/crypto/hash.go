package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// FileIDSize is the size of a file transfer resumption identifier
const FileIDSize = 32

// FileID identifies a transfer across sessions so it can be resumed
type FileID [FileIDSize]byte

// String returns the upper-case hex form used on the wire
func (id FileID) String() string {
	return strings.ToUpper(hex.EncodeToString(id[:]))
}

// ParseFileID decodes a 64 character hex file id
func ParseFileID(s string) (FileID, error) {
	var id FileID
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return id, ErrAddressEncoding
	}
	if len(raw) != FileIDSize {
		return id, ErrPublicKeyLength
	}
	copy(id[:], raw)
	return id, nil
}

// DeriveFileID computes the default id for an outgoing transfer. The nonce keeps
// two sends of the same file to the same friend distinguishable.
func DeriveFileID(friend PublicKey, fileSize uint64, fileName string, nonce []byte) FileID {
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], fileSize)

	buf := make([]byte, 0, PublicKeySize+len(size)+len(fileName)+len(nonce))
	buf = append(buf, friend[:]...)
	buf = append(buf, size[:]...)
	buf = append(buf, fileName...)
	buf = append(buf, nonce...)

	return FileID(blake2b.Sum256(buf))
}

// GenerateNonce generates a random nonce
func GenerateNonce(size int) ([]byte, error) {
	nonce := make([]byte, size)
	_, err := rand.Read(nonce)
	if err != nil {
		return nil, err
	}
	return nonce, nil
}

// GenerateNospam returns a random anti-spam salt
func GenerateNospam() (uint32, error) {
	b, err := GenerateNonce(NospamSize)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}
