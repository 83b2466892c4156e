package crypto

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// Address layout constants
const (
	PublicKeySize = 32
	NospamSize    = 4
	ChecksumSize  = 2

	// AddressSize is public key || nospam || checksum
	AddressSize = PublicKeySize + NospamSize + ChecksumSize
)

var (
	ErrAddressLength   = errors.New("address has wrong length")
	ErrAddressEncoding = errors.New("address is not valid hex")
	ErrAddressChecksum = errors.New("address checksum mismatch")
	ErrPublicKeyLength = errors.New("public key has wrong length")
)

// PublicKey is the long-term identity key of a node
type PublicKey [PublicKeySize]byte

// String returns the upper-case hex form used on the wire
func (k PublicKey) String() string {
	return strings.ToUpper(hex.EncodeToString(k[:]))
}

// Short returns a log-friendly prefix of the key
func (k PublicKey) Short() string {
	return strings.ToUpper(hex.EncodeToString(k[:4]))
}

// IsZero reports whether the key is unset
func (k PublicKey) IsZero() bool {
	return k == PublicKey{}
}

// ParsePublicKey decodes a 64 character hex public key
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return pk, ErrAddressEncoding
	}
	if len(raw) != PublicKeySize {
		return pk, ErrPublicKeyLength
	}
	copy(pk[:], raw)
	return pk, nil
}

// Address is the shareable identity: a public key salted with a nospam value.
// Changing the nospam invalidates previously shared addresses.
type Address struct {
	PublicKey PublicKey
	Nospam    uint32
}

// NewAddress builds an address from its parts
func NewAddress(pk PublicKey, nospam uint32) Address {
	return Address{PublicKey: pk, Nospam: nospam}
}

// Bytes returns the binary address including the checksum
func (a Address) Bytes() [AddressSize]byte {
	var out [AddressSize]byte
	copy(out[:PublicKeySize], a.PublicKey[:])
	binary.BigEndian.PutUint32(out[PublicKeySize:], a.Nospam)
	sum := checksum(out[:PublicKeySize+NospamSize])
	copy(out[PublicKeySize+NospamSize:], sum[:])
	return out
}

// String returns the 76 character upper-case hex address
func (a Address) String() string {
	b := a.Bytes()
	return strings.ToUpper(hex.EncodeToString(b[:]))
}

// ParseAddress decodes and verifies a 76 character hex address
func ParseAddress(s string) (Address, error) {
	var addr Address
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return addr, ErrAddressEncoding
	}
	if len(raw) != AddressSize {
		return addr, ErrAddressLength
	}

	sum := checksum(raw[:PublicKeySize+NospamSize])
	if sum[0] != raw[AddressSize-2] || sum[1] != raw[AddressSize-1] {
		return addr, ErrAddressChecksum
	}

	copy(addr.PublicKey[:], raw[:PublicKeySize])
	addr.Nospam = binary.BigEndian.Uint32(raw[PublicKeySize:])
	return addr, nil
}

// checksum XORs the data two bytes at a time
func checksum(data []byte) [ChecksumSize]byte {
	var sum [ChecksumSize]byte
	for i, b := range data {
		sum[i%ChecksumSize] ^= b
	}
	return sum
}
