package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/pkg/errors"
)

var ErrInvalidKey = errors.New("invalid key")

// Identity is the long-term key pair of a node. Its public half is the
// node's PublicKey.
type Identity struct {
	Private ed25519.PrivateKey
}

// GenerateIdentity generates a new Ed25519 key pair
func GenerateIdentity() (*Identity, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate identity")
	}
	return &Identity{Private: priv}, nil
}

// PublicKey returns the public half of the identity
func (id *Identity) PublicKey() PublicKey {
	var pk PublicKey
	copy(pk[:], id.Private.Public().(ed25519.PublicKey))
	return pk
}

// ExportIdentityPEM exports the private key as PKCS#8 PEM
func ExportIdentityPEM(id *Identity) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(id.Private)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal identity")
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// ImportIdentityPEM imports a private key written by ExportIdentityPEM
func ImportIdentityPEM(pemData []byte) (*Identity, error) {
	block, _ := pem.Decode(pemData)
	if block == nil || block.Type != "PRIVATE KEY" {
		return nil, ErrInvalidKey
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKey, err.Error())
	}

	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, ErrInvalidKey
	}
	return &Identity{Private: priv}, nil
}

// SaveIdentity writes the identity to filename, readable by the owner only
func SaveIdentity(filename string, id *Identity) error {
	pemData, err := ExportIdentityPEM(id)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(filename, pemData, 0600), "failed to write %s", filename)
}

// LoadIdentity reads an identity saved by SaveIdentity
func LoadIdentity(filename string) (*Identity, error) {
	pemData, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ImportIdentityPEM(pemData)
}

// LoadOrCreateIdentity loads filename, generating and saving a new identity
// when the file does not exist yet
func LoadOrCreateIdentity(filename string) (id *Identity, created bool, err error) {
	id, err = LoadIdentity(filename)
	if err == nil {
		return id, false, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, err
	}

	id, err = GenerateIdentity()
	if err != nil {
		return nil, false, err
	}
	if err := SaveIdentity(filename, id); err != nil {
		return nil, false, err
	}
	return id, true, nil
}
