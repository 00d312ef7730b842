package session

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/jrsteele09/go-gopay-client/apierror"
	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

// sealedPrefix frames encrypted snapshots so they are never mistaken for JSON.
var sealedPrefix = []byte("gps1.")

// KeySize is the length of a seal key in bytes.
const KeySize = chacha20poly1305.KeySize

// Sealer encrypts snapshots at rest with XChaCha20-Poly1305. Snapshots carry
// the client secret, so anything stored outside the process should be sealed.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(key []byte) (*Sealer, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "session.NewSealer chacha20poly1305.NewX")
	}
	return &Sealer{aead: aead}, nil
}

// NewSealerFromHex accepts a 64 character hex key, as found in configuration.
func NewSealerFromHex(hexKey string) (*Sealer, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, errors.Wrap(err, "session.NewSealerFromHex hex.DecodeString")
	}
	return NewSealer(key)
}

// GenerateKey returns a random seal key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Wrap(err, "session.GenerateKey rand.Read")
	}
	return key, nil
}

func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "Sealer.Seal rand.Read")
	}
	sealed := s.aead.Seal(nonce, nonce, plain, sealedPrefix)
	return append(append([]byte{}, sealedPrefix...), sealed...), nil
}

func (s *Sealer) Open(blob []byte) ([]byte, error) {
	if !IsSealed(blob) {
		return nil, &apierror.DeserializationError{Reason: "snapshot is not sealed"}
	}
	body := blob[len(sealedPrefix):]
	if len(body) < s.aead.NonceSize()+s.aead.Overhead() {
		return nil, &apierror.DeserializationError{Reason: "sealed snapshot is truncated"}
	}
	nonce, ciphertext := body[:s.aead.NonceSize()], body[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, sealedPrefix)
	if err != nil {
		return nil, &apierror.DeserializationError{Reason: "sealed snapshot failed authentication", Cause: err}
	}
	return plain, nil
}

// IsSealed reports whether blob was produced by a Sealer.
func IsSealed(blob []byte) bool {
	return bytes.HasPrefix(blob, sealedPrefix)
}
