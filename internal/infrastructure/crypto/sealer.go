// Package crypto seals integration credentials at rest with NaCl secretbox.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24

	// sealedPrefix marks a value produced by Seal
	sealedPrefix = "sb1:"
)

var (
	ErrInvalidKey    = errors.New("crypto: credentials key must decode to 32 bytes")
	ErrMalformed     = errors.New("crypto: malformed sealed value")
	ErrDecryptFailed = errors.New("crypto: sealed value could not be opened")
	ErrKeyRequired   = errors.New("crypto: value is sealed but no key is configured")
)

// Sealer encrypts and decrypts opaque credential blobs. A Sealer without a key
// stores values as-is and refuses to open sealed ones.
type Sealer struct {
	key  *[keySize]byte
	rand io.Reader
}

// NewSealer parses a hex or base64 encoded 32-byte key. An empty key yields a
// pass-through sealer.
func NewSealer(encodedKey string) (*Sealer, error) {
	s := &Sealer{rand: rand.Reader}
	encodedKey = strings.TrimSpace(encodedKey)
	if encodedKey == "" {
		return s, nil
	}

	raw, err := decodeKey(encodedKey)
	if err != nil {
		return nil, err
	}
	s.key = new([keySize]byte)
	copy(s.key[:], raw)
	return s, nil
}

func decodeKey(encoded string) ([]byte, error) {
	if b, err := hex.DecodeString(encoded); err == nil && len(b) == keySize {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(encoded); err == nil && len(b) == keySize {
		return b, nil
	}
	if len(encoded) == keySize {
		return []byte(encoded), nil
	}
	return nil, ErrInvalidKey
}

// Enabled reports whether values are encrypted
func (s *Sealer) Enabled() bool {
	return s != nil && s.key != nil
}

// Seal encrypts plaintext with a fresh random nonce
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	if !s.Enabled() {
		return string(plaintext), nil
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(s.rand, nonce[:]); err != nil {
		return "", fmt.Errorf("crypto: failed to read nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], plaintext, &nonce, s.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

// Open decrypts a value produced by Seal. Values without the sealed prefix are
// returned unchanged so rows written before a key was configured stay readable.
func (s *Sealer) Open(value string) ([]byte, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return []byte(value), nil
	}
	if !s.Enabled() {
		return nil, ErrKeyRequired
	}

	box, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return nil, ErrMalformed
	}

	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, s.key)
	if !ok {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}
