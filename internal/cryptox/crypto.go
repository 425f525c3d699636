// Package cryptox seals credential secrets at rest with AES-256-GCM under a
// key derived from the server passphrase.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// sealerSalt binds derived keys to this purpose. Changing it makes every
// sealed value unreadable.
var sealerSalt = []byte("zekret/credential-sealer/v1")

var ErrMalformedSealed = errors.New("malformed sealed value")

// DeriveMasterKey stretches password into a 32-byte key with Argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// Sealer encrypts and decrypts values with a fixed key. It is safe for
// concurrent use.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("empty passphrase")
	}
	return newSealerWithKey(DeriveMasterKey([]byte(passphrase), sealerSalt))
}

func newSealerWithKey(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// SealBytes returns nonce||ciphertext. A fresh random nonce is used per call.
func (s *Sealer) SealBytes(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Sealer) OpenBytes(sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, ErrMalformedSealed
	}
	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("open sealed value: %w", err)
	}
	return plaintext, nil
}

// Seal is SealBytes with base64 text output. The empty string seals to the
// empty string so optional fields stay empty in storage.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	sealed, err := s.SealBytes([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrMalformedSealed
	}
	plaintext, err := s.OpenBytes(raw)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
