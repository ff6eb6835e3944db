package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

// Prefix marks a settings value as sealed. Values without it are plaintext.
const Prefix = "enc:"

// Sealer encrypts and decrypts secret setting values with AES-256-GCM under a
// key derived per scope from one master key.
type Sealer struct {
	master []byte
}

// NewSealer copies the master key, which must be KeySize bytes long.
func NewSealer(master []byte) (*Sealer, error) {
	if len(master) != KeySize {
		return nil, ErrInvalidKey
	}
	return &Sealer{master: append([]byte(nil), master...)}, nil
}

// Seal encrypts plaintext for scope and returns Prefix + base64(nonce|ciphertext|tag).
func (s *Sealer) Seal(scope, plaintext string) (string, error) {
	aead, err := s.aead(scope)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), []byte(scope))
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal for the same scope.
func (s *Sealer) Open(scope, value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, Prefix)
	if !ok {
		return "", ErrInvalidCiphertext
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}

	aead, err := s.aead(scope)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	if len(raw) < aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(scope))
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

// Reveal returns value unchanged when it is not sealed and opens it otherwise.
// A nil Sealer reveals only plaintext values.
func (s *Sealer) Reveal(scope, value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if s == nil {
		return "", ErrInvalidKey
	}
	return s.Open(scope, value)
}

// IsSealed reports whether value carries the sealed prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, Prefix)
}

func (s *Sealer) aead(scope string) (cipher.AEAD, error) {
	key, err := deriveKey(s.master, scope)
	if err != nil {
		return nil, err
	}
	defer clearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
