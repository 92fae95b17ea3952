// Package fieldcrypt encrypts individual text columns with XChaCha20-Poly1305.
//
// Ciphertexts are encoded as "<keyID>:<base64url(nonce||sealed)>" so that keys can be
// rotated: new values are sealed with the current key and old values are opened with
// the key they name.
package fieldcrypt

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/kinesio/internal/config"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrKeyNotConfigured = errors.New("encryption_key_not_configured")
	ErrUnknownKey       = errors.New("unknown_encryption_key")
	ErrMalformed        = errors.New("malformed_ciphertext")
)

// KeyProvider resolves encryption keys.
type KeyProvider interface {
	Current() (id string, key []byte, err error)
	Lookup(id string) ([]byte, error)
}

// StaticKeys serves a fixed key ring. The first key is current.
type StaticKeys struct {
	order []string
	keys  map[string][]byte
}

func NewStaticKeys(id string, key []byte, older ...map[string][]byte) *StaticKeys {
	ring := &StaticKeys{order: []string{id}, keys: map[string][]byte{id: key}}
	for _, extra := range older {
		for oldID, oldKey := range extra {
			ring.order = append(ring.order, oldID)
			ring.keys[oldID] = oldKey
		}
	}
	return ring
}

func (s *StaticKeys) Current() (string, []byte, error) {
	if s == nil || len(s.order) == 0 {
		return "", nil, ErrKeyNotConfigured
	}
	id := s.order[0]
	return id, s.keys[id], nil
}

func (s *StaticKeys) Lookup(id string) ([]byte, error) {
	if s == nil {
		return nil, ErrKeyNotConfigured
	}
	key, ok := s.keys[id]
	if !ok {
		return nil, ErrUnknownKey
	}
	return key, nil
}

// NewEnvKeyProvider reads CLINICAL_ENCRYPTION_KEY (base64, 32 bytes).
// An empty key yields a provider that fails on use so the service can still start
// without clinical records enabled.
func NewEnvKeyProvider(cfg config.Config) (KeyProvider, error) {
	raw := strings.TrimSpace(cfg.ClinicalKey)
	if raw == "" {
		return &StaticKeys{}, nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode clinical key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("clinical key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return NewStaticKeys("k1", key), nil
}

type Cipher struct {
	keys KeyProvider
}

func NewCipher(keys KeyProvider) *Cipher {
	return &Cipher{keys: keys}
}

func (c *Cipher) Seal(plaintext string) (string, error) {
	id, key, err := c.keys.Current()
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), []byte(id))
	return id + ":" + base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (c *Cipher) Open(encoded string) (string, error) {
	id, payload, ok := strings.Cut(encoded, ":")
	if !ok || id == "" {
		return "", ErrMalformed
	}
	key, err := c.keys.Lookup(id)
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil || len(raw) < aead.NonceSize() {
		return "", ErrMalformed
	}
	plain, err := aead.Open(nil, raw[:aead.NonceSize()], raw[aead.NonceSize():], []byte(id))
	if err != nil {
		return "", ErrMalformed
	}
	return string(plain), nil
}
