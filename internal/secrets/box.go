// Package secrets seals and opens user-supplied provider API keys.
//
// Keys are encrypted with XChaCha20-Poly1305 under a key-encryption key
// derived from the server's master secret via Argon2id. Every sealed
// value gets its own random salt, so the KEK is per-secret and no two
// rows share key material.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	keyBytes = chacha20poly1305.KeySize

	// SaltBytes is the length of the per-secret KDF salt.
	SaltBytes = 16

	// NonceBytes is the AEAD nonce length.
	NonceBytes = chacha20poly1305.NonceSizeX
)

// Argon2id parameters (RFC 9106 second recommended option: 64 MiB, 1 pass).
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
)

// ErrOpenFailed is returned when decryption fails. The AEAD cannot
// distinguish a wrong master key from tampered ciphertext.
var ErrOpenFailed = errors.New("wrong master key or corrupted secret")

// Box derives per-secret keys from the server master secret.
type Box struct {
	master []byte
}

// NewBox creates a Box from the configured master secret.
func NewBox(masterKey string) (*Box, error) {
	if strings.TrimSpace(masterKey) == "" {
		return nil, errors.New("secrets: master key must not be empty")
	}
	return &Box{master: []byte(masterKey)}, nil
}

// Sealed holds the persisted parts of an encrypted secret. All three
// parts are required to open it again.
type Sealed struct {
	Ciphertext []byte
	Nonce      []byte
	Salt       []byte
}

// Seal encrypts plaintext under a fresh salt and nonce.
func (b *Box) Seal(plaintext []byte) (*Sealed, error) {
	salt := make([]byte, SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	kek := b.deriveKEK(salt)
	defer Wipe(kek)

	aead, err := chacha20poly1305.NewX(kek)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return &Sealed{
		Ciphertext: aead.Seal(nil, nonce, plaintext, nil),
		Nonce:      nonce,
		Salt:       salt,
	}, nil
}

// Open decrypts a sealed secret. Callers should Wipe the returned
// plaintext as soon as they are done with it.
func (b *Box) Open(s *Sealed) ([]byte, error) {
	if len(s.Salt) != SaltBytes {
		return nil, errors.New("secrets: bad salt size")
	}
	if len(s.Nonce) != NonceBytes {
		return nil, errors.New("secrets: bad nonce size")
	}

	kek := b.deriveKEK(s.Salt)
	defer Wipe(kek)

	aead, err := chacha20poly1305.NewX(kek)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, s.Nonce, s.Ciphertext, nil)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}

func (b *Box) deriveKEK(salt []byte) []byte {
	return argon2.IDKey(b.master, salt, argonTime, argonMemory, argonThreads, keyBytes)
}

// Fingerprint returns a short hex fingerprint of a secret for display.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars) -
// enough to tell two keys apart, useless for recovering the key.
func Fingerprint(secret []byte) string {
	sum := sha256.Sum256(secret)
	return hex.EncodeToString(sum[:10])
}

// Wipe zeroes the provided buffer. This is best-effort and aims to
// reduce the chance of the compiler eliding the write.
//
//go:noinline
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// Ensure b is considered live until after the loop.
	runtime.KeepAlive(&b)
}
