// Package secure implements the AES-256-GCM line framing shared by the
// recognizer and the input daemon.
//
// A frame is hex(nonce) followed by hex(ciphertext||tag) and a newline.
package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16
)

var (
	// ErrMalformedFrame covers bad hex, short frames and wrong key lengths.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrAuthentication is returned when a frame fails GCM authentication.
	ErrAuthentication = errors.New("frame authentication failed")
)

// Key is the pre-shared 256-bit secret.
type Key [KeySize]byte

// GenerateKey returns a fresh random key.
func GenerateKey() (Key, error) {
	var key Key
	if _, err := rand.Read(key[:]); err != nil {
		return Key{}, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// ParseKey decodes a hex-encoded key.
func ParseKey(text string) (Key, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return Key{}, fmt.Errorf("decode key: %w", err)
	}
	if len(raw) != KeySize {
		return Key{}, fmt.Errorf("decode key: want %d bytes, got %d", KeySize, len(raw))
	}
	var key Key
	copy(key[:], raw)
	return key, nil
}

// String returns the hex encoding handed to clients out of band.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Cipher seals and opens frames under one key.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher prepares an AES-256-GCM cipher for key.
func NewCipher(key Key) (*Cipher, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("init aes: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext under a fresh random nonce and returns the
// newline-terminated frame.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.sealWithNonce(nonce, plaintext), nil
}

func (c *Cipher) sealWithNonce(nonce []byte, plaintext []byte) []byte {
	sealed := c.aead.Seal(nil, nonce, plaintext, nil)

	frame := make([]byte, hex.EncodedLen(len(nonce))+hex.EncodedLen(len(sealed))+1)
	n := hex.Encode(frame, nonce)
	n += hex.Encode(frame[n:], sealed)
	frame[n] = '\n'
	return frame
}

// Open decodes and authenticates one frame. Trailing CR/LF is ignored.
func (c *Cipher) Open(frame []byte) ([]byte, error) {
	line := strings.TrimRight(string(frame), "\r\n")

	nonceHex := NonceSize * 2
	if len(line) < nonceHex+TagSize*2 {
		return nil, fmt.Errorf("%w: %d hex characters is shorter than nonce and tag", ErrMalformedFrame, len(line))
	}

	nonce, err := hex.DecodeString(line[:nonceHex])
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrMalformedFrame, err)
	}
	sealed, err := hex.DecodeString(line[nonceHex:])
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", ErrMalformedFrame, err)
	}

	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
