package feed

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Key is a feed's public identity: an ed25519 public key.
type Key [ed25519.PublicKeySize]byte

// String returns the lowercase hex encoding.
func (k Key) String() string { return hex.EncodeToString(k[:]) }

// Short returns the first 8 hex characters, for logs.
func (k Key) Short() string { return k.String()[:8] }

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool { return k == Key{} }

// Compare orders keys bytewise.
func (k Key) Compare(other Key) int { return bytes.Compare(k[:], other[:]) }

// KeyFromBytes copies a 32-byte slice into a Key.
func KeyFromBytes(b []byte) (Key, error) {
	var k Key
	if len(b) != len(k) {
		return k, fmt.Errorf("feed: key must be %d bytes, got %d", len(k), len(b))
	}
	copy(k[:], b)
	return k, nil
}

// ParseKey decodes a hex feed key.
func ParseKey(s string) (Key, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, fmt.Errorf("feed: bad key %q: %w", s, err)
	}
	return KeyFromBytes(b)
}

// Generate creates a fresh writer identity.
func Generate() (Key, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Key{}, nil, err
	}
	k, err := KeyFromBytes(pub)
	return k, priv, err
}
