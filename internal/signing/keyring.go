// Package signing holds the payer key used by the submitter.
package signing

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSeed indicates a seed that is not ed25519.SeedSize bytes.
var ErrInvalidSeed = errors.New("invalid signing seed")

// Keyring is an explicit signing context. It is safe for concurrent use.
type Keyring struct {
	private ed25519.PrivateKey
	account string
}

// New derives a keyring from a 32 byte seed.
func New(seed []byte) (*Keyring, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSeed, ed25519.SeedSize, len(seed))
	}
	private := ed25519.NewKeyFromSeed(seed)
	public := private.Public().(ed25519.PublicKey)
	return &Keyring{private: private, account: "0x" + hex.EncodeToString(public)}, nil
}

// FromHexSeed derives a keyring from a hex encoded seed, with or without 0x prefix.
func FromHexSeed(raw string) (*Keyring, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	return New(seed)
}

// Account is the hex encoded public key of the payer.
func (k *Keyring) Account() string {
	return k.account
}

func (k *Keyring) Sign(payload []byte) ([]byte, error) {
	if len(k.private) == 0 {
		return nil, ErrInvalidSeed
	}
	return ed25519.Sign(k.private, payload), nil
}

// Verify checks signature against the hex account that produced it.
func Verify(account string, payload, signature []byte) bool {
	public, err := hex.DecodeString(strings.TrimPrefix(account, "0x"))
	if err != nil || len(public) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(public, payload, signature)
}
