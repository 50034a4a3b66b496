package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
	"golang.org/x/crypto/hkdf"
)

// Key purposes. Each purpose yields an independent key from the same master secret.
const (
	PurposeMetadata = "metadata"
	PurposeContent  = "content"
)

// KeyPair is a simulated identity: PublicKey is a one-way hash of PrivateKey,
// not an asymmetric key.
type KeyPair struct {
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
}

// GenerateKeyPair creates a random 32-byte private key (hex) and its identity tag.
func GenerateKeyPair() (KeyPair, error) {
	priv, err := common.MakeRandHexString(32)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate private key: %w", err)
	}
	return KeyPair{PrivateKey: priv, PublicKey: Hash(priv)}, nil
}

// Keyring holds the caller-supplied master secret and derives purpose keys from it.
type Keyring struct {
	secret   string
	root     []byte
	identity string
}

// NewKeyring stretches secret once with Argon2id using salt. The same secret
// and salt always produce the same purpose keys.
func NewKeyring(secret, salt string) (*Keyring, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty master secret", common.ErrValidation)
	}
	return &Keyring{
		secret:   secret,
		root:     DeriveMasterKey([]byte(secret), []byte(salt)),
		identity: Hash(secret),
	}, nil
}

// DeriveKey returns the hex-encoded key for purpose.
func (k *Keyring) DeriveKey(purpose string) string {
	out := make([]byte, 32)
	// hkdf only fails when more than 255*32 bytes are requested.
	_, _ = io.ReadFull(hkdf.New(sha256.New, k.root, nil, []byte(purpose)), out)
	return hex.EncodeToString(out)
}

// Identity is the deterministic tag of this secret (the simulated public key).
func (k *Keyring) Identity() string {
	return k.identity
}

// BundleName is the remote file name under which this identity's bundle is kept.
func (k *Keyring) BundleName() string {
	return k.identity + ".json"
}

// Secret returns the master secret, for session persistence.
func (k *Keyring) Secret() string {
	return k.secret
}

// Wipe zeroes the stretched root key. The keyring is unusable afterwards.
func (k *Keyring) Wipe() {
	common.WipeByteArray(k.root)
}
