// Package cryptox turns strings into opaque ciphertext and back, and derives
// purpose-scoped keys from a single master secret.
//
// Ciphertext layout (base64, standard encoding):
//
//	version(1) || salt(16) || nonce(12) || AES-256-GCM(plaintext)
//
// The AES key of every message is HKDF-SHA256(key, salt), so two calls with the
// same plaintext and key never produce the same output.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const (
	formatVersion byte = 1
	saltSize           = 16
	nonceSize          = 12
	aesKeySize         = 32

	messageKeyInfo = "fm/message-key"
)

// DeriveMasterKey stretches a password with Argon2id into a 32-byte key.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// Hash returns the hex-encoded SHA-256 digest of input.
func Hash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

func newAEAD(key string, salt []byte) (cipher.AEAD, error) {
	k := make([]byte, aesKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(key), salt, []byte(messageKeyInfo)), k); err != nil {
		return nil, err
	}
	defer common.WipeByteArray(k)

	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under key. Output is randomized by a fresh salt and
// nonce and is always invertible with the same key.
func Encrypt(plaintext, key string) (string, error) {
	header := make([]byte, 1+saltSize+nonceSize)
	header[0] = formatVersion
	if _, err := rand.Read(header[1:]); err != nil {
		return "", fmt.Errorf("random: %w", err)
	}
	salt := header[1 : 1+saltSize]
	nonce := header[1+saltSize:]

	aead, err := newAEAD(key, salt)
	if err != nil {
		return "", fmt.Errorf("cipher init: %w", err)
	}

	out := aead.Seal(header, nonce, []byte(plaintext), header[:1])
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens a value produced by Encrypt. A wrong key, a malformed or a
// truncated ciphertext all fail with common.ErrDecryption; an empty plaintext
// is only ever returned when an empty string was encrypted.
func Decrypt(ciphertext, key string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: malformed encoding", common.ErrDecryption)
	}
	if len(raw) < 1+saltSize+nonceSize {
		return "", fmt.Errorf("%w: truncated ciphertext", common.ErrDecryption)
	}
	if raw[0] != formatVersion {
		return "", fmt.Errorf("%w: unknown format version %d", common.ErrDecryption, raw[0])
	}

	salt := raw[1 : 1+saltSize]
	nonce := raw[1+saltSize : 1+saltSize+nonceSize]
	body := raw[1+saltSize+nonceSize:]

	aead, err := newAEAD(key, salt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrDecryption, err)
	}
	if len(body) < aead.Overhead() {
		return "", fmt.Errorf("%w: truncated ciphertext", common.ErrDecryption)
	}

	plaintext, err := aead.Open(nil, nonce, body, raw[:1])
	if err != nil {
		return "", fmt.Errorf("%w: wrong key or corrupt data", common.ErrDecryption)
	}
	return string(plaintext), nil
}

// EncryptEntry serializes entry to JSON and encrypts it under key.
//
// Example:
//
//	type Note struct {
//	    Title string `json:"title"`
//	}
//
//	ct, err := EncryptEntry(Note{Title: "todo"}, key)
//	if err != nil {
//	    log.Fatal(err)
//	}
func EncryptEntry(entry any, key string) (string, error) {
	plaintext, err := json.Marshal(entry)
	if err != nil {
		return "", err
	}
	return Encrypt(string(plaintext), key)
}

// EncryptFileName maps a human file name to an opaque, stable name that can be
// exposed to a remote store without leaking the original.
func EncryptFileName(name string) string {
	return "file_" + Hash(name)
}
