// Package recordingcrypto seals recording audio at rest. Each recording
// gets its own random key material and salt; the AES key is derived
// with HKDF-SHA256 so the stored material alone never equals the key.
package recordingcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the derived AES-256 key length in bytes.
	KeySize = 32
	// MaterialSize is the length of the random input key material.
	MaterialSize = 32
	// SaltSize is the HKDF salt length.
	SaltSize = 16

	keyInfo = "voicebank-recording-v1"
)

// NewMaterial returns fresh random key material and salt for one
// recording.
func NewMaterial() (material, salt []byte, err error) {
	material = make([]byte, MaterialSize)
	if _, err = rand.Read(material); err != nil {
		return nil, nil, err
	}
	salt = make([]byte, SaltSize)
	if _, err = rand.Read(salt); err != nil {
		return nil, nil, err
	}
	return material, salt, nil
}

// DeriveKey expands key material and salt into an AES-256 key.
func DeriveKey(material, salt []byte) ([]byte, error) {
	if len(material) == 0 {
		return nil, errors.New("key material is required")
	}
	if len(salt) == 0 {
		return nil, errors.New("salt is required")
	}

	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, material, salt, []byte(keyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Seal encrypts plaintext with AES-GCM under the given key. The nonce
// is prefixed to the returned ciphertext.
func Seal(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts ciphertext produced by Seal.
func Open(key, ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.New("decryption failed")
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, errors.New("key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
