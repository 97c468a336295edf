/*
crypto.go - Passphrase sealing for backup archives

FORMAT:
  magic "BWS1" || 16-byte scrypt salt || 12-byte GCM nonce || ciphertext.
  The key is derived with scrypt (N=2^15, r=8, p=1, 32 bytes) and the
  archive sealed with AES-256-GCM, so tampering fails authentication
  instead of producing garbage state on restore.
*/
package backup

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"

	"github.com/bvolvy/bwat-sekre/bank"
)

var sealMagic = []byte("BWS1")

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// IsSealed reports whether data is an encrypted archive.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, sealMagic)
}

// Seal encrypts plain with a key derived from the passphrase.
func Seal(plain []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("empty passphrase")
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	gcm, err := keyedGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(sealMagic)+saltSize+nonceSize+len(plain)+gcm.Overhead())
	out = append(out, sealMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plain, nil)
	return out, nil
}

// Open decrypts a sealed archive. A wrong passphrase or a tampered
// document fails authentication and returns ErrInvalidArchive.
func Open(sealed []byte, passphrase string) ([]byte, error) {
	if !IsSealed(sealed) {
		return nil, fmt.Errorf("%w: not a sealed archive", bank.ErrInvalidArchive)
	}
	rest := sealed[len(sealMagic):]
	if len(rest) < saltSize+nonceSize {
		return nil, fmt.Errorf("%w: truncated sealed archive", bank.ErrInvalidArchive)
	}
	salt := rest[:saltSize]
	nonce := rest[saltSize : saltSize+nonceSize]
	ciphertext := rest[saltSize+nonceSize:]

	gcm, err := keyedGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decryption failed", bank.ErrInvalidArchive)
	}
	return plain, nil
}

func keyedGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
