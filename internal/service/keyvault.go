package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"smiles-ledger/config"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for deriving the vault key from a passphrase.
const (
	vaultArgon2Time    = 1
	vaultArgon2Memory  = 64 * 1024 // 64MB
	vaultArgon2Threads = 4
	vaultKeyLen        = 32
)

// AESKeyVault implements ports.KeyVault using AES-256-GCM. Every wallet's
// signing key is sealed with a fresh random nonce before it touches the
// database. Decryption is fail closed: a tampered or truncated ciphertext
// is an error, never an empty key.
type AESKeyVault struct {
	key []byte // 32-byte key for AES-256
}

// NewAESKeyVault builds the vault from configuration. The key is either
// supplied directly as 64 hex characters or derived from a passphrase and
// salt with argon2id.
func NewAESKeyVault(cfg config.VaultConfig) (*AESKeyVault, error) {
	if cfg.Key != "" {
		key, err := hex.DecodeString(cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("decoding vault key: %w", err)
		}
		if len(key) != vaultKeyLen {
			return nil, fmt.Errorf("vault key must be %d bytes, got %d", vaultKeyLen, len(key))
		}
		return &AESKeyVault{key: key}, nil
	}

	if cfg.Passphrase == "" || cfg.Salt == "" {
		return nil, errors.New("vault requires either a key or a passphrase and salt")
	}
	key := argon2.IDKey([]byte(cfg.Passphrase), []byte(cfg.Salt),
		vaultArgon2Time, vaultArgon2Memory, vaultArgon2Threads, vaultKeyLen)
	return &AESKeyVault{key: key}, nil
}

// Encrypt seals a plaintext signing key.
// Returns hex-encoded string: nonce + ciphertext.
func (v *AESKeyVault) Encrypt(plaintextKey string) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM: %w", err)
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintextKey), nil)
	return hex.EncodeToString(ciphertext), nil
}

// Decrypt opens a hex-encoded sealed signing key.
func (v *AESKeyVault) Decrypt(ciphertextHex string) (string, error) {
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM: %w", err)
	}

	nonceSize := aesGCM.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}

	return string(plaintext), nil
}
