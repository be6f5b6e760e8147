package service

import (
	"strings"
	"testing"

	"smiles-ledger/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVaultKey = strings.Repeat("ab", 32)

func TestAESKeyVault_EncryptDecrypt(t *testing.T) {
	vault, err := NewAESKeyVault(config.VaultConfig{Key: testVaultKey})
	require.NoError(t, err)

	plaintext := strings.Repeat("11", 32) // hex ed25519 seed

	sealed, err := vault.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := vault.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestAESKeyVault_UniqueNonces(t *testing.T) {
	vault, err := NewAESKeyVault(config.VaultConfig{Key: testVaultKey})
	require.NoError(t, err)

	a, err := vault.Encrypt("same-key")
	require.NoError(t, err)
	b, err := vault.Encrypt("same-key")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "each seal must use a fresh nonce")
}

func TestAESKeyVault_PassphraseDerivation(t *testing.T) {
	cfg := config.VaultConfig{Passphrase: "correct horse battery", Salt: "smiles-ledger-v1"}

	vault1, err := NewAESKeyVault(cfg)
	require.NoError(t, err)
	vault2, err := NewAESKeyVault(cfg)
	require.NoError(t, err)

	// The derived key is deterministic: vault2 can open vault1's output.
	sealed, err := vault1.Encrypt("secret-seed")
	require.NoError(t, err)
	opened, err := vault2.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "secret-seed", opened)
}

func TestAESKeyVault_DecryptFailsClosed(t *testing.T) {
	vault, err := NewAESKeyVault(config.VaultConfig{Key: testVaultKey})
	require.NoError(t, err)

	sealed, err := vault.Encrypt("secret-seed")
	require.NoError(t, err)

	t.Run("tampered ciphertext", func(t *testing.T) {
		tampered := sealed[:len(sealed)-2] + "00"
		_, err := vault.Decrypt(tampered)
		assert.Error(t, err)
	})

	t.Run("truncated ciphertext", func(t *testing.T) {
		_, err := vault.Decrypt("aabb")
		assert.Error(t, err)
	})

	t.Run("not hex", func(t *testing.T) {
		_, err := vault.Decrypt("zzzz")
		assert.Error(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewAESKeyVault(config.VaultConfig{Key: strings.Repeat("cd", 32)})
		require.NoError(t, err)
		_, err = other.Decrypt(sealed)
		assert.Error(t, err)
	})
}

func TestNewAESKeyVault_InvalidConfig(t *testing.T) {
	_, err := NewAESKeyVault(config.VaultConfig{Key: "too-short"})
	assert.Error(t, err)

	_, err = NewAESKeyVault(config.VaultConfig{Key: "aabb"})
	assert.Error(t, err)

	_, err = NewAESKeyVault(config.VaultConfig{Passphrase: "only-passphrase"})
	assert.Error(t, err)

	_, err = NewAESKeyVault(config.VaultConfig{})
	assert.Error(t, err)
}
