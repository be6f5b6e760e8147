package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerTransaction_IsTerminal(t *testing.T) {
	tests := []struct {
		status   TransactionStatus
		terminal bool
	}{
		{TransactionStatusSubmitted, false},
		{TransactionStatusConfirmed, true},
		{TransactionStatusFailed, true},
	}

	for _, tt := range tests {
		tx := &LedgerTransaction{Status: tt.status}
		assert.Equal(t, tt.terminal, tx.IsTerminal(), "status %s", tt.status)
	}
}

func TestLegRefs(t *testing.T) {
	assert.Equal(t, "mission:m1:u1#mint", MintLegRef("mission:m1:u1"))
	assert.Equal(t, "mission:m1:u1#xfer", TransferLegRef("mission:m1:u1"))
	assert.Equal(t, "associate:0.0.1234", AssociationRef("0.0.1234"))
}

func TestWallet_JSONNeverExposesEncryptedKey(t *testing.T) {
	w := &Wallet{
		OwnerID:             "user:1",
		AccountID:           "0.0.1001",
		PublicKey:           "302a300506",
		EncryptedPrivateKey: "deadbeefciphertext",
		IsActive:            true,
	}

	raw, err := json.Marshal(w)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "deadbeefciphertext")
	assert.Contains(t, string(raw), "0.0.1001")
}
