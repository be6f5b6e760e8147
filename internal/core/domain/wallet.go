package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is the custodial ledger account held on behalf of a user or
// community. Exactly zero or one active wallet exists per owner; wallets are
// soft-deactivated, never deleted, to preserve the audit trail.
type Wallet struct {
	ID                  uuid.UUID `json:"id"`
	OwnerID             string    `json:"owner_id"`   // e.g. "user:42" or "community:7"
	AccountID           string    `json:"account_id"` // ledger-assigned, immutable
	PublicKey           string    `json:"public_key"`
	EncryptedPrivateKey string    `json:"-"` // AES-256-GCM ciphertext, decryptable only via the key vault
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
