package ports

import (
	"context"
	"time"

	"smiles-ledger/internal/core/domain"
)

// KeyVault encrypts signing keys at rest with AES-256-GCM. Decrypted keys are
// scoped, non-persisted values: callers must not log or cache them.
type KeyVault interface {
	Encrypt(plaintextKey string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TokenService issues and validates the JWT bearer tokens used by the
// platform's internal callers (mission, donation and reward services).
type TokenService interface {
	Generate(serviceName string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	ServiceName string
}

// IdempotencyCache is the Redis-layer replay check (fast path ahead of the
// confirmed-row lookup in postgres).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached payload or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// WalletRegistry owns the owner -> ledger account mapping and its lifecycle.
type WalletRegistry interface {
	// GetOrCreate returns the owner's active wallet, provisioning one on
	// first use. Concurrent calls for the same owner collapse onto a single
	// on-chain account creation.
	GetOrCreate(ctx context.Context, ownerID string) (*domain.Wallet, error)
	// Get returns the owner's wallet or (nil, nil), inactive wallets included.
	Get(ctx context.Context, ownerID string) (*domain.Wallet, error)
	Deactivate(ctx context.Context, ownerID string) error
}

// --- Orchestrator (public operation surface) ---

// LedgerService mediates every token-moving operation: it resolves wallets,
// enforces idempotency per app event ref, serializes signing per account and
// records the resulting ledger transactions.
type LedgerService interface {
	CreateWallet(ctx context.Context, ownerID string) (*domain.Wallet, error)
	GetBalance(ctx context.Context, ownerID string) (*Balance, error)
	Mint(ctx context.Context, req MintRequest) (*TransactionResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransactionResult, error)
	Burn(ctx context.Context, req BurnRequest) (*TransactionResult, error)
	// AssociateToken links the owner's account to the reward token. Returns
	// true whether the association was just submitted or already in place.
	AssociateToken(ctx context.Context, ownerID string) (bool, error)
	DeactivateWallet(ctx context.Context, ownerID string) error
}

// MintRequest credits freshly minted tokens to an owner (mission rewards).
// EventRef is the caller-supplied idempotency key, e.g. "mission:m1:u1".
type MintRequest struct {
	OwnerID  string
	Amount   int64
	EventRef string
}

// TransferRequest moves tokens between two owners (donations, purchases).
type TransferRequest struct {
	FromOwnerID string
	ToOwnerID   string
	Amount      int64
	EventRef    string
}

// BurnRequest retires tokens from an owner's balance (reward redemption).
type BurnRequest struct {
	OwnerID  string
	Amount   int64
	EventRef string
}

// TransactionResult is the settled outcome of a token-moving operation.
// NewBalance is always a fresh network query, never local arithmetic.
type TransactionResult struct {
	TransactionID string `json:"transaction_id"`
	NewBalance    int64  `json:"new_balance"`
}

// --- Reporting ---

// ReportingService exposes the transaction record for the admin dashboard.
type ReportingService interface {
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.LedgerTransaction, int64, error)
	GetStats(ctx context.Context) (*LedgerStats, error)
}

// --- Notification ---

// Notifier publishes confirmed ledger transactions to the platform callback
// so derived balance caches refresh from confirmed events only.
type Notifier interface {
	NotifyConfirmed(ctx context.Context, tx *domain.LedgerTransaction) error
}
