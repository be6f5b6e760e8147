package ports

import (
	"context"
	"errors"

	"smiles-ledger/internal/core/domain"
)

// ErrDuplicateOwner is returned by WalletRepository.Create when a wallet row
// already exists for the owner (unique constraint on owner_id). Concurrent
// provisioning races across processes resolve through this error.
var ErrDuplicateOwner = errors.New("wallet already exists for owner")

// WalletRepository defines persistence operations for custodial wallets.
// Lookups return (nil, nil) when no row matches.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByOwnerID(ctx context.Context, ownerID string) (*domain.Wallet, error)
	GetByAccountID(ctx context.Context, accountID string) (*domain.Wallet, error)
	// Deactivate flips is_active to false. The row and the underlying ledger
	// account are preserved.
	Deactivate(ctx context.Context, ownerID string) error
}

// LedgerTransactionRepository persists the append-only record of submitted
// ledger operations. Rows are immutable once written; retries insert new rows
// under the same app_event_ref rather than mutating failed ones. A partial
// unique index on app_event_ref WHERE status = 'CONFIRMED' enforces the
// at-most-one-confirmed invariant.
type LedgerTransactionRepository interface {
	Create(ctx context.Context, tx *domain.LedgerTransaction) error
	GetByID(ctx context.Context, id string) (*domain.LedgerTransaction, error)
	// GetConfirmedByEventRef returns the confirmed row for ref, or (nil, nil).
	// This is the idempotency check: a hit means the event already settled.
	GetConfirmedByEventRef(ctx context.Context, ref string) (*domain.LedgerTransaction, error)
	// Reporting queries
	List(ctx context.Context, params TransactionListParams) ([]domain.LedgerTransaction, int64, error)
	GetStats(ctx context.Context) (*LedgerStats, error)
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	AccountID *string // matches either side of the movement
	Kind      *domain.TransactionKind
	Status    *domain.TransactionStatus
	Page      int
	PageSize  int
}

// LedgerStats holds aggregate token-supply figures for the admin dashboard.
type LedgerStats struct {
	TotalTransactions int64
	Confirmed         int64
	Failed            int64
	TotalMinted       int64 // Sum of confirmed mint amounts
	TotalBurned       int64 // Sum of confirmed burn amounts
	TotalTransferred  int64 // Sum of confirmed transfer amounts
}
