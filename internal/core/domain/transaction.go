package domain

import "time"

// TransactionKind is the type of token movement on the ledger.
type TransactionKind string

const (
	TransactionKindMint      TransactionKind = "MINT"
	TransactionKindBurn      TransactionKind = "BURN"
	TransactionKindTransfer  TransactionKind = "TRANSFER"
	TransactionKindAssociate TransactionKind = "ASSOCIATE"
)

// TransactionStatus is the lifecycle state of a ledger transaction.
// SUBMITTED is the in-flight state; a transaction transitions exactly once
// to CONFIRMED or FAILED and is immutable afterwards.
type TransactionStatus string

const (
	TransactionStatusSubmitted TransactionStatus = "SUBMITTED"
	TransactionStatusConfirmed TransactionStatus = "CONFIRMED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// LedgerTransaction is the append-only record of one submitted ledger
// operation. ID is the ledger-issued transaction identifier. AppEventRef ties
// the row to exactly one application-level event; at most one row per ref may
// be CONFIRMED (a FAILED row never blocks a retry from confirming).
type LedgerTransaction struct {
	ID            string            `json:"id"`
	Kind          TransactionKind   `json:"kind"`
	FromAccountID *string           `json:"from_account_id,omitempty"` // nil for mint
	ToAccountID   *string           `json:"to_account_id,omitempty"`   // nil for burn
	Amount        int64             `json:"amount"`                    // smallest token unit
	AppEventRef   string            `json:"app_event_ref"`
	Status        TransactionStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

// IsTerminal returns true once the transaction reached a final state.
func (t *LedgerTransaction) IsTerminal() bool {
	return t.Status == TransactionStatusConfirmed || t.Status == TransactionStatusFailed
}

// Compound operations (mint-and-deliver, redeem-and-burn) persist one row per
// leg under derived refs so a retry can skip already-confirmed legs. The ref
// of the final leg doubles as the idempotency key of the whole operation.

// MintLegRef derives the ref of the supply-increase leg of a mint.
func MintLegRef(eventRef string) string {
	return eventRef + "#mint"
}

// TransferLegRef derives the ref of the delivery leg of a mint or redeem.
func TransferLegRef(eventRef string) string {
	return eventRef + "#xfer"
}

// AssociationRef derives the ref recorded for a token association, which has
// no caller-supplied idempotency key.
func AssociationRef(accountID string) string {
	return "associate:" + accountID
}
