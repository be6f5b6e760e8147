package ports

import (
	"context"
	"fmt"
	"time"
)

// ErrorKind is the closed classification of ledger gateway failures.
// Callers switch on the kind, never on error-message text.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindUnavailable covers transport failures, timeouts and node-busy
	// responses that survived the gateway's internal retries.
	KindUnavailable
	KindInsufficientBalance
	KindTokenNotAssociated
	KindAccountFrozen
	KindInvalidSignature
	KindAlreadyAssociated
	KindAccountNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "UNAVAILABLE"
	case KindInsufficientBalance:
		return "INSUFFICIENT_BALANCE"
	case KindTokenNotAssociated:
		return "TOKEN_NOT_ASSOCIATED"
	case KindAccountFrozen:
		return "ACCOUNT_FROZEN"
	case KindInvalidSignature:
		return "INVALID_SIGNATURE"
	case KindAlreadyAssociated:
		return "ALREADY_ASSOCIATED"
	case KindAccountNotFound:
		return "ACCOUNT_NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// GatewayError is the typed error returned by LedgerGateway operations.
// TransactionID is set when the submission was assigned an identifier before
// failing, so the orchestrator can persist an auditable FAILED row.
type GatewayError struct {
	Kind          ErrorKind
	TransactionID string
	Err           error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ledger gateway: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("ledger gateway: %s", e.Kind)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// AccountInfo is the result of provisioning a new ledger account. PrivateKey
// is plaintext hex and must be handed to the key vault immediately; it is
// never persisted or logged in this form.
type AccountInfo struct {
	AccountID  string
	PublicKey  string
	PrivateKey string
}

// Balance is a live, strongly-typed balance snapshot in smallest units.
type Balance struct {
	Native int64 `json:"native"`
	Token  int64 `json:"token"`
}

// SubmitResult reports a transaction that reached consensus.
type SubmitResult struct {
	TransactionID string
	ConsensusAt   time.Time
}

// LedgerGateway wraps the remote ledger network. Signing keys are supplied
// per call by the orchestrator, valid for the duration of the call only;
// treasury-signed operations (mint, burn, and transfers out of the treasury
// when signingKey is empty) use the operator credentials the gateway was
// constructed with. Balance and association queries always hit
// the network: this subsystem exists to prevent drift, so nothing here is
// served from a cache.
type LedgerGateway interface {
	CreateAccount(ctx context.Context, initialBalance int64) (*AccountInfo, error)
	AssociateToken(ctx context.Context, accountID string, signingKey string) (*SubmitResult, error)
	IsTokenAssociated(ctx context.Context, accountID string) (bool, error)
	Mint(ctx context.Context, amount int64) (*SubmitResult, error)
	Burn(ctx context.Context, amount int64) (*SubmitResult, error)
	Transfer(ctx context.Context, fromAccountID, toAccountID string, amount int64, signingKey string) (*SubmitResult, error)
	GetBalance(ctx context.Context, accountID string) (*Balance, error)
	// TreasuryAccountID returns the operator account that supply moves
	// through.
	TreasuryAccountID() string
}
