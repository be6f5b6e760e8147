package integration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"smiles-ledger/internal/core/domain"
	"smiles-ledger/internal/core/ports"
)

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[string]*domain.Wallet // keyed by owner ID
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[string]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wallets[w.OwnerID]; ok {
		return ports.ErrDuplicateOwner
	}
	cp := *w
	r.wallets[w.OwnerID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByOwnerID(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[ownerID]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByAccountID(ctx context.Context, accountID string) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.AccountID == accountID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) Deactivate(ctx context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[ownerID]
	if !ok {
		return fmt.Errorf("wallet not found for owner %s", ownerID)
	}
	w.IsActive = false
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu   sync.RWMutex
	rows []*domain.LedgerTransaction
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx *domain.LedgerTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.Status == domain.TransactionStatusConfirmed {
		// Mirrors the partial unique index on (app_event_ref) WHERE CONFIRMED.
		for _, row := range r.rows {
			if row.AppEventRef == tx.AppEventRef && row.Status == domain.TransactionStatusConfirmed {
				return fmt.Errorf("duplicate confirmed row for ref %s", tx.AppEventRef)
			}
		}
	}
	cp := *tx
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id string) (*domain.LedgerTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.rows {
		if row.ID == id {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) GetConfirmedByEventRef(ctx context.Context, ref string) (*domain.LedgerTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.rows {
		if row.AppEventRef == ref && row.Status == domain.TransactionStatusConfirmed {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.LedgerTransaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.LedgerTransaction
	for _, row := range r.rows {
		if params.AccountID != nil {
			from := row.FromAccountID != nil && *row.FromAccountID == *params.AccountID
			to := row.ToAccountID != nil && *row.ToAccountID == *params.AccountID
			if !from && !to {
				continue
			}
		}
		if params.Kind != nil && row.Kind != *params.Kind {
			continue
		}
		if params.Status != nil && row.Status != *params.Status {
			continue
		}
		matched = append(matched, *row)
	}

	total := int64(len(matched))
	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *inMemoryTransactionRepo) GetStats(ctx context.Context) (*ports.LedgerStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &ports.LedgerStats{}
	for _, row := range r.rows {
		stats.TotalTransactions++
		switch row.Status {
		case domain.TransactionStatusConfirmed:
			stats.Confirmed++
			switch row.Kind {
			case domain.TransactionKindMint:
				stats.TotalMinted += row.Amount
			case domain.TransactionKindBurn:
				stats.TotalBurned += row.Amount
			case domain.TransactionKindTransfer:
				stats.TotalTransferred += row.Amount
			}
		case domain.TransactionStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// --- Fake Ledger Gateway ---

// fakeGateway simulates the ledger network in memory: account balances,
// token associations, and a per-operation call counter. Transfers fail with
// KindInsufficientBalance exactly as the live network would, so orchestrator
// behavior around failed submissions is exercised for real.
type fakeGateway struct {
	mu           sync.Mutex
	treasury     string
	nextAccount  int
	balances     map[string]int64 // token balance per account
	native       map[string]int64
	associated   map[string]bool
	nextTxSeq    int
	calls        map[string]int // method name -> invocation count
	opLog        []string       // "method:account" in submission order
	failTransfer bool           // force KindUnavailable on transfers
}

func newFakeGateway() *fakeGateway {
	g := &fakeGateway{
		treasury:    "0.0.2",
		nextAccount: 1001,
		balances:    make(map[string]int64),
		native:      make(map[string]int64),
		associated:  make(map[string]bool),
		calls:       make(map[string]int),
	}
	g.associated[g.treasury] = true
	return g
}

func (g *fakeGateway) callCount(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[method]
}

func (g *fakeGateway) operations() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.opLog))
	copy(out, g.opLog)
	return out
}

func (g *fakeGateway) submit(method, account string) *ports.SubmitResult {
	g.calls[method]++
	g.opLog = append(g.opLog, method+":"+account)
	g.nextTxSeq++
	return &ports.SubmitResult{
		TransactionID: fmt.Sprintf("%s@%d.%d", g.treasury, time.Now().Unix(), g.nextTxSeq),
		ConsensusAt:   time.Now().UTC(),
	}
}

func (g *fakeGateway) CreateAccount(ctx context.Context, initialBalance int64) (*ports.AccountInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	accountID := fmt.Sprintf("0.0.%d", g.nextAccount)
	g.nextAccount++
	g.native[accountID] = initialBalance
	g.submit("create_account", accountID)
	return &ports.AccountInfo{
		AccountID:  accountID,
		PublicKey:  "pub-" + accountID,
		PrivateKey: strings.Repeat("ab", 32),
	}, nil
}

func (g *fakeGateway) AssociateToken(ctx context.Context, accountID, signingKey string) (*ports.SubmitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if signingKey == "" {
		return nil, &ports.GatewayError{Kind: ports.KindInvalidSignature}
	}
	if g.associated[accountID] {
		return nil, &ports.GatewayError{Kind: ports.KindAlreadyAssociated}
	}
	g.associated[accountID] = true
	return g.submit("associate", accountID), nil
}

func (g *fakeGateway) IsTokenAssociated(ctx context.Context, accountID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.associated[accountID], nil
}

func (g *fakeGateway) Mint(ctx context.Context, amount int64) (*ports.SubmitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balances[g.treasury] += amount
	return g.submit("mint", g.treasury), nil
}

func (g *fakeGateway) Burn(ctx context.Context, amount int64) (*ports.SubmitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.balances[g.treasury] < amount {
		return nil, &ports.GatewayError{Kind: ports.KindInsufficientBalance}
	}
	g.balances[g.treasury] -= amount
	return g.submit("burn", g.treasury), nil
}

func (g *fakeGateway) Transfer(ctx context.Context, fromAccountID, toAccountID string, amount int64, signingKey string) (*ports.SubmitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failTransfer {
		return nil, &ports.GatewayError{Kind: ports.KindUnavailable}
	}
	if signingKey == "" && fromAccountID != g.treasury {
		return nil, &ports.GatewayError{Kind: ports.KindInvalidSignature}
	}
	if !g.associated[toAccountID] {
		res := g.submit("transfer", fromAccountID)
		return nil, &ports.GatewayError{Kind: ports.KindTokenNotAssociated, TransactionID: res.TransactionID}
	}
	if g.balances[fromAccountID] < amount {
		res := g.submit("transfer", fromAccountID)
		return nil, &ports.GatewayError{Kind: ports.KindInsufficientBalance, TransactionID: res.TransactionID}
	}
	g.balances[fromAccountID] -= amount
	g.balances[toAccountID] += amount
	return g.submit("transfer", fromAccountID), nil
}

func (g *fakeGateway) GetBalance(ctx context.Context, accountID string) (*ports.Balance, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &ports.Balance{Native: g.native[accountID], Token: g.balances[accountID]}, nil
}

func (g *fakeGateway) TreasuryAccountID() string {
	return g.treasury
}
