package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smiles-ledger/internal/core/domain"
	"smiles-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.LedgerTransactionRepository.
//
// ledger_transactions carries a partial unique index:
//
//	CREATE UNIQUE INDEX ledger_transactions_confirmed_ref
//	    ON ledger_transactions (app_event_ref) WHERE status = 'CONFIRMED';
//
// so at most one confirmed row can ever exist per app event, while failed
// attempts accumulate freely for the audit trail.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends a ledger transaction row. Rows are immutable after insert.
func (r *TransactionRepo) Create(ctx context.Context, t *domain.LedgerTransaction) error {
	query := `INSERT INTO ledger_transactions (id, kind, from_account_id, to_account_id, amount, app_event_ref, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.Kind, t.FromAccountID, t.ToAccountID,
		t.Amount, t.AppEventRef, t.Status, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by its ledger-issued identifier.
func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*domain.LedgerTransaction, error) {
	query := `SELECT id, kind, from_account_id, to_account_id, amount, app_event_ref, status, created_at
		FROM ledger_transactions WHERE id = $1`

	return r.scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// GetConfirmedByEventRef returns the confirmed transaction for an app event
// ref, or nil when the event has not settled. Failed rows are ignored so a
// retry may supersede them.
func (r *TransactionRepo) GetConfirmedByEventRef(ctx context.Context, ref string) (*domain.LedgerTransaction, error) {
	query := `SELECT id, kind, from_account_id, to_account_id, amount, app_event_ref, status, created_at
		FROM ledger_transactions WHERE app_event_ref = $1 AND status = 'CONFIRMED'`

	return r.scanTransaction(r.pool.QueryRow(ctx, query, ref))
}

// List fetches transactions with filtering and pagination, newest first.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.LedgerTransaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.AccountID != nil {
		conditions = append(conditions, fmt.Sprintf("(from_account_id = $%d OR to_account_id = $%d)", argIdx, argIdx))
		args = append(args, *params.AccountID)
		argIdx++
	}
	if params.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIdx))
		args = append(args, *params.Kind)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM ledger_transactions" + where
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger transactions: %w", err)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	listQuery := fmt.Sprintf(
		`SELECT id, kind, from_account_id, to_account_id, amount, app_event_ref, status, created_at
		FROM ledger_transactions%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1,
	)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.LedgerTransaction
	for rows.Next() {
		var t domain.LedgerTransaction
		if err := rows.Scan(
			&t.ID, &t.Kind, &t.FromAccountID, &t.ToAccountID,
			&t.Amount, &t.AppEventRef, &t.Status, &t.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan ledger transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger transactions: %w", err)
	}

	return txns, total, nil
}

// GetStats returns aggregate supply figures over confirmed transactions.
func (r *TransactionRepo) GetStats(ctx context.Context) (*ports.LedgerStats, error) {
	query := `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'CONFIRMED'),
		COUNT(*) FILTER (WHERE status = 'FAILED'),
		COALESCE(SUM(amount) FILTER (WHERE status = 'CONFIRMED' AND kind = 'MINT'), 0),
		COALESCE(SUM(amount) FILTER (WHERE status = 'CONFIRMED' AND kind = 'BURN'), 0),
		COALESCE(SUM(amount) FILTER (WHERE status = 'CONFIRMED' AND kind = 'TRANSFER'), 0)
		FROM ledger_transactions`

	stats := &ports.LedgerStats{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalTransactions, &stats.Confirmed, &stats.Failed,
		&stats.TotalMinted, &stats.TotalBurned, &stats.TotalTransferred,
	)
	if err != nil {
		return nil, fmt.Errorf("get ledger stats: %w", err)
	}
	return stats, nil
}

// scanTransaction maps a single row, translating no-rows to (nil, nil).
func (r *TransactionRepo) scanTransaction(row pgx.Row) (*domain.LedgerTransaction, error) {
	t := &domain.LedgerTransaction{}
	err := row.Scan(
		&t.ID, &t.Kind, &t.FromAccountID, &t.ToAccountID,
		&t.Amount, &t.AppEventRef, &t.Status, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan ledger transaction: %w", err)
	}
	return t, nil
}
