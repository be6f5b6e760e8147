package postgres

import (
	"context"
	"testing"
	"time"

	"smiles-ledger/internal/core/domain"
	"smiles-ledger/internal/core/ports"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction(ref string) *domain.LedgerTransaction {
	from := "0.0.2"
	to := "0.0.1001"
	return &domain.LedgerTransaction{
		ID:            "0.0.2@1756400000.123456789",
		Kind:          domain.TransactionKindTransfer,
		FromAccountID: &from,
		ToAccountID:   &to,
		Amount:        100,
		AppEventRef:   ref,
		Status:        domain.TransactionStatusConfirmed,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func transactionColumns() []string {
	return []string{"id", "kind", "from_account_id", "to_account_id", "amount", "app_event_ref", "status", "created_at"}
}

func transactionRow(t *domain.LedgerTransaction) *pgxmock.Rows {
	return pgxmock.NewRows(transactionColumns()).AddRow(
		t.ID, t.Kind, t.FromAccountID, t.ToAccountID,
		t.Amount, t.AppEventRef, t.Status, t.CreatedAt,
	)
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction("evt:checkin:9001")

	mock.ExpectExec("INSERT INTO ledger_transactions").
		WithArgs(txn.ID, txn.Kind, txn.FromAccountID, txn.ToAccountID,
			txn.Amount, txn.AppEventRef, txn.Status, txn.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), txn)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction("evt:checkin:9001")

	mock.ExpectQuery("SELECT (.+) FROM ledger_transactions WHERE id").
		WithArgs(txn.ID).
		WillReturnRows(transactionRow(txn))

	got, err := repo.GetByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.TransactionKindTransfer, got.Kind)
	assert.Equal(t, int64(100), got.Amount)
}

func TestTransactionRepo_GetConfirmedByEventRef(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction("evt:checkin:9001")

	mock.ExpectQuery("SELECT (.+) FROM ledger_transactions WHERE app_event_ref").
		WithArgs("evt:checkin:9001").
		WillReturnRows(transactionRow(txn))

	got, err := repo.GetConfirmedByEventRef(context.Background(), "evt:checkin:9001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.TransactionStatusConfirmed, got.Status)
}

func TestTransactionRepo_GetConfirmedByEventRef_None(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT (.+) FROM ledger_transactions WHERE app_event_ref").
		WithArgs("evt:never-seen").
		WillReturnRows(pgxmock.NewRows(transactionColumns()))

	got, err := repo.GetConfirmedByEventRef(context.Background(), "evt:never-seen")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestTransactionRepo_List_Filtered(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction("evt:checkin:9001")
	account := "0.0.1001"
	kind := domain.TransactionKindTransfer

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM ledger_transactions").
		WithArgs(account, kind).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	mock.ExpectQuery("SELECT (.+) FROM ledger_transactions").
		WithArgs(account, kind, 20, 0).
		WillReturnRows(transactionRow(txn))

	txns, total, err := repo.List(context.Background(), ports.TransactionListParams{
		AccountID: &account,
		Kind:      &kind,
		Page:      1,
		PageSize:  20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, txns, 1)
	assert.Equal(t, txn.ID, txns[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_List_ClampsPagination(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM ledger_transactions").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))

	mock.ExpectQuery("SELECT (.+) FROM ledger_transactions").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(transactionColumns()))

	_, _, err = repo.List(context.Background(), ports.TransactionListParams{Page: 0, PageSize: 500})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT").
		WillReturnRows(pgxmock.NewRows([]string{
			"count", "confirmed", "failed", "minted", "burned", "transferred",
		}).AddRow(int64(10), int64(8), int64(2), int64(500), int64(120), int64(380)))

	stats, err := repo.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalTransactions)
	assert.Equal(t, int64(8), stats.Confirmed)
	assert.Equal(t, int64(2), stats.Failed)
	assert.Equal(t, int64(500), stats.TotalMinted)
	assert.Equal(t, int64(120), stats.TotalBurned)
	assert.Equal(t, int64(380), stats.TotalTransferred)
}
