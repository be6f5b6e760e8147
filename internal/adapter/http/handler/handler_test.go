package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smiles-ledger/internal/adapter/http/dto"
	"smiles-ledger/internal/core/domain"
	"smiles-ledger/internal/core/ports"
	"smiles-ledger/internal/core/ports/mocks"
	"smiles-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func postJSON(t *testing.T, handlerFn gin.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	handlerFn(c)
	return w
}

func dataField(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data envelope: %s", w.Body.String())
	return data
}

// --- Auth Handler Tests ---

func TestIssueToken_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockToken := mocks.NewMockTokenService(ctrl)
	expiry := time.Now().Add(time.Hour)
	mockToken.EXPECT().Generate("rewards-engine").Return("signed.jwt.token", expiry, nil)

	h := NewAuthHandler(mockToken, map[string]string{"rewards-engine": "key-123"})
	w := postJSON(t, h.IssueToken, "/api/v1/auth/token", dto.TokenRequest{
		ServiceName: "rewards-engine",
		APIKey:      "key-123",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, "signed.jwt.token", data["token"])
	assert.Equal(t, float64(expiry.Unix()), data["expiry"])
}

func TestIssueToken_WrongKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockToken := mocks.NewMockTokenService(ctrl)
	h := NewAuthHandler(mockToken, map[string]string{"rewards-engine": "key-123"})

	w := postJSON(t, h.IssueToken, "/api/v1/auth/token", dto.TokenRequest{
		ServiceName: "rewards-engine",
		APIKey:      "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_002")
}

func TestIssueToken_UnknownService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockToken := mocks.NewMockTokenService(ctrl)
	h := NewAuthHandler(mockToken, map[string]string{"rewards-engine": "key-123"})

	w := postJSON(t, h.IssueToken, "/api/v1/auth/token", dto.TokenRequest{
		ServiceName: "impostor",
		APIKey:      "key-123",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- Wallet Handler Tests ---

func testWallet() *domain.Wallet {
	return &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   "user:42",
		AccountID: "0.0.1001",
		PublicKey: "ed25519-pub-hex",
		IsActive:  true,
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCreateWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	wallet := testWallet()
	mockSvc.EXPECT().CreateWallet(gomock.Any(), "user:42").Return(wallet, nil)

	h := NewWalletHandler(mockSvc)
	w := postJSON(t, h.Create, "/api/v1/wallets", dto.CreateWalletRequest{OwnerID: "user:42"})

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataField(t, w)
	assert.Equal(t, "user:42", data["owner_id"])
	assert.Equal(t, "0.0.1001", data["account_id"])
	assert.Equal(t, true, data["is_active"])
}

func TestCreateWallet_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	mockSvc.EXPECT().CreateWallet(gomock.Any(), "user:42").Return(nil, apperror.ErrWalletAlreadyExists())

	h := NewWalletHandler(mockSvc)
	w := postJSON(t, h.Create, "/api/v1/wallets", dto.CreateWalletRequest{OwnerID: "user:42"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "WAL_002")
}

func TestCreateWallet_RejectsUnsafeOwnerID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mockSvc)

	w := postJSON(t, h.Create, "/api/v1/wallets", map[string]string{"owner_id": "user 42; drop"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	mockSvc.EXPECT().GetBalance(gomock.Any(), "user:42").Return(&ports.Balance{Native: 5_000, Token: 120}, nil)

	h := NewWalletHandler(mockSvc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallets/user:42/balance", nil)
	c.Params = gin.Params{{Key: "owner_id", Value: "user:42"}}

	h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, float64(5_000), data["native"])
	assert.Equal(t, float64(120), data["token"])
}

func TestGetBalance_WalletNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	mockSvc.EXPECT().GetBalance(gomock.Any(), "user:404").Return(nil, apperror.ErrWalletNotFound())

	h := NewWalletHandler(mockSvc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallets/user:404/balance", nil)
	c.Params = gin.Params{{Key: "owner_id", Value: "user:404"}}

	h.GetBalance(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "WAL_001")
}

func TestGetBalance_RejectsUnsafeParam(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl) // no calls expected

	h := NewWalletHandler(mockSvc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallets/x/balance", nil)
	c.Params = gin.Params{{Key: "owner_id", Value: "user';--"}}

	h.GetBalance(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeactivateWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	mockSvc.EXPECT().DeactivateWallet(gomock.Any(), "user:42").Return(nil)

	h := NewWalletHandler(mockSvc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, "/api/v1/wallets/user:42", nil)
	c.Params = gin.Params{{Key: "owner_id", Value: "user:42"}}

	h.Deactivate(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, false, data["is_active"])
}

func TestAssociate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	mockSvc.EXPECT().AssociateToken(gomock.Any(), "user:42").Return(true, nil)

	h := NewWalletHandler(mockSvc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/wallets/user:42/associate", nil)
	c.Params = gin.Params{{Key: "owner_id", Value: "user:42"}}

	h.Associate(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, true, data["associated"])
}

// --- Token Handler Tests ---

func TestMint_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	mockSvc.EXPECT().Mint(gomock.Any(), ports.MintRequest{
		OwnerID:  "user:42",
		Amount:   100,
		EventRef: "mission:m1:u42",
	}).Return(&ports.TransactionResult{TransactionID: "0.0.2@1.2", NewBalance: 100}, nil)

	h := NewTokenHandler(mockSvc)
	w := postJSON(t, h.Mint, "/api/v1/tokens/mint", dto.MintRequest{
		OwnerID:  "user:42",
		Amount:   100,
		EventRef: "mission:m1:u42",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, "0.0.2@1.2", data["transaction_id"])
	assert.Equal(t, float64(100), data["new_balance"])
}

func TestMint_ValidationErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl) // no calls expected
	h := NewTokenHandler(mockSvc)

	tests := []struct {
		name string
		body any
	}{
		{"missing owner", map[string]any{"amount": 100, "event_ref": "e1"}},
		{"zero amount", map[string]any{"owner_id": "user:42", "amount": 0, "event_ref": "e1"}},
		{"negative amount", map[string]any{"owner_id": "user:42", "amount": -5, "event_ref": "e1"}},
		{"missing event ref", map[string]any{"owner_id": "user:42", "amount": 100}},
		{"unsafe event ref", map[string]any{"owner_id": "user:42", "amount": 100, "event_ref": "e 1;"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, h.Mint, "/api/v1/tokens/mint", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestTransfer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	mockSvc.EXPECT().Transfer(gomock.Any(), ports.TransferRequest{
		FromOwnerID: "user:42",
		ToOwnerID:   "community:7",
		Amount:      25,
		EventRef:    "donation:d9",
	}).Return(&ports.TransactionResult{TransactionID: "0.0.1001@3.4", NewBalance: 75}, nil)

	h := NewTokenHandler(mockSvc)
	w := postJSON(t, h.Transfer, "/api/v1/tokens/transfer", dto.TransferRequest{
		FromOwnerID: "user:42",
		ToOwnerID:   "community:7",
		Amount:      25,
		EventRef:    "donation:d9",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, float64(75), data["new_balance"])
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	mockSvc.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientBalance())

	h := NewTokenHandler(mockSvc)
	w := postJSON(t, h.Transfer, "/api/v1/tokens/transfer", dto.TransferRequest{
		FromOwnerID: "user:42",
		ToOwnerID:   "community:7",
		Amount:      9999,
		EventRef:    "donation:d10",
	})

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "LED_001")
}

func TestBurn_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	mockSvc.EXPECT().Burn(gomock.Any(), ports.BurnRequest{
		OwnerID:  "user:42",
		Amount:   50,
		EventRef: "redeem:r3",
	}).Return(&ports.TransactionResult{TransactionID: "0.0.1001@5.6", NewBalance: 25}, nil)

	h := NewTokenHandler(mockSvc)
	w := postJSON(t, h.Burn, "/api/v1/tokens/burn", dto.BurnRequest{
		OwnerID:  "user:42",
		Amount:   50,
		EventRef: "redeem:r3",
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBurn_LedgerUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	mockSvc.EXPECT().Burn(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrLedgerUnavailable(errors.New("node timeout")))

	h := NewTokenHandler(mockSvc)
	w := postJSON(t, h.Burn, "/api/v1/tokens/burn", dto.BurnRequest{
		OwnerID:  "user:42",
		Amount:   50,
		EventRef: "redeem:r4",
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "LED_005")
}

// --- Reporting Handler Tests ---

func TestListTransactions_Filters(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockReportingService(ctrl)
	from := "0.0.2"
	to := "0.0.1001"
	mockSvc.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.TransactionListParams) ([]domain.LedgerTransaction, int64, error) {
			require.NotNil(t, params.AccountID)
			assert.Equal(t, "0.0.1001", *params.AccountID)
			require.NotNil(t, params.Kind)
			assert.Equal(t, domain.TransactionKindMint, *params.Kind)
			assert.Equal(t, 2, params.Page)
			return []domain.LedgerTransaction{{
				ID:            "0.0.2@1.2",
				Kind:          domain.TransactionKindMint,
				FromAccountID: &from,
				ToAccountID:   &to,
				Amount:        100,
				AppEventRef:   "mission:m1:u42",
				Status:        domain.TransactionStatusConfirmed,
				CreatedAt:     time.Now(),
			}}, 21, nil
		})

	h := NewReportingHandler(mockSvc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/transactions?account_id=0.0.1001&kind=mint&page=2", nil)

	h.ListTransactions(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, float64(21), data["total"])
	txns := data["transactions"].([]interface{})
	require.Len(t, txns, 1)
	assert.Equal(t, "MINT", txns[0].(map[string]interface{})["kind"])
}

func TestListTransactions_InvalidKind(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockReportingService(ctrl) // no calls expected

	h := NewReportingHandler(mockSvc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/transactions?kind=bogus", nil)

	h.ListTransactions(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStats_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockReportingService(ctrl)
	mockSvc.EXPECT().GetStats(gomock.Any()).Return(&ports.LedgerStats{
		TotalTransactions: 10,
		Confirmed:         8,
		Failed:            2,
		TotalMinted:       1000,
		TotalBurned:       200,
		TotalTransferred:  450,
	}, nil)

	h := NewReportingHandler(mockSvc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/transactions/stats", nil)

	h.GetStats(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, float64(1000), data["total_minted"])
	assert.Equal(t, float64(200), data["total_burned"])
}

// --- Health Check Tests ---

type fakeChecker struct {
	name string
	err  error
}

func (f fakeChecker) Ping(context.Context) error { return f.err }
func (f fakeChecker) Name() string               { return f.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(fakeChecker{name: "postgres"}, fakeChecker{name: "redis"}, fakeChecker{name: "ledger"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(fakeChecker{name: "postgres"}, fakeChecker{name: "ledger", err: errors.New("connection refused")})(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	deps := resp["dependencies"].(map[string]interface{})
	ledger := deps["ledger"].(map[string]interface{})
	assert.Equal(t, "unhealthy", ledger["status"])
}
