package dto

// TokenRequest is the request body for service token issuance.
type TokenRequest struct {
	ServiceName string `json:"service_name" binding:"required,min=3,max=50,safe_id"`
	APIKey      string `json:"api_key" binding:"required"`
}

// TokenResponse is the response body for successful token issuance.
type TokenResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// CreateWalletRequest is the request body for explicit wallet creation.
type CreateWalletRequest struct {
	OwnerID string `json:"owner_id" binding:"required,max=100,safe_id"`
}

// MintRequest is the request body for minting tokens to an owner.
type MintRequest struct {
	OwnerID  string `json:"owner_id" binding:"required,max=100,safe_id"`
	Amount   int64  `json:"amount" binding:"required,gt=0"`
	EventRef string `json:"event_ref" binding:"required,max=100,safe_id"`
}

// TransferRequest is the request body for an owner-to-owner transfer.
type TransferRequest struct {
	FromOwnerID string `json:"from_owner_id" binding:"required,max=100,safe_id"`
	ToOwnerID   string `json:"to_owner_id" binding:"required,max=100,safe_id"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	EventRef    string `json:"event_ref" binding:"required,max=100,safe_id"`
}

// BurnRequest is the request body for redeeming (burning) tokens.
type BurnRequest struct {
	OwnerID  string `json:"owner_id" binding:"required,max=100,safe_id"`
	Amount   int64  `json:"amount" binding:"required,gt=0"`
	EventRef string `json:"event_ref" binding:"required,max=100,safe_id"`
}

// WalletResponse is the response body for wallet creation and lookup.
type WalletResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	AccountID string `json:"account_id"`
	PublicKey string `json:"public_key"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// BalanceResponse is the response for a live balance query.
type BalanceResponse struct {
	Native int64 `json:"native"`
	Token  int64 `json:"token"`
}

// TransactionResultResponse is the response for mint, transfer, and burn.
type TransactionResultResponse struct {
	TransactionID string `json:"transaction_id"`
	NewBalance    int64  `json:"new_balance"`
}

// AssociateResponse reports the outcome of a token association.
type AssociateResponse struct {
	Associated bool `json:"associated"`
}

// TransactionResponse is one row in the transaction list.
type TransactionResponse struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	FromAccountID *string `json:"from_account_id,omitempty"`
	ToAccountID   *string `json:"to_account_id,omitempty"`
	Amount        int64   `json:"amount"`
	AppEventRef   string  `json:"app_event_ref"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
}

// TransactionListResponse wraps a paginated transaction list.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"page_size"`
}

// StatsResponse is the response for aggregate token-supply statistics.
type StatsResponse struct {
	TotalTransactions int64 `json:"total_transactions"`
	Confirmed         int64 `json:"confirmed"`
	Failed            int64 `json:"failed"`
	TotalMinted       int64 `json:"total_minted"`
	TotalBurned       int64 `json:"total_burned"`
	TotalTransferred  int64 `json:"total_transferred"`
}
