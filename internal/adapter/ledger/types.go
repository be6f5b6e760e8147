package ledger

import (
	"encoding/json"
	"fmt"
	"time"
)

// JSON-RPC 2.0 envelope used by the ledger node HTTP endpoint.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("node error %d: %s", e.Code, e.Message)
}

// Node error codes. Everything except codeNodeBusy is a terminal business
// rejection and must not be retried.
const (
	codeNodeBusy            = -32000
	codeInsufficientBalance = -32001
	codeTokenNotAssociated  = -32002
	codeAccountFrozen       = -32003
	codeInvalidSignature    = -32004
	codeAlreadyAssociated   = -32005
	codeAccountNotFound     = -32006
)

type createAccountParams struct {
	PublicKey      string `json:"public_key"`
	InitialBalance int64  `json:"initial_balance"`
	TransactionID  string `json:"transaction_id"`
	Signature      string `json:"signature"`
}

type createAccountResult struct {
	AccountID string `json:"account_id"`
}

type associateParams struct {
	AccountID     string `json:"account_id"`
	TokenID       string `json:"token_id"`
	TransactionID string `json:"transaction_id"`
	Signature     string `json:"signature"`
}

type supplyParams struct {
	TokenID       string `json:"token_id"`
	Amount        int64  `json:"amount"`
	TransactionID string `json:"transaction_id"`
	Signature     string `json:"signature"`
}

type transferParams struct {
	TokenID       string `json:"token_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	Amount        int64  `json:"amount"`
	TransactionID string `json:"transaction_id"`
	Signature     string `json:"signature"`
}

type submitResult struct {
	TransactionID string    `json:"transaction_id"`
	ConsensusAt   time.Time `json:"consensus_at"`
}

type accountQueryParams struct {
	AccountID string `json:"account_id"`
	TokenID   string `json:"token_id"`
}

type balanceResult struct {
	Native int64 `json:"native"`
	Token  int64 `json:"token"`
}

type associatedResult struct {
	Associated bool `json:"associated"`
}
