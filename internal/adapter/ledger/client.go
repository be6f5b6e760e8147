package ledger

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"smiles-ledger/config"
	"smiles-ledger/internal/core/ports"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Client implements ports.LedgerGateway against the ledger node's JSON-RPC
// endpoint. Transaction identifiers are generated client side, in the form
// <payerAccount>@<seconds>.<nanos>, so failed submissions still carry an
// auditable identifier. Transient faults (transport errors, HTTP 429/5xx,
// node-busy) are retried with jittered exponential backoff; business
// rejections surface immediately as typed GatewayErrors.
type Client struct {
	httpClient  *http.Client
	nodeURL     string
	tokenID     string
	treasuryID  string
	treasuryKey ed25519.PrivateKey

	initialInterval time.Duration
	maxElapsed      time.Duration

	log    zerolog.Logger
	nextID atomic.Int64
}

// NewClient creates a ledger gateway from configuration. The treasury
// private key is a hex-encoded ed25519 seed.
func NewClient(cfg config.LedgerConfig, log zerolog.Logger) (*Client, error) {
	key, err := parseSigningKey(cfg.TreasuryPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parsing treasury key: %w", err)
	}
	if cfg.NodeURL == "" {
		return nil, errors.New("ledger node URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxElapsed := cfg.MaxRetryElapsed
	if maxElapsed <= 0 {
		maxElapsed = 30 * time.Second
	}

	return &Client{
		httpClient:      &http.Client{Timeout: timeout},
		nodeURL:         cfg.NodeURL,
		tokenID:         cfg.TokenID,
		treasuryID:      cfg.TreasuryAccountID,
		treasuryKey:     key,
		initialInterval: 500 * time.Millisecond,
		maxElapsed:      maxElapsed,
		log:             log.With().Str("component", "ledger_client").Logger(),
	}, nil
}

// TreasuryAccountID returns the operator account that supply moves through.
func (c *Client) TreasuryAccountID() string {
	return c.treasuryID
}

// CreateAccount provisions a new ledger account funded with initialBalance
// native units from the treasury. The keypair is generated locally so the
// private key never leaves this process unencrypted.
func (c *Client) CreateAccount(ctx context.Context, initialBalance int64) (*ports.AccountInfo, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating account keypair: %w", err)
	}

	txID := c.newTransactionID(c.treasuryID)
	params := createAccountParams{
		PublicKey:      hex.EncodeToString(pub),
		InitialBalance: initialBalance,
		TransactionID:  txID,
		Signature:      sign(c.treasuryKey, "ledger_createAccount", txID),
	}

	var result createAccountResult
	if err := c.call(ctx, "ledger_createAccount", params, &result); err != nil {
		return nil, c.gatewayError(err, txID)
	}

	c.log.Info().Str("account_id", result.AccountID).Msg("ledger account created")
	return &ports.AccountInfo{
		AccountID:  result.AccountID,
		PublicKey:  hex.EncodeToString(pub),
		PrivateKey: hex.EncodeToString(priv.Seed()),
	}, nil
}

// AssociateToken opts accountID in to the token. The account owner signs,
// so the caller supplies the account's key.
func (c *Client) AssociateToken(ctx context.Context, accountID string, signingKey string) (*ports.SubmitResult, error) {
	key, err := parseSigningKey(signingKey)
	if err != nil {
		return nil, &ports.GatewayError{Kind: ports.KindInvalidSignature, Err: err}
	}

	txID := c.newTransactionID(accountID)
	params := associateParams{
		AccountID:     accountID,
		TokenID:       c.tokenID,
		TransactionID: txID,
		Signature:     sign(key, "token_associate", txID),
	}

	var result submitResult
	if err := c.call(ctx, "token_associate", params, &result); err != nil {
		return nil, c.gatewayError(err, txID)
	}
	return &ports.SubmitResult{TransactionID: result.TransactionID, ConsensusAt: result.ConsensusAt}, nil
}

// IsTokenAssociated queries the live association state. Never cached.
func (c *Client) IsTokenAssociated(ctx context.Context, accountID string) (bool, error) {
	params := accountQueryParams{AccountID: accountID, TokenID: c.tokenID}
	var result associatedResult
	if err := c.call(ctx, "token_isAssociated", params, &result); err != nil {
		return false, c.gatewayError(err, "")
	}
	return result.Associated, nil
}

// Mint creates amount new token units in the treasury account.
func (c *Client) Mint(ctx context.Context, amount int64) (*ports.SubmitResult, error) {
	return c.supplyOp(ctx, "token_mint", amount)
}

// Burn destroys amount token units held by the treasury account.
func (c *Client) Burn(ctx context.Context, amount int64) (*ports.SubmitResult, error) {
	return c.supplyOp(ctx, "token_burn", amount)
}

func (c *Client) supplyOp(ctx context.Context, method string, amount int64) (*ports.SubmitResult, error) {
	txID := c.newTransactionID(c.treasuryID)
	params := supplyParams{
		TokenID:       c.tokenID,
		Amount:        amount,
		TransactionID: txID,
		Signature:     sign(c.treasuryKey, method, txID),
	}

	var result submitResult
	if err := c.call(ctx, method, params, &result); err != nil {
		return nil, c.gatewayError(err, txID)
	}
	return &ports.SubmitResult{TransactionID: result.TransactionID, ConsensusAt: result.ConsensusAt}, nil
}

// Transfer moves amount token units between accounts, signed by the sender.
// An empty signingKey selects the operator credentials, valid only when the
// sender is the treasury account.
func (c *Client) Transfer(ctx context.Context, fromAccountID, toAccountID string, amount int64, signingKey string) (*ports.SubmitResult, error) {
	var key ed25519.PrivateKey
	if signingKey == "" && fromAccountID == c.treasuryID {
		key = c.treasuryKey
	} else {
		var err error
		key, err = parseSigningKey(signingKey)
		if err != nil {
			return nil, &ports.GatewayError{Kind: ports.KindInvalidSignature, Err: err}
		}
	}

	txID := c.newTransactionID(fromAccountID)
	params := transferParams{
		TokenID:       c.tokenID,
		From:          fromAccountID,
		To:            toAccountID,
		Amount:        amount,
		TransactionID: txID,
		Signature:     sign(key, "token_transfer", txID),
	}

	var result submitResult
	if err := c.call(ctx, "token_transfer", params, &result); err != nil {
		return nil, c.gatewayError(err, txID)
	}
	return &ports.SubmitResult{TransactionID: result.TransactionID, ConsensusAt: result.ConsensusAt}, nil
}

// GetBalance returns the live balance snapshot for an account.
func (c *Client) GetBalance(ctx context.Context, accountID string) (*ports.Balance, error) {
	params := accountQueryParams{AccountID: accountID, TokenID: c.tokenID}
	var result balanceResult
	if err := c.call(ctx, "account_getBalance", params, &result); err != nil {
		return nil, c.gatewayError(err, "")
	}
	return &ports.Balance{Native: result.Native, Token: result.Token}, nil
}

// call performs one JSON-RPC method with retries. Transport errors, HTTP
// 429/5xx and node-busy responses are retried until the backoff budget is
// exhausted; any other node error aborts immediately.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshaling %s request: %w", method, err))
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval
	bo.MaxElapsedTime = c.maxElapsed

	attempt := 0
	operation := func() error {
		attempt++
		err := c.roundTrip(ctx, body, result)
		if err != nil && attempt > 1 {
			c.log.Warn().Str("method", method).Int("attempt", attempt).Err(err).Msg("ledger call retrying")
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}

func (c *Client) roundTrip(ctx context.Context, body []byte, result any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.nodeURL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ledger node unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("ledger node returned HTTP %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return backoff.Permanent(fmt.Errorf("ledger node returned HTTP %d", resp.StatusCode))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decoding node response: %w", err)
	}
	if rpcResp.Error != nil {
		if rpcResp.Error.Code == codeNodeBusy {
			return rpcResp.Error
		}
		return backoff.Permanent(rpcResp.Error)
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding node result: %w", err))
		}
	}
	return nil
}

// gatewayError maps a call failure onto the typed error taxonomy.
func (c *Client) gatewayError(err error, txID string) *ports.GatewayError {
	var nodeErr *rpcError
	if errors.As(err, &nodeErr) {
		kind := ports.KindUnavailable
		switch nodeErr.Code {
		case codeInsufficientBalance:
			kind = ports.KindInsufficientBalance
		case codeTokenNotAssociated:
			kind = ports.KindTokenNotAssociated
		case codeAccountFrozen:
			kind = ports.KindAccountFrozen
		case codeInvalidSignature:
			kind = ports.KindInvalidSignature
		case codeAlreadyAssociated:
			kind = ports.KindAlreadyAssociated
		case codeAccountNotFound:
			kind = ports.KindAccountNotFound
		}
		return &ports.GatewayError{Kind: kind, TransactionID: txID, Err: err}
	}
	return &ports.GatewayError{Kind: ports.KindUnavailable, TransactionID: txID, Err: err}
}

// newTransactionID builds a Hedera-style identifier unique per payer and
// wall-clock instant.
func (c *Client) newTransactionID(payerAccountID string) string {
	now := time.Now()
	return fmt.Sprintf("%s@%d.%d", payerAccountID, now.Unix(), now.Nanosecond())
}

// sign produces the hex ed25519 signature over the method name and
// transaction identifier.
func sign(key ed25519.PrivateKey, method, txID string) string {
	return hex.EncodeToString(ed25519.Sign(key, []byte(method+"|"+txID)))
}

// parseSigningKey decodes a hex ed25519 key. Accepts either a 32-byte seed
// or a full 64-byte private key.
func parseSigningKey(hexKey string) (ed25519.PrivateKey, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("key is not valid hex: %w", err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, fmt.Errorf("key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}
}
