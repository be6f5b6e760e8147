package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"smiles-ledger/config"
	"smiles-ledger/internal/core/domain"

	"github.com/rs/zerolog"
)

// notifyRetryIntervals spaces out redelivery attempts after a failed push.
var notifyRetryIntervals = []time.Duration{
	5 * time.Second,
	30 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
}

// EventTransactionConfirmed is the event type sent for settled transactions.
const EventTransactionConfirmed = "LEDGER_TRANSACTION_CONFIRMED"

// NotifyPayload is the JSON structure posted to the platform callback.
// Consumers refresh their derived balance caches from these events, so only
// confirmed transactions are ever published.
type NotifyPayload struct {
	EventType string            `json:"event_type"`
	Data      NotifyPayloadData `json:"data"`
	Signature string            `json:"signature"`
}

// NotifyPayloadData holds the transaction details in the callback.
type NotifyPayloadData struct {
	TransactionID string  `json:"transaction_id"`
	Kind          string  `json:"kind"`
	FromAccountID *string `json:"from_account_id,omitempty"`
	ToAccountID   *string `json:"to_account_id,omitempty"`
	Amount        int64   `json:"amount"`
	AppEventRef   string  `json:"app_event_ref"`
	Timestamp     int64   `json:"timestamp"`
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CallbackNotifier implements ports.Notifier by posting HMAC-SHA256-signed
// events to the platform callback URL. Delivery is asynchronous with retries;
// an unreachable callback never blocks or fails the settling operation.
type CallbackNotifier struct {
	callbackURL string
	secret      []byte
	httpClient  HTTPClient
	log         zerolog.Logger
}

// NewCallbackNotifier creates a new callback notifier. An empty callback URL
// disables delivery.
func NewCallbackNotifier(cfg config.NotifyConfig, httpClient HTTPClient, log zerolog.Logger) *CallbackNotifier {
	return &CallbackNotifier{
		callbackURL: cfg.CallbackURL,
		secret:      []byte(cfg.Secret),
		httpClient:  httpClient,
		log:         log,
	}
}

// NotifyConfirmed publishes a confirmed transaction to the platform callback.
func (n *CallbackNotifier) NotifyConfirmed(ctx context.Context, tx *domain.LedgerTransaction) error {
	if n.callbackURL == "" {
		n.log.Debug().Str("tx_id", tx.ID).Msg("notify: no callback URL configured, skipping")
		return nil
	}

	data := NotifyPayloadData{
		TransactionID: tx.ID,
		Kind:          string(tx.Kind),
		FromAccountID: tx.FromAccountID,
		ToAccountID:   tx.ToAccountID,
		Amount:        tx.Amount,
		AppEventRef:   tx.AppEventRef,
		Timestamp:     time.Now().Unix(),
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return err
	}

	payload := NotifyPayload{
		EventType: EventTransactionConfirmed,
		Data:      data,
		Signature: n.sign(dataBytes),
	}

	// Fire async with retries
	go n.deliverWithRetries(payload, tx.ID)

	return nil
}

// sign computes the hex HMAC-SHA256 of the payload data.
func (n *CallbackNotifier) sign(data []byte) string {
	mac := hmac.New(sha256.New, n.secret)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// deliverWithRetries attempts delivery until a 2xx response or exhaustion.
func (n *CallbackNotifier) deliverWithRetries(payload NotifyPayload, txID string) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		n.log.Error().Err(err).Str("tx_id", txID).Msg("notify: failed to marshal payload")
		return
	}

	for attempt := 0; attempt <= len(notifyRetryIntervals); attempt++ {
		if attempt > 0 {
			time.Sleep(notifyRetryIntervals[attempt-1])
		}

		req, err := http.NewRequest(http.MethodPost, n.callbackURL, bytes.NewReader(payloadBytes))
		if err != nil {
			n.log.Error().Err(err).Str("tx_id", txID).Int("attempt", attempt+1).Msg("notify: failed to create request")
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.httpClient.Do(req)
		if err != nil {
			n.log.Warn().Err(err).Str("tx_id", txID).Int("attempt", attempt+1).Msg("notify: delivery failed")
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			n.log.Info().Str("tx_id", txID).Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("notify: delivered")
			return
		}

		n.log.Warn().Str("tx_id", txID).Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("notify: non-2xx response, retrying")
	}

	n.log.Error().Str("tx_id", txID).Msg("notify: all retry attempts exhausted")
}
