package ledger

import "context"

// HealthCheck implements ports.HealthChecker for the ledger node.
type HealthCheck struct {
	client *Client
}

// NewHealthCheck creates a ledger node health checker.
func NewHealthCheck(client *Client) *HealthCheck {
	return &HealthCheck{client: client}
}

// Ping queries the treasury balance as a liveness probe. It exercises the
// same read path the service depends on.
func (h *HealthCheck) Ping(ctx context.Context) error {
	_, err := h.client.GetBalance(ctx, h.client.TreasuryAccountID())
	return err
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "ledger"
}
