package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/notewire/assertions/internal/models"
)

// WebSocketAdapter delivers outbox rows to a recipient's live
// connections via the process-local Registry. It is retryable: a
// recipient with no open connection simply fails the attempt, and the
// worker reschedules per the outbox backoff.
type WebSocketAdapter struct {
	registry *Registry
}

// NewWebSocketAdapter wraps registry as a delivery.Adapter.
func NewWebSocketAdapter(registry *Registry) *WebSocketAdapter {
	return &WebSocketAdapter{registry: registry}
}

// Deliver sends the row's notification to every live connection for
// its recipient. The outbox row itself carries no payload body beyond
// its identifiers, so the frame mirrors the row's own fields.
func (a *WebSocketAdapter) Deliver(ctx context.Context, row models.OutboxRow) error {
	payload := json.RawMessage(fmt.Sprintf(
		`{"type":"notification","notificationId":%q}`, row.NotificationID,
	))
	delivered, connectionCount := a.registry.DeliverToUser(row.RecipientID, payload)
	if connectionCount == 0 {
		return fmt.Errorf("no live connection for recipient")
	}
	if !delivered {
		return fmt.Errorf("write failed on all %d connection(s)", connectionCount)
	}
	return nil
}
