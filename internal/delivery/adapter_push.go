package delivery

import (
	"context"
	"fmt"

	"github.com/notewire/assertions/internal/models"
)

// PushAdapter is the seam for a mobile/web push provider. No concrete
// push provider is named in scope; Deliver always fails retryable so
// rows enqueued against it age out to failed after the outbox's
// backoff schedule rather than delivering silently.
type PushAdapter struct{}

// NewPushAdapter constructs an unconfigured PushAdapter.
func NewPushAdapter() *PushAdapter {
	return &PushAdapter{}
}

func (a *PushAdapter) Deliver(ctx context.Context, row models.OutboxRow) error {
	return fmt.Errorf("push delivery provider not configured")
}
