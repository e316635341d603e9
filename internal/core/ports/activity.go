package ports

import (
	"context"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
)

// ActivityRepository persists audit events.
type ActivityRepository interface {
	Insert(ctx context.Context, event *domain.ActivityEvent) error
}

// ActivitySink receives audit events from services. Publish must not block the
// caller on persistence.
type ActivitySink interface {
	Publish(event domain.ActivityEvent)
}
