package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
	"github.com/fourseasons/crowdfunding-api/internal/core/ports"
)

type nopSink struct{}

func (nopSink) Publish(domain.ActivityEvent) {}

// NopActivitySink discards every event.
var NopActivitySink ports.ActivitySink = nopSink{}

func sinkOrNop(sink ports.ActivitySink) ports.ActivitySink {
	if sink == nil {
		return NopActivitySink
	}
	return sink
}

func newActivity(typ domain.ActivityType, subjectID, actorID string, at time.Time, kv ...string) domain.ActivityEvent {
	var meta map[string]string
	if len(kv) > 0 {
		meta = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			meta[kv[i]] = kv[i+1]
		}
	}
	return domain.ActivityEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		SubjectID:  subjectID,
		ActorID:    actorID,
		OccurredAt: at,
		Metadata:   meta,
	}
}
