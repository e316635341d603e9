package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
	"github.com/fourseasons/crowdfunding-api/internal/core/ports"
)

const collectionActivity = "activity_events"

// ActivityRepository implements ports.ActivityRepository using MongoDB.
type ActivityRepository struct {
	col *mongo.Collection
}

var _ ports.ActivityRepository = (*ActivityRepository)(nil)

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{col: db.Collection(collectionActivity)}
}

// Insert appends an event to the activity_events audit collection.
func (r *ActivityRepository) Insert(ctx context.Context, event *domain.ActivityEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, activityDocument(event, time.Now().UTC()))
	return err
}

func activityDocument(event *domain.ActivityEvent, recordedAt time.Time) bson.M {
	doc := bson.M{
		"_id":         event.ID,
		"type":        string(event.Type),
		"subject_id":  event.SubjectID,
		"occurred_at": event.OccurredAt.UTC(),
		"recorded_at": recordedAt,
	}
	if event.ActorID != "" {
		doc["actor_id"] = event.ActorID
	}
	if len(event.Metadata) > 0 {
		doc["metadata"] = event.Metadata
	}
	return doc
}

// EnsureIndexes creates the per-subject timeline index.
func (r *ActivityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "subject_id", Value: 1}, {Key: "occurred_at", Value: -1}},
	})
	return err
}
