package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voicebank/server/domain/entities"
	"github.com/voicebank/server/domain/repositories"
)

// ConsentRepository stores consent-evidence audit entries in MongoDB
type ConsentRepository struct {
	collection *mongo.Collection
}

// NewConsentRepository creates a new MongoDB consent repository
func NewConsentRepository(db *mongo.Database) repositories.ConsentRepository {
	return &ConsentRepository{
		collection: db.Collection("consent_evidence"),
	}
}

// Record implements repositories.ConsentRepository. Audit entries are
// append-only; there is no update path.
func (r *ConsentRepository) Record(ctx context.Context, evidence *entities.ConsentEvidence) error {
	if evidence == nil {
		return errors.New("evidence cannot be nil")
	}
	if err := evidence.Validate(); err != nil {
		return err
	}
	if evidence.Signature == "" {
		return errors.New("evidence must be signed before recording")
	}

	if evidence.ID == "" {
		evidence.ID = uuid.New().String()
	}
	if evidence.RecordedAt.IsZero() {
		evidence.RecordedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, evidence); err != nil {
		return fmt.Errorf("failed to record consent evidence: %w", err)
	}
	return nil
}

// ListBySession implements repositories.ConsentRepository
func (r *ConsentRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.ConsentEvidence, error) {
	if sessionID == "" {
		return nil, errors.New("session ID cannot be empty")
	}

	filter := bson.M{"session_id": sessionID}
	opts := options.Find().SetSort(bson.M{"recorded_at": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list consent evidence for session %s: %w", sessionID, err)
	}
	defer cursor.Close(ctx)

	var entries []*entities.ConsentEvidence
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode consent evidence: %w", err)
	}
	return entries, nil
}
