package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voicebank/server/domain/entities"
	"github.com/voicebank/server/domain/repositories"
)

// ProgressRepository mirrors training progress in MongoDB, keyed by user id
type ProgressRepository struct {
	collection *mongo.Collection
}

// NewProgressRepository creates a new MongoDB progress repository
func NewProgressRepository(db *mongo.Database) repositories.ProgressRepository {
	return &ProgressRepository{
		collection: db.Collection("training_progress"),
	}
}

// Get implements repositories.ProgressRepository
func (r *ProgressRepository) Get(ctx context.Context, userID string) (*entities.TrainingProgress, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	var progress entities.TrainingProgress
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&progress)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // No progress yet, not an error
		}
		return nil, fmt.Errorf("failed to get progress for user %s: %w", userID, err)
	}
	return &progress, nil
}

// Save implements repositories.ProgressRepository
func (r *ProgressRepository) Save(ctx context.Context, progress *entities.TrainingProgress) error {
	if progress == nil {
		return errors.New("progress cannot be nil")
	}
	if err := progress.Validate(); err != nil {
		return err
	}

	progress.UpdatedAt = time.Now()

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": progress.UserID}, progress, opts)
	if err != nil {
		return fmt.Errorf("failed to save progress for user %s: %w", progress.UserID, err)
	}
	return nil
}
