package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/voicebank/server/domain/entities"
	"github.com/voicebank/server/domain/repositories"
)

// RecordingRepository stores sealed recordings and their key records in
// MongoDB. Ciphertext and key material live in separate collections so
// listing recordings never touches keys.
type RecordingRepository struct {
	recordings *mongo.Collection
	keys       *mongo.Collection
}

// NewRecordingRepository creates a new MongoDB recording repository
func NewRecordingRepository(db *mongo.Database) repositories.RecordingRepository {
	return &RecordingRepository{
		recordings: db.Collection("recordings"),
		keys:       db.Collection("recording_keys"),
	}
}

// Store implements repositories.RecordingRepository. The recording is
// written first; if the key write fails the recording is removed again
// so no undecryptable ciphertext is left behind.
func (r *RecordingRepository) Store(ctx context.Context, recording *entities.EncryptedRecording, key *entities.RecordingKey) error {
	if recording == nil || key == nil {
		return errors.New("recording and key cannot be nil")
	}
	if err := recording.Validate(); err != nil {
		return err
	}
	if len(key.Material) == 0 || len(key.Salt) == 0 {
		return errors.New("key material and salt are required")
	}

	if recording.ID == "" {
		recording.ID = uuid.New().String()
	}
	now := time.Now()
	recording.CreatedAt = now
	recording.SizeBytes = len(recording.Ciphertext)
	key.RecordingID = recording.ID
	key.CreatedAt = now

	if _, err := r.recordings.InsertOne(ctx, recording); err != nil {
		return fmt.Errorf("failed to store recording: %w", err)
	}
	if _, err := r.keys.InsertOne(ctx, key); err != nil {
		if _, delErr := r.recordings.DeleteOne(ctx, bson.M{"_id": recording.ID}); delErr != nil {
			return fmt.Errorf("failed to store key record (rollback also failed: %v): %w", delErr, err)
		}
		return fmt.Errorf("failed to store key record: %w", err)
	}
	return nil
}

// Get implements repositories.RecordingRepository. Returns nil without
// error when no such recording exists.
func (r *RecordingRepository) Get(ctx context.Context, id string) (*entities.EncryptedRecording, error) {
	if id == "" {
		return nil, errors.New("recording ID cannot be empty")
	}

	var recording entities.EncryptedRecording
	err := r.recordings.FindOne(ctx, bson.M{"_id": id}).Decode(&recording)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recording %s: %w", id, err)
	}
	return &recording, nil
}

// GetKey implements repositories.RecordingRepository. Returns nil
// without error when no key record exists for the recording.
func (r *RecordingRepository) GetKey(ctx context.Context, recordingID string) (*entities.RecordingKey, error) {
	if recordingID == "" {
		return nil, errors.New("recording ID cannot be empty")
	}

	var key entities.RecordingKey
	err := r.keys.FindOne(ctx, bson.M{"_id": recordingID}).Decode(&key)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get key record for recording %s: %w", recordingID, err)
	}
	return &key, nil
}
