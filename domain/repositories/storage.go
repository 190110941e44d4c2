package repositories

import (
	"context"

	"github.com/voicebank/server/domain/entities"
)

// UserRepository defines data access methods for dashboard users
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	// GetByID and GetByEmail return nil without error when no such
	// user exists.
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	Update(ctx context.Context, user *entities.User) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// ConsentRepository stores consent-evidence audit entries
type ConsentRepository interface {
	Record(ctx context.Context, evidence *entities.ConsentEvidence) error
	ListBySession(ctx context.Context, sessionID string) ([]*entities.ConsentEvidence, error)
}

// ProgressRepository mirrors training progress for authenticated users
type ProgressRepository interface {
	// Get returns nil without error when no progress exists yet.
	Get(ctx context.Context, userID string) (*entities.TrainingProgress, error)
	Save(ctx context.Context, progress *entities.TrainingProgress) error
}

// RecordingRepository stores sealed recordings and their key records.
// Get and GetKey return nil without error when no matching record
// exists.
type RecordingRepository interface {
	Store(ctx context.Context, recording *entities.EncryptedRecording, key *entities.RecordingKey) error
	Get(ctx context.Context, id string) (*entities.EncryptedRecording, error)
	GetKey(ctx context.Context, recordingID string) (*entities.RecordingKey, error)
}
