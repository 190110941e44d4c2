package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voicebank/server/domain/entities"
	"github.com/voicebank/server/domain/repositories"
)

// Fixed key names for guest session state.
const (
	keySessionID = "voicebank:session_id"
	keyName      = "voicebank:consent_name"
	keyTrain     = "voicebank:consent_train"
	keyStore     = "voicebank:consent_store"
	keyConsentAt = "voicebank:consent_at"
	keyCreatedAt = "voicebank:session_created_at"
)

// Manager owns a guest's session identifier and consent record on top
// of a KeyValue store. Construct one per application context; it is not
// a process-wide singleton.
type Manager struct {
	kv     repositories.KeyValue
	logger *zap.Logger
}

// NewManager creates a session manager over the given store
func NewManager(kv repositories.KeyValue, logger *zap.Logger) *Manager {
	return &Manager{kv: kv, logger: logger}
}

// GetOrCreateSessionID returns the stored session identifier, creating
// and persisting a new one only when none exists.
func (m *Manager) GetOrCreateSessionID(ctx context.Context) (string, error) {
	id, ok, err := m.kv.Get(ctx, keySessionID)
	if err != nil {
		return "", fmt.Errorf("failed to read session id: %w", err)
	}
	if ok && id != "" {
		return id, nil
	}

	id = uuid.New().String()
	if err := m.kv.Set(ctx, keySessionID, id); err != nil {
		return "", fmt.Errorf("failed to persist session id: %w", err)
	}
	if err := m.kv.Set(ctx, keyCreatedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return "", fmt.Errorf("failed to persist session creation time: %w", err)
	}

	m.logger.Info("Created new guest session", zap.String("sessionID", id))
	return id, nil
}

// RecordConsent stores the participant name, both consent flags, and
// the current time. The write is all-or-nothing: a partial failure
// rolls back whatever was written.
func (m *Manager) RecordConsent(ctx context.Context, name string, train, store bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("participant name is required")
	}
	if !train || !store {
		return fmt.Errorf("both consent flags must be granted")
	}

	written := make([]string, 0, 4)
	write := func(key, value string) error {
		if err := m.kv.Set(ctx, key, value); err != nil {
			return err
		}
		written = append(written, key)
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, kv := range []struct{ key, value string }{
		{keyName, name},
		{keyTrain, strconv.FormatBool(train)},
		{keyStore, strconv.FormatBool(store)},
		{keyConsentAt, now},
	} {
		if err := write(kv.key, kv.value); err != nil {
			for _, k := range written {
				_ = m.kv.Delete(ctx, k)
			}
			return fmt.Errorf("failed to record consent: %w", err)
		}
	}

	m.logger.Info("Recorded consent", zap.String("participant", name))
	return nil
}

// Session reads the current guest session. A zero-value session with no
// ID is returned when nothing is stored.
func (m *Manager) Session(ctx context.Context) (*entities.GuestSession, error) {
	session := &entities.GuestSession{}

	id, _, err := m.kv.Get(ctx, keySessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	session.ID = id

	if session.ParticipantName, _, err = m.kv.Get(ctx, keyName); err != nil {
		return nil, fmt.Errorf("failed to read consent name: %w", err)
	}
	if session.ConsentToTrain, err = m.readBool(ctx, keyTrain); err != nil {
		return nil, err
	}
	if session.ConsentToStore, err = m.readBool(ctx, keyStore); err != nil {
		return nil, err
	}

	if raw, ok, err := m.kv.Get(ctx, keyConsentAt); err != nil {
		return nil, fmt.Errorf("failed to read consent time: %w", err)
	} else if ok {
		if ts, parseErr := time.Parse(time.RFC3339, raw); parseErr == nil {
			session.ConsentAt = &ts
		}
	}

	return session, nil
}

// HasValidConsent reports whether a complete consent record is stored
func (m *Manager) HasValidConsent(ctx context.Context) (bool, error) {
	session, err := m.Session(ctx)
	if err != nil {
		return false, err
	}
	return session.HasValidConsent(), nil
}

// Clear removes every session key. A later GetOrCreateSessionID yields
// a new, different identifier.
func (m *Manager) Clear(ctx context.Context) error {
	for _, key := range []string{keySessionID, keyName, keyTrain, keyStore, keyConsentAt, keyCreatedAt} {
		if err := m.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to clear session key %s: %w", key, err)
		}
	}
	return nil
}

func (m *Manager) readBool(ctx context.Context, key string) (bool, error) {
	raw, ok, err := m.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	value, parseErr := strconv.ParseBool(raw)
	if parseErr != nil {
		return false, nil
	}
	return value, nil
}
