package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/shadow-session/domain"
	serrors "github.com/pilab-dev/shadow-session/errors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// SessionRepository keeps the lifecycle history of monitored sessions.
// It implements domain.SessionRecorder.
type SessionRepository struct {
	collection *mongo.Collection
}

// NewSessionRepository creates a SessionRepository and ensures its indexes.
func NewSessionRepository(ctx context.Context, db *mongo.Database) (*SessionRepository, error) {
	repo := &SessionRepository{
		collection: db.Collection(SessionsCollection),
	}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "termination_reason", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	if _, err := repo.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		// Indexes may already exist with other options; the repository still works.
		log.Warn().Err(err).Msg("Issue creating indexes for sessions collection")
	} else {
		log.Info().Msg("Indexes for sessions collection ensured.")
	}

	return repo, nil
}

// RecordOpened implements domain.SessionRecorder.
func (r *SessionRepository) RecordOpened(ctx context.Context, session *domain.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return serrors.ErrSessionExists
		}
		return fmt.Errorf("failed to record session: %w", err)
	}

	return nil
}

// RecordTerminated implements domain.SessionRecorder.
func (r *SessionRepository) RecordTerminated(ctx context.Context, sessionID string, reason domain.TerminationReason, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"is_authenticated":   false,
		"terminated_at":      at.UTC(),
		"termination_reason": reason,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": sessionID}, update)
	if err != nil {
		return fmt.Errorf("failed to record termination: %w", err)
	}
	if result.MatchedCount == 0 {
		return serrors.ErrSessionNotFound
	}

	return nil
}

// GetSession returns the recorded session.
func (r *SessionRepository) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, serrors.ErrSessionNotFound
		}
		return nil, err
	}

	return &session, nil
}

// ListSessionsByUserID returns a user's sessions, newest first.
func (r *SessionRepository) ListSessionsByUserID(ctx context.Context, userID string) ([]*domain.Session, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*domain.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}

	return sessions, nil
}

var _ domain.SessionRecorder = (*SessionRepository)(nil)
