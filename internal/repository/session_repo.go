package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"cognicare/internal/model"
)

// ErrVersionConflict signals a lost optimistic-concurrency race: the
// session document changed between read and write.
var ErrVersionConflict = errors.New("session version conflict")

// SessionRepo handles MongoDB operations for assessment sessions
type SessionRepo interface {
	Create(ctx context.Context, session *model.AssessmentSession) error
	GetByID(ctx context.Context, id string) (*model.AssessmentSession, error)
	Update(ctx context.Context, session *model.AssessmentSession) error
}

type sessionRepo struct {
	collection *mongo.Collection
}

// NewSessionRepo creates a new session repository
func NewSessionRepo(db *mongo.Database) SessionRepo {
	return &sessionRepo{
		collection: db.Collection("assessment_sessions"),
	}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.AssessmentSession) error {
	session.Version = 1
	_, err := r.collection.InsertOne(ctx, session)
	return err
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.AssessmentSession, error) {
	var session model.AssessmentSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Update replaces the session document, filtering on the version the
// caller read. A zero match count means another writer got there first.
func (r *sessionRepo) Update(ctx context.Context, session *model.AssessmentSession) error {
	prev := session.Version
	session.Version = prev + 1

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ID, "version": prev}, session)
	if err != nil {
		session.Version = prev
		return err
	}
	if res.MatchedCount == 0 {
		session.Version = prev
		return ErrVersionConflict
	}
	return nil
}
