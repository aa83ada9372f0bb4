package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cognicare/internal/model"
)

// ResultRepo handles MongoDB operations for assessment results
type ResultRepo interface {
	Save(ctx context.Context, result *model.AssessmentResult) error
	GetByID(ctx context.Context, id string) (*model.AssessmentResult, error)
	GetLatestByElder(ctx context.Context, groupID, elderID string) (*model.AssessmentResult, error)
	UpdateReviewStatus(ctx context.Context, id string, status model.ReviewStatus) error
}

type resultRepo struct {
	collection *mongo.Collection
}

// NewResultRepo creates a new result repository
func NewResultRepo(db *mongo.Database) ResultRepo {
	return &resultRepo{
		collection: db.Collection("assessment_results"),
	}
}

func (r *resultRepo) Save(ctx context.Context, result *model.AssessmentResult) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": result.ID}, result, opts)
	return err
}

func (r *resultRepo) GetByID(ctx context.Context, id string) (*model.AssessmentResult, error) {
	var result model.AssessmentResult
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&result)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetLatestByElder returns the most recent result for an elder within a
// group, or nil when the elder has no history
func (r *resultRepo) GetLatestByElder(ctx context.Context, groupID, elderID string) (*model.AssessmentResult, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var result model.AssessmentResult
	err := r.collection.FindOne(ctx, bson.M{"groupId": groupID, "elderId": elderID}, opts).Decode(&result)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateReviewStatus adds review metadata without touching scores or
// summary (results are otherwise append-only)
func (r *resultRepo) UpdateReviewStatus(ctx context.Context, id string, status model.ReviewStatus) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	return err
}
