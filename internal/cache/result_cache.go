package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"cognicare/internal/model"
)

const latestResultTTL = 24 * time.Hour

// ResultCache caches the most recent result per elder, fronting the
// trend-comparison lookup the result generator performs on every run
type ResultCache interface {
	SetLatest(ctx context.Context, result *model.AssessmentResult) error
	GetLatest(ctx context.Context, groupID, elderID string) (*model.AssessmentResult, error)
	InvalidateLatest(ctx context.Context, groupID, elderID string) error
}

type resultCache struct {
	client *redis.Client
}

func NewResultCache(client *redis.Client) ResultCache {
	return &resultCache{
		client: client,
	}
}

func latestKey(groupID, elderID string) string {
	return "assessment:latest:" + groupID + ":" + elderID
}

func (c *resultCache) SetLatest(ctx context.Context, result *model.AssessmentResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, latestKey(result.GroupID, result.ElderID), data, latestResultTTL).Err()
}

func (c *resultCache) GetLatest(ctx context.Context, groupID, elderID string) (*model.AssessmentResult, error) {
	data, err := c.client.Get(ctx, latestKey(groupID, elderID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result model.AssessmentResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *resultCache) InvalidateLatest(ctx context.Context, groupID, elderID string) error {
	return c.client.Del(ctx, latestKey(groupID, elderID)).Err()
}
