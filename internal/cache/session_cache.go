package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"cognicare/internal/model"
)

const sessionTTL = 30 * time.Minute

// SessionCache keeps in-progress sessions hot in Redis so the
// question/answer loop does not hit Mongo on every read. Mongo remains
// the source of truth; cache failures are non-fatal to callers.
type SessionCache interface {
	Set(ctx context.Context, session *model.AssessmentSession) error
	Get(ctx context.Context, id string) (*model.AssessmentSession, error)
	Delete(ctx context.Context, id string) error
}

type sessionCache struct {
	client *redis.Client
}

func NewSessionCache(client *redis.Client) SessionCache {
	return &sessionCache{
		client: client,
	}
}

func (c *sessionCache) Set(ctx context.Context, session *model.AssessmentSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "assessment:session:"+session.ID, data, sessionTTL).Err()
}

func (c *sessionCache) Get(ctx context.Context, id string) (*model.AssessmentSession, error) {
	data, err := c.client.Get(ctx, "assessment:session:"+id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session model.AssessmentSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *sessionCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, "assessment:session:"+id).Err()
}
