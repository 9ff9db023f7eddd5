package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"contest-platform-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches contest content from a backing store (e.g. Postgres).
type CatalogLoader interface {
	LoadContest(ctx context.Context, contestID string) (domain.Contest, error)
	LoadQuestions(ctx context.Context, contestID string) ([]domain.Question, error)
	LoadContests(ctx context.Context) ([]domain.Contest, error)
}

// Catalog caches contest content in Redis as JSON blobs and falls back to a
// loader on cache miss.
// Contests are stored as:  SET catalog:contest:{contestID} {json}
// Questions are stored as: SET catalog:questions:{contestID} {json}
type Catalog struct {
	client *redis.Client
	loader CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalog(client *redis.Client, loader CatalogLoader, ttl time.Duration) *Catalog {
	return &Catalog{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Catalog) ContestByID(ctx context.Context, contestID string) (domain.Contest, error) {
	key := c.contestKey(contestID)

	var contest domain.Contest
	if ok, err := c.readJSON(ctx, key, &contest); err == nil && ok {
		return contest, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		var contest domain.Contest
		if ok, err := c.readJSON(ctx, key, &contest); err == nil && ok {
			return contest, nil
		}

		contest, err := c.loader.LoadContest(ctx, contestID)
		if err != nil {
			return domain.Contest{}, err
		}
		c.writeJSON(ctx, key, contest)
		return contest, nil
	})
	if err != nil {
		return domain.Contest{}, err
	}
	return result.(domain.Contest), nil
}

func (c *Catalog) QuestionsForContest(ctx context.Context, contestID string) ([]domain.Question, error) {
	key := c.questionsKey(contestID)

	var questions []domain.Question
	if ok, err := c.readJSON(ctx, key, &questions); err == nil && ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		var questions []domain.Question
		if ok, err := c.readJSON(ctx, key, &questions); err == nil && ok {
			return questions, nil
		}

		questions, err := c.loader.LoadQuestions(ctx, contestID)
		if err != nil {
			return []domain.Question(nil), err
		}
		c.writeJSON(ctx, key, questions)
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Contests always hits the loader; the listing changes with every admin
// edit and is only read by listing and prize paths.
func (c *Catalog) Contests(ctx context.Context) ([]domain.Contest, error) {
	result, err, _ := c.sf.Do("catalog:contests", func() (interface{}, error) {
		return c.loader.LoadContests(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Contest), nil
}

// Invalidate drops the cached entries for a contest after a purge.
func (c *Catalog) Invalidate(ctx context.Context, contestID string) {
	_ = c.client.Del(ctx, c.contestKey(contestID), c.questionsKey(contestID)).Err()
}

func (c *Catalog) readJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("unmarshal cached catalog entry: %w", err)
	}
	return true, nil
}

// writeJSON is best effort; a cache write failure just means the next read
// falls through to the loader again.
func (c *Catalog) writeJSON(ctx context.Context, key string, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, payload, c.ttlWithJitter()).Err()
}

func (c *Catalog) contestKey(contestID string) string {
	return "catalog:contest:" + contestID
}

func (c *Catalog) questionsKey(contestID string) string {
	return "catalog:questions:" + contestID
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
