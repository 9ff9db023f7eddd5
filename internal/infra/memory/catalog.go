package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"contest-platform-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches contest content from a backing store (e.g. Postgres).
type CatalogLoader interface {
	LoadContest(ctx context.Context, contestID string) (domain.Contest, error)
	LoadQuestions(ctx context.Context, contestID string) ([]domain.Question, error)
	LoadContests(ctx context.Context) ([]domain.Contest, error)
}

// Catalog caches contests and questions with TTL to avoid repeated DB hits.
type Catalog struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	contests  map[string]cachedContest
	questions map[string]cachedQuestions
	listing   *cachedListing
}

type cachedContest struct {
	contest   domain.Contest
	expiresAt time.Time
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

type cachedListing struct {
	contests  []domain.Contest
	expiresAt time.Time
}

func NewCatalog(loader CatalogLoader, ttl time.Duration) *Catalog {
	return &Catalog{
		loader:    loader,
		ttl:       ttl,
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		contests:  make(map[string]cachedContest),
		questions: make(map[string]cachedQuestions),
	}
}

func (c *Catalog) ContestByID(ctx context.Context, contestID string) (domain.Contest, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.contests[contestID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.contest, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("contest:"+contestID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.contests[contestID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.contest, nil
		}
		c.mu.RUnlock()

		contest, err := c.loader.LoadContest(ctx, contestID)
		if err != nil {
			return domain.Contest{}, err
		}

		c.mu.Lock()
		c.contests[contestID] = cachedContest{
			contest:   contest,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return contest, nil
	})
	if err != nil {
		return domain.Contest{}, err
	}
	return result.(domain.Contest), nil
}

func (c *Catalog) QuestionsForContest(ctx context.Context, contestID string) ([]domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.questions[contestID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("questions:"+contestID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.questions[contestID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.loader.LoadQuestions(ctx, contestID)
		if err != nil {
			return []domain.Question(nil), err
		}

		c.mu.Lock()
		c.questions[contestID] = cachedQuestions{
			questions: questions,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *Catalog) Contests(ctx context.Context) ([]domain.Contest, error) {
	now := c.clock()

	c.mu.RLock()
	if c.listing != nil && c.listing.expiresAt.After(now) {
		contests := c.listing.contests
		c.mu.RUnlock()
		return contests, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("contests", func() (interface{}, error) {
		contests, err := c.loader.LoadContests(ctx)
		if err != nil {
			return []domain.Contest(nil), err
		}
		c.mu.Lock()
		c.listing = &cachedListing{
			contests:  contests,
			expiresAt: c.clock().Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return contests, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Contest), nil
}

// Invalidate drops the cached entries for a contest. The purge flow calls
// this so reads stop resurrecting a deleted contest for a whole TTL.
func (c *Catalog) Invalidate(_ context.Context, contestID string) {
	c.mu.Lock()
	delete(c.contests, contestID)
	delete(c.questions, contestID)
	c.listing = nil
	c.mu.Unlock()
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
