package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"contest-platform-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// LedgerStore keeps joins and participations in Redis.
// Participations are stored as: HSET ledger:part:{contestID} {userID} {json}
// Joins are stored as:          HSET ledger:join:{contestID} {userID} {ts}
// A set ledger:contests indexes every contest with at least one record so
// per-user reads can scan without KEYS. HSETNX is the atomic
// compare-and-insert that decides concurrent submission races.
type LedgerStore struct {
	client *redis.Client
}

func NewLedgerStore(client *redis.Client) *LedgerStore {
	return &LedgerStore{client: client}
}

type storedParticipation struct {
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submittedAt"`
}

func (s *LedgerStore) AddJoin(ctx context.Context, join domain.Join) error {
	pipe := s.client.TxPipeline()
	pipe.HSetNX(ctx, s.joinKey(join.ContestID), join.UserID, join.JoinedAt.UTC().Format(time.RFC3339Nano))
	pipe.SAdd(ctx, s.indexKey(), join.ContestID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add join: %w", err)
	}
	return nil
}

func (s *LedgerStore) RecordSubmission(ctx context.Context, p domain.Participation) error {
	payload, err := json.Marshal(storedParticipation{Score: p.Score, SubmittedAt: p.SubmittedAt.UTC()})
	if err != nil {
		return fmt.Errorf("marshal participation: %w", err)
	}
	pipe := s.client.TxPipeline()
	inserted := pipe.HSetNX(ctx, s.partKey(p.ContestID), p.UserID, payload)
	pipe.SAdd(ctx, s.indexKey(), p.ContestID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	if !inserted.Val() {
		return domain.ErrAlreadySubmitted
	}
	return nil
}

func (s *LedgerStore) HasParticipation(ctx context.Context, userID, contestID string) (bool, error) {
	exists, err := s.client.HExists(ctx, s.partKey(contestID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("check participation: %w", err)
	}
	return exists, nil
}

func (s *LedgerStore) ParticipationsByUser(ctx context.Context, userID string) ([]domain.Participation, error) {
	contestIDs, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list contests: %w", err)
	}
	out := []domain.Participation{}
	for _, contestID := range contestIDs {
		raw, err := s.client.HGet(ctx, s.partKey(contestID), userID).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read participation: %w", err)
		}
		p, err := decodeParticipation(userID, contestID, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *LedgerStore) ParticipationsByContest(ctx context.Context, contestID string) ([]domain.Participation, error) {
	fields, err := s.client.HGetAll(ctx, s.partKey(contestID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read participations: %w", err)
	}
	out := make([]domain.Participation, 0, len(fields))
	for userID, raw := range fields {
		p, err := decodeParticipation(userID, contestID, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *LedgerStore) Participations(ctx context.Context) ([]domain.Participation, error) {
	contestIDs, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list contests: %w", err)
	}
	out := []domain.Participation{}
	for _, contestID := range contestIDs {
		records, err := s.ParticipationsByContest(ctx, contestID)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}

func (s *LedgerStore) JoinsByUser(ctx context.Context, userID string) ([]domain.Join, error) {
	contestIDs, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list contests: %w", err)
	}
	out := []domain.Join{}
	for _, contestID := range contestIDs {
		raw, err := s.client.HGet(ctx, s.joinKey(contestID), userID).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read join: %w", err)
		}
		joinedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse join timestamp: %w", err)
		}
		out = append(out, domain.Join{UserID: userID, ContestID: contestID, JoinedAt: joinedAt})
	}
	return out, nil
}

// PurgeContest removes both hashes and the index entry in one transaction;
// a purge failure surfaces instead of leaving a half-applied state.
func (s *LedgerStore) PurgeContest(ctx context.Context, contestID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.partKey(contestID))
	pipe.Del(ctx, s.joinKey(contestID))
	pipe.SRem(ctx, s.indexKey(), contestID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("purge contest %s: %w", contestID, err)
	}
	return nil
}

func decodeParticipation(userID, contestID, raw string) (domain.Participation, error) {
	var stored storedParticipation
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return domain.Participation{}, fmt.Errorf("unmarshal participation: %w", err)
	}
	return domain.Participation{
		UserID:      userID,
		ContestID:   contestID,
		Score:       stored.Score,
		SubmittedAt: stored.SubmittedAt,
	}, nil
}

func (s *LedgerStore) partKey(contestID string) string {
	return "ledger:part:" + contestID
}

func (s *LedgerStore) joinKey(contestID string) string {
	return "ledger:join:" + contestID
}

func (s *LedgerStore) indexKey() string {
	return "ledger:contests"
}
