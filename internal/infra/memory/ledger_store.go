package memory

import (
	"context"
	"sync"

	"contest-platform-service/internal/domain"
)

type pairKey struct {
	userID    string
	contestID string
}

// LedgerStore is an in-memory implementation of app.Ledger. A single
// RWMutex serializes every mutation, so the compare-and-insert in
// RecordSubmission and the two-map purge are atomic with respect to reads.
type LedgerStore struct {
	mu             sync.RWMutex
	participations map[pairKey]domain.Participation
	joins          map[pairKey]domain.Join
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		participations: make(map[pairKey]domain.Participation),
		joins:          make(map[pairKey]domain.Join),
	}
}

// AddJoin inserts a join record once; later calls for the same pair keep
// the original timestamp.
func (s *LedgerStore) AddJoin(_ context.Context, join domain.Join) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{join.UserID, join.ContestID}
	if _, ok := s.joins[key]; ok {
		return nil
	}
	s.joins[key] = join
	return nil
}

// RecordSubmission inserts the participation only if none exists for the
// pair; the loser of a concurrent race gets domain.ErrAlreadySubmitted.
func (s *LedgerStore) RecordSubmission(_ context.Context, p domain.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{p.UserID, p.ContestID}
	if _, ok := s.participations[key]; ok {
		return domain.ErrAlreadySubmitted
	}
	s.participations[key] = p
	return nil
}

func (s *LedgerStore) HasParticipation(_ context.Context, userID, contestID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.participations[pairKey{userID, contestID}]
	return ok, nil
}

func (s *LedgerStore) ParticipationsByUser(_ context.Context, userID string) ([]domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Participation{}
	for key, p := range s.participations {
		if key.userID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *LedgerStore) ParticipationsByContest(_ context.Context, contestID string) ([]domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Participation{}
	for key, p := range s.participations {
		if key.contestID == contestID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *LedgerStore) Participations(_ context.Context) ([]domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participation, 0, len(s.participations))
	for _, p := range s.participations {
		out = append(out, p)
	}
	return out, nil
}

func (s *LedgerStore) JoinsByUser(_ context.Context, userID string) ([]domain.Join, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Join{}
	for key, j := range s.joins {
		if key.userID == userID {
			out = append(out, j)
		}
	}
	return out, nil
}

// PurgeContest drops every join and participation for the contest under the
// write lock, so readers see either the full pre-purge or post-purge state.
func (s *LedgerStore) PurgeContest(_ context.Context, contestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.participations {
		if key.contestID == contestID {
			delete(s.participations, key)
		}
	}
	for key := range s.joins {
		if key.contestID == contestID {
			delete(s.joins, key)
		}
	}
	return nil
}
