package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"contest-platform-service/internal/domain"
)

func TestLedgerCompareAndInsert(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerStore()
	now := time.Now()

	first := domain.Participation{UserID: "u1", ContestID: "c1", Score: 2, SubmittedAt: now}
	if err := store.RecordSubmission(ctx, first); err != nil {
		t.Fatalf("record: %v", err)
	}

	dup := first
	dup.Score = 99
	if err := store.RecordSubmission(ctx, dup); err != domain.ErrAlreadySubmitted {
		t.Fatalf("duplicate: got %v, want ErrAlreadySubmitted", err)
	}

	records, err := store.ParticipationsByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("by user: %v", err)
	}
	if len(records) != 1 || records[0].Score != 2 {
		t.Fatalf("stored score must not change: %+v", records)
	}
}

func TestLedgerConcurrentSubmissions(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerStore()

	const attempts = 64
	var wg sync.WaitGroup
	var conflicts, wins int
	var mu sync.Mutex
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.RecordSubmission(ctx, domain.Participation{
				UserID: "u1", ContestID: "c1", Score: i, SubmittedAt: time.Now(),
			})
			mu.Lock()
			if err == domain.ErrAlreadySubmitted {
				conflicts++
			} else if err == nil {
				wins++
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if wins != 1 || conflicts != attempts-1 {
		t.Fatalf("expected exactly one insert, got wins=%d conflicts=%d", wins, conflicts)
	}
}

func TestLedgerJoinIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerStore()
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	if err := store.AddJoin(ctx, domain.Join{UserID: "u1", ContestID: "c1", JoinedAt: t0}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := store.AddJoin(ctx, domain.Join{UserID: "u1", ContestID: "c1", JoinedAt: t0.Add(time.Hour)}); err != nil {
		t.Fatalf("second join: %v", err)
	}

	joins, err := store.JoinsByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("joins: %v", err)
	}
	if len(joins) != 1 {
		t.Fatalf("expected one join, got %d", len(joins))
	}
	if !joins[0].JoinedAt.Equal(t0) {
		t.Fatalf("first join timestamp must win, got %v", joins[0].JoinedAt)
	}
}

func TestLedgerPurgeContest(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerStore()
	now := time.Now()

	for _, u := range []string{"u1", "u2"} {
		if err := store.AddJoin(ctx, domain.Join{UserID: u, ContestID: "c1", JoinedAt: now}); err != nil {
			t.Fatalf("join: %v", err)
		}
		if err := store.RecordSubmission(ctx, domain.Participation{UserID: u, ContestID: "c1", Score: 1, SubmittedAt: now}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := store.RecordSubmission(ctx, domain.Participation{UserID: "u1", ContestID: "c2", Score: 1, SubmittedAt: now}); err != nil {
		t.Fatalf("record other contest: %v", err)
	}

	if err := store.PurgeContest(ctx, "c1"); err != nil {
		t.Fatalf("purge: %v", err)
	}

	byContest, _ := store.ParticipationsByContest(ctx, "c1")
	if len(byContest) != 0 {
		t.Fatalf("participations must be purged, got %+v", byContest)
	}
	joins, _ := store.JoinsByUser(ctx, "u1")
	if len(joins) != 0 {
		t.Fatalf("joins must be purged, got %+v", joins)
	}
	// Other contests are untouched.
	byUser, _ := store.ParticipationsByUser(ctx, "u1")
	if len(byUser) != 1 || byUser[0].ContestID != "c2" {
		t.Fatalf("purge must only affect c1, got %+v", byUser)
	}
}
