package app

import (
	"sync"

	"contest-platform-service/internal/domain"
)

// Feed fans leaderboard snapshots out to per-contest subscribers. The
// service publishes after every accepted submission and after a purge.
type Feed struct {
	mu   sync.Mutex
	subs map[string]map[chan domain.Leaderboard]struct{}
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[string]map[chan domain.Leaderboard]struct{})}
}

// Subscribe registers a channel for a contest's updates. The caller must
// invoke the returned cancel function to avoid leaks.
func (f *Feed) Subscribe(contestID string) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	f.mu.Lock()
	set, ok := f.subs[contestID]
	if !ok {
		set = make(map[chan domain.Leaderboard]struct{})
		f.subs[contestID] = set
	}
	set[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if set, ok := f.subs[contestID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(f.subs, contestID)
			}
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of the contest. A full
// subscriber buffer drops the stale snapshot so slow clients never block.
func (f *Feed) Publish(contestID string, lb domain.Leaderboard) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs[contestID] {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
