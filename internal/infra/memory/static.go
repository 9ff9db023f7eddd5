package memory

import (
	"context"

	"contest-platform-service/internal/domain"
)

// StaticCatalogLoader is a loader backed by in-memory maps (useful for
// tests/demos and for running without Postgres).
type StaticCatalogLoader struct {
	contests  map[string]domain.Contest
	questions map[string][]domain.Question
}

func NewStaticCatalogLoader(contests map[string]domain.Contest, questions map[string][]domain.Question) *StaticCatalogLoader {
	return &StaticCatalogLoader{contests: contests, questions: questions}
}

func (l *StaticCatalogLoader) LoadContest(_ context.Context, contestID string) (domain.Contest, error) {
	if contest, ok := l.contests[contestID]; ok {
		return contest, nil
	}
	return domain.Contest{}, domain.ErrContestNotFound
}

func (l *StaticCatalogLoader) LoadQuestions(_ context.Context, contestID string) ([]domain.Question, error) {
	if _, ok := l.contests[contestID]; !ok {
		return nil, domain.ErrContestNotFound
	}
	return l.questions[contestID], nil
}

func (l *StaticCatalogLoader) LoadContests(_ context.Context) ([]domain.Contest, error) {
	out := make([]domain.Contest, 0, len(l.contests))
	for _, contest := range l.contests {
		out = append(out, contest)
	}
	return out, nil
}

// Remove drops a contest from the static loader, mirroring a catalog
// deletion for tests and demos.
func (l *StaticCatalogLoader) Remove(contestID string) {
	delete(l.contests, contestID)
	delete(l.questions, contestID)
}

// StaticDirectory resolves display names from an in-memory map. Unknown
// users fall back to their raw ID so a stale leaderboard row still renders.
type StaticDirectory struct {
	names map[string]string
}

func NewStaticDirectory(names map[string]string) *StaticDirectory {
	if names == nil {
		names = map[string]string{}
	}
	return &StaticDirectory{names: names}
}

func (d *StaticDirectory) DisplayName(_ context.Context, userID string) (string, error) {
	if name, ok := d.names[userID]; ok {
		return name, nil
	}
	return userID, nil
}
