package app

import (
	"context"
	"errors"
	"sort"
	"time"

	"contest-platform-service/internal/domain"
)

// Ledger abstracts how joins and participations are stored (in-memory,
// Redis, etc). Implementations must make RecordSubmission an atomic
// compare-and-insert: exactly one of two concurrent submissions for the
// same (user, contest) pair succeeds, the other observes ErrAlreadySubmitted.
type Ledger interface {
	AddJoin(ctx context.Context, join domain.Join) error
	RecordSubmission(ctx context.Context, p domain.Participation) error
	HasParticipation(ctx context.Context, userID, contestID string) (bool, error)
	ParticipationsByUser(ctx context.Context, userID string) ([]domain.Participation, error)
	ParticipationsByContest(ctx context.Context, contestID string) ([]domain.Participation, error)
	Participations(ctx context.Context) ([]domain.Participation, error)
	JoinsByUser(ctx context.Context, userID string) ([]domain.Join, error)
	PurgeContest(ctx context.Context, contestID string) error
}

// Catalog loads contest content (from cache/backing store). Lookups for a
// missing contest return domain.ErrContestNotFound; infrastructure failures
// wrap domain.ErrCatalogUnavailable.
type Catalog interface {
	ContestByID(ctx context.Context, contestID string) (domain.Contest, error)
	QuestionsForContest(ctx context.Context, contestID string) ([]domain.Question, error)
	Contests(ctx context.Context) ([]domain.Contest, error)
}

// CatalogInvalidator is implemented by catalog caches that can drop their
// entries for a contest. The purge flow uses it so a deleted contest stops
// resolving instead of riding out its cache TTL.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, contestID string)
}

// Directory resolves user IDs to display names.
type Directory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Service contains the participation and scoring use cases.
type Service struct {
	ledger    Ledger
	catalog   Catalog
	directory Directory
	feed      *Feed
	now       func() time.Time
}

func NewService(ledger Ledger, catalog Catalog, directory Directory, feed *Feed) *Service {
	return &Service{
		ledger:    ledger,
		catalog:   catalog,
		directory: directory,
		feed:      feed,
		now:       time.Now,
	}
}

// NewServiceWithClock is test-only for deterministic timestamps.
func NewServiceWithClock(ledger Ledger, catalog Catalog, directory Directory, feed *Feed, now func() time.Time) *Service {
	s := NewService(ledger, catalog, directory, feed)
	s.now = now
	return s
}

// Join idempotently marks the caller as in-progress on the contest. Joining
// twice, or joining after a submission exists, is a no-op and never erases
// the submission.
func (s *Service) Join(ctx context.Context, p domain.Principal, contestID string) error {
	if contestID == "" {
		return domain.ErrInvalidSubmission
	}
	contest, err := s.catalog.ContestByID(ctx, contestID)
	if err != nil {
		return err
	}
	if err := checkParticipation(p, contest, s.now()); err != nil {
		return err
	}
	return s.ledger.AddJoin(ctx, domain.Join{
		UserID:    p.UserID,
		ContestID: contestID,
		JoinedAt:  s.now(),
	})
}

// Submit scores the caller's answers and records their one permitted
// attempt. A duplicate attempt fails with domain.ErrAlreadySubmitted before
// any scoring happens; a concurrent duplicate is decided by the ledger's
// compare-and-insert.
func (s *Service) Submit(ctx context.Context, p domain.Principal, contestID string, answers domain.AnswerSet) (domain.Participation, error) {
	if contestID == "" || len(answers) == 0 {
		return domain.Participation{}, domain.ErrInvalidSubmission
	}

	contest, err := s.catalog.ContestByID(ctx, contestID)
	if err != nil {
		return domain.Participation{}, err
	}
	if err := checkParticipation(p, contest, s.now()); err != nil {
		return domain.Participation{}, err
	}

	// Reject duplicates before scoring so the stored score stays immutable
	// and no computation is wasted.
	exists, err := s.ledger.HasParticipation(ctx, p.UserID, contestID)
	if err != nil {
		return domain.Participation{}, err
	}
	if exists {
		return domain.Participation{}, domain.ErrAlreadySubmitted
	}

	questions, err := s.catalog.QuestionsForContest(ctx, contestID)
	if err != nil {
		return domain.Participation{}, err
	}

	participation := domain.Participation{
		UserID:      p.UserID,
		ContestID:   contestID,
		Score:       ScoreAnswers(questions, answers),
		SubmittedAt: s.now(),
	}
	if err := s.ledger.RecordSubmission(ctx, participation); err != nil {
		return domain.Participation{}, err
	}

	s.publishLeaderboard(ctx, contestID)
	return participation, nil
}

// Leaderboard ranks the contest's participants by best score. A contest
// missing from the catalog yields an empty board rather than an error, so a
// read racing a deletion degrades quietly. Ties break by earliest
// submission, then user ID.
func (s *Service) Leaderboard(ctx context.Context, contestID string) (domain.Leaderboard, error) {
	lb := domain.Leaderboard{ContestID: contestID, Entries: []domain.LeaderboardEntry{}, UpdatedAt: s.now()}

	if _, err := s.catalog.ContestByID(ctx, contestID); err != nil {
		if errors.Is(err, domain.ErrContestNotFound) {
			return lb, nil
		}
		return lb, err
	}

	ranked, err := s.rankedParticipations(ctx, contestID)
	if err != nil {
		return lb, err
	}
	for _, p := range ranked {
		name, err := s.directory.DisplayName(ctx, p.UserID)
		if err != nil {
			return lb, err
		}
		lb.Entries = append(lb.Entries, domain.LeaderboardEntry{
			UserID:      p.UserID,
			DisplayName: name,
			Score:       p.Score,
		})
	}
	return lb, nil
}

// PrizesForUser computes, on demand, the prizes the user currently holds:
// for every cataloged contest with a prize title, the first ranked entry
// wins. Contests no longer in the catalog are skipped.
func (s *Service) PrizesForUser(ctx context.Context, userID string) ([]domain.PrizeAward, error) {
	contests, err := s.catalog.Contests(ctx)
	if err != nil {
		return nil, err
	}

	prizes := []domain.PrizeAward{}
	for _, contest := range contests {
		if contest.PrizeTitle == "" {
			continue
		}
		ranked, err := s.rankedParticipations(ctx, contest.ID)
		if err != nil {
			return nil, err
		}
		if len(ranked) > 0 && ranked[0].UserID == userID {
			prizes = append(prizes, domain.PrizeAward{
				ContestID:  contest.ID,
				PrizeTitle: contest.PrizeTitle,
			})
		}
	}
	return prizes, nil
}

// MyActivity summarizes the user's joins, submissions, and current prizes.
func (s *Service) MyActivity(ctx context.Context, userID string) (domain.Activity, error) {
	joins, err := s.ledger.JoinsByUser(ctx, userID)
	if err != nil {
		return domain.Activity{}, err
	}
	submissions, err := s.ledger.ParticipationsByUser(ctx, userID)
	if err != nil {
		return domain.Activity{}, err
	}
	prizes, err := s.PrizesForUser(ctx, userID)
	if err != nil {
		return domain.Activity{}, err
	}

	activity := domain.Activity{
		JoinedContestIDs: make([]string, 0, len(joins)),
		Submissions:      submissions,
		Prizes:           prizes,
	}
	for _, j := range joins {
		activity.JoinedContestIDs = append(activity.JoinedContestIDs, j.ContestID)
	}
	return activity, nil
}

// PurgeContest removes every join and participation referencing the
// contest and drops any cached catalog entries for it. Invoked by the admin
// contest-deletion flow; the ledger makes the removal atomic with respect to
// concurrent reads.
func (s *Service) PurgeContest(ctx context.Context, contestID string) error {
	if err := s.ledger.PurgeContest(ctx, contestID); err != nil {
		return err
	}
	if inv, ok := s.catalog.(CatalogInvalidator); ok {
		inv.Invalidate(ctx, contestID)
	}
	if s.feed != nil {
		s.feed.Publish(contestID, domain.Leaderboard{
			ContestID: contestID,
			Entries:   []domain.LeaderboardEntry{},
			UpdatedAt: s.now(),
		})
	}
	return nil
}

// VisibleContests lists contests the role may see: tier-filtered, and
// limited to the active window for everyone but admins.
func (s *Service) VisibleContests(ctx context.Context, role domain.Role) ([]domain.Contest, error) {
	contests, err := s.catalog.Contests(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	visible := []domain.Contest{}
	for _, contest := range contests {
		if !role.CanViewTier(contest.AccessTier) {
			continue
		}
		if role != domain.RoleAdmin && !contest.ActiveAt(now) {
			continue
		}
		visible = append(visible, contest)
	}
	return visible, nil
}

// ContestDetail returns the contest and its questions. Admins bypass the
// tier gate but not the time gate; non-admin callers never see correctness
// flags.
func (s *Service) ContestDetail(ctx context.Context, p domain.Principal, contestID string) (domain.Contest, []domain.Question, error) {
	contest, err := s.catalog.ContestByID(ctx, contestID)
	if err != nil {
		return domain.Contest{}, nil, err
	}
	if err := checkDetailAccess(p, contest, s.now()); err != nil {
		return domain.Contest{}, nil, err
	}
	questions, err := s.catalog.QuestionsForContest(ctx, contestID)
	if err != nil {
		return domain.Contest{}, nil, err
	}
	if p.Role != domain.RoleAdmin {
		sanitized := make([]domain.Question, len(questions))
		for i, q := range questions {
			sanitized[i] = q.Sanitized()
		}
		questions = sanitized
	}
	return contest, questions, nil
}

// Subscribe returns a channel of leaderboard snapshots for a contest. The
// caller must invoke cancel.
func (s *Service) Subscribe(ctx context.Context, contestID string) (<-chan domain.Leaderboard, func(), error) {
	if s.feed == nil {
		return nil, nil, errors.New("leaderboard feed not configured")
	}
	if _, err := s.catalog.ContestByID(ctx, contestID); err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(contestID)
	return ch, cancel, nil
}

// rankedParticipations reduces the contest's records to one best score per
// user and orders them: score descending, then earliest submission, then
// user ID. The max aggregation is defensive against duplicate historical
// entries even though the ledger permits only one per pair.
func (s *Service) rankedParticipations(ctx context.Context, contestID string) ([]domain.Participation, error) {
	records, err := s.ledger.ParticipationsByContest(ctx, contestID)
	if err != nil {
		return nil, err
	}

	best := make(map[string]domain.Participation, len(records))
	for _, record := range records {
		prev, ok := best[record.UserID]
		if !ok || record.Score > prev.Score ||
			(record.Score == prev.Score && record.SubmittedAt.Before(prev.SubmittedAt)) {
			best[record.UserID] = record
		}
	}

	ranked := make([]domain.Participation, 0, len(best))
	for _, record := range best {
		ranked = append(ranked, record)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if !ranked[i].SubmittedAt.Equal(ranked[j].SubmittedAt) {
			return ranked[i].SubmittedAt.Before(ranked[j].SubmittedAt)
		}
		return ranked[i].UserID < ranked[j].UserID
	})
	return ranked, nil
}

func (s *Service) publishLeaderboard(ctx context.Context, contestID string) {
	if s.feed == nil {
		return
	}
	lb, err := s.Leaderboard(ctx, contestID)
	if err != nil {
		return
	}
	s.feed.Publish(contestID, lb)
}
