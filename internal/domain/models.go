package domain

import "time"

// AccessTier controls who can see and enter a contest.
type AccessTier string

const (
	TierNormal AccessTier = "normal"
	TierVIP    AccessTier = "vip"
)

// QuestionKind discriminates the scoring rule for a question.
type QuestionKind string

const (
	KindSingle  QuestionKind = "single"
	KindMulti   QuestionKind = "multi"
	KindBoolean QuestionKind = "boolean"
)

// Contest is a timed collection of questions with an access tier and a prize.
// StartsAt/EndsAt are optional; when both are set, EndsAt is after StartsAt.
type Contest struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	AccessTier   AccessTier `json:"accessTier"`
	StartsAt     *time.Time `json:"startsAt,omitempty"`
	EndsAt       *time.Time `json:"endsAt,omitempty"`
	PrizeTitle   string     `json:"prizeTitle,omitempty"`
	PrizeDetails string     `json:"prizeDetails,omitempty"`
	CreatedBy    string     `json:"createdBy,omitempty"`
}

// ActiveAt reports whether the contest accepts participation at the given
// instant. A nil bound means unbounded on that side.
func (c Contest) ActiveAt(now time.Time) bool {
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return false
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return false
	}
	return true
}

// Option is a possible answer for a question.
type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"questionId,omitempty"`
	Label      string `json:"label"`
	Correct    bool   `json:"correct,omitempty"`
}

// Question belongs to a contest. Boolean questions carry exactly two options
// with exactly one correct; single questions exactly one correct option.
type Question struct {
	ID        string       `json:"id"`
	ContestID string       `json:"contestId,omitempty"`
	Prompt    string       `json:"prompt"`
	Kind      QuestionKind `json:"kind"`
	Options   []Option     `json:"options"`
}

// CorrectOptionIDs returns the IDs of the options flagged correct.
func (q Question) CorrectOptionIDs() []string {
	ids := make([]string, 0, 1)
	for _, opt := range q.Options {
		if opt.Correct {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

// Sanitized returns a copy of the question with correctness flags stripped.
// Non-admin read paths must never leak which option is correct.
func (q Question) Sanitized() Question {
	out := q
	out.Options = make([]Option, len(q.Options))
	for i, opt := range q.Options {
		opt.Correct = false
		out.Options[i] = opt
	}
	return out
}

// AnswerSet maps a question ID to the selected option IDs. Single and
// boolean questions expect exactly one element; multi questions a set.
type AnswerSet map[string][]string

// Participation is the immutable result of a user's one scored attempt.
type Participation struct {
	UserID      string    `json:"userId"`
	ContestID   string    `json:"contestId"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Join marks that a user started a contest but has not necessarily
// submitted. Submission state is derived from the participation record,
// never by mutating the join.
type Join struct {
	UserID    string    `json:"userId"`
	ContestID string    `json:"contestId"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// LeaderboardEntry is one ranked row of a contest leaderboard.
type LeaderboardEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

// Leaderboard is the ordered scoreboard for a contest.
type Leaderboard struct {
	ContestID string             `json:"contestId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// PrizeAward records that a user currently tops a contest with a prize.
type PrizeAward struct {
	ContestID  string `json:"contestId"`
	PrizeTitle string `json:"prizeTitle"`
}

// Activity summarizes everything a user has done across contests.
type Activity struct {
	JoinedContestIDs []string        `json:"joinedContestIds"`
	Submissions      []Participation `json:"submissions"`
	Prizes           []PrizeAward    `json:"prizes"`
}
