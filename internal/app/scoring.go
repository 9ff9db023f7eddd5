package app

import (
	"contest-platform-service/internal/domain"
)

// ScoreAnswers computes the total score for a submission: one point per
// fully-correct question, no partial credit. Questions with no submitted
// answer contribute zero, and answer keys that match no question are
// ignored; a well-formed-but-wrong answer is never an error.
func ScoreAnswers(questions []domain.Question, answers domain.AnswerSet) int {
	total := 0
	for _, q := range questions {
		selected, ok := answers[q.ID]
		if !ok {
			continue
		}
		if scoreQuestion(q, selected) {
			total++
		}
	}
	return total
}

// scoreQuestion reports whether the selection earns the question's point.
func scoreQuestion(q domain.Question, selected []string) bool {
	correct := q.CorrectOptionIDs()
	switch q.Kind {
	case domain.KindSingle, domain.KindBoolean:
		// Exactly one identifier matching the single correct option.
		// Zero or multiple selections are simply incorrect.
		if len(selected) != 1 || len(correct) != 1 {
			return false
		}
		return selected[0] == correct[0]
	case domain.KindMulti:
		// Exact set equality: same size, same members.
		if len(correct) == 0 {
			return false
		}
		given := make(map[string]struct{}, len(selected))
		for _, id := range selected {
			given[id] = struct{}{}
		}
		if len(given) != len(correct) {
			return false
		}
		for _, id := range correct {
			if _, ok := given[id]; !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}
