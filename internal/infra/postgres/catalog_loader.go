package postgres

import (
	"context"
	"errors"
	"fmt"

	"contest-platform-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CatalogLoader reads contests, questions, and options from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadContest(ctx context.Context, contestID string) (domain.Contest, error) {
	var contest domain.Contest
	err := l.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(description, ''), access_level,
		       starts_at, ends_at, COALESCE(prize_title, ''),
		       COALESCE(prize_details, ''), COALESCE(created_by, '')
		FROM contests WHERE id = $1`, contestID).Scan(
		&contest.ID, &contest.Name, &contest.Description, &contest.AccessTier,
		&contest.StartsAt, &contest.EndsAt, &contest.PrizeTitle,
		&contest.PrizeDetails, &contest.CreatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Contest{}, domain.ErrContestNotFound
	}
	if err != nil {
		return domain.Contest{}, fmt.Errorf("%w: load contest: %v", domain.ErrCatalogUnavailable, err)
	}
	return contest, nil
}

func (l *CatalogLoader) LoadQuestions(ctx context.Context, contestID string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, contest_id, prompt, type
		FROM questions WHERE contest_id = $1 ORDER BY id`, contestID)
	if err != nil {
		return nil, fmt.Errorf("%w: load questions: %v", domain.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	questions := []domain.Question{}
	index := map[string]int{}
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.ContestID, &q.Prompt, &q.Kind); err != nil {
			return nil, fmt.Errorf("%w: scan question: %v", domain.ErrCatalogUnavailable, err)
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load questions: %v", domain.ErrCatalogUnavailable, err)
	}

	optRows, err := l.pool.Query(ctx, `
		SELECT o.id, o.question_id, o.label, o.is_correct
		FROM options o JOIN questions q ON q.id = o.question_id
		WHERE q.contest_id = $1 ORDER BY o.id`, contestID)
	if err != nil {
		return nil, fmt.Errorf("%w: load options: %v", domain.ErrCatalogUnavailable, err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var opt domain.Option
		if err := optRows.Scan(&opt.ID, &opt.QuestionID, &opt.Label, &opt.Correct); err != nil {
			return nil, fmt.Errorf("%w: scan option: %v", domain.ErrCatalogUnavailable, err)
		}
		if i, ok := index[opt.QuestionID]; ok {
			questions[i].Options = append(questions[i].Options, opt)
		}
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load options: %v", domain.ErrCatalogUnavailable, err)
	}
	return questions, nil
}

func (l *CatalogLoader) LoadContests(ctx context.Context) ([]domain.Contest, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''), access_level,
		       starts_at, ends_at, COALESCE(prize_title, ''),
		       COALESCE(prize_details, ''), COALESCE(created_by, '')
		FROM contests ORDER BY starts_at NULLS LAST, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list contests: %v", domain.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	contests := []domain.Contest{}
	for rows.Next() {
		var contest domain.Contest
		if err := rows.Scan(
			&contest.ID, &contest.Name, &contest.Description, &contest.AccessTier,
			&contest.StartsAt, &contest.EndsAt, &contest.PrizeTitle,
			&contest.PrizeDetails, &contest.CreatedBy,
		); err != nil {
			return nil, fmt.Errorf("%w: scan contest: %v", domain.ErrCatalogUnavailable, err)
		}
		contests = append(contests, contest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list contests: %v", domain.ErrCatalogUnavailable, err)
	}
	return contests, nil
}
