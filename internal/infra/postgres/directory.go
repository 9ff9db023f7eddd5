package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contest-platform-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Directory resolves display names from the users table.
type Directory struct {
	pool *pgxpool.Pool
}

func NewDirectory(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

// DisplayName returns "First Last" for a known user and the raw ID for an
// unknown one; only infrastructure failures are errors.
func (d *Directory) DisplayName(ctx context.Context, userID string) (string, error) {
	var first, last string
	err := d.pool.QueryRow(ctx,
		`SELECT COALESCE(first_name, ''), COALESCE(last_name, '') FROM users WHERE id = $1`,
		userID).Scan(&first, &last)
	if errors.Is(err, pgx.ErrNoRows) {
		return userID, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: display name: %v", domain.ErrDirectoryUnavailable, err)
	}
	name := strings.TrimSpace(first + " " + last)
	if name == "" {
		return userID, nil
	}
	return name, nil
}
