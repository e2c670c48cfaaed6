package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hostrate/apiserver/types"
)

// RatingRepository handles persistence for ratings.
type RatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Create inserts a rating. A host_id with no matching host is rejected by
// the foreign key and reported as ErrNotFound.
func (r *RatingRepository) Create(ctx context.Context, rating types.Rating) (types.Rating, error) {
	rating.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO ratings (host_id, rater_id, score, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		rating.HostID,
		rating.RaterID,
		rating.Score,
		rating.Comment,
		rating.CreatedAt,
	).Scan(&rating.ID); err != nil {
		if isForeignKeyViolation(err) {
			return types.Rating{}, ErrNotFound
		}
		return types.Rating{}, fmt.Errorf("insert rating: %w", err)
	}
	return rating, nil
}
