package review

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListApproved(ctx context.Context, blogSlug string) ([]Review, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, blog_slug, name, COALESCE(email, ''), rating, comment, approved, created_at
		FROM blog_reviews
		WHERE blog_slug = $1 AND approved
		ORDER BY created_at DESC
	`, blogSlug)
	if err != nil {
		return nil, fmt.Errorf("query approved reviews: %w", err)
	}
	defer rows.Close()

	return collectReviews(rows)
}

func (r *Repository) ListAll(ctx context.Context) ([]Review, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, blog_slug, name, COALESCE(email, ''), rating, comment, approved, created_at
		FROM blog_reviews
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	return collectReviews(rows)
}

func (r *Repository) Create(ctx context.Context, blogSlug string, input ReviewInput) (Review, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Review{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	review := Review{
		ID:        id.String(),
		BlogSlug:  blogSlug,
		Name:      input.Name,
		Email:     input.Email,
		Rating:    input.Rating,
		Comment:   input.Comment,
		Approved:  false,
		CreatedAt: time.Now().UTC(),
	}

	var email any
	if review.Email != "" {
		email = review.Email
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO blog_reviews (id, blog_slug, name, email, rating, comment, approved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
	`, review.ID, review.BlogSlug, review.Name, email, review.Rating, review.Comment, review.CreatedAt)
	if err != nil {
		return Review{}, fmt.Errorf("insert review: %w", err)
	}

	return review, nil
}

func (r *Repository) Approve(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE blog_reviews SET approved = TRUE WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("approve review: %w", err)
	}

	return requireRow(res)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blog_reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	return requireRow(res)
}

// PurgeStaleUnapproved removes unapproved reviews older than the cutoff, in
// bounded batches; maintenance calls this on its cron schedule.
func (r *Repository) PurgeStaleUnapproved(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	res, err := r.db.ExecContext(ctx, `
		WITH stale AS (
			SELECT id
			FROM blog_reviews
			WHERE NOT approved AND created_at < $1
			ORDER BY created_at ASC
			LIMIT $2
		)
		DELETE FROM blog_reviews t
		USING stale
		WHERE t.id = stale.id
	`, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("purge stale reviews: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge stale reviews rows affected: %w", err)
	}

	return affected, nil
}

func collectReviews(rows *sql.Rows) ([]Review, error) {
	reviews := make([]Review, 0)
	for rows.Next() {
		var review Review
		if err := rows.Scan(&review.ID, &review.BlogSlug, &review.Name, &review.Email,
			&review.Rating, &review.Comment, &review.Approved, &review.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}

	return reviews, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
