package blog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const postColumns = `id, slug, title, description, excerpt, category, content,
	content_blocks, image, tags, read_time, views, published, published_at,
	created_at, updated_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context, includeDrafts bool) ([]Post, error) {
	query := `SELECT ` + postColumns + ` FROM blog_posts`
	if !includeDrafts {
		query += ` WHERE published`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return posts, nil
}

func (r *Repository) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (Post, error) {
	query := `SELECT ` + postColumns + ` FROM blog_posts WHERE slug = $1`
	if publishedOnly {
		query += ` AND published`
	}

	row := r.db.QueryRowContext(ctx, query, slug)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, sql.ErrNoRows
		}
		return Post{}, err
	}

	return post, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE id = $1`, id)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, sql.ErrNoRows
		}
		return Post{}, err
	}

	return post, nil
}

// SlugExists reports whether another post already owns the slug. excludeID is
// the post being updated, empty on create.
func (r *Repository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM blog_posts WHERE slug = $1 AND id::text <> $2)
	`, slug, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}

	return exists, nil
}

func (r *Repository) Create(ctx context.Context, input PostInput) (Post, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Post{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()
	var publishedAt *time.Time
	if input.Published {
		publishedAt = &now
	}

	blocks, image, tags, err := encodePostFields(input)
	if err != nil {
		return Post{}, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO blog_posts (id, slug, title, description, excerpt, category,
			content, content_blocks, image, tags, read_time, views, published,
			published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, $12, $13, $14, $14)
	`, id.String(), input.Slug, input.Title, input.Description, input.Excerpt,
		input.Category, input.Content, blocks, image, tags, input.ReadTime,
		input.Published, publishedAt, now)
	if err != nil {
		return Post{}, fmt.Errorf("insert post: %w", err)
	}

	return r.GetByID(ctx, id.String())
}

func (r *Repository) Update(ctx context.Context, id string, input PostInput) (Post, error) {
	blocks, image, tags, err := encodePostFields(input)
	if err != nil {
		return Post{}, err
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE blog_posts
		SET slug = $2, title = $3, description = $4, excerpt = $5, category = $6,
			content = $7, content_blocks = $8, image = $9, tags = $10,
			read_time = $11, published = $12,
			published_at = CASE
				WHEN $12 AND published_at IS NULL THEN $13
				WHEN NOT $12 THEN NULL
				ELSE published_at
			END,
			updated_at = $13
		WHERE id = $1
	`, id, input.Slug, input.Title, input.Description, input.Excerpt,
		input.Category, input.Content, blocks, image, tags, input.ReadTime,
		input.Published, now)
	if err != nil {
		return Post{}, fmt.Errorf("update post: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return Post{}, fmt.Errorf("update post rows affected: %w", err)
	}
	if affected == 0 {
		return Post{}, sql.ErrNoRows
	}

	return r.GetByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *Repository) IncrementViews(ctx context.Context, slug string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE blog_posts SET views = views + 1 WHERE slug = $1
	`, slug)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}

	return nil
}

func encodePostFields(input PostInput) (blocks, image, tags []byte, err error) {
	if len(input.ContentBlocks) > 0 {
		blocks = []byte(input.ContentBlocks)
	}
	if input.Image != nil {
		image, err = json.Marshal(input.Image)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("encode image: %w", err)
		}
	}
	if input.Tags == nil {
		input.Tags = []string{}
	}
	tags, err = json.Marshal(input.Tags)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode tags: %w", err)
	}

	return blocks, image, tags, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (Post, error) {
	var (
		post        Post
		description sql.NullString
		excerpt     sql.NullString
		blocks      []byte
		image       []byte
		tags        []byte
		publishedAt sql.NullTime
	)

	err := row.Scan(&post.ID, &post.Slug, &post.Title, &description, &excerpt,
		&post.Category, &post.Content, &blocks, &image, &tags, &post.ReadTime,
		&post.Views, &post.Published, &publishedAt, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, err
		}
		return Post{}, fmt.Errorf("scan post: %w", err)
	}

	post.Description = description.String
	post.Excerpt = excerpt.String
	if len(blocks) > 0 {
		post.ContentBlocks = json.RawMessage(blocks)
	}
	if len(image) > 0 {
		var parsed PostImage
		if err := json.Unmarshal(image, &parsed); err != nil {
			return Post{}, fmt.Errorf("decode image: %w", err)
		}
		post.Image = &parsed
	}
	post.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &post.Tags); err != nil {
			return Post{}, fmt.Errorf("decode tags: %w", err)
		}
	}
	if publishedAt.Valid {
		value := publishedAt.Time.UTC()
		post.PublishedAt = &value
	}

	return post, nil
}
