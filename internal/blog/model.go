package blog

import (
	"encoding/json"
	"time"
)

// PostImage is the optional header image of a post.
type PostImage struct {
	URL     string `json:"url"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
}

type Post struct {
	ID            string          `json:"id"`
	Slug          string          `json:"slug"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Excerpt       string          `json:"excerpt,omitempty"`
	Category      string          `json:"category"`
	Content       string          `json:"content"`
	ContentBlocks json.RawMessage `json:"content_blocks,omitempty"`
	Image         *PostImage      `json:"image,omitempty"`
	Tags          []string        `json:"tags"`
	ReadTime      int             `json:"read_time"`
	Views         int64           `json:"views"`
	Published     bool            `json:"published"`
	PublishedAt   *time.Time      `json:"published_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PostInput is the admin-facing create/update payload.
type PostInput struct {
	Title         string          `json:"title"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description"`
	Excerpt       string          `json:"excerpt"`
	Category      string          `json:"category"`
	Content       string          `json:"content"`
	ContentBlocks json.RawMessage `json:"contentBlocks"`
	Image         *PostImage      `json:"image"`
	Tags          []string        `json:"tags"`
	ReadTime      int             `json:"readTime"`
	Published     bool            `json:"published"`
}
