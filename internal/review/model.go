package review

import "time"

type Review struct {
	ID        string    `json:"id"`
	BlogSlug  string    `json:"blog_slug"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewInput is the public submission payload; reviews land unapproved and
// only show up once an admin approves them.
type ReviewInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}
