package review

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	reviews  map[string]Review
	approved []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{reviews: map[string]Review{}}
}

func (s *fakeStore) ListApproved(_ context.Context, blogSlug string) ([]Review, error) {
	out := make([]Review, 0)
	for _, review := range s.reviews {
		if review.BlogSlug == blogSlug && review.Approved {
			out = append(out, review)
		}
	}
	return out, nil
}

func (s *fakeStore) ListAll(context.Context) ([]Review, error) {
	out := make([]Review, 0, len(s.reviews))
	for _, review := range s.reviews {
		out = append(out, review)
	}
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, blogSlug string, input ReviewInput) (Review, error) {
	review := Review{ID: "00000000-0000-7000-8000-000000000001", BlogSlug: blogSlug,
		Name: input.Name, Email: input.Email, Rating: input.Rating, Comment: input.Comment}
	s.reviews[review.ID] = review
	return review, nil
}

func (s *fakeStore) Approve(_ context.Context, id string) error {
	review, ok := s.reviews[id]
	if !ok {
		return sql.ErrNoRows
	}
	review.Approved = true
	s.reviews[id] = review
	s.approved = append(s.approved, id)
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := s.reviews[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.reviews, id)
	return nil
}

func (s *fakeStore) PurgeStaleUnapproved(context.Context, time.Time, int) (int64, error) {
	return 0, nil
}

func submit(t *testing.T, store Store, body string) *httptest.ResponseRecorder {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/blog/{slug}/reviews", NewHandler(store).Submit)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/blog/hello/reviews", strings.NewReader(body)))
	return rec
}

func TestSubmitReviewLandsUnapproved(t *testing.T) {
	store := newFakeStore()

	rec := submit(t, store, `{"name":"Alice","email":"a@example.com","rating":5,"comment":"great post"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, store.reviews, 1)
	for _, review := range store.reviews {
		assert.Equal(t, "hello", review.BlogSlug)
		assert.False(t, review.Approved)
	}
}

func TestSubmitReviewValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"rating":5,"comment":"x"}`},
		{"bad email", `{"name":"a","email":"nope","rating":5,"comment":"x"}`},
		{"rating too low", `{"name":"a","rating":0,"comment":"x"}`},
		{"rating too high", `{"name":"a","rating":6,"comment":"x"}`},
		{"missing comment", `{"name":"a","rating":3,"comment":"  "}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := submit(t, newFakeStore(), tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestApproveReview(t *testing.T) {
	store := newFakeStore()
	store.reviews["00000000-0000-7000-8000-000000000002"] = Review{
		ID: "00000000-0000-7000-8000-000000000002", BlogSlug: "hello",
	}

	mux := http.NewServeMux()
	handler := NewHandler(store)
	mux.HandleFunc("POST /admin/api/reviews/{id}/approve", handler.Approve)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/admin/api/reviews/00000000-0000-7000-8000-000000000002/approve", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"00000000-0000-7000-8000-000000000002"}, store.approved)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/admin/api/reviews/00000000-0000-7000-8000-000000000003/approve", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
