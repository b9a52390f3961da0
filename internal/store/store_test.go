package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stacksapp/stacks-server/internal/domain"
)

// setupTestStore opens a store against a temp directory and returns it
// with a cleanup function.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	return s, func() {
		require.NoError(t, s.Close())
	}
}

func intPtr(v int) *int { return &v }

func seedBook(t *testing.T, s *Store, id, title string, published int, authorID string, genres ...string) *domain.Book {
	t.Helper()

	book := &domain.Book{
		ID:        id,
		Title:     title,
		Published: published,
		AuthorID:  authorID,
		Genres:    genres,
	}
	require.NoError(t, s.Books.Create(context.Background(), book))
	return book
}

func seedAuthor(t *testing.T, s *Store, id, name string) *domain.Author {
	t.Helper()

	author := &domain.Author{ID: id, Name: name}
	require.NoError(t, s.Authors.Create(context.Background(), author))
	return author
}
