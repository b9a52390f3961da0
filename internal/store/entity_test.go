package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacksapp/stacks-server/internal/domain"
)

func TestEntityCreateAndGet(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	author := &domain.Author{ID: "author-1", Name: "Robert Martin", Born: intPtr(1952)}
	require.NoError(t, s.Authors.Create(ctx, author))

	got, err := s.Authors.Get(ctx, "author-1")
	require.NoError(t, err)
	assert.Equal(t, "Robert Martin", got.Name)
	require.NotNil(t, got.Born)
	assert.Equal(t, 1952, *got.Born)
}

func TestEntityGet_NotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.Authors.Get(context.Background(), "author-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntityCreate_DuplicateID(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedAuthor(t, s, "author-1", "Robert Martin")

	err := s.Authors.Create(ctx, &domain.Author{ID: "author-1", Name: "Someone Else"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestEntityCreate_UniqueIndexConflict(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedAuthor(t, s, "author-1", "Robert Martin")

	err := s.Authors.Create(ctx, &domain.Author{ID: "author-2", Name: "Robert Martin"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	// The losing writer must not leave a record behind.
	_, err = s.Authors.Get(ctx, "author-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntityCreate_ConcurrentSameName(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	// Two writers race on the same previously-unseen author name.
	// Exactly one creation may succeed.
	results := make(chan error, 2)
	for _, authorID := range []string{"author-a", "author-b"} {
		go func() {
			results <- s.Authors.Create(ctx, &domain.Author{ID: authorID, Name: "Fyodor Dostoevsky"})
		}()
	}

	var failures int
	for range 2 {
		if err := <-results; err != nil {
			assert.ErrorIs(t, err, ErrAlreadyExists)
			failures++
		}
	}
	assert.Equal(t, 1, failures, "exactly one of two racing creations must fail")

	count, err := s.Authors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEntityGetByUnique(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedAuthor(t, s, "author-1", "Sandi Metz")

	got, err := s.Authors.GetByUnique(ctx, "name", "Sandi Metz")
	require.NoError(t, err)
	assert.Equal(t, "author-1", got.ID)

	_, err = s.Authors.GetByUnique(ctx, "name", "sandi metz")
	assert.ErrorIs(t, err, ErrNotFound, "name matching is case-sensitive")
}

func TestEntityUpdate(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	author := seedAuthor(t, s, "author-1", "Robert Martin")

	author.Born = intPtr(1952)
	require.NoError(t, s.Authors.Update(ctx, author))

	got, err := s.Authors.Get(ctx, "author-1")
	require.NoError(t, err)
	require.NotNil(t, got.Born)
	assert.Equal(t, 1952, *got.Born)

	// The unique index still resolves after the update.
	byName, err := s.Authors.GetByUnique(ctx, "name", "Robert Martin")
	require.NoError(t, err)
	assert.Equal(t, "author-1", byName.ID)
}

func TestEntityUpdate_NotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	err := s.Authors.Update(context.Background(), &domain.Author{ID: "author-ghost", Name: "Nobody"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntityListByIndex_Genre(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedAuthor(t, s, "author-1", "Robert Martin")
	seedBook(t, s, "book-1", "Clean Code", 2008, "author-1", "refactoring", "patterns")
	seedBook(t, s, "book-2", "Agile Software Development", 2002, "author-1", "patterns")
	seedBook(t, s, "book-3", "Clean Agile", 2019, "author-1", "agile")

	books, err := s.Books.ListByIndex(ctx, "genre", "patterns")
	require.NoError(t, err)
	require.Len(t, books, 2)

	// "agile" must not prefix-match "agile something".
	books, err = s.Books.ListByIndex(ctx, "genre", "pattern")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestEntityListByIndex_Author(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedAuthor(t, s, "author-1", "Robert Martin")
	seedAuthor(t, s, "author-2", "Sandi Metz")
	seedBook(t, s, "book-1", "Clean Code", 2008, "author-1", "refactoring")
	seedBook(t, s, "book-2", "POODR", 2012, "author-2", "design")

	books, err := s.Books.ListByIndex(ctx, "author", "author-2")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "POODR", books[0].Title)
}

func TestEntityCount(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	count, err := s.Books.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	seedAuthor(t, s, "author-1", "Robert Martin")
	seedBook(t, s, "book-1", "Clean Code", 2008, "author-1", "refactoring")
	seedBook(t, s, "book-2", "Clean Agile", 2019, "author-1", "agile")

	count, err = s.Books.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "index entries must not be counted as records")
}

func TestEntityList_SkipsIndexEntries(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedAuthor(t, s, "author-1", "Robert Martin")
	seedBook(t, s, "book-1", "Clean Code", 2008, "author-1", "refactoring", "patterns")

	var titles []string
	for book, err := range s.Books.List(ctx) {
		require.NoError(t, err)
		titles = append(titles, book.Title)
	}
	assert.Equal(t, []string{"Clean Code"}, titles)
}
