package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func demons() Book {
	return Book{
		ID:        "book-1",
		Title:     "Demons",
		Published: 1872,
		Author:    Author{ID: "author-1", Name: "Fyodor Dostoevsky", Born: intPtr(1821), BookCount: 1},
		Genres:    []string{"classic", "russian"},
	}
}

func TestMergeBookIntoListDedupesByTitle(t *testing.T) {
	book := demons()
	books := MergeBookIntoList(nil, book)
	assert.Len(t, books, 1)

	// Same title again, even with a different id: first entry wins.
	duplicate := book
	duplicate.ID = "book-other"
	books = MergeBookIntoList(books, duplicate)
	assert.Len(t, books, 1)
	assert.Equal(t, "book-1", books[0].ID)

	other := book
	other.ID = "book-2"
	other.Title = "Crime and Punishment"
	books = MergeBookIntoList(books, other)
	assert.Len(t, books, 2)
}

func TestMergeBookIntoListDoesNotMutateInput(t *testing.T) {
	original := []Book{demons()}
	added := demons()
	added.Title = "The Idiot"
	added.ID = "book-2"

	merged := MergeBookIntoList(original, added)
	assert.Len(t, original, 1)
	assert.Len(t, merged, 2)
}

func TestMergeGenresIntoListUnionsAndSorts(t *testing.T) {
	genres := MergeGenresIntoList([]string{"refactoring", "classic"}, []string{"russian", "classic"})
	assert.Equal(t, []string{"classic", "refactoring", "russian"}, genres)

	// Idempotent on repeat.
	again := MergeGenresIntoList(genres, []string{"russian", "classic"})
	assert.Equal(t, genres, again)
}

func TestMergeAuthorIntoListKeepsExistingEntry(t *testing.T) {
	stale := Author{ID: "author-1", Name: "Fyodor Dostoevsky", BookCount: 1}
	authors := MergeAuthorIntoList(nil, stale)
	assert.Len(t, authors, 1)

	// A fresher entry for a known id never replaces the cached one.
	fresh := stale
	fresh.BookCount = 2
	authors = MergeAuthorIntoList(authors, fresh)
	assert.Len(t, authors, 1)
	assert.Equal(t, 1, authors[0].BookCount)

	authors = MergeAuthorIntoList(authors, Author{ID: "author-2", Name: "Martin Fowler"})
	assert.Len(t, authors, 2)
}

func TestMergeFavoritesIfMatching(t *testing.T) {
	favorites := UserFavorites{FavoriteGenre: "classic"}

	merged := MergeFavoritesIfMatching(favorites, demons())
	assert.Len(t, merged.Favorites, 1)
	assert.Equal(t, "classic", merged.FavoriteGenre)

	// Same book again by id: no duplicate.
	merged = MergeFavoritesIfMatching(merged, demons())
	assert.Len(t, merged.Favorites, 1)

	// A book of another genre leaves favorites untouched.
	other := demons()
	other.ID = "book-9"
	other.Title = "Refactoring"
	other.Genres = []string{"programming"}
	merged = MergeFavoritesIfMatching(merged, other)
	assert.Len(t, merged.Favorites, 1)
}

func TestApplyBookAddedConvergesWhenAppliedTwice(t *testing.T) {
	cache := NewCache(nil, nil, nil, UserFavorites{FavoriteGenre: "classic"})

	// A client can see the same event from the mutation response and
	// the subscription push; both applications must land on one state.
	cache.ApplyBookAdded(demons())
	cache.ApplyBookAdded(demons())

	assert.Len(t, cache.Books(), 1)
	assert.Equal(t, []string{"classic", "russian"}, cache.Genres())
	assert.Len(t, cache.Authors(), 1)
	assert.Len(t, cache.Favorites().Favorites, 1)
}

func TestApplyBookAddedUpdatesEveryList(t *testing.T) {
	cache := NewCache(
		[]Book{{ID: "book-0", Title: "Refactoring", Genres: []string{"programming"}, Author: Author{ID: "author-0", Name: "Martin Fowler"}}},
		[]string{"programming"},
		[]Author{{ID: "author-0", Name: "Martin Fowler"}},
		UserFavorites{FavoriteGenre: "classic"},
	)

	cache.ApplyBookAdded(demons())

	assert.Len(t, cache.Books(), 2)
	assert.Equal(t, []string{"classic", "programming", "russian"}, cache.Genres())
	assert.Len(t, cache.Authors(), 2)

	favorites := cache.Favorites()
	assert.Len(t, favorites.Favorites, 1)
	assert.Equal(t, "Demons", favorites.Favorites[0].Title)
}
