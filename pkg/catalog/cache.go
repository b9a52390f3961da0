package catalog

import (
	"slices"
	"sort"
	"sync"
)

// The merge functions below are pure: they take the cached value and
// an incoming event and return the next cached value. They are safe to
// apply repeatedly with the same event, so a client that sees an event
// both as a mutation response and as a subscription push converges on
// the same state.

// MergeBookIntoList adds a book to a cached book list unless a book
// with the same title is already present. The existing entry wins.
func MergeBookIntoList(books []Book, book Book) []Book {
	for _, existing := range books {
		if existing.Title == book.Title {
			return books
		}
	}
	return append(slices.Clone(books), book)
}

// MergeGenresIntoList unions incoming genres into a cached genre
// list, keeping it sorted.
func MergeGenresIntoList(genres []string, incoming []string) []string {
	merged := slices.Clone(genres)
	for _, genre := range incoming {
		if !slices.Contains(merged, genre) {
			merged = append(merged, genre)
		}
	}
	sort.Strings(merged)
	return merged
}

// MergeAuthorIntoList adds the book's author to a cached author list
// when the author's id is new. A known id leaves the list untouched,
// even when the incoming entry carries fresher fields; list queries
// own refreshing those.
func MergeAuthorIntoList(authors []Author, author Author) []Author {
	for _, existing := range authors {
		if existing.ID == author.ID {
			return authors
		}
	}
	return append(slices.Clone(authors), author)
}

// MergeFavoritesIfMatching appends the book to the cached favorites
// when it carries the favorite genre and its id is not already there.
// Books of other genres leave the cache unchanged.
func MergeFavoritesIfMatching(favorites UserFavorites, book Book) UserFavorites {
	if !book.HasGenre(favorites.FavoriteGenre) {
		return favorites
	}
	for _, existing := range favorites.Favorites {
		if existing.ID == book.ID {
			return favorites
		}
	}
	next := favorites
	next.Favorites = append(slices.Clone(favorites.Favorites), book)
	return next
}

// Cache is a mutex-guarded view of the catalog a client keeps current
// by applying bookAdded events.
type Cache struct {
	mu        sync.RWMutex
	books     []Book
	genres    []string
	authors   []Author
	favorites UserFavorites
}

// NewCache seeds a cache from initial query results. favorites may be
// zero when the client is not authenticated.
func NewCache(books []Book, genres []string, authors []Author, favorites UserFavorites) *Cache {
	return &Cache{
		books:     slices.Clone(books),
		genres:    slices.Clone(genres),
		authors:   slices.Clone(authors),
		favorites: favorites,
	}
}

// ApplyBookAdded folds one bookAdded event into every cached list.
func (c *Cache) ApplyBookAdded(book Book) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books = MergeBookIntoList(c.books, book)
	c.genres = MergeGenresIntoList(c.genres, book.Genres)
	c.authors = MergeAuthorIntoList(c.authors, book.Author)
	c.favorites = MergeFavoritesIfMatching(c.favorites, book)
}

// Books returns the cached book list.
func (c *Cache) Books() []Book {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.books)
}

// Genres returns the cached genre list.
func (c *Cache) Genres() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.genres)
}

// Authors returns the cached author list.
func (c *Cache) Authors() []Author {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.authors)
}

// Favorites returns the cached favorites view.
func (c *Cache) Favorites() UserFavorites {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := c.favorites
	out.Favorites = slices.Clone(c.favorites.Favorites)
	return out
}
