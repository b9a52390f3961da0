package domain

import "slices"

// Book represents a catalog entry. Books are immutable after creation
// and are never deleted. AuthorID always resolves to an existing Author.
type Book struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Published int      `json:"published"`
	AuthorID  string   `json:"author_id"`
	Genres    []string `json:"genres"`
}

// HasGenre reports whether the book is tagged with the given genre.
// Matching is case-sensitive exact string comparison.
func (b *Book) HasGenre(genre string) bool {
	return slices.Contains(b.Genres, genre)
}

// HasAnyGenre reports whether the book's genres intersect the given set.
func (b *Book) HasAnyGenre(genres []string) bool {
	for _, g := range genres {
		if b.HasGenre(g) {
			return true
		}
	}
	return false
}
