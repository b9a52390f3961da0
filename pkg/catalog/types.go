// Package catalog is a Go client for the Stacks GraphQL API. It
// carries the wire types, a request-response client, a subscription
// client and the local cache merge rules a live view needs.
package catalog

// Author is the wire shape of an author. BookCount is filled on list
// queries that select it and zero otherwise.
type Author struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Born      *int   `json:"born"`
	BookCount int    `json:"bookCount"`
}

// Book is the wire shape of a book with its author denormalized in.
type Book struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Published int      `json:"published"`
	Author    Author   `json:"author"`
	Genres    []string `json:"genres"`
}

// User is the wire shape of an account.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	FavoriteGenre string `json:"favoriteGenre"`
}

// Token is the wire shape of a successful login.
type Token struct {
	Value string `json:"value"`
}

// UserFavorites pairs the viewer's favorite genre with the books
// matching it.
type UserFavorites struct {
	FavoriteGenre string `json:"favoriteGenre"`
	Favorites     []Book `json:"favorites"`
}

// HasGenre reports whether the book lists the given genre.
func (b Book) HasGenre(genre string) bool {
	for _, g := range b.Genres {
		if g == genre {
			return true
		}
	}
	return false
}
