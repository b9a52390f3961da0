package domain

// Author represents a book author in the catalog.
// Authors are created on demand when a book references an unknown name
// and are never deleted; Born is the only mutable field.
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Born is the birth year. Zero means unknown; the API exposes it as null.
	Born *int `json:"born,omitempty"`
}

// AuthorView is an Author together with its aggregated book count.
// It is produced by the single-pass aggregation behind allAuthors.
// The single-author lookup path returns a plain Author instead and
// counts books with an explicit store call.
type AuthorView struct {
	Author
	BookCount int `json:"book_count"`
}
