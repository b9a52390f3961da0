package store

import (
	"context"
	"sort"

	"github.com/stacksapp/stacks-server/internal/domain"
)

// Read-time aggregations over the book collection. Nothing here is
// cached: every call reflects the collection state at the moment of the
// read.

// AuthorViews returns every author with its book count, computed in a
// single pass over the book collection instead of one count query per
// author. This is the path behind allAuthors; single-author lookups use
// CountBooksByAuthor instead.
func (s *Store) AuthorViews(ctx context.Context) ([]*domain.AuthorView, error) {
	counts := make(map[string]int)
	for book, err := range s.Books.List(ctx) {
		if err != nil {
			return nil, err
		}
		counts[book.AuthorID]++
	}

	var views []*domain.AuthorView
	for author, err := range s.Authors.List(ctx) {
		if err != nil {
			return nil, err
		}
		views = append(views, &domain.AuthorView{
			Author:    *author,
			BookCount: counts[author.ID],
		})
	}
	return views, nil
}

// CountBooksByAuthor counts the books referencing one author via the
// author index, without loading the records.
func (s *Store) CountBooksByAuthor(ctx context.Context, authorID string) (int, error) {
	return s.Books.CountByIndex(ctx, "author", authorID)
}

// DistinctGenres returns every genre appearing on any book, sorted
// ascending with no duplicates.
func (s *Store) DistinctGenres(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for book, err := range s.Books.List(ctx) {
		if err != nil {
			return nil, err
		}
		for _, g := range book.Genres {
			seen[g] = struct{}{}
		}
	}

	genres := make([]string, 0, len(seen))
	for g := range seen {
		genres = append(genres, g)
	}
	sort.Strings(genres)
	return genres, nil
}
