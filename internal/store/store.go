// Package store implements the Badger-backed entity store for the
// catalog: authors, books and users with unique-index enforcement, plus
// the read-time aggregations the API serves.
package store

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/stacksapp/stacks-server/internal/domain"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	Authors *Entity[domain.Author]
	Books   *Entity[domain.Book]
	Users   *Entity[domain.User]
}

// New opens the database at path and wires up the entity sets.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil      // Disable Badger's internal logging
	opts.SyncWrites = true // Sync writes to disk to survive crashes

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	s := &Store{db: db, logger: logger}
	s.initEntities()

	if logger != nil {
		logger.Info("database opened", "path", path)
	}
	return s, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing database")
	}
	return s.db.Close()
}

// initEntities declares the entity sets and their indexes.
// Author.Name, Book.Title and User.Username carry uniqueness
// constraints; books are additionally findable by author and by genre.
func (s *Store) initEntities() {
	s.Authors = NewEntity(s, "author:", func(a *domain.Author) string { return a.ID }).
		WithUnique("name", func(a *domain.Author) string { return a.Name })

	s.Books = NewEntity(s, "book:", func(b *domain.Book) string { return b.ID }).
		WithUnique("title", func(b *domain.Book) string { return b.Title }).
		WithMulti("author", func(b *domain.Book) []string { return []string{b.AuthorID} }).
		WithMulti("genre", func(b *domain.Book) []string { return b.Genres })

	s.Users = NewEntity(s, "user:", func(u *domain.User) string { return u.ID }).
		WithUnique("username", func(u *domain.User) string { return u.Username })
}
