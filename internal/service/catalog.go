// Package service implements the business logic behind the GraphQL
// resolvers: catalog reads and writes, user accounts and login.
//
// Protected operations take the authenticated viewer as an explicit
// parameter, threaded in by the request-handling boundary; services
// never read identity from ambient state.
package service

import (
	"context"
	"log/slog"

	"github.com/stacksapp/stacks-server/internal/domain"
	"github.com/stacksapp/stacks-server/internal/errors"
	"github.com/stacksapp/stacks-server/internal/id"
	"github.com/stacksapp/stacks-server/internal/store"
)

// TopicBookAdded is the broadcast topic for successful book creations.
const TopicBookAdded = "book.added"

// Publisher is the interface the catalog uses to announce events.
// Publishing is fire-and-forget relative to the mutation response.
type Publisher interface {
	Publish(topic string, payload any)
}

// NoopPublisher discards events. Used in tests.
type NoopPublisher struct{}

// Publish implements Publisher as a no-op.
func (NoopPublisher) Publish(string, any) {}

// BookAdded is the payload published on TopicBookAdded: the created
// book with its author already resolved.
type BookAdded struct {
	Book   *domain.Book
	Author *domain.Author
}

// CatalogService orchestrates author and book operations.
type CatalogService struct {
	store     *store.Store
	publisher Publisher
	logger    *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store *store.Store, publisher Publisher, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// AddBookRequest contains the fields for creating a book.
type AddBookRequest struct {
	Title     string   `json:"title" validate:"required,min=5"`
	Published int      `json:"published"`
	Author    string   `json:"author" validate:"required,min=4"`
	Genres    []string `json:"genres"`
}

// AddBook creates a book for an authenticated viewer, creating the
// author on demand when the name is unknown. On success the created
// book is published on TopicBookAdded and returned with its author.
//
// Two concurrent calls racing on the same new author name are resolved
// by the store's uniqueness constraint: the losing writer surfaces
// BAD_USER_INPUT instead of retrying or duplicating the author.
func (s *CatalogService) AddBook(ctx context.Context, viewer *domain.User, req AddBookRequest) (*domain.Book, *domain.Author, error) {
	if viewer == nil {
		return nil, nil, errors.Unauthenticated("not authenticated")
	}

	if err := validate.Struct(req); err != nil {
		return nil, nil, errors.BadUserInput("saving book failed").WithCause(err).WithInvalidArgs(req)
	}

	author, err := s.store.Authors.GetByUnique(ctx, "name", req.Author)
	if errors.Is(err, store.ErrNotFound) {
		author, err = s.createAuthor(ctx, req.Author)
		if err != nil {
			return nil, nil, errors.BadUserInput("saving author failed").WithCause(err).WithInvalidArgs(req.Author)
		}
	} else if err != nil {
		return nil, nil, errors.Internal("loading author failed").WithCause(err)
	}

	bookID, err := id.Generate("book")
	if err != nil {
		return nil, nil, errors.Internal("generating book id failed").WithCause(err)
	}

	book := &domain.Book{
		ID:        bookID,
		Title:     req.Title,
		Published: req.Published,
		AuthorID:  author.ID,
		Genres:    req.Genres,
	}
	if book.Genres == nil {
		book.Genres = []string{}
	}

	if err := s.store.Books.Create(ctx, book); err != nil {
		return nil, nil, errors.BadUserInput("saving book failed").WithCause(err).WithInvalidArgs(req)
	}

	s.logger.Info("book added",
		slog.String("id", book.ID),
		slog.String("title", book.Title),
		slog.String("author", author.Name),
		slog.String("user", viewer.Username))

	s.publisher.Publish(TopicBookAdded, BookAdded{Book: book, Author: author})

	return book, author, nil
}

func (s *CatalogService) createAuthor(ctx context.Context, name string) (*domain.Author, error) {
	authorID, err := id.Generate("author")
	if err != nil {
		return nil, err
	}

	author := &domain.Author{ID: authorID, Name: name}
	if err := s.store.Authors.Create(ctx, author); err != nil {
		return nil, err
	}

	s.logger.Info("author created", slog.String("id", authorID), slog.String("name", name))
	return author, nil
}

// EditAuthor sets an author's birth year. An unknown name returns
// (nil, nil) rather than an error; this asymmetry with addBook's
// failure signaling is inherited, documented behavior.
func (s *CatalogService) EditAuthor(ctx context.Context, viewer *domain.User, name string, setBornTo int) (*domain.Author, error) {
	if viewer == nil {
		return nil, errors.Unauthenticated("not authenticated")
	}

	author, err := s.store.Authors.GetByUnique(ctx, "name", name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Internal("loading author failed").WithCause(err)
	}

	author.Born = &setBornTo
	if err := s.store.Authors.Update(ctx, author); err != nil {
		return nil, errors.BadUserInput("updating author born field failed").WithCause(err).WithInvalidArgs(setBornTo)
	}

	s.logger.Info("author updated", slog.String("name", name), slog.Int("born", setBornTo))
	return author, nil
}

// AllBooks returns books filtered by author name and/or genre; both
// filters are ANDed when both are present. An unknown author name
// yields an empty result, not an error.
func (s *CatalogService) AllBooks(ctx context.Context, authorName, genre string) ([]*domain.Book, error) {
	if authorName != "" {
		author, err := s.store.Authors.GetByUnique(ctx, "name", authorName)
		if errors.Is(err, store.ErrNotFound) {
			return []*domain.Book{}, nil
		}
		if err != nil {
			return nil, errors.Internal("loading author failed").WithCause(err)
		}

		books, err := s.store.Books.ListByIndex(ctx, "author", author.ID)
		if err != nil {
			return nil, errors.Internal("loading books failed").WithCause(err)
		}
		if genre == "" {
			return books, nil
		}

		filtered := make([]*domain.Book, 0, len(books))
		for _, b := range books {
			if b.HasGenre(genre) {
				filtered = append(filtered, b)
			}
		}
		return filtered, nil
	}

	if genre != "" {
		books, err := s.store.Books.ListByIndex(ctx, "genre", genre)
		if err != nil {
			return nil, errors.Internal("loading books failed").WithCause(err)
		}
		return books, nil
	}

	var books []*domain.Book
	for book, err := range s.store.Books.List(ctx) {
		if err != nil {
			return nil, errors.Internal("loading books failed").WithCause(err)
		}
		books = append(books, book)
	}
	return books, nil
}

// AllBooksWithGenres returns books whose genres intersect the given set
// (OR semantics).
func (s *CatalogService) AllBooksWithGenres(ctx context.Context, genres []string) ([]*domain.Book, error) {
	books := []*domain.Book{}
	for book, err := range s.store.Books.List(ctx) {
		if err != nil {
			return nil, errors.Internal("loading books failed").WithCause(err)
		}
		if book.HasAnyGenre(genres) {
			books = append(books, book)
		}
	}
	return books, nil
}

// AllGenres returns every distinct genre, sorted ascending.
func (s *CatalogService) AllGenres(ctx context.Context) ([]string, error) {
	genres, err := s.store.DistinctGenres(ctx)
	if err != nil {
		return nil, errors.Internal("aggregating genres failed").WithCause(err)
	}
	return genres, nil
}

// AllAuthors returns every author with its book count, computed in one
// aggregation pass to avoid an N+1 fan-out.
func (s *CatalogService) AllAuthors(ctx context.Context) ([]*domain.AuthorView, error) {
	views, err := s.store.AuthorViews(ctx)
	if err != nil {
		return nil, errors.Internal("aggregating authors failed").WithCause(err)
	}
	return views, nil
}

// AuthorByID resolves a single author, as reached through Book.author.
func (s *CatalogService) AuthorByID(ctx context.Context, authorID string) (*domain.Author, error) {
	author, err := s.store.Authors.Get(ctx, authorID)
	if err != nil {
		return nil, errors.Internal("loading author failed").WithCause(err)
	}
	return author, nil
}

// CountBooksByAuthor is the explicit single-author count behind the
// Author.bookCount field when an author is reached outside the
// aggregation path. One query per author, accepted for single lookups.
func (s *CatalogService) CountBooksByAuthor(ctx context.Context, authorID string) (int, error) {
	count, err := s.store.CountBooksByAuthor(ctx, authorID)
	if err != nil {
		return 0, errors.Internal("counting books failed").WithCause(err)
	}
	return count, nil
}

// BookCount returns the total number of books.
func (s *CatalogService) BookCount(ctx context.Context) (int, error) {
	count, err := s.store.Books.Count(ctx)
	if err != nil {
		return 0, errors.Internal("counting books failed").WithCause(err)
	}
	return count, nil
}

// AuthorCount returns the total number of authors.
func (s *CatalogService) AuthorCount(ctx context.Context) (int, error) {
	count, err := s.store.Authors.Count(ctx)
	if err != nil {
		return 0, errors.Internal("counting authors failed").WithCause(err)
	}
	return count, nil
}

// FavoritesFor returns the viewer's favorite genre and every book
// tagged with it.
func (s *CatalogService) FavoritesFor(ctx context.Context, viewer *domain.User) (*domain.UserFavorites, error) {
	if viewer == nil {
		return nil, errors.Unauthenticated("not authenticated")
	}

	books, err := s.store.Books.ListByIndex(ctx, "genre", viewer.FavoriteGenre)
	if err != nil {
		return nil, errors.Internal("loading books failed").WithCause(err)
	}
	if books == nil {
		books = []*domain.Book{}
	}

	return &domain.UserFavorites{
		FavoriteGenre: viewer.FavoriteGenre,
		Favorites:     books,
	}, nil
}
