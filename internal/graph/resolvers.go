package graph

import (
	"github.com/graphql-go/graphql"

	"github.com/stacksapp/stacks-server/internal/domain"
	"github.com/stacksapp/stacks-server/internal/errors"
	"github.com/stacksapp/stacks-server/internal/service"
)

// Argument helpers. Non-null argument presence is enforced by the
// schema; these only normalize the dynamic types the executor hands us.

func stringArg(p graphql.ResolveParams, name string) string {
	if v, ok := p.Args[name].(string); ok {
		return v
	}
	return ""
}

func intArg(p graphql.ResolveParams, name string) int {
	if v, ok := p.Args[name].(int); ok {
		return v
	}
	return 0
}

func stringListArg(p graphql.ResolveParams, name string) []string {
	raw, ok := p.Args[name].([]interface{})
	if !ok {
		return nil
	}
	values := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			values = append(values, s)
		}
	}
	return values
}

// Query resolvers.

func (r *Resolver) resolveBookCount(p graphql.ResolveParams) (interface{}, error) {
	return r.catalog.BookCount(p.Context)
}

func (r *Resolver) resolveAuthorCount(p graphql.ResolveParams) (interface{}, error) {
	return r.catalog.AuthorCount(p.Context)
}

func (r *Resolver) resolveAllAuthors(p graphql.ResolveParams) (interface{}, error) {
	return r.catalog.AllAuthors(p.Context)
}

func (r *Resolver) resolveAllBooks(p graphql.ResolveParams) (interface{}, error) {
	return r.catalog.AllBooks(p.Context, stringArg(p, "author"), stringArg(p, "genre"))
}

func (r *Resolver) resolveAllBooksWithGenres(p graphql.ResolveParams) (interface{}, error) {
	return r.catalog.AllBooksWithGenres(p.Context, stringListArg(p, "genres"))
}

func (r *Resolver) resolveAllGenres(p graphql.ResolveParams) (interface{}, error) {
	return r.catalog.AllGenres(p.Context)
}

func (r *Resolver) resolveMe(p graphql.ResolveParams) (interface{}, error) {
	viewer := ViewerFrom(p.Context)
	if viewer == nil {
		return nil, errors.Unauthenticated("not authenticated")
	}
	return viewer, nil
}

func (r *Resolver) resolveMyFavorites(p graphql.ResolveParams) (interface{}, error) {
	return r.catalog.FavoritesFor(p.Context, ViewerFrom(p.Context))
}

// Field resolvers.

// resolveAuthorBookCount selects the explicit count source for the
// author's shape: the aggregation path already carries the count, the
// single-lookup path issues one count query.
func (r *Resolver) resolveAuthorBookCount(p graphql.ResolveParams) (interface{}, error) {
	switch src := p.Source.(type) {
	case *domain.AuthorView:
		return src.BookCount, nil
	case *domain.Author:
		return r.catalog.CountBooksByAuthor(p.Context, src.ID)
	default:
		return nil, errors.Internal("unexpected author source")
	}
}

func (r *Resolver) resolveBookAuthor(p graphql.ResolveParams) (interface{}, error) {
	book, ok := p.Source.(*domain.Book)
	if !ok {
		return nil, errors.Internal("unexpected book source")
	}
	return r.catalog.AuthorByID(p.Context, book.AuthorID)
}

// Mutation resolvers.

func (r *Resolver) resolveAddBook(p graphql.ResolveParams) (interface{}, error) {
	book, _, err := r.catalog.AddBook(p.Context, ViewerFrom(p.Context), service.AddBookRequest{
		Title:     stringArg(p, "title"),
		Published: intArg(p, "published"),
		Author:    stringArg(p, "author"),
		Genres:    stringListArg(p, "genres"),
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

func (r *Resolver) resolveCreateUser(p graphql.ResolveParams) (interface{}, error) {
	return r.auth.CreateUser(p.Context, service.CreateUserRequest{
		Username:      stringArg(p, "username"),
		FavoriteGenre: stringArg(p, "favoriteGenre"),
	})
}

func (r *Resolver) resolveEditAuthor(p graphql.ResolveParams) (interface{}, error) {
	author, err := r.catalog.EditAuthor(p.Context, ViewerFrom(p.Context), stringArg(p, "name"), intArg(p, "setBornTo"))
	if err != nil {
		return nil, err
	}
	if author == nil {
		// Unknown name is a null result, not an error.
		return nil, nil
	}
	return author, nil
}

func (r *Resolver) resolveLogin(p graphql.ResolveParams) (interface{}, error) {
	token, err := r.auth.Login(p.Context, stringArg(p, "username"), stringArg(p, "password"))
	if err != nil {
		return nil, err
	}
	return &tokenPayload{Value: token}, nil
}

// Subscription resolvers.

// subscribeBookAdded attaches a listener to the broadcast topic. The
// executor receives one value per published event and runs the
// selection against it; closing the upstream channel completes the
// subscription.
func (r *Resolver) subscribeBookAdded(p graphql.ResolveParams) (interface{}, error) {
	src := r.subscriber.Subscribe(p.Context, service.TopicBookAdded)

	// The executor expects a plain chan interface{}.
	out := make(chan interface{})
	go func() {
		defer close(out)
		for payload := range src {
			select {
			case out <- payload:
			case <-p.Context.Done():
				return
			}
		}
	}()
	return out, nil
}

func resolveBookAddedEvent(p graphql.ResolveParams) (interface{}, error) {
	if event, ok := p.Source.(service.BookAdded); ok {
		return event.Book, nil
	}
	return nil, errors.Internal("unexpected subscription payload")
}
