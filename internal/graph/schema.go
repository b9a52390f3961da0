// Package graph wires the catalog services into a GraphQL schema and
// serves it over HTTP, with subscriptions on a websocket.
package graph

import (
	"context"
	"log/slog"

	"github.com/graphql-go/graphql"

	"github.com/stacksapp/stacks-server/internal/domain"
	"github.com/stacksapp/stacks-server/internal/errors"
	"github.com/stacksapp/stacks-server/internal/service"
)

// Subscriber is the interface the schema uses to attach subscription
// listeners to the event broadcaster.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) <-chan any
}

// Resolver holds the dependencies GraphQL fields resolve against.
type Resolver struct {
	catalog    *service.CatalogService
	auth       *service.AuthService
	subscriber Subscriber
	logger     *slog.Logger
}

// NewResolver creates a resolver over the given services.
func NewResolver(catalog *service.CatalogService, auth *service.AuthService, subscriber Subscriber, logger *slog.Logger) *Resolver {
	return &Resolver{
		catalog:    catalog,
		auth:       auth,
		subscriber: subscriber,
		logger:     logger,
	}
}

// tokenPayload is the wire shape of a successful login.
type tokenPayload struct {
	Value string `json:"value"`
}

// NewSchema builds the executable GraphQL schema.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	authorType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Author",
		Fields: graphql.Fields{
			"name": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.String),
				Resolve: resolveAuthorField(func(a *domain.Author) (any, error) { return a.Name, nil }),
			},
			"id": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.ID),
				Resolve: resolveAuthorField(func(a *domain.Author) (any, error) { return a.ID, nil }),
			},
			"born": &graphql.Field{
				Type: graphql.Int,
				Resolve: resolveAuthorField(func(a *domain.Author) (any, error) {
					if a.Born == nil {
						return nil, nil
					}
					return *a.Born, nil
				}),
			},
			"bookCount": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Int),
				Resolve: r.resolveAuthorBookCount,
			},
		},
	})

	bookType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Book",
		Fields: graphql.Fields{
			"title":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"published": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"genres":    &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
			"author": &graphql.Field{
				Type:    graphql.NewNonNull(authorType),
				Resolve: r.resolveBookAuthor,
			},
		},
	})

	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"username":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"favoriteGenre": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"id":            &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		},
	})

	tokenType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Token",
		Fields: graphql.Fields{
			"value": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	userFavoritesType := graphql.NewObject(graphql.ObjectConfig{
		Name: "UserFavorites",
		Fields: graphql.Fields{
			"favoriteGenre": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"favorites":     &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(bookType)))},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"bookCount": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Int),
				Resolve: r.resolveBookCount,
			},
			"authorCount": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Int),
				Resolve: r.resolveAuthorCount,
			},
			"allAuthors": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(authorType))),
				Resolve: r.resolveAllAuthors,
			},
			"allBooks": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(bookType))),
				Args: graphql.FieldConfigArgument{
					"author": &graphql.ArgumentConfig{Type: graphql.String},
					"genre":  &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.resolveAllBooks,
			},
			"allBooksWithGenres": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(bookType))),
				Args: graphql.FieldConfigArgument{
					"genres": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
				},
				Resolve: r.resolveAllBooksWithGenres,
			},
			"allGenres": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
				Resolve: r.resolveAllGenres,
			},
			"me": &graphql.Field{
				Type:    userType,
				Resolve: r.resolveMe,
			},
			"myFavorites": &graphql.Field{
				Type:    graphql.NewNonNull(userFavoritesType),
				Resolve: r.resolveMyFavorites,
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"addBook": &graphql.Field{
				Type: bookType,
				Args: graphql.FieldConfigArgument{
					"title":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"published": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"author":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"genres":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
				},
				Resolve: r.resolveAddBook,
			},
			"createUser": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"username":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"favoriteGenre": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.resolveCreateUser,
			},
			"editAuthor": &graphql.Field{
				Type: authorType,
				Args: graphql.FieldConfigArgument{
					"name":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"setBornTo": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: r.resolveEditAuthor,
			},
			"login": &graphql.Field{
				Type: tokenType,
				Args: graphql.FieldConfigArgument{
					"username": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.resolveLogin,
			},
		},
	})

	subscriptionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Subscription",
		Fields: graphql.Fields{
			"bookAdded": &graphql.Field{
				Type:      graphql.NewNonNull(bookType),
				Resolve:   resolveBookAddedEvent,
				Subscribe: r.subscribeBookAdded,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:        queryType,
		Mutation:     mutationType,
		Subscription: subscriptionType,
	})
}

// resolveAuthorField adapts a field accessor to both author source
// shapes: the plain Author from single lookups and the AuthorView the
// aggregation path produces.
func resolveAuthorField(get func(*domain.Author) (any, error)) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		switch src := p.Source.(type) {
		case *domain.AuthorView:
			return get(&src.Author)
		case *domain.Author:
			return get(src)
		default:
			return nil, errors.Internal("unexpected author source")
		}
	}
}
