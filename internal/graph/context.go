package graph

import (
	"context"

	"github.com/stacksapp/stacks-server/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const contextKeyViewer contextKey = "viewer"

// WithViewer attaches the authenticated user to the context. Only the
// request-handling boundary calls this; resolvers read the viewer back
// out and pass it to services as an explicit parameter.
func WithViewer(ctx context.Context, viewer *domain.User) context.Context {
	if viewer == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKeyViewer, viewer)
}

// ViewerFrom extracts the authenticated user from the context.
// Returns nil when the request carried no valid credentials.
func ViewerFrom(ctx context.Context) *domain.User {
	if viewer, ok := ctx.Value(contextKeyViewer).(*domain.User); ok {
		return viewer
	}
	return nil
}
