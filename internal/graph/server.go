package graph

import (
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/graphql-go/graphql"

	"github.com/stacksapp/stacks-server/internal/service"
)

// Server serves the GraphQL API: queries and mutations on POST
// /graphql, subscriptions on the websocket at /graphql/ws.
type Server struct {
	schema graphql.Schema
	auth   *service.AuthService
	router *chi.Mux
	logger *slog.Logger
}

// NewServer creates an HTTP server around the schema.
func NewServer(schema graphql.Schema, auth *service.AuthService, allowedOrigin string, logger *slog.Logger) *Server {
	s := &Server{
		schema: schema,
		auth:   auth,
		router: chi.NewRouter(),
		logger: logger,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{allowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Post("/graphql", s.handleGraphQL)
	s.router.Get("/graphql/ws", s.handleSubscriptions)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// graphqlRequest is the standard GraphQL-over-HTTP request body.
type graphqlRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleGraphQL executes one query or mutation. The bearer token, when
// present and valid, resolves to the viewer attached to the request
// context; invalid tokens count as absent authentication and protected
// resolvers fail with UNAUTHENTICATED on their own.
func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var req graphqlRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := WithViewer(r.Context(), s.auth.UserFromToken(r.Context(), bearerToken(r.Header.Get("Authorization"))))

	result := graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        ctx,
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.MarshalWrite(w, result); err != nil {
		s.logger.Error("write response failed", slog.String("error", err.Error()))
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <t>"
// header value. Returns empty on any other shape.
func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
