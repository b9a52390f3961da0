package catalog

import (
	"bytes"
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"net/http"
	"time"
)

// Client is an HTTP GraphQL client for the catalog API.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the given endpoint, e.g.
// "http://localhost:4000/graphql".
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken sets the bearer token sent with subsequent requests. An
// empty token clears it.
func (c *Client) SetToken(token string) {
	c.token = token
}

// GraphQLError is one error entry from a GraphQL response.
type GraphQLError struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions"`
}

// Error implements the error interface.
func (e GraphQLError) Error() string {
	if code, ok := e.Extensions["code"].(string); ok {
		return fmt.Sprintf("%s: %s", code, e.Message)
	}
	return e.Message
}

// Code returns the error code from the extensions, or empty.
func (e GraphQLError) Code() string {
	code, _ := e.Extensions["code"].(string)
	return code
}

type graphqlHTTPRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlHTTPResponse struct {
	Data   jsontext.Value `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

// Do executes a query or mutation and decodes the data object into
// out. The first GraphQL error, when present, is returned as a
// GraphQLError.
func (c *Client) Do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlHTTPRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var decoded graphqlHTTPResponse
	if err := json.UnmarshalRead(resp.Body, &decoded); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return decoded.Errors[0]
	}
	if out != nil && len(decoded.Data) > 0 {
		if err := json.Unmarshal(decoded.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var result struct {
		Login *Token `json:"login"`
	}
	err := c.Do(ctx, `mutation($username: String!, $password: String!) {
		login(username: $username, password: $password) { value }
	}`, map[string]any{"username": username, "password": password}, &result)
	if err != nil {
		return "", err
	}
	if result.Login == nil {
		return "", fmt.Errorf("login returned no token")
	}
	c.SetToken(result.Login.Value)
	return result.Login.Value, nil
}

// AddBook creates a book, creating its author on first sight.
func (c *Client) AddBook(ctx context.Context, title string, published int, author string, genres []string) (*Book, error) {
	var result struct {
		AddBook *Book `json:"addBook"`
	}
	err := c.Do(ctx, `mutation($title: String!, $published: Int!, $author: String!, $genres: [String!]!) {
		addBook(title: $title, published: $published, author: $author, genres: $genres) {
			id title published genres
			author { id name born bookCount }
		}
	}`, map[string]any{
		"title": title, "published": published, "author": author, "genres": genres,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result.AddBook, nil
}

// AllBooks lists books, optionally filtered by author name and genre.
// Empty strings mean no filter.
func (c *Client) AllBooks(ctx context.Context, author, genre string) ([]Book, error) {
	variables := map[string]any{}
	if author != "" {
		variables["author"] = author
	}
	if genre != "" {
		variables["genre"] = genre
	}
	var result struct {
		AllBooks []Book `json:"allBooks"`
	}
	err := c.Do(ctx, `query($author: String, $genre: String) {
		allBooks(author: $author, genre: $genre) {
			id title published genres
			author { id name born bookCount }
		}
	}`, variables, &result)
	return result.AllBooks, err
}

// AllAuthors lists every author with their book count.
func (c *Client) AllAuthors(ctx context.Context) ([]Author, error) {
	var result struct {
		AllAuthors []Author `json:"allAuthors"`
	}
	err := c.Do(ctx, `{ allAuthors { id name born bookCount } }`, nil, &result)
	return result.AllAuthors, err
}

// AllGenres lists every distinct genre, sorted.
func (c *Client) AllGenres(ctx context.Context) ([]string, error) {
	var result struct {
		AllGenres []string `json:"allGenres"`
	}
	err := c.Do(ctx, `{ allGenres }`, nil, &result)
	return result.AllGenres, err
}

// Me returns the authenticated account, or nil without credentials.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var result struct {
		Me *User `json:"me"`
	}
	err := c.Do(ctx, `{ me { id username favoriteGenre } }`, nil, &result)
	return result.Me, err
}

// MyFavorites returns the viewer's favorite genre and matching books.
func (c *Client) MyFavorites(ctx context.Context) (*UserFavorites, error) {
	var result struct {
		MyFavorites *UserFavorites `json:"myFavorites"`
	}
	err := c.Do(ctx, `{ myFavorites {
		favoriteGenre
		favorites { id title published genres author { id name born bookCount } }
	} }`, nil, &result)
	return result.MyFavorites, err
}
