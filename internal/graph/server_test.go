package graph

import (
	"bytes"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacksapp/stacks-server/internal/logger"
)

func setupTestServer(t *testing.T) (*testEnv, *httptest.Server) {
	t.Helper()
	env := setupTestEnv(t)

	log := logger.New(logger.Config{Writer: io.Discard, Format: "json"})
	srv := httptest.NewServer(NewServer(env.schema, env.auth, "*", log.Logger))
	t.Cleanup(srv.Close)
	return env, srv
}

func postGraphQL(t *testing.T, url, token, query string, variables map[string]any) map[string]any {
	t.Helper()

	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url+"/graphql", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]any
	require.NoError(t, json.UnmarshalRead(resp.Body, &result))
	return result
}

func TestServerHealth(t *testing.T) {
	_, srv := setupTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerLoginThenAddBook(t *testing.T) {
	_, srv := setupTestServer(t)

	created := postGraphQL(t, srv.URL, "", `
		mutation {
			createUser(username: "bookworm", favoriteGenre: "classic") { username }
		}`, nil)
	require.Nil(t, created["errors"])

	login := postGraphQL(t, srv.URL, "", `
		mutation { login(username: "bookworm", password: "secret") { value } }`, nil)
	token := login["data"].(map[string]any)["login"].(map[string]any)["value"].(string)
	require.NotEmpty(t, token)

	added := postGraphQL(t, srv.URL, token, `
		mutation {
			addBook(title: "Demons", published: 1872, author: "Fyodor Dostoevsky", genres: ["classic"]) {
				title
				author { name }
			}
		}`, nil)
	require.Nil(t, added["errors"], "addBook errors: %v", added["errors"])
	book := added["data"].(map[string]any)["addBook"].(map[string]any)
	assert.Equal(t, "Demons", book["title"])
}

func TestServerRejectsUnauthenticatedMutation(t *testing.T) {
	_, srv := setupTestServer(t)

	result := postGraphQL(t, srv.URL, "", `
		mutation {
			addBook(title: "Demons", published: 1872, author: "Fyodor Dostoevsky", genres: ["classic"]) { title }
		}`, nil)

	errs := result["errors"].([]any)
	require.NotEmpty(t, errs)
	ext := errs[0].(map[string]any)["extensions"].(map[string]any)
	assert.Equal(t, "UNAUTHENTICATED", ext["code"])
}

func TestServerRejectsMalformedBody(t *testing.T) {
	_, srv := setupTestServer(t)

	resp, err := http.Post(srv.URL+"/graphql", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServerWebsocketSubscription(t *testing.T) {
	env, srv := setupTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/graphql/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{
		"Sec-WebSocket-Protocol": []string{"graphql-transport-ws"},
	})
	require.NoError(t, err)
	defer conn.Close()

	writeWS := func(msg wsMessage) {
		data, err := json.Marshal(msg)
		require.NoError(t, err)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
	}
	readWS := func() wsMessage {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg wsMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	writeWS(wsMessage{Type: wsMsgConnectionInit})
	require.Equal(t, wsMsgConnectionAck, readWS().Type)

	subscribePayload, err := json.Marshal(graphqlRequest{
		Query: `subscription { bookAdded { title genres } }`,
	})
	require.NoError(t, err)
	writeWS(wsMessage{ID: "1", Type: wsMsgSubscribe, Payload: jsontext.Value(subscribePayload)})

	// Let the operation attach to the broadcaster before publishing.
	time.Sleep(50 * time.Millisecond)

	ctx := env.viewerContext(t, "ws_tester", "classic")
	data(t, env.execute(ctx, `
		mutation {
			addBook(title: "Demons", published: 1872, author: "Fyodor Dostoevsky", genres: ["classic"]) { title }
		}`, nil))

	next := readWS()
	require.Equal(t, wsMsgNext, next.Type)
	require.Equal(t, "1", next.ID)

	var result struct {
		Data struct {
			BookAdded struct {
				Title  string   `json:"title"`
				Genres []string `json:"genres"`
			} `json:"bookAdded"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(next.Payload, &result))
	assert.Equal(t, "Demons", result.Data.BookAdded.Title)
	assert.Equal(t, []string{"classic"}, result.Data.BookAdded.Genres)

	writeWS(wsMessage{ID: "1", Type: wsMsgComplete})

	writeWS(wsMessage{Type: wsMsgPing})
	for {
		msg := readWS()
		if msg.Type == wsMsgPong {
			break
		}
	}
}
