package graph

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql"
)

// graphql-transport-ws message types.
const (
	wsMsgConnectionInit = "connection_init"
	wsMsgConnectionAck  = "connection_ack"
	wsMsgPing           = "ping"
	wsMsgPong           = "pong"
	wsMsgSubscribe      = "subscribe"
	wsMsgNext           = "next"
	wsMsgError          = "error"
	wsMsgComplete       = "complete"
)

const wsInitTimeout = 10 * time.Second

// wsMessage is the envelope every graphql-transport-ws frame uses.
// Payload stays raw so each message type can decode its own shape.
type wsMessage struct {
	ID      string         `json:"id,omitempty"`
	Type    string         `json:"type"`
	Payload jsontext.Value `json:"payload,omitempty"`
}

// wsInitPayload carries optional connection parameters. Clients may
// authenticate here instead of (or in addition to) the HTTP header.
type wsInitPayload struct {
	Authorization string `json:"Authorization"`
}

var wsUpgrader = websocket.Upgrader{
	Subprotocols: []string{"graphql-transport-ws"},
	CheckOrigin:  func(*http.Request) bool { return true },
}

// wsConn is one subscription connection. Writes are serialized with a
// mutex because operation goroutines and the read loop both send.
type wsConn struct {
	conn    *websocket.Conn
	server  *Server
	viewer  context.Context
	writeMu sync.Mutex

	mu  sync.Mutex
	ops map[string]context.CancelFunc
}

// handleSubscriptions upgrades the request and runs the
// graphql-transport-ws protocol until the client disconnects.
func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &wsConn{
		conn:   conn,
		server: s,
		ops:    make(map[string]context.CancelFunc),
	}
	c.run(r)
}

func (c *wsConn) run(r *http.Request) {
	defer c.close()

	// The client must initialize within the timeout or the connection
	// is dropped, per the protocol.
	_ = c.conn.SetReadDeadline(time.Now().Add(wsInitTimeout))
	msg, err := c.read()
	if err != nil || msg.Type != wsMsgConnectionInit {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(4408, "connection initialisation timeout"), time.Now().Add(time.Second))
		return
	}
	_ = c.conn.SetReadDeadline(time.Time{})

	token := bearerToken(r.Header.Get("Authorization"))
	if len(msg.Payload) > 0 {
		var init wsInitPayload
		if err := json.Unmarshal(msg.Payload, &init); err == nil && init.Authorization != "" {
			token = bearerToken(init.Authorization)
		}
	}
	c.viewer = WithViewer(context.Background(), c.server.auth.UserFromToken(r.Context(), token))

	if err := c.write(wsMessage{Type: wsMsgConnectionAck}); err != nil {
		return
	}

	for {
		msg, err := c.read()
		if err != nil {
			return
		}
		switch msg.Type {
		case wsMsgPing:
			if err := c.write(wsMessage{Type: wsMsgPong}); err != nil {
				return
			}
		case wsMsgSubscribe:
			c.startOperation(msg)
		case wsMsgComplete:
			c.stopOperation(msg.ID)
		}
	}
}

// startOperation executes one subscribe frame and streams its results
// back as next messages until the source ends or the client completes.
func (c *wsConn) startOperation(msg wsMessage) {
	var req graphqlRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.server.logger.Warn("malformed subscribe payload", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithCancel(c.viewer)

	c.mu.Lock()
	if _, exists := c.ops[msg.ID]; exists {
		c.mu.Unlock()
		cancel()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(4409, "subscriber already exists"), time.Now().Add(time.Second))
		return
	}
	c.ops[msg.ID] = cancel
	c.mu.Unlock()

	results := graphql.Subscribe(graphql.Params{
		Schema:         c.server.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        ctx,
	})

	go func() {
		defer c.stopOperation(msg.ID)
		for result := range results {
			payload, err := json.Marshal(result)
			if err != nil {
				c.server.logger.Error("marshal subscription result failed", slog.String("error", err.Error()))
				return
			}
			if err := c.write(wsMessage{ID: msg.ID, Type: wsMsgNext, Payload: jsontext.Value(payload)}); err != nil {
				return
			}
		}
		_ = c.write(wsMessage{ID: msg.ID, Type: wsMsgComplete})
	}()
}

func (c *wsConn) stopOperation(id string) {
	c.mu.Lock()
	cancel, ok := c.ops[id]
	if ok {
		delete(c.ops, id)
	}
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

func (c *wsConn) read() (wsMessage, error) {
	var msg wsMessage
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	return msg, nil
}

func (c *wsConn) write(msg wsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) close() {
	c.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(c.ops))
	for _, cancel := range c.ops {
		cancels = append(cancels, cancel)
	}
	c.ops = make(map[string]context.CancelFunc)
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	_ = c.conn.Close()
}
