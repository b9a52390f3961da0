package catalog

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// graphql-transport-ws frame types used by the client side.
const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgPing           = "ping"
	msgPong           = "pong"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
)

type transportMessage struct {
	ID      string         `json:"id,omitempty"`
	Type    string         `json:"type"`
	Payload jsontext.Value `json:"payload,omitempty"`
}

// Subscription is a live connection delivering bookAdded events.
type Subscription struct {
	conn   *websocket.Conn
	events chan Book
	errs   chan error
	cancel context.CancelFunc
}

// SubscribeBookAdded opens a graphql-transport-ws connection to the
// given websocket endpoint (e.g. "ws://localhost:4000/graphql/ws") and
// subscribes to bookAdded. token may be empty for anonymous listening.
func SubscribeBookAdded(ctx context.Context, endpoint, token string) (*Subscription, error) {
	header := http.Header{"Sec-WebSocket-Protocol": []string{"graphql-transport-ws"}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("dial subscription endpoint: %w", err)
	}

	var initPayload jsontext.Value
	if token != "" {
		initPayload, err = json.Marshal(map[string]string{"Authorization": "Bearer " + token})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("encode init payload: %w", err)
		}
	}
	if err := writeMessage(conn, transportMessage{Type: msgConnectionInit, Payload: initPayload}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send connection_init: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	ack, err := readMessage(conn)
	if err != nil || ack.Type != msgConnectionAck {
		conn.Close()
		return nil, fmt.Errorf("connection not acknowledged")
	}
	_ = conn.SetReadDeadline(time.Time{})

	subscribePayload, err := json.Marshal(map[string]string{
		"query": `subscription { bookAdded {
			id title published genres
			author { id name born bookCount }
		} }`,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("encode subscribe payload: %w", err)
	}
	if err := writeMessage(conn, transportMessage{ID: "1", Type: msgSubscribe, Payload: subscribePayload}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send subscribe: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		conn:   conn,
		events: make(chan Book, 16),
		errs:   make(chan error, 1),
		cancel: cancel,
	}
	go sub.readLoop(runCtx)
	return sub, nil
}

// Events is the stream of books announced by the server. The channel
// closes when the subscription ends.
func (s *Subscription) Events() <-chan Book {
	return s.events
}

// Err reports the error that ended the subscription, if any.
func (s *Subscription) Err() <-chan error {
	return s.errs
}

// Close tears the connection down. Safe to call more than once.
func (s *Subscription) Close() error {
	s.cancel()
	return s.conn.Close()
}

func (s *Subscription) readLoop(ctx context.Context) {
	defer close(s.events)

	// Unblock the read when the caller cancels.
	go func() {
		<-ctx.Done()
		_ = s.conn.Close()
	}()

	for {
		msg, err := readMessage(s.conn)
		if err != nil {
			if ctx.Err() == nil {
				s.errs <- err
			}
			return
		}
		switch msg.Type {
		case msgPing:
			if err := writeMessage(s.conn, transportMessage{Type: msgPong}); err != nil {
				return
			}
		case msgNext:
			var payload struct {
				Data struct {
					BookAdded Book `json:"bookAdded"`
				} `json:"data"`
			}
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				s.errs <- fmt.Errorf("decode event: %w", err)
				return
			}
			select {
			case s.events <- payload.Data.BookAdded:
			case <-ctx.Done():
				return
			}
		case msgError:
			s.errs <- fmt.Errorf("subscription failed: %s", string(msg.Payload))
			return
		case msgComplete:
			return
		}
	}
}

func writeMessage(conn *websocket.Conn, msg transportMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func readMessage(conn *websocket.Conn) (transportMessage, error) {
	var msg transportMessage
	_, data, err := conn.ReadMessage()
	if err != nil {
		return msg, err
	}
	err = json.Unmarshal(data, &msg)
	return msg, err
}
