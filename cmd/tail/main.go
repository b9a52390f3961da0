// Package main provides a tool that follows bookAdded events from a
// running server and prints them, one line per book.
//
// Usage:
//
//	go run ./cmd/tail --url ws://localhost:4000/graphql/ws
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/stacksapp/stacks-server/pkg/catalog"
)

var (
	url   = flag.String("url", "ws://localhost:4000/graphql/ws", "Websocket endpoint of the server")
	token = flag.String("token", "", "Optional bearer token")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sub, err := catalog.SubscribeBookAdded(ctx, *url, *token)
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	fmt.Fprintf(os.Stderr, "Listening for new books on %s\n", *url)

	for {
		select {
		case book, ok := <-sub.Events():
			if !ok {
				return
			}
			fmt.Printf("%s (%d) by %s [%s]\n",
				book.Title, book.Published, book.Author.Name, strings.Join(book.Genres, ", "))
		case err := <-sub.Err():
			log.Fatalf("Subscription failed: %v", err)
		case <-ctx.Done():
			return
		}
	}
}
