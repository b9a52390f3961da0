// Package main provides a tool to seed the database with a starter
// catalog and a demo account.
//
// Usage:
//
//	STACKS_DATA_PATH=~/stacks/data go run ./cmd/seed
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/stacksapp/stacks-server/internal/auth"
	"github.com/stacksapp/stacks-server/internal/domain"
	"github.com/stacksapp/stacks-server/internal/id"
	"github.com/stacksapp/stacks-server/internal/logger"
	"github.com/stacksapp/stacks-server/internal/store"
)

var createUser = flag.Bool("create-user", true, "Create the demo account")

func intPtr(v int) *int { return &v }

type seedBook struct {
	title     string
	published int
	author    string
	genres    []string
}

var seedAuthors = []domain.Author{
	{Name: "Robert Martin", Born: intPtr(1952)},
	{Name: "Martin Fowler", Born: intPtr(1963)},
	{Name: "Fyodor Dostoevsky", Born: intPtr(1821)},
	{Name: "Joshua Kerievsky"},
	{Name: "Sandi Metz"},
}

var seedBooks = []seedBook{
	{"Clean Code", 2008, "Robert Martin", []string{"refactoring"}},
	{"Agile software development", 2002, "Robert Martin", []string{"agile", "patterns", "design"}},
	{"Refactoring, edition 2", 2018, "Martin Fowler", []string{"refactoring"}},
	{"Refactoring to patterns", 2008, "Joshua Kerievsky", []string{"patterns", "refactoring", "design"}},
	{"Practical Object-Oriented Design, An Agile Primer Using Ruby", 2012, "Sandi Metz", []string{"refactoring", "design"}},
	{"Crime and punishment", 1866, "Fyodor Dostoevsky", []string{"classic", "crime"}},
	{"Demons", 1872, "Fyodor Dostoevsky", []string{"classic", "revolution"}},
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("STACKS_DATA_PATH")
	if dataPath == "" {
		dataPath = "./data"
	}

	fmt.Printf("Opening database at: %s\n", dataPath)

	quiet := logger.New(logger.Config{Writer: io.Discard, Format: "json"})
	s, err := store.New(dataPath, quiet.Logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	authorIDs := make(map[string]string, len(seedAuthors))
	for _, a := range seedAuthors {
		author := a
		author.ID = id.MustGenerate("author")
		if err := s.Authors.Create(ctx, &author); err != nil {
			if store.IsAlreadyExists(err) {
				existing, err := s.Authors.GetByUnique(ctx, "name", author.Name)
				if err != nil {
					log.Fatalf("Failed to load existing author %q: %v", author.Name, err)
				}
				authorIDs[author.Name] = existing.ID
				fmt.Printf("Author exists: %s\n", author.Name)
				continue
			}
			log.Fatalf("Failed to create author %q: %v", author.Name, err)
		}
		authorIDs[author.Name] = author.ID
		fmt.Printf("Created author: %s\n", author.Name)
	}

	for _, b := range seedBooks {
		book := domain.Book{
			ID:        id.MustGenerate("book"),
			Title:     b.title,
			Published: b.published,
			AuthorID:  authorIDs[b.author],
			Genres:    b.genres,
		}
		if err := s.Books.Create(ctx, &book); err != nil {
			if store.IsAlreadyExists(err) {
				fmt.Printf("Book exists: %s\n", b.title)
				continue
			}
			log.Fatalf("Failed to create book %q: %v", b.title, err)
		}
		fmt.Printf("Created book: %s\n", b.title)
	}

	if *createUser {
		hash, err := auth.HashPassword("secret")
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		user := domain.User{
			ID:            id.MustGenerate("user"),
			Username:      "reader",
			FavoriteGenre: "refactoring",
			PasswordHash:  hash,
		}
		if err := s.Users.Create(ctx, &user); err != nil {
			if store.IsAlreadyExists(err) {
				fmt.Println("User exists: reader")
			} else {
				log.Fatalf("Failed to create user: %v", err)
			}
		} else {
			fmt.Println("Created user: reader (password: secret)")
		}
	}

	fmt.Println("Seed complete")
}
