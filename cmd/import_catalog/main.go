package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"library-management/config"
	"library-management/library"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// import_catalog seeds the catalog from a JSON file holding an array
// of books. The whole file is applied atomically: one colliding isbn
// rejects the entire batch.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <catalog.json>\n", os.Args[0])
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading catalog file: %v\n", err)
		os.Exit(1)
	}

	var books []library.Book
	if err := json.Unmarshal(raw, &books); err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding catalog file: %v\n", err)
		os.Exit(1)
	}
	if len(books) == 0 {
		fmt.Println("Catalog file holds no books, nothing to do.")
		return
	}

	mgr, err := library.NewManager(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer mgr.Close()

	if err := mgr.Books.AddAll(context.Background(), books); err != nil {
		var dup *library.DuplicateISBNsError
		if errors.As(err, &dup) {
			fmt.Fprintln(os.Stderr, "Batch rejected, duplicate isbns:")
			for _, isbn := range dup.ISBNs {
				fmt.Fprintf(os.Stderr, "  %s\n", isbn)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error importing catalog: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Imported %d book(s) into %s\n", len(books), cfg.DatabasePath)
}
