package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadSeedBooks reads a JSON array of books from a local file or an
// http(s) URL.
func LoadSeedBooks(ctx context.Context, src string) ([]SeedBook, error) {
	var r io.ReadCloser
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch books: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch books: remote returned status %d", resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("open books file: %w", err)
		}
		r = f
	}
	defer r.Close()

	return DecodeSeedBooks(r)
}

// DecodeSeedBooks parses a JSON array of books.
func DecodeSeedBooks(r io.Reader) ([]SeedBook, error) {
	var books []SeedBook
	if err := json.NewDecoder(r).Decode(&books); err != nil {
		return nil, fmt.Errorf("parse books: %w", err)
	}
	return books, nil
}
