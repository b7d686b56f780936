package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedJSON = `[{"title":"Germinal","author":"Émile Zola","genre":"Roman","publication_year":1885,"page_count":592,"copies":3}]`

func TestLoadSeedBooks_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.json")
	require.NoError(t, os.WriteFile(path, []byte(seedJSON), 0o600))

	books, err := LoadSeedBooks(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Germinal", books[0].Title)
	assert.Equal(t, 1885, books[0].PublicationYear)
	assert.Equal(t, 3, books[0].Copies)
}

func TestLoadSeedBooks_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/books.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(seedJSON))
	}))
	defer srv.Close()

	books, err := LoadSeedBooks(context.Background(), srv.URL+"/books.json")
	require.NoError(t, err)
	assert.Len(t, books, 1)

	_, err = LoadSeedBooks(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "status 404")
}

func TestDecodeSeedBooks_Invalid(t *testing.T) {
	_, err := DecodeSeedBooks(strings.NewReader(`{"title": "not an array"}`))
	assert.Error(t, err)
}
