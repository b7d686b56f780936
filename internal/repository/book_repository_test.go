package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"coinlecture/internal/model"
	"coinlecture/internal/testutil"
)

func TestBookRepository_CRUDAndQueries(t *testing.T) {
	gdb := testutil.OpenInMemoryDB(t)
	repo := NewBookRepository(gdb)
	ctx := context.Background()

	book := &model.Book{Title: "Les Misérables", Author: "Victor Hugo", Description: "Jean Valjean", Genre: "Classic",
		PublicationYear: 1862, PageCount: 1500, Language: "French", Image: model.DefaultBookImage, Copies: 3}
	require.NoError(t, repo.Create(ctx, book))
	require.NotZero(t, book.ID)
	assert.True(t, book.Available)

	got, err := repo.FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Les Misérables", got.Title)
	assert.True(t, got.Available)

	byPair, err := repo.FindByTitleAndAuthor(ctx, "Les Misérables", "Victor Hugo")
	require.NoError(t, err)
	assert.Equal(t, book.ID, byPair.ID)

	require.NoError(t, repo.UpdateImage(ctx, book.ID, "/images/books/book1.png"))
	got, err = repo.FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "/images/books/book1.png", got.Image)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Delete(ctx, book.ID))
	_, err = repo.FindByID(ctx, book.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, book.ID), gorm.ErrRecordNotFound)
}

func TestBookRepository_ListFilters(t *testing.T) {
	gdb := testutil.OpenInMemoryDB(t)
	repo := NewBookRepository(gdb)
	ctx := context.Background()

	testutil.CreateBook(t, gdb, "Notre-Dame de Paris", 2)
	out := testutil.CreateBook(t, gdb, "Les Contemplations", 0)
	scifi := testutil.CreateBook(t, gdb, "Dune", 4)
	require.NoError(t, gdb.Model(scifi).Updates(map[string]interface{}{"genre": "Science fiction", "author": "Frank Herbert", "publication_year": 1965}).Error)

	books, total, err := repo.List(ctx, BookFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, scifi.ID, books[0].ID, "newest first")

	books, total, err = repo.List(ctx, BookFilter{Query: "HERBERT"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Dune", books[0].Title)

	_, total, err = repo.List(ctx, BookFilter{Query: "1965"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	books, total, err = repo.List(ctx, BookFilter{Genre: "Classic"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, books, 2)

	unavailable := false
	books, _, err = repo.List(ctx, BookFilter{Available: &unavailable})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, out.ID, books[0].ID)
	assert.False(t, books[0].Available)

	books, total, err = repo.List(ctx, BookFilter{Page: Page{Page: 2, PerPage: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, books, 1)

	genres, err := repo.Genres(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Classic", "Science fiction"}, genres)
}

func TestBookRepository_GuardedCopies(t *testing.T) {
	gdb := testutil.OpenInMemoryDB(t)
	repo := NewBookRepository(gdb)
	ctx := context.Background()
	book := testutil.CreateBook(t, gdb, "Germinal", 3)

	ok, err := repo.DecrementCopies(ctx, book.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementCopies(ctx, book.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok, "only one copy left")

	got, err := repo.FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Copies)

	require.NoError(t, repo.IncrementCopies(ctx, book.ID, 2))
	got, err = repo.FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Copies)
}

func TestPage_Normalize(t *testing.T) {
	assert.Equal(t, Page{Page: 1, PerPage: 30}, Page{}.Normalize())
	assert.Equal(t, Page{Page: 3, PerPage: 100}, Page{Page: 3, PerPage: 1000}.Normalize())
}

func TestBookRepository_SearchTreatsWildcardsLiterally(t *testing.T) {
	gdb := testutil.OpenInMemoryDB(t)
	repo := NewBookRepository(gdb)
	ctx := context.Background()
	testutil.CreateBook(t, gdb, "Les Miserables", 1)
	testutil.CreateBook(t, gdb, "100% Poesie", 1)
	testutil.CreateBook(t, gdb, "snake_case!", 1)

	for q, want := range map[string]int64{"%": 1, "_": 1, "!": 1, "0%": 1, "e_c": 1, "poesie": 1} {
		_, total, err := repo.List(ctx, BookFilter{Query: q})
		require.NoError(t, err, q)
		assert.Equal(t, want, total, q)
	}
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%abc%", likePattern("  ABC "))
	assert.Equal(t, "%!%!_!!%", likePattern("%_!"))
}
