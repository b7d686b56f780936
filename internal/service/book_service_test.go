package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "coinlecture/internal/errors"
	"coinlecture/internal/model"
	"coinlecture/internal/repository"
	"coinlecture/internal/storage"
	"coinlecture/internal/testutil"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 17)...)

func newBookService(t *testing.T) (BookService, *repository.Repositories, string) {
	t.Helper()
	gdb := testutil.OpenInMemoryDB(t)
	repos := repository.New(gdb)
	dir := t.TempDir()
	return NewBookService(repos, nil, storage.NewImageStore(dir), nil), repos, dir
}

func TestBookService_CreateWithInlineImage(t *testing.T) {
	svc, _, dir := newBookService(t)
	ctx := context.Background()

	book, err := svc.Create(ctx, BookInput{
		Title: "Le Petit Prince", Author: "Antoine de Saint-Exupéry", Genre: "Conte",
		Language: "French", Copies: 2,
		Image: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
	})
	require.NoError(t, err)
	assert.True(t, book.Available)
	assert.Equal(t, "/images/books/book"+itoa(book.ID)+".png", book.Image)
	assert.FileExists(t, filepath.Join(dir, "book"+itoa(book.ID)+".png"))

	got, err := svc.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Image, got.Image)
}

func TestBookService_CreateRejectsBadImage(t *testing.T) {
	svc, repos, _ := newBookService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, BookInput{Title: "X", Author: "Y", Image: "data:image/png;base64,%%%"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidImage)

	n, err := repos.Books.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "the book row is rolled back")
}

func TestBookService_DefaultsAndUpdate(t *testing.T) {
	svc, _, _ := newBookService(t)
	ctx := context.Background()

	book, err := svc.Create(ctx, BookInput{Title: "Candide", Author: "Voltaire", Copies: 0})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultBookImage, book.Image)
	assert.False(t, book.Available)

	updated, err := svc.Update(ctx, book.ID, BookInput{Title: "Candide", Author: "Voltaire", Copies: 4, Genre: "Conte"})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Copies)
	assert.True(t, updated.Available)
	assert.Equal(t, model.DefaultBookImage, updated.Image, "image kept when none is sent")

	_, err = svc.Update(ctx, 999, BookInput{Title: "x", Author: "y"})
	assert.ErrorIs(t, err, apperrors.ErrBookNotFound)
	_, err = svc.Update(ctx, book.ID, BookInput{Title: "x", Author: "y", Copies: -1})
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuantity)
}

func TestBookService_DeleteRefusedWithLoans(t *testing.T) {
	svc, repos, _ := newBookService(t)
	ctx := context.Background()

	book, err := svc.Create(ctx, BookInput{Title: "Candide", Author: "Voltaire", Copies: 1})
	require.NoError(t, err)
	user := &model.User{Email: "r@example.com", PasswordHash: "x", LastName: "R", FirstName: "R"}
	require.NoError(t, repos.Users.Create(ctx, user))
	loan := &model.Loan{UserID: user.ID, BookID: book.ID, Quantity: 1, Status: model.LoanStatusPending}
	loan.StartDate = book.CreatedAt
	loan.DueDate = book.CreatedAt.AddDate(0, 0, 7)
	require.NoError(t, repos.Loans.Create(ctx, loan))

	assert.ErrorIs(t, svc.Delete(ctx, book.ID), apperrors.ErrBookHasLoans)

	require.NoError(t, repos.Loans.Delete(ctx, loan.ID))
	require.NoError(t, svc.Delete(ctx, book.ID))
	_, err = svc.Get(ctx, book.ID)
	assert.ErrorIs(t, err, apperrors.ErrBookNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, book.ID), apperrors.ErrBookNotFound)
}

func TestBookService_Upload(t *testing.T) {
	svc, _, dir := newBookService(t)
	ctx := context.Background()

	book, err := svc.Upload(ctx, BookInput{Copies: 1}, bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, DefaultUploadTitle, book.Title)
	assert.Equal(t, DefaultUploadAuthor, book.Author)
	assert.Equal(t, DefaultUploadGenre, book.Genre)
	assert.Equal(t, DefaultUploadLanguage, book.Language)
	assert.FileExists(t, filepath.Join(dir, "book"+itoa(book.ID)+".png"))

	text, err := svc.Upload(ctx, BookInput{Title: "Notes"}, bytes.NewReader([]byte("plain text")))
	require.NoError(t, err, "an unusable cover does not fail the upload")
	assert.Equal(t, model.DefaultBookImage, text.Image)

	genres, err := svc.Genres(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultUploadGenre}, genres)
}

func TestBookService_UpdateReplacesCover(t *testing.T) {
	svc, _, dir := newBookService(t)
	ctx := context.Background()

	book, err := svc.Upload(ctx, BookInput{Title: "A", Author: "B"}, bytes.NewReader(pngBytes))
	require.NoError(t, err)
	old := filepath.Join(dir, "book"+itoa(book.ID)+".png")
	require.FileExists(t, old)

	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
	updated, err := svc.Update(ctx, book.ID, BookInput{Title: "A", Author: "B",
		Image: "data:image/gif;base64," + base64.StdEncoding.EncodeToString(gif)})
	require.NoError(t, err)
	assert.Equal(t, "/images/books/book"+itoa(book.ID)+".gif", updated.Image)

	_, statErr := os.Stat(old)
	assert.True(t, os.IsNotExist(statErr), "previous cover removed")
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestBookService_FailedCoverUpdateKeepsPreviousFile(t *testing.T) {
	gdb := testutil.OpenInMemoryDB(t)
	repos := repository.New(gdb)
	dir := t.TempDir()
	svc := NewBookService(repos, nil, storage.NewImageStore(dir), nil)
	ctx := context.Background()

	book := testutil.CreateBook(t, gdb, "Candide", 1)
	name := "book" + itoa(book.ID) + ".png"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("previous"), 0o644))
	require.NoError(t, gdb.Model(book).Update("image", "/images/books/"+name).Error)

	// Fail the cover column update so the transaction rolls back after the
	// new file has been written.
	require.NoError(t, gdb.Callback().Update().Before("gorm:update").Register("fail_cover_update", func(db *gorm.DB) {
		if m, ok := db.Statement.Dest.(map[string]interface{}); ok {
			if _, isCover := m["image"]; isCover {
				_ = db.AddError(errors.New("disk full"))
			}
		}
	}))

	_, err := svc.Update(ctx, book.ID, BookInput{
		Title: "Candide", Author: "Voltaire", Copies: 1,
		Image: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
	})
	require.Error(t, err)

	got, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, []byte("previous"), got)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no staged file is left behind")
}
