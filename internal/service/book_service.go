package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"coinlecture/internal/cache"
	apperrors "coinlecture/internal/errors"
	"coinlecture/internal/model"
	"coinlecture/internal/repository"
	"coinlecture/internal/storage"
)

const bookCacheTTL = 5 * time.Minute

// Defaults applied to fields missing from a multipart upload.
const (
	DefaultUploadTitle    = "Untitled"
	DefaultUploadAuthor   = "Unknown author"
	DefaultUploadGenre    = "Misc"
	DefaultUploadLanguage = "French"
)

// BookInput carries the writable fields of a book. Image is either a public
// path or a data:image/<ext>;base64 URI.
type BookInput struct {
	Title           string
	Author          string
	Description     string
	Genre           string
	PublicationYear int
	PageCount       int
	Language        string
	Image           string
	Copies          int
}

// BookService exposes catalog operations.
type BookService interface {
	List(ctx context.Context, filter repository.BookFilter) ([]model.Book, int64, error)
	Get(ctx context.Context, id uint) (*model.Book, error)
	Create(ctx context.Context, in BookInput) (*model.Book, error)
	Update(ctx context.Context, id uint, in BookInput) (*model.Book, error)
	Delete(ctx context.Context, id uint) error
	// Upload creates a book from a multipart form. A cover that cannot be
	// stored leaves the default image in place.
	Upload(ctx context.Context, in BookInput, file io.Reader) (*model.Book, error)
	Genres(ctx context.Context) ([]string, error)
}

type bookService struct {
	repos  *repository.Repositories
	cache  *cache.Client
	images *storage.ImageStore
	log    *zap.Logger
}

// NewBookService builds a BookService.
func NewBookService(repos *repository.Repositories, cache *cache.Client, images *storage.ImageStore, log *zap.Logger) BookService {
	if log == nil {
		log = zap.NewNop()
	}
	return &bookService{repos: repos, cache: cache, images: images, log: log}
}

func (s *bookService) List(ctx context.Context, filter repository.BookFilter) ([]model.Book, int64, error) {
	return s.repos.Books.List(ctx, filter)
}

func (s *bookService) Get(ctx context.Context, id uint) (*model.Book, error) {
	var cached model.Book
	if s.cache.GetJSON(ctx, bookCacheKey(id), &cached) {
		return &cached, nil
	}

	book, err := s.repos.Books.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperrors.ErrBookNotFound)
	}
	_ = s.cache.SetJSON(ctx, bookCacheKey(id), book, bookCacheTTL)
	return book, nil
}

func (s *bookService) Create(ctx context.Context, in BookInput) (*model.Book, error) {
	if in.Copies < 0 {
		return nil, apperrors.ErrInvalidQuantity
	}
	book := &model.Book{}
	apply(book, in)

	var staged *storage.StagedImage
	err := s.repos.WithTransaction(ctx, func(ctx context.Context, tx *repository.Repositories) error {
		if err := tx.Books.Create(ctx, book); err != nil {
			return fmt.Errorf("create book: %w", err)
		}
		var err error
		staged, err = s.stageInlineImage(ctx, tx, book, in.Image)
		return err
	})
	if err != nil {
		discard(staged)
		return nil, err
	}
	s.commitImage(book.ID, staged)

	invalidate(ctx, s.cache, statsCacheKey)
	return book, nil
}

func (s *bookService) Update(ctx context.Context, id uint, in BookInput) (*model.Book, error) {
	if in.Copies < 0 {
		return nil, apperrors.ErrInvalidQuantity
	}
	var (
		book     *model.Book
		oldImage string
		staged   *storage.StagedImage
	)
	err := s.repos.WithTransaction(ctx, func(ctx context.Context, tx *repository.Repositories) error {
		var err error
		book, err = tx.Books.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, apperrors.ErrBookNotFound)
		}
		oldImage = book.Image
		apply(book, in)
		if err := tx.Books.Update(ctx, book); err != nil {
			return fmt.Errorf("update book: %w", err)
		}
		staged, err = s.stageInlineImage(ctx, tx, book, in.Image)
		return err
	})
	if err != nil {
		discard(staged)
		return nil, err
	}
	s.commitImage(id, staged)

	if oldImage != book.Image {
		if err := s.images.Remove(oldImage); err != nil {
			s.log.Warn("remove replaced cover", zap.Uint("book_id", id), zap.Error(err))
		}
	}
	invalidate(ctx, s.cache, bookCacheKey(id))
	return book, nil
}

func (s *bookService) Delete(ctx context.Context, id uint) error {
	book, err := s.repos.Books.FindByID(ctx, id)
	if err != nil {
		return notFound(err, apperrors.ErrBookNotFound)
	}
	n, err := s.repos.Loans.CountByBook(ctx, id)
	if err != nil {
		return fmt.Errorf("count loans: %w", err)
	}
	if n > 0 {
		return apperrors.ErrBookHasLoans
	}
	if err := s.repos.Books.Delete(ctx, id); err != nil {
		return notFound(err, apperrors.ErrBookNotFound)
	}

	if err := s.images.Remove(book.Image); err != nil {
		s.log.Warn("remove cover of deleted book", zap.Uint("book_id", id), zap.Error(err))
	}
	invalidate(ctx, s.cache, bookCacheKey(id), statsCacheKey)
	return nil
}

func (s *bookService) Upload(ctx context.Context, in BookInput, file io.Reader) (*model.Book, error) {
	in.Title = orDefault(in.Title, DefaultUploadTitle)
	in.Author = orDefault(in.Author, DefaultUploadAuthor)
	in.Genre = orDefault(in.Genre, DefaultUploadGenre)
	in.Language = orDefault(in.Language, DefaultUploadLanguage)
	in.Image = ""

	book, err := s.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return book, nil
	}

	path, err := s.images.Save(book.ID, file)
	if err != nil {
		s.log.Warn("store uploaded cover", zap.Uint("book_id", book.ID), zap.Error(err))
		return book, nil
	}
	if err := s.repos.Books.UpdateImage(ctx, book.ID, path); err != nil {
		s.log.Warn("record uploaded cover", zap.Uint("book_id", book.ID), zap.Error(err))
		return book, nil
	}
	book.Image = path
	return book, nil
}

func (s *bookService) Genres(ctx context.Context) ([]string, error) {
	return s.repos.Books.Genres(ctx)
}

// stageInlineImage writes a data URI cover under a temporary name once the
// book has an id. The caller commits the returned file after the
// transaction, or discards it.
func (s *bookService) stageInlineImage(ctx context.Context, tx *repository.Repositories, book *model.Book, image string) (*storage.StagedImage, error) {
	if !storage.IsDataURI(image) {
		return nil, nil
	}
	staged, err := s.images.StageDataURI(book.ID, image)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidImage) {
			return nil, err
		}
		return nil, fmt.Errorf("store cover: %w", err)
	}
	if err := tx.Books.UpdateImage(ctx, book.ID, staged.Path); err != nil {
		return staged, fmt.Errorf("record cover: %w", err)
	}
	book.Image = staged.Path
	return staged, nil
}

func (s *bookService) commitImage(bookID uint, staged *storage.StagedImage) {
	if staged == nil {
		return
	}
	if err := staged.Commit(); err != nil {
		s.log.Error("commit cover", zap.Uint("book_id", bookID), zap.Error(err))
	}
}

func discard(staged *storage.StagedImage) {
	if staged != nil {
		staged.Discard()
	}
}

func apply(book *model.Book, in BookInput) {
	book.Title = strings.TrimSpace(in.Title)
	book.Author = strings.TrimSpace(in.Author)
	book.Description = in.Description
	book.Genre = strings.TrimSpace(in.Genre)
	book.PublicationYear = in.PublicationYear
	book.PageCount = in.PageCount
	book.Language = in.Language
	book.Copies = in.Copies
	switch {
	case in.Image != "" && !storage.IsDataURI(in.Image):
		book.Image = in.Image
	case book.Image == "":
		book.Image = model.DefaultBookImage
	}
	book.Available = book.IsAvailable()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
