package testutil

import (
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"coinlecture/internal/db"
	"coinlecture/internal/model"
)

// OpenInMemoryDB opens a migrated in-memory SQLite database private to the test.
func OpenInMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.NewSQLite("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// CreateBook inserts a book with the given title and copies.
func CreateBook(t *testing.T, gdb *gorm.DB, title string, copies int) *model.Book {
	t.Helper()
	book := &model.Book{
		Title:           title,
		Author:          "Victor Hugo",
		Description:     "A novel.",
		Genre:           "Classic",
		PublicationYear: 1862,
		PageCount:       1500,
		Language:        "French",
		Image:           model.DefaultBookImage,
		Copies:          copies,
	}
	if err := gdb.Create(book).Error; err != nil {
		t.Fatalf("create book: %v", err)
	}
	return book
}

// CreateUser inserts a verified user with the given email.
func CreateUser(t *testing.T, gdb *gorm.DB, email string, roles ...string) *model.User {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{model.RoleUser}
	}
	user := &model.User{
		Email:        email,
		PasswordHash: "x",
		LastName:     "Doe",
		FirstName:    "Jane",
		Roles:        roles,
		Verified:     true,
	}
	if err := gdb.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// CreateLoan inserts a loan in the given state.
func CreateLoan(t *testing.T, gdb *gorm.DB, user *model.User, book *model.Book, quantity int, status model.LoanStatus) *model.Loan {
	t.Helper()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	loan := &model.Loan{
		UserID:    user.ID,
		BookID:    book.ID,
		Quantity:  quantity,
		StartDate: start,
		DueDate:   start.AddDate(0, 0, 14),
		Status:    status,
	}
	if err := gdb.Create(loan).Error; err != nil {
		t.Fatalf("create loan: %v", err)
	}
	return loan
}
