package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"coinlecture/internal/cache"
)

const statsCacheKey = "stats"

func bookCacheKey(id uint) string {
	return fmt.Sprintf("book:%d", id)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uint
	Admin  bool
}

// notFound translates gorm's missing row error into the domain error.
func notFound(err, domainErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainErr
	}
	return err
}

// invalidate drops cache entries. A cache outage only delays fresh reads, so
// errors are ignored.
func invalidate(ctx context.Context, c *cache.Client, keys ...string) {
	_ = c.Delete(ctx, keys...)
}
