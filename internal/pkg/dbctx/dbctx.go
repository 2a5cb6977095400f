package dbctx

import (
	"context"

	"github.com/yungbote/lessonforge-backend/internal/pkg/ctxutil"
	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Repositories use Tx when set and fall back to their own handle otherwise.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Use returns the handle a repository should query with.
func (c Context) Use(fallback *gorm.DB) *gorm.DB {
	ctx := ctxutil.Default(c.Ctx)
	if c.Tx != nil {
		return c.Tx.WithContext(ctx)
	}
	return fallback.WithContext(ctx)
}
