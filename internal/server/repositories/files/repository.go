// Package files provides metadata stores for uploaded files. Every backend
// returns List results newest first, ties broken by id descending.
package files

import (
	"context"

	"github.com/dmitrijs2005/filedrop/internal/server/models"
)

// Repository is the metadata store contract. Implementations are safe for
// concurrent use.
//
// GetByID returns common.ErrNotFound for unknown ids. Delete reports whether
// a record was removed and is idempotent. Create rejects incomplete input
// with common.ErrValidation; backend failures wrap common.ErrPersistence.
type Repository interface {
	Create(ctx context.Context, file *models.NewFile) (*models.File, error)
	GetByID(ctx context.Context, id int64) (*models.File, error)
	List(ctx context.Context) ([]*models.File, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
