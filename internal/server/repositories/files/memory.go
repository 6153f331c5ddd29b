package files

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/server/models"
)

// MemoryRepository keeps records in a map guarded by a RWMutex. Records are
// lost on restart.
type MemoryRepository struct {
	mu      sync.RWMutex
	files   map[int64]models.File
	lastID  int64
	lastAt  time.Time
	nowFunc func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		files:   make(map[int64]models.File),
		nowFunc: time.Now,
	}
}

// Create stores a new record. CreatedAt is strictly increasing within one
// repository so that ordering by time alone is already unambiguous.
func (r *MemoryRepository) Create(ctx context.Context, file *models.NewFile) (*models.File, error) {
	if err := file.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc().UTC().Truncate(time.Microsecond)
	if !now.After(r.lastAt) {
		now = r.lastAt.Add(time.Microsecond)
	}
	r.lastAt = now
	r.lastID++

	rec := models.File{
		ID:           r.lastID,
		Filename:     file.Filename,
		OriginalName: file.OriginalName,
		MimeType:     file.MimeType,
		Size:         file.Size,
		CreatedAt:    now,
	}
	r.files[rec.ID] = rec

	return &rec, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*models.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.files[id]
	if !ok {
		return nil, fmt.Errorf("file %d: %w", id, common.ErrNotFound)
	}
	return &rec, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*models.File, error) {
	r.mu.RLock()
	result := make([]*models.File, 0, len(r.files))
	for _, rec := range r.files {
		rec := rec
		result = append(result, &rec)
	}
	r.mu.RUnlock()

	models.SortNewestFirst(result)
	return result, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[id]; !ok {
		return false, nil
	}
	delete(r.files, id)
	return true, nil
}
