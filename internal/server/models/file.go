// Package models defines server-side data models persisted in the metadata store.
package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/common"
)

// File is the metadata record of one uploaded file. ID and CreatedAt are
// assigned by the store; Filename is the generated name of the bytes in the
// upload directory. OriginalName is display-only and never used as a path.
type File struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewFile carries the fields a caller supplies when creating a record.
type NewFile struct {
	Filename     string
	OriginalName string
	MimeType     string
	Size         int64
}

// Validate checks that every required field is present.
func (f *NewFile) Validate() error {
	switch {
	case f == nil:
		return fmt.Errorf("%w: nil record", common.ErrValidation)
	case strings.TrimSpace(f.Filename) == "":
		return fmt.Errorf("%w: filename is required", common.ErrValidation)
	case strings.TrimSpace(f.OriginalName) == "":
		return fmt.Errorf("%w: original name is required", common.ErrValidation)
	case strings.TrimSpace(f.MimeType) == "":
		return fmt.Errorf("%w: mime type is required", common.ErrValidation)
	case f.Size < 0:
		return fmt.Errorf("%w: negative size %d", common.ErrValidation, f.Size)
	}
	return nil
}

// SortNewestFirst orders files by CreatedAt descending, breaking ties by
// ID descending.
func SortNewestFirst(files []*File) {
	sort.Slice(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
