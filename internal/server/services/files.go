// Package services implements the upload transaction handler: validation,
// persistence of bytes and metadata, rollback, failure injection, and the
// delete and download paths.
package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/logging"
	"github.com/dmitrijs2005/filedrop/internal/server/blobs"
	sc "github.com/dmitrijs2005/filedrop/internal/server/config"
	"github.com/dmitrijs2005/filedrop/internal/server/models"
	"github.com/dmitrijs2005/filedrop/internal/server/repositories/files"
	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how many leading bytes are inspected when a part carries no
// content type.
const sniffLen = 3072

// newStorageName is a seam for tests.
var newStorageName = blobs.GenerateName

// UploadRequest is one file part of an upload. Body is read once.
type UploadRequest struct {
	OriginalName string
	MimeType     string
	Body         io.Reader
}

// Download is an opened payload. The caller closes Content.
type Download struct {
	File    *models.File
	Content *os.File
	Size    int64
	ModTime time.Time
}

type FileService struct {
	repo     files.Repository
	storage  *blobs.LocalStorage
	config   *sc.Config
	logger   logging.Logger
	injector *failureInjector
}

func NewFileService(repo files.Repository, storage *blobs.LocalStorage, config *sc.Config, logger logging.Logger) *FileService {
	return &FileService{
		repo:     repo,
		storage:  storage,
		config:   config,
		logger:   logger.With("module", "file_service"),
		injector: newFailureInjector(config.FailureRate, config.FailureSeed),
	}
}

// Upload validates req, writes its bytes to the upload directory and records
// the metadata. Either both the file and its record exist afterwards, or
// neither does.
//
// Checks run in order: presence (common.ErrNoFile), type
// (common.ErrUnsupportedType), size (common.ErrSizeLimit, while streaming).
// The declared type is checked and stored as given. Only a part that
// declares no type at all gets one sniffed from its content.
func (s *FileService) Upload(ctx context.Context, req *UploadRequest) (*models.File, error) {
	if req == nil || req.Body == nil || strings.TrimSpace(req.OriginalName) == "" {
		return nil, common.ErrNoFile
	}

	body := bufio.NewReaderSize(req.Body, sniffLen)

	mimeType := normalizeType(req.MimeType)
	if mimeType == "" {
		head, err := body.Peek(sniffLen)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
		mimeType = normalizeType(mimetype.Detect(head).String())
	}

	if !s.allowed(mimeType) {
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedType, mimeType)
	}

	name := newStorageName(req.OriginalName)

	size, err := s.storage.Save(ctx, name, body, s.config.MaxFileSize)
	if err != nil {
		if errors.Is(err, common.ErrSizeLimit) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	if s.injector.fail() {
		s.rollback(ctx, name)
		s.logger.Warn(ctx, "Injected upload failure", "original_name", req.OriginalName)
		return nil, common.ErrInjected
	}

	rec, err := s.repo.Create(ctx, &models.NewFile{
		Filename:     name,
		OriginalName: req.OriginalName,
		MimeType:     mimeType,
		Size:         size,
	})
	if err != nil {
		s.rollback(ctx, name)
		s.logger.Error(ctx, "Failed to record upload", "original_name", req.OriginalName, "error", err)
		return nil, err
	}

	s.logger.Info(ctx, "File uploaded", "id", rec.ID, "filename", rec.Filename, "size", rec.Size, "mime_type", rec.MimeType)
	return rec, nil
}

func (s *FileService) rollback(ctx context.Context, name string) {
	if _, err := s.storage.Remove(name); err != nil {
		s.logger.Error(ctx, "Failed to remove uploaded bytes", "filename", name, "error", err)
	}
}

// allowed reports whether mimeType passes the allow-list. An empty list
// accepts every type; "type/*" entries match a whole family.
func (s *FileService) allowed(mimeType string) bool {
	if len(s.config.AllowedFileTypes) == 0 {
		return true
	}
	for _, t := range s.config.AllowedFileTypes {
		if t == mimeType {
			return true
		}
		if prefix, ok := strings.CutSuffix(t, "/*"); ok && strings.HasPrefix(mimeType, prefix+"/") {
			return true
		}
	}
	return false
}

func (s *FileService) Get(ctx context.Context, id int64) (*models.File, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every record, newest first.
func (s *FileService) List(ctx context.Context) ([]*models.File, error) {
	return s.repo.List(ctx)
}

// Delete removes the bytes and then the record. Bytes that are already gone
// are logged and ignored. When a concurrent delete removes the record first
// the call fails with common.ErrNotFound.
func (s *FileService) Delete(ctx context.Context, id int64) error {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	removed, err := s.storage.Remove(rec.Filename)
	if err != nil {
		return err
	}
	if !removed {
		s.logger.Warn(ctx, "File bytes already missing on delete", "id", id, "filename", rec.Filename)
	}

	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("file %d: %w", id, common.ErrNotFound)
	}

	s.logger.Info(ctx, "File deleted", "id", id, "filename", rec.Filename)
	return nil
}

// Open resolves id and opens its bytes. A record whose bytes are gone
// yields common.ErrMissingPayload.
func (s *FileService) Open(ctx context.Context, id int64) (*Download, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	f, info, err := s.storage.Open(rec.Filename)
	if err != nil {
		if errors.Is(err, common.ErrMissingPayload) {
			s.logger.Error(ctx, "File bytes missing for record", "id", id, "filename", rec.Filename, "anomaly", "missing_payload")
		}
		return nil, err
	}

	return &Download{File: rec, Content: f, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// normalizeType lower-cases a media type and drops its parameters.
func normalizeType(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return strings.ToLower(t)
}
