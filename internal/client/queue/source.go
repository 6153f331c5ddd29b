package queue

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// Source is a caller-owned payload. The queue only reads it through Open,
// once per attempt, and never modifies it.
type Source interface {
	Name() string
	Size() int64
	MimeType() string
	Open() (io.ReadCloser, error)
}

// FileSource reads a file from disk.
type FileSource struct {
	path     string
	name     string
	size     int64
	mimeType string
}

// NewFileSource stats path and detects its MIME type from the content,
// falling back to the extension.
func NewFileSource(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: not a regular file", path)
	}

	mimeType := ""
	if mt, err := mimetype.DetectFile(path); err == nil {
		mimeType = mt.String()
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
			mimeType = byExt
		}
	}
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mt
	}

	return &FileSource{path: path, name: filepath.Base(path), size: info.Size(), mimeType: mimeType}, nil
}

func (f *FileSource) Name() string                 { return f.name }
func (f *FileSource) Size() int64                  { return f.size }
func (f *FileSource) MimeType() string             { return f.mimeType }
func (f *FileSource) Path() string                 { return f.path }
func (f *FileSource) Open() (io.ReadCloser, error) { return os.Open(f.path) }

// BytesSource serves an in-memory payload.
type BytesSource struct {
	name     string
	mimeType string
	data     []byte
}

func NewBytesSource(name, mimeType string, data []byte) *BytesSource {
	return &BytesSource{name: name, mimeType: mimeType, data: data}
}

func (b *BytesSource) Name() string     { return b.name }
func (b *BytesSource) Size() int64      { return int64(len(b.data)) }
func (b *BytesSource) MimeType() string { return b.mimeType }

func (b *BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}
