// Package blobs stores uploaded bytes in the upload directory, one file per
// metadata record. Writes go to a temporary file that is renamed into place
// only after the whole payload is on disk, so a visible file is always
// complete.
package blobs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/filex"
)

const tempPattern = ".upload-*.tmp"

// ErrInvalidName is returned for names that are not a single path element.
var ErrInvalidName = errors.New("invalid storage name")

// LocalStorage keeps payloads in a single flat directory.
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates dir when missing.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{dir: abs}, nil
}

// Dir returns the absolute upload directory.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Path returns the location of name inside the upload directory.
func (s *LocalStorage) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// Save streams r into name and returns the number of bytes written. At most
// limit bytes are accepted: reading stops at limit+1 and the call fails with
// common.ErrSizeLimit. On any error no file is left behind.
func (s *LocalStorage) Save(ctx context.Context, name string, r io.Reader, limit int64) (n int64, err error) {
	dst, err := s.Path(name)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	n, err = io.Copy(tmp, io.LimitReader(&ctxReader{ctx: ctx, r: r}, limit+1))
	if err != nil {
		return n, fmt.Errorf("failed to write file: %w", err)
	}
	if n > limit {
		return n, fmt.Errorf("%w: more than %d bytes", common.ErrSizeLimit, limit)
	}

	if err = tmp.Sync(); err != nil {
		return n, fmt.Errorf("failed to sync file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return n, fmt.Errorf("failed to close file: %w", err)
	}
	if err = os.Rename(tmpName, dst); err != nil {
		return n, fmt.Errorf("failed to rename file: %w", err)
	}

	return n, nil
}

// Open opens name for reading. A missing file yields common.ErrMissingPayload.
func (s *LocalStorage) Open(name string) (*os.File, fs.FileInfo, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%s: %w", name, common.ErrMissingPayload)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%s: %w", name, common.ErrMissingPayload)
	}

	return f, info, nil
}

// Remove deletes name. It reports false when the file was already gone.
func (s *LocalStorage) Remove(name string) (bool, error) {
	path, err := s.Path(name)
	if err != nil {
		return false, err
	}

	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete file: %w", err)
	}
	return true, nil
}

// GenerateName returns a fresh storage name for a file uploaded as
// original: "<unix nanos>-<16 hex chars><ext>". The extension of original
// is kept as written, minus control characters.
func GenerateName(original string) string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return strconv.FormatInt(time.Now().UnixNano(), 10) + "-" + hex.EncodeToString(b[:]) + sanitizeExt(original)
}

// maxExtLen keeps generated names well under the usual 255-byte limit.
const maxExtLen = 200

func sanitizeExt(original string) string {
	base := original
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	ext := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, filepath.Ext(strings.TrimLeft(base, ".")))
	if len(ext) < 2 || len(ext) > maxExtLen {
		return ""
	}
	return ext
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
