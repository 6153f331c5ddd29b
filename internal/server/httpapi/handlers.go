package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/server/services"
	"github.com/gorilla/mux"
)

const (
	uploadField = "file"
	// multipartOverhead is the body allowance for boundaries, part headers
	// and small form fields on top of the file itself.
	multipartOverhead = 1 << 20
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload streams the first file part named "file" into the service.
// Other parts are skipped.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxFileSize+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", common.ErrNoFile, err))
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			s.respondError(w, r, common.ErrNoFile)
			return
		}
		if err != nil {
			if err = asSizeLimit(err); !errors.Is(err, common.ErrSizeLimit) {
				err = fmt.Errorf("%w: malformed multipart body: %v", common.ErrValidation, err)
			}
			s.respondError(w, r, err)
			return
		}

		if part.FormName() != uploadField || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		rec, err := s.files.Upload(r.Context(), &services.UploadRequest{
			OriginalName: part.FileName(),
			MimeType:     part.Header.Get("Content-Type"),
			Body:         part,
		})
		_ = part.Close()

		if err != nil {
			s.respondError(w, r, asSizeLimit(err))
			return
		}

		respondData(w, http.StatusCreated, rec)
		return
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.files.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := fileID(r)
	if !ok {
		respondFail(w, http.StatusBadRequest, common.KindValidation, "Invalid file ID")
		return
	}

	rec, err := s.files.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := fileID(r)
	if !ok {
		respondFail(w, http.StatusBadRequest, common.KindValidation, "Invalid file ID")
		return
	}

	if err := s.files.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := fileID(r)
	if !ok {
		respondFail(w, http.StatusBadRequest, common.KindValidation, "Invalid file ID")
		return
	}

	d, err := s.files.Open(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer d.Content.Close()

	w.Header().Set("Content-Type", d.File.MimeType)
	w.Header().Set("Content-Disposition", contentDisposition(d.File.OriginalName))
	http.ServeContent(w, r, "", d.ModTime, d.Content)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondFail(w, http.StatusNotFound, common.KindNotFound, "Route not found")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondFail(w, http.StatusMethodNotAllowed, common.KindValidation, "Method not allowed")
}

func fileID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// contentDisposition builds an attachment header for name. Quotes and
// backslashes are escaped and control characters dropped; names outside
// ASCII also get an RFC 5987 filename* parameter.
func contentDisposition(name string) string {
	var b strings.Builder
	ascii := true
	for _, c := range name {
		switch {
		case c < 0x20 || c == 0x7f:
			continue
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteRune(c)
		case c > 0x7e:
			ascii = false
			b.WriteByte('_')
		default:
			b.WriteRune(c)
		}
	}

	header := `attachment; filename="` + b.String() + `"`
	if !ascii {
		header += "; filename*=UTF-8''" + url.PathEscape(name)
	}
	return header
}
