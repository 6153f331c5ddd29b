package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/filedrop/internal/common"
)

// envelope is the body of every JSON response except /health.
type envelope struct {
	Success bool        `json:"success"`
	Data    any         `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    common.Kind `json:"kind,omitempty"`
}

var kindStatus = map[common.Kind]int{
	common.KindValidation:      http.StatusBadRequest,
	common.KindNoFile:          http.StatusBadRequest,
	common.KindUnsupportedType: http.StatusBadRequest,
	common.KindSizeLimit:       http.StatusRequestEntityTooLarge,
	common.KindNotFound:        http.StatusNotFound,
	common.KindMissingPayload:  http.StatusNotFound,
	common.KindTransient:       http.StatusServiceUnavailable,
	common.KindPersistence:     http.StatusInternalServerError,
	common.KindInternal:        http.StatusInternalServerError,
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondData(w http.ResponseWriter, statusCode int, data any) {
	respondJSON(w, statusCode, envelope{Success: true, Data: data})
}

func respondFail(w http.ResponseWriter, statusCode int, kind common.Kind, message string) {
	respondJSON(w, statusCode, envelope{Success: false, Error: message, Kind: kind})
}

// respondError maps err to its kind, status and client-facing message.
// Persistence and internal failures never leak their cause.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := common.KindOf(err)
	status := kindStatus[kind]

	var message string
	switch kind {
	case common.KindNoFile:
		message = "No file uploaded"
	case common.KindNotFound:
		message = "File not found"
	case common.KindMissingPayload:
		message = "File not found on disk"
	case common.KindTransient:
		message = "Upload failed - server error"
	case common.KindSizeLimit:
		message = fmt.Sprintf("File too large: maximum size is %d bytes", s.config.MaxFileSize)
		w.Header().Set("Connection", "close")
	case common.KindPersistence:
		message = "Failed to store file metadata"
	case common.KindInternal:
		message = "Internal server error"
	default:
		message = err.Error()
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "Request failed", "path", r.URL.Path, "kind", kind, "error", err)
	}

	respondFail(w, status, kind, message)
}

// asSizeLimit turns a body cut off by http.MaxBytesReader into
// common.ErrSizeLimit.
func asSizeLimit(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return fmt.Errorf("%w: request body over %d bytes", common.ErrSizeLimit, mbe.Limit)
	}
	return err
}
