// Package common defines sentinel errors shared by the server layers of
// filedrop together with the stable kind strings reported to clients.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Request validation errors. They are terminal for the request and are
	// never retried by the server.
	ErrValidation      = errors.New("validation error")
	ErrNoFile          = errors.New("no file uploaded")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrSizeLimit       = errors.New("file size exceeds the limit")

	// Repository-level errors.
	ErrNotFound    = errors.New("file not found")
	ErrPersistence = errors.New("metadata store unavailable")

	// ErrMissingPayload means a record exists but its bytes are gone.
	ErrMissingPayload = errors.New("file not found on disk")

	// ErrInjected is returned by the failure-injection policy.
	ErrInjected = errors.New("upload failed - server error")
)

// Kind is a stable, machine-readable error class sent to clients.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNoFile          Kind = "no_file"
	KindUnsupportedType Kind = "unsupported_type"
	KindSizeLimit       Kind = "size_limit"
	KindNotFound        Kind = "not_found"
	KindMissingPayload  Kind = "missing_payload"
	KindTransient       Kind = "transient"
	KindPersistence     Kind = "persistence"
	KindInternal        Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrNoFile, KindNoFile},
	{ErrUnsupportedType, KindUnsupportedType},
	{ErrSizeLimit, KindSizeLimit},
	{ErrValidation, KindValidation},
	{ErrMissingPayload, KindMissingPayload},
	{ErrNotFound, KindNotFound},
	{ErrInjected, KindTransient},
	{ErrPersistence, KindPersistence},
}

// KindOf returns the kind of the first sentinel found in err's chain.
// Unknown errors are reported as KindInternal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
