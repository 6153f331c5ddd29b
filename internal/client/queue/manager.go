// Package queue tracks client-side uploads: each entry moves through
// queued, uploading, retrying, completed and failed, with bounded
// concurrency and capped exponential backoff between attempts.
package queue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/client/transport"
	"github.com/dmitrijs2005/filedrop/internal/logging"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/semaphore"
)

// Error kinds for failures that did not come from the server.
const (
	KindNetwork = "network"
	KindTimeout = "timeout"
	KindSource  = "source"
)

// progressStep is the smallest progress change reported to OnChange.
const progressStep = 0.01

// Uploader performs one upload attempt.
type Uploader interface {
	Upload(ctx context.Context, req *transport.Request) (*transport.FileRecord, error)
}

// Options configure a Manager. Non-positive Concurrency, AttemptTimeout and
// BackoffBase fall back to the uploader defaults; MaxRetries 0 means a
// single attempt.
type Options struct {
	Concurrency    int
	MaxRetries     int
	AttemptTimeout time.Duration
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	// OnChange is called after every state or progress change, outside
	// the manager lock. Calls for different entries may interleave.
	OnChange func(Upload)
	Logger   logging.Logger
}

func (o *Options) applyDefaults() {
	if o.Concurrency < 1 {
		o.Concurrency = 3
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 30 * time.Second
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
	if o.BackoffMax < o.BackoffBase {
		o.BackoffMax = o.BackoffBase
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
}

type entry struct {
	Upload
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager runs uploads concurrently, at most Options.Concurrency at a time.
// Every entry has its own goroutine; completion or failure of one entry
// never affects another.
type Manager struct {
	uploader Uploader
	opts     Options
	logger   logging.Logger
	sem      *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	closed  bool
}

func New(u Uploader, opts Options) *Manager {
	opts.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		uploader: u,
		opts:     opts,
		logger:   opts.Logger.With("module", "upload_queue"),
		sem:      semaphore.NewWeighted(int64(opts.Concurrency)),
		ctx:      ctx,
		cancel:   cancel,
		entries:  make(map[string]*entry),
	}
}

// Enqueue adds sources as queued entries and returns their ids in the
// same order. After Close it returns nil.
func (m *Manager) Enqueue(sources ...Source) []string {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}

	ids := make([]string, 0, len(sources))
	added := make([]*entry, 0, len(sources))
	ctxs := make([]context.Context, 0, len(sources))
	for _, src := range sources {
		ctx, cancel := context.WithCancel(m.ctx)
		e := &entry{
			Upload: Upload{
				ID:      uuid.NewString(),
				Name:    src.Name(),
				Size:    src.Size(),
				Payload: src,
				Status:  StatusQueued,
			},
			cancel: cancel,
			done:   make(chan struct{}),
		}
		m.entries[e.ID] = e
		m.order = append(m.order, e.ID)
		ids = append(ids, e.ID)
		added = append(added, e)
		ctxs = append(ctxs, ctx)
	}
	m.wg.Add(len(added))

	snaps := make([]Upload, len(added))
	for i, e := range added {
		snaps[i] = e.Upload
	}
	m.mu.Unlock()

	for _, s := range snaps {
		m.notify(s)
	}
	for i, e := range added {
		go m.run(ctxs[i], e)
	}
	return ids
}

// EnqueueFiles enqueues every readable path. Paths that cannot be used are
// reported in the joined error; the others are still enqueued.
func (m *Manager) EnqueueFiles(paths ...string) ([]string, error) {
	var (
		sources []Source
		errs    []error
	)
	for _, p := range paths {
		src, err := NewFileSource(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sources = append(sources, src)
	}

	var ids []string
	if len(sources) > 0 {
		ids = m.Enqueue(sources...)
	}
	return ids, errors.Join(errs...)
}

// Cancel stops a queued, uploading or retrying entry and drops it from the
// queue. An in-flight request is aborted and its slot freed. Unknown and
// terminal entries return false.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok || e.Status.Terminal() {
		m.mu.Unlock()
		return false
	}
	m.drop(id)
	m.mu.Unlock()

	e.cancel()
	m.logger.Debug(context.Background(), "Upload canceled", "id", id, "name", e.Name)
	return true
}

// drop removes id from the queue. Callers hold m.mu.
func (m *Manager) drop(id string) {
	delete(m.entries, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Manager) Get(id string) (Upload, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return Upload{}, false
	}
	return e.Upload, true
}

// List returns snapshots in enqueue order.
func (m *Manager) List() []Upload {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]Upload, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.entries[id].Upload)
	}
	return result
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{Total: len(m.entries)}
	for _, e := range m.entries {
		switch e.Status {
		case StatusQueued:
			s.Queued++
		case StatusUploading:
			s.Uploading++
		case StatusRetrying:
			s.Retrying++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Wait blocks until every entry present at the time of the call is
// terminal or canceled, or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := make([]chan struct{}, 0, len(m.entries))
	for _, e := range m.entries {
		done = append(done, e.done)
	}
	m.mu.Unlock()

	for _, d := range done {
		select {
		case <-d:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close cancels every unfinished entry, drops it, and waits for all
// goroutines to exit. Terminal entries stay visible. Close is idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	for _, id := range append([]string(nil), m.order...) {
		if !m.entries[id].Status.Terminal() {
			m.drop(id)
		}
	}
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

func (m *Manager) newBackoff() retry.Backoff {
	b := retry.NewExponential(m.opts.BackoffBase)
	b = retry.WithJitterPercent(10, b)
	return retry.WithCappedDuration(m.opts.BackoffMax, b)
}

// run drives one entry until it is terminal or its context is canceled.
func (m *Manager) run(ctx context.Context, e *entry) {
	defer m.wg.Done()
	defer close(e.done)

	backoff := m.newBackoff()

	for {
		if err := m.sem.Acquire(ctx, 1); err != nil {
			return
		}

		if !m.update(e, func(u *Upload) {
			u.Status = StatusUploading
			u.Progress = 0
			u.Attempts++
			u.Error = ""
			u.ErrorKind = ""
		}) {
			m.sem.Release(1)
			return
		}

		rec, err := m.attempt(ctx, e)
		m.sem.Release(1)

		if ctx.Err() != nil {
			return
		}

		if err == nil {
			m.update(e, func(u *Upload) {
				u.Status = StatusCompleted
				u.Progress = 1
				u.ServerFileID = rec.ID
				u.Error = ""
				u.ErrorKind = ""
			})
			m.logger.Info(ctx, "Upload completed", "id", e.ID, "name", e.Name, "server_id", rec.ID)
			return
		}

		message, kind := describe(err)
		retryable := errors.Is(err, transport.ErrTransient)

		var failed bool
		m.update(e, func(u *Upload) {
			u.Error = message
			u.ErrorKind = kind
			if retryable && u.RetryCount < m.opts.MaxRetries {
				u.RetryCount++
				u.Status = StatusRetrying
				u.Progress = 0
				return
			}
			u.Status = StatusFailed
			failed = true
		})

		if failed {
			m.logger.Warn(ctx, "Upload failed", "id", e.ID, "name", e.Name, "kind", kind, "error", message)
			return
		}

		delay, _ := backoff.Next()
		m.logger.Debug(ctx, "Retrying upload", "id", e.ID, "name", e.Name, "delay", delay, "error", message)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (m *Manager) attempt(ctx context.Context, e *entry) (*transport.FileRecord, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, m.opts.AttemptTimeout)
	defer cancel()

	attempt := e.Attempts

	body, err := e.Payload.Open()
	if err != nil {
		return nil, &sourceError{err: err}
	}
	defer body.Close()

	return m.uploader.Upload(attemptCtx, &transport.Request{
		Name:     e.Name,
		MimeType: e.Payload.MimeType(),
		Size:     e.Size,
		Body:     body,
		Progress: func(sent, total int64) { m.progress(e, attempt, sent, total) },
	})
}

// progress records upload progress. It stays below 1 until the server
// confirms the upload and never moves backwards within an attempt. Reports
// from an earlier attempt are dropped.
func (m *Manager) progress(e *entry, attempt int, sent, total int64) {
	if total <= 0 {
		return
	}
	p := float64(sent) / float64(total)
	if p > 0.99 {
		p = 0.99
	}

	m.mu.Lock()
	if m.entries[e.ID] != e || e.Status != StatusUploading || e.Attempts != attempt || p-e.Progress < progressStep {
		m.mu.Unlock()
		return
	}
	e.Progress = p
	snap := e.Upload
	m.mu.Unlock()

	m.notify(snap)
}

// update applies fn to a live entry and notifies observers. It returns
// false when the entry was canceled or dropped.
func (m *Manager) update(e *entry, fn func(u *Upload)) bool {
	m.mu.Lock()
	if m.entries[e.ID] != e {
		m.mu.Unlock()
		return false
	}
	fn(&e.Upload)
	snap := e.Upload
	m.mu.Unlock()

	m.notify(snap)
	return true
}

func (m *Manager) notify(u Upload) {
	if m.opts.OnChange != nil {
		m.opts.OnChange(u)
	}
}

type sourceError struct {
	err error
}

func (e *sourceError) Error() string { return "failed to open source: " + e.err.Error() }
func (e *sourceError) Unwrap() error { return e.err }

// describe returns the message and kind recorded for err. Server messages
// are kept verbatim.
func describe(err error) (string, string) {
	var remote *transport.RemoteError
	if errors.As(err, &remote) {
		msg := remote.Message
		if msg == "" {
			msg = http.StatusText(remote.StatusCode)
		}
		kind := remote.Kind
		if kind == "" {
			kind = fmt.Sprintf("http_%d", remote.StatusCode)
		}
		return msg, kind
	}

	var src *sourceError
	switch {
	case errors.As(err, &src):
		return err.Error(), KindSource
	case errors.Is(err, context.DeadlineExceeded):
		return err.Error(), KindTimeout
	case errors.Is(err, transport.ErrTransient):
		return err.Error(), KindNetwork
	}
	return err.Error(), KindSource
}
