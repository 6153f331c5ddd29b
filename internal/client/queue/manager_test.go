package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/client/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUploader drains the body and answers with whatever respond returns.
type fakeUploader struct {
	mu       sync.Mutex
	calls    map[string]int
	inFlight int32
	peak     int32
	respond  func(ctx context.Context, name string, call int) (*transport.FileRecord, error)
}

func newFakeUploader(respond func(ctx context.Context, name string, call int) (*transport.FileRecord, error)) *fakeUploader {
	return &fakeUploader{calls: make(map[string]int), respond: respond}
}

func (f *fakeUploader) Upload(ctx context.Context, req *transport.Request) (*transport.FileRecord, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[req.Name]++
	call := f.calls[req.Name]
	f.mu.Unlock()

	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	if req.Progress != nil {
		req.Progress(int64(len(data))/2, req.Size)
		req.Progress(int64(len(data)), req.Size)
	}
	return f.respond(ctx, req.Name, call)
}

func (f *fakeUploader) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func succeed(_ context.Context, _ string, call int) (*transport.FileRecord, error) {
	return &transport.FileRecord{ID: int64(100 + call)}, nil
}

func unavailable() error {
	return fmt.Errorf("%w: %w", transport.ErrTransient, &transport.RemoteError{
		StatusCode: http.StatusServiceUnavailable,
		Kind:       transport.KindTransient,
		Message:    "Upload failed - server error",
	})
}

func fastOptions() Options {
	return Options{
		Concurrency:    3,
		MaxRetries:     3,
		AttemptTimeout: time.Second,
		BackoffBase:    time.Millisecond,
		BackoffMax:     5 * time.Millisecond,
	}
}

func waitAll(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Wait(ctx))
}

func TestManager_Success(t *testing.T) {
	var (
		mu      sync.Mutex
		changes []Upload
	)
	opts := fastOptions()
	opts.OnChange = func(u Upload) {
		mu.Lock()
		changes = append(changes, u)
		mu.Unlock()
	}

	m := New(newFakeUploader(succeed), opts)
	defer m.Close()

	src := NewBytesSource("a.txt", "text/plain", []byte("hello world"))
	ids := m.Enqueue(src)
	require.Len(t, ids, 1)

	waitAll(t, m)

	u, ok := m.Get(ids[0])
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, u.Status)
	assert.Equal(t, 1.0, u.Progress)
	assert.Equal(t, int64(101), u.ServerFileID)
	assert.Equal(t, 0, u.RetryCount)
	assert.Equal(t, 1, u.Attempts)
	assert.Empty(t, u.Error)
	assert.Equal(t, "a.txt", u.Name)
	assert.Equal(t, int64(11), u.Size)
	assert.Same(t, src, u.Payload)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, changes)
	assert.Equal(t, StatusQueued, changes[0].Status)
	assert.Equal(t, StatusCompleted, changes[len(changes)-1].Status)

	last := -1.0
	for _, c := range changes {
		if c.Status != StatusUploading {
			continue
		}
		assert.GreaterOrEqual(t, c.Progress, last)
		assert.Less(t, c.Progress, 1.0)
		last = c.Progress
	}
}

func TestManager_RetryBound(t *testing.T) {
	up := newFakeUploader(func(context.Context, string, int) (*transport.FileRecord, error) {
		return nil, unavailable()
	})

	var (
		mu       sync.Mutex
		statuses []Status
	)
	opts := fastOptions()
	opts.OnChange = func(u Upload) {
		mu.Lock()
		statuses = append(statuses, u.Status)
		mu.Unlock()
	}

	m := New(up, opts)
	defer m.Close()

	ids := m.Enqueue(NewBytesSource("x.bin", "application/octet-stream", []byte("data")))
	waitAll(t, m)

	u, ok := m.Get(ids[0])
	require.True(t, ok)
	assert.Equal(t, StatusFailed, u.Status)
	assert.Equal(t, 3, u.RetryCount)
	assert.Equal(t, 4, u.Attempts)
	assert.Equal(t, 4, up.callCount("x.bin"))
	assert.Equal(t, "Upload failed - server error", u.Error)
	assert.Equal(t, transport.KindTransient, u.ErrorKind)
	assert.Zero(t, u.ServerFileID)

	mu.Lock()
	defer mu.Unlock()
	retrying := 0
	for _, s := range statuses {
		if s == StatusRetrying {
			retrying++
		}
	}
	assert.Equal(t, 3, retrying)
}

func TestManager_RecoversAfterTransientFailure(t *testing.T) {
	up := newFakeUploader(func(ctx context.Context, name string, call int) (*transport.FileRecord, error) {
		if call < 3 {
			return nil, unavailable()
		}
		return succeed(ctx, name, call)
	})

	m := New(up, fastOptions())
	defer m.Close()

	ids := m.Enqueue(NewBytesSource("flaky.txt", "text/plain", []byte("abc")))
	waitAll(t, m)

	u, _ := m.Get(ids[0])
	assert.Equal(t, StatusCompleted, u.Status)
	assert.Equal(t, 2, u.RetryCount)
	assert.Equal(t, 3, u.Attempts)
	assert.Equal(t, int64(103), u.ServerFileID)
	assert.Empty(t, u.Error)
	assert.Empty(t, u.ErrorKind)
}

func TestManager_ZeroRetries(t *testing.T) {
	up := newFakeUploader(func(context.Context, string, int) (*transport.FileRecord, error) {
		return nil, unavailable()
	})

	opts := fastOptions()
	opts.MaxRetries = 0
	m := New(up, opts)
	defer m.Close()

	ids := m.Enqueue(NewBytesSource("once.txt", "text/plain", []byte("abc")))
	waitAll(t, m)

	u, _ := m.Get(ids[0])
	assert.Equal(t, StatusFailed, u.Status)
	assert.Equal(t, 0, u.RetryCount)
	assert.Equal(t, 1, up.callCount("once.txt"))
}

func TestManager_PermanentErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantMsg  string
		wantKind string
	}{
		{
			name:     "unsupported type",
			err:      &transport.RemoteError{StatusCode: http.StatusBadRequest, Kind: "unsupported_type", Message: "File type application/pdf is not allowed"},
			wantMsg:  "File type application/pdf is not allowed",
			wantKind: "unsupported_type",
		},
		{
			name:     "size limit",
			err:      &transport.RemoteError{StatusCode: http.StatusRequestEntityTooLarge, Kind: "size_limit", Message: "File size exceeds the limit"},
			wantMsg:  "File size exceeds the limit",
			wantKind: "size_limit",
		},
		{
			name:     "persistence",
			err:      &transport.RemoteError{StatusCode: http.StatusInternalServerError, Kind: "persistence", Message: "Failed to save file"},
			wantMsg:  "Failed to save file",
			wantKind: "persistence",
		},
		{
			name:     "no kind",
			err:      &transport.RemoteError{StatusCode: http.StatusForbidden},
			wantMsg:  "Forbidden",
			wantKind: "http_403",
		},
		{
			name:     "local failure",
			err:      errors.New("failed to read source: disk gone"),
			wantMsg:  "failed to read source: disk gone",
			wantKind: KindSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUploader(func(context.Context, string, int) (*transport.FileRecord, error) {
				return nil, tt.err
			})
			m := New(up, fastOptions())
			defer m.Close()

			ids := m.Enqueue(NewBytesSource("f", "text/plain", []byte("x")))
			waitAll(t, m)

			u, _ := m.Get(ids[0])
			assert.Equal(t, StatusFailed, u.Status)
			assert.Equal(t, 0, u.RetryCount)
			assert.Equal(t, 1, up.callCount("f"))
			assert.Equal(t, tt.wantMsg, u.Error)
			assert.Equal(t, tt.wantKind, u.ErrorKind)
		})
	}
}

func TestManager_AttemptTimeoutIsRetried(t *testing.T) {
	up := newFakeUploader(func(ctx context.Context, name string, call int) (*transport.FileRecord, error) {
		if call == 1 {
			<-ctx.Done()
			return nil, fmt.Errorf("%w: %w", transport.ErrTransient, ctx.Err())
		}
		return succeed(ctx, name, call)
	})

	opts := fastOptions()
	opts.AttemptTimeout = 20 * time.Millisecond
	m := New(up, opts)
	defer m.Close()

	ids := m.Enqueue(NewBytesSource("slow", "text/plain", []byte("x")))
	waitAll(t, m)

	u, _ := m.Get(ids[0])
	assert.Equal(t, StatusCompleted, u.Status)
	assert.Equal(t, 1, u.RetryCount)
}

func TestManager_ConcurrencyBound(t *testing.T) {
	up := newFakeUploader(func(ctx context.Context, name string, call int) (*transport.FileRecord, error) {
		time.Sleep(10 * time.Millisecond)
		return succeed(ctx, name, call)
	})

	opts := fastOptions()
	opts.Concurrency = 2
	m := New(up, opts)
	defer m.Close()

	var sources []Source
	for i := 0; i < 10; i++ {
		sources = append(sources, NewBytesSource(fmt.Sprintf("f%d", i), "text/plain", []byte("x")))
	}
	ids := m.Enqueue(sources...)
	require.Len(t, ids, 10)

	waitAll(t, m)

	assert.LessOrEqual(t, atomic.LoadInt32(&up.peak), int32(2))
	assert.Equal(t, Stats{Total: 10, Completed: 10}, m.Stats())
}

func TestManager_ListKeepsEnqueueOrder(t *testing.T) {
	m := New(newFakeUploader(succeed), fastOptions())
	defer m.Close()

	ids := m.Enqueue(
		NewBytesSource("one", "text/plain", nil),
		NewBytesSource("two", "text/plain", nil),
		NewBytesSource("three", "text/plain", nil),
	)
	waitAll(t, m)

	list := m.List()
	require.Len(t, list, 3)
	for i, u := range list {
		assert.Equal(t, ids[i], u.ID)
	}
	assert.Equal(t, []string{"one", "two", "three"}, []string{list[0].Name, list[1].Name, list[2].Name})
}

func TestManager_CancelInFlightFreesSlot(t *testing.T) {
	started := make(chan string, 4)
	up := newFakeUploader(func(ctx context.Context, name string, call int) (*transport.FileRecord, error) {
		if name == "blocker" {
			started <- name
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return succeed(ctx, name, call)
	})

	opts := fastOptions()
	opts.Concurrency = 1
	m := New(up, opts)
	defer m.Close()

	blocker := m.Enqueue(NewBytesSource("blocker", "text/plain", []byte("x")))[0]
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("blocker never started")
	}

	next := m.Enqueue(NewBytesSource("next", "text/plain", []byte("y")))[0]
	u, _ := m.Get(next)
	assert.Equal(t, StatusQueued, u.Status)

	assert.True(t, m.Cancel(blocker))
	assert.False(t, m.Cancel(blocker))

	waitAll(t, m)

	_, ok := m.Get(blocker)
	assert.False(t, ok)

	u, ok = m.Get(next)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, u.Status)
	assert.Equal(t, Stats{Total: 1, Completed: 1}, m.Stats())
}

func TestManager_CancelQueued(t *testing.T) {
	release := make(chan struct{})
	up := newFakeUploader(func(ctx context.Context, name string, call int) (*transport.FileRecord, error) {
		<-release
		return succeed(ctx, name, call)
	})

	opts := fastOptions()
	opts.Concurrency = 1
	m := New(up, opts)
	defer m.Close()

	ids := m.Enqueue(
		NewBytesSource("first", "text/plain", []byte("x")),
		NewBytesSource("second", "text/plain", []byte("y")),
	)

	require.Eventually(t, func() bool {
		return m.Stats().Uploading == 1
	}, 5*time.Second, time.Millisecond)

	queued := ids[0]
	if u, _ := m.Get(ids[0]); u.Status == StatusUploading {
		queued = ids[1]
	}
	assert.True(t, m.Cancel(queued))
	close(release)

	waitAll(t, m)

	assert.Equal(t, Stats{Total: 1, Completed: 1}, m.Stats())
	assert.False(t, m.Cancel(queued))
	assert.False(t, m.Cancel("unknown"))
}

func TestManager_CancelTerminalReturnsFalse(t *testing.T) {
	m := New(newFakeUploader(succeed), fastOptions())
	defer m.Close()

	ids := m.Enqueue(NewBytesSource("done", "text/plain", []byte("x")))
	waitAll(t, m)

	assert.False(t, m.Cancel(ids[0]))
	_, ok := m.Get(ids[0])
	assert.True(t, ok)
}

func TestManager_StatsAreConsistent(t *testing.T) {
	release := make(chan struct{})
	up := newFakeUploader(func(ctx context.Context, name string, call int) (*transport.FileRecord, error) {
		<-release
		if name == "bad" {
			return nil, &transport.RemoteError{StatusCode: http.StatusBadRequest, Kind: "validation", Message: "nope"}
		}
		return succeed(ctx, name, call)
	})

	opts := fastOptions()
	opts.Concurrency = 2
	m := New(up, opts)
	defer m.Close()

	var sources []Source
	for i := 0; i < 5; i++ {
		sources = append(sources, NewBytesSource(fmt.Sprintf("ok%d", i), "text/plain", []byte("x")))
	}
	sources = append(sources, NewBytesSource("bad", "text/plain", []byte("x")))
	m.Enqueue(sources...)

	require.Eventually(t, func() bool {
		return m.Stats().Uploading == 2
	}, 5*time.Second, time.Millisecond)

	s := m.Stats()
	assert.Equal(t, 6, s.Total)
	assert.Equal(t, s.Total, s.Pending()+s.Completed+s.Failed)
	assert.Equal(t, 4, s.Queued)

	close(release)
	waitAll(t, m)

	s = m.Stats()
	assert.Equal(t, Stats{Total: 6, Completed: 5, Failed: 1}, s)
	assert.Zero(t, s.Pending())
}

func TestManager_CloseDropsUnfinished(t *testing.T) {
	up := newFakeUploader(func(ctx context.Context, name string, call int) (*transport.FileRecord, error) {
		if name == "stuck" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return succeed(ctx, name, call)
	})

	m := New(up, fastOptions())

	done := m.Enqueue(NewBytesSource("done", "text/plain", []byte("x")))[0]
	waitAll(t, m)
	m.Enqueue(NewBytesSource("stuck", "text/plain", []byte("y")))

	require.Eventually(t, func() bool {
		return up.callCount("stuck") == 1
	}, 5*time.Second, time.Millisecond)

	m.Close()
	m.Close()

	list := m.List()
	require.Len(t, list, 1)
	assert.Equal(t, done, list[0].ID)
	assert.Nil(t, m.Enqueue(NewBytesSource("late", "text/plain", nil)))
}

func TestManager_WaitHonorsContext(t *testing.T) {
	up := newFakeUploader(func(ctx context.Context, _ string, _ int) (*transport.FileRecord, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	m := New(up, fastOptions())
	defer m.Close()

	m.Enqueue(NewBytesSource("forever", "text/plain", []byte("x")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Wait(ctx), context.DeadlineExceeded)
}

type brokenSource struct{}

func (brokenSource) Name() string     { return "broken" }
func (brokenSource) Size() int64      { return 1 }
func (brokenSource) MimeType() string { return "text/plain" }
func (brokenSource) Open() (io.ReadCloser, error) {
	return nil, errors.New("permission denied")
}

func TestManager_SourceOpenFailure(t *testing.T) {
	up := newFakeUploader(succeed)
	m := New(up, fastOptions())
	defer m.Close()

	ids := m.Enqueue(brokenSource{})
	waitAll(t, m)

	u, _ := m.Get(ids[0])
	assert.Equal(t, StatusFailed, u.Status)
	assert.Equal(t, KindSource, u.ErrorKind)
	assert.Equal(t, "failed to open source: permission denied", u.Error)
	assert.Zero(t, up.callCount("broken"))
}

func TestOptions_Defaults(t *testing.T) {
	o := Options{MaxRetries: -1, BackoffBase: time.Second, BackoffMax: time.Millisecond}
	o.applyDefaults()

	assert.Equal(t, 3, o.Concurrency)
	assert.Equal(t, 0, o.MaxRetries)
	assert.Equal(t, 30*time.Second, o.AttemptTimeout)
	assert.Equal(t, time.Second, o.BackoffBase)
	assert.Equal(t, time.Second, o.BackoffMax)
	assert.NotNil(t, o.Logger)
}

func TestBackoffIsCapped(t *testing.T) {
	m := New(newFakeUploader(succeed), Options{BackoffBase: 10 * time.Millisecond, BackoffMax: 50 * time.Millisecond})
	defer m.Close()

	b := m.newBackoff()
	for i := 0; i < 10; i++ {
		d, stop := b.Next()
		require.False(t, stop)
		assert.LessOrEqual(t, d, 50*time.Millisecond)
		assert.Greater(t, d, time.Duration(0))
	}
}

// lateProgressUploader fails the first attempt and replays that attempt's
// Progress callback while the second one is running.
type lateProgressUploader struct {
	mu    sync.Mutex
	calls int
	first func(sent, total int64)
}

func (u *lateProgressUploader) Upload(_ context.Context, req *transport.Request) (*transport.FileRecord, error) {
	u.mu.Lock()
	u.calls++
	call := u.calls
	if call == 1 {
		u.first = req.Progress
	}
	first := u.first
	u.mu.Unlock()

	if call == 1 {
		return nil, unavailable()
	}
	first(9, 10)
	return &transport.FileRecord{ID: 5}, nil
}

func TestManager_IgnoresProgressFromEarlierAttempt(t *testing.T) {
	var (
		mu    sync.Mutex
		stale []Upload
	)
	opts := fastOptions()
	opts.OnChange = func(u Upload) {
		if u.Attempts == 2 && u.Status == StatusUploading && u.Progress > 0 {
			mu.Lock()
			stale = append(stale, u)
			mu.Unlock()
		}
	}

	m := New(&lateProgressUploader{}, opts)
	defer m.Close()

	ids := m.Enqueue(NewBytesSource("twice.txt", "text/plain", []byte("0123456789")))
	waitAll(t, m)

	u, _ := m.Get(ids[0])
	assert.Equal(t, StatusCompleted, u.Status)
	assert.Equal(t, 2, u.Attempts)

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, stale)
}
