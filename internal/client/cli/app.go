package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/filedrop/internal/client/config"
	"github.com/dmitrijs2005/filedrop/internal/client/queue"
	"github.com/dmitrijs2005/filedrop/internal/client/transport"
	"github.com/dmitrijs2005/filedrop/internal/logging"
)

var (
	// ErrUploadsFailed is returned by Run when at least one file failed,
	// was skipped or was interrupted.
	ErrUploadsFailed = errors.New("some uploads did not complete")
	ErrNoFiles       = errors.New("no files given")
)

// Summary is the outcome of one Run.
type Summary struct {
	Completed   int
	Failed      int
	Interrupted int
	Skipped     error
	Failures    []queue.Upload
}

func (s Summary) ok() bool {
	return s.Failed == 0 && s.Interrupted == 0 && s.Skipped == nil
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	out      io.Writer
	uploader queue.Uploader
}

// NewApp validates c and builds the uploader. Progress goes to out, logs go
// to logOut as text.
func NewApp(c *config.Config, out, logOut io.Writer) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger := logging.NewText(logOut, logging.ParseLevel(c.LogLevel))

	return &App{
		config:   c,
		logger:   logger,
		out:      out,
		uploader: transport.New(c.ServerURL, nil, logger),
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run uploads paths and blocks until all of them are terminal or ctx is
// canceled. It prints a summary in both cases.
func (app *App) Run(ctx context.Context, paths []string) (Summary, error) {
	if len(paths) == 0 {
		return Summary{}, ErrNoFiles
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	app.initSignalHandler(ctx, cancelFunc)

	r := newRenderer(app.out)
	m := queue.New(app.uploader, queue.Options{
		Concurrency:    app.config.Concurrency,
		MaxRetries:     app.config.MaxRetries,
		AttemptTimeout: app.config.AttemptTimeout,
		BackoffBase:    app.config.BackoffBase,
		BackoffMax:     app.config.BackoffMax,
		OnChange:       r.onChange,
		Logger:         app.logger,
	})

	app.logger.Info(ctx, "Starting uploads", "server", app.config.ServerURL, "files", len(paths))

	_, skipped := m.EnqueueFiles(paths...)
	if skipped != nil {
		app.logger.Warn(ctx, "Some files were skipped", "error", skipped)
	}

	if err := m.Wait(ctx); err != nil {
		app.logger.Warn(ctx, "Uploads interrupted", "error", err)
	}

	uploads := m.List()
	m.Close()
	r.finish()

	s := summarize(uploads)
	s.Skipped = skipped
	app.printSummary(s)

	if !s.ok() {
		return s, ErrUploadsFailed
	}
	return s, nil
}

func summarize(uploads []queue.Upload) Summary {
	var s Summary
	for _, u := range uploads {
		switch u.Status {
		case queue.StatusCompleted:
			s.Completed++
		case queue.StatusFailed:
			s.Failed++
			s.Failures = append(s.Failures, u)
		default:
			s.Interrupted++
		}
	}
	return s
}

func (app *App) printSummary(s Summary) {
	fmt.Fprintf(app.out, "Uploaded %s, %d failed", plural(s.Completed, "file"), s.Failed)
	if s.Interrupted > 0 {
		fmt.Fprintf(app.out, ", %d interrupted", s.Interrupted)
	}
	fmt.Fprintln(app.out)

	for _, u := range s.Failures {
		fmt.Fprintf(app.out, "  %s: %s [%s, %s]\n", u.Name, u.Error, u.ErrorKind, plural(u.Attempts, "attempt"))
	}
	if s.Skipped != nil {
		fmt.Fprintln(app.out, "Skipped:")
		fmt.Fprintln(app.out, indent(s.Skipped.Error()))
	}
}
