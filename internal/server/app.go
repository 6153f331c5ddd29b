// Package server wires the upload server together: it validates the
// configuration, opens the metadata store and the upload directory, and
// runs the HTTP API until a termination signal arrives.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/filedrop/internal/logging"
	"github.com/dmitrijs2005/filedrop/internal/server/blobs"
	"github.com/dmitrijs2005/filedrop/internal/server/config"
	"github.com/dmitrijs2005/filedrop/internal/server/httpapi"
	"github.com/dmitrijs2005/filedrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filedrop/internal/server/services"
)

// openStore is a seam for tests.
var openStore = repomanager.Open

type App struct {
	config      *config.Config
	logger      logging.Logger
	storage     *blobs.LocalStorage
	fileService *services.FileService
	store       io.Closer
}

// NewApp builds every server component from c. Logs go to w as JSON.
func NewApp(ctx context.Context, c *config.Config, w io.Writer) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger := logging.NewJSON(w, logging.ParseLevel(c.LogLevel))

	storage, err := blobs.NewLocalStorage(c.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	repo, closer, err := openStore(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	fs := services.NewFileService(repo, storage, c, logger)

	return &App{config: c, logger: logger, storage: storage, fileService: fs, store: closer}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.fileService, app.storage.Dir(), app.config)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is canceled, a signal arrives or the HTTP server
// fails, then releases the metadata store.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...",
		"store", app.config.Store,
		"upload_dir", app.storage.Dir(),
		"max_file_size", app.config.MaxFileSize,
		"failure_rate", app.config.FailureRate,
	)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "Failed to close metadata store", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
