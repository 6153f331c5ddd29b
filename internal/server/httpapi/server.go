// Package httpapi exposes the file service over HTTP: JSON endpoints for
// upload, listing, lookup and deletion, binary download, static serving of
// the upload directory and a health check.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/logging"
	sc "github.com/dmitrijs2005/filedrop/internal/server/config"
	"github.com/dmitrijs2005/filedrop/internal/server/services"
)

type Server struct {
	address   string
	files     *services.FileService
	uploadDir string
	config    *sc.Config
	logger    logging.Logger
}

func NewServer(address string, l logging.Logger, fs *services.FileService, uploadDir string, config *sc.Config) *Server {
	return &Server{
		address:   address,
		files:     fs,
		uploadDir: uploadDir,
		config:    config,
		logger:    l.With("module", "http_server"),
	}
}

// Run serves until ctx is done, then shuts down gracefully, giving in-flight
// requests up to config.ShutdownTimeout to finish.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-stopped
	return nil
}
