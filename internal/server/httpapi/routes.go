package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Handler returns the router with every route and middleware installed.
// File routes are served both at the root and under /api.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.registerFileRoutes(r)
	api := r.PathPrefix("/api").Subrouter()
	s.registerFileRoutes(api)
	api.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)

	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(filesOnly{http.Dir(s.uploadDir)})),
	).Methods(http.MethodGet, http.MethodHead)

	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	return r
}

func (s *Server) registerFileRoutes(r *mux.Router) {
	r.HandleFunc("/files", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/files", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/files/{id}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/files/{id}", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/files/{id}/download", s.handleDownload).Methods(http.MethodGet)
}
