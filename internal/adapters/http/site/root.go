// Package site serves the judge and dashboard pages from disk.
package site

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
)

// ErrServe is returned when the public directory cannot be served.
var ErrServe = errors.New("site serve failed")

// Register serves the files under dir at /. An empty dir registers nothing.
func Register(_ context.Context, mux *http.ServeMux, dir string) error {
	if mux == nil {
		panic("mux is nil")
	}
	if dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServe, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrServe, dir)
	}

	mux.Handle("GET /", NewRootHandler(dir))
	return nil
}

// RootHandler serves static files.
type RootHandler struct {
	files http.Handler
}

// NewRootHandler creates a handler for the files under dir.
func NewRootHandler(dir string) *RootHandler {
	return &RootHandler{files: http.FileServer(http.Dir(dir))}
}

// ServeHTTP serves one static file. Pages are edited during rehearsals,
// so browsers are asked to revalidate.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	h.files.ServeHTTP(w, r)
}
