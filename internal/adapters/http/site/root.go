// Package site handles the embedded operator page.
package site

import (
	"context"
	"errors"
	"net/http"
)

// Error constants
var (
	ErrServe = errors.New("docs site serve failed")
)

// Register attaches the embedded operator page routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	// Serve the embedded operator page under /docs/
	files := http.StripPrefix("/docs/", http.FileServer(FS()))
	mux.Handle("/docs/", files)
	mux.Handle("/docs", http.RedirectHandler("/docs/", http.StatusMovedPermanently))
}
