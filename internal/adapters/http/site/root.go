// Package site serves the embedded leaderboard page.
package site

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Register serves the embedded static site under the router root.
// More specific routes registered on r take precedence.
func Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}

	files := http.FileServer(FS())
	r.Handle("/*", files)
}
