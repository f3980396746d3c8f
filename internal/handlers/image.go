package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prostay/apiserver/internal/storage"
)

// ImageOpener opens stored images by key.
type ImageOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// ImageRouter serves stored property images and profile photos under
// /images/{key}.
func ImageRouter(r chi.Router, images ImageOpener) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		if images == nil {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		reader, contentType, err := images.Open(r.Context(), chi.URLParam(r, "*"))
		if err != nil {
			if errors.Is(err, storage.ErrInvalidKey) || errors.Is(err, storage.ErrObjectNotFound) {
				writeError(w, http.StatusNotFound, "not_found")
				return
			}
			writeServiceError(w, r, err)
			return
		}
		defer reader.Close()

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		_, _ = io.Copy(w, reader)
	})
}
