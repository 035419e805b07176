package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IgoorDrt/ErroOps-v1/internal/blob"
)

// UploadRoutes returns a sub-router mounted at /api/uploads serving stored
// attachments by name.
func UploadRoutes(blobs *blob.Filesystem) chi.Router {
	r := chi.NewRouter()

	r.Get("/{filename}", func(w http.ResponseWriter, r *http.Request) {
		path, err := blobs.Path(chi.URLParam(r, "filename"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid filename"})
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.ServeFile(w, r, path)
	})

	return r
}
