package httpserver

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.json
var openAPIDocument []byte

// DocsRoutes serves the OpenAPI document and a Swagger UI pointing at it.
func DocsRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(openAPIDocument)
	})
	r.Get("/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/openapi.json"),
	))

	return r
}
