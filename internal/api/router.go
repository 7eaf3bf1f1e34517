package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notionsite/internal/siteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// siteRoot is used to resolve the asset download directories.
func NewRouter(svc *siteservice.Service, authEnabled bool, token string, sseHandler http.Handler, siteRoot string) chi.Router {
	h := NewHandler(svc)
	ah := NewAssetHandler(AssetMounts(siteRoot, svc.CollectionConfigs()))

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/collections", h.ListCollections)

	// Passes.
	r.Get("/passes", h.ListPasses)
	r.Post("/passes", h.RunPass)
	r.Get("/passes/{id}", h.GetPass)

	// Generated files.
	r.Get("/outputs", h.ListOutputs)
	r.Get("/outputs/*", h.GetOutput)
	r.Get("/search", h.Search)

	// Assets.
	r.Get("/assets/remote", h.RemoteAssets)
	r.Get("/assets/users", h.AssetUsers)
	r.Get("/files/*", ah.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
