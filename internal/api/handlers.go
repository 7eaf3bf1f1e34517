package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notionsite/internal/apperr"
	"github.com/starford/notionsite/internal/siteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *siteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *siteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// outputPath extracts the file path from the URL (everything after /api/outputs/).
// Supports encoded slashes from OpenAPI clients (e.g. src%2Fblog%2Fhello.md).
func outputPath(r *http.Request) string {
	raw := wildcardPath(r)
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeServiceError maps domain errors to status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrUnknownCollection):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrPassRunning):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListCollections handles GET /api/collections.
//
//	@Summary		List configured collections
//	@Tags			passes
//	@Produce		json
//	@Success		200	{object}	CollectionsResponse
//	@Security		BearerAuth
//	@Router			/collections [get]
func (h *Handler) ListCollections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CollectionsResponse{Collections: h.svc.Collections()})
}

// ListPasses handles GET /api/passes.
//
//	@Summary		List passes newest first
//	@Tags			passes
//	@Produce		json
//	@Param			collection	query		string	false	"Filter by collection"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	PassListResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/passes [get]
func (h *Handler) ListPasses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	passes, total, err := h.svc.ListPasses(r.Context(), q.Get("collection"), limit, offset)
	if err != nil {
		writeServiceError(w, "list passes", err)
		return
	}
	writeJSON(w, http.StatusOK, PassListResponse{Passes: passes, Total: total})
}

// RunPass handles POST /api/passes.
//
//	@Summary		Run an export pass over a collection
//	@Tags			passes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RunPassRequest	true	"Pass to run"
//	@Success		200		{object}	Pass
//	@Success		202		{object}	RunPassAccepted
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		502		{object}	PassFailedResponse
//	@Security		BearerAuth
//	@Router			/passes [post]
func (h *Handler) RunPass(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req RunPassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Collection == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("collection is required"))
		return
	}

	if !req.Wait {
		if err := h.svc.StartPass(r.Context(), req.Collection); err != nil {
			writeServiceError(w, "start pass", err)
			return
		}
		writeJSON(w, http.StatusAccepted, RunPassAccepted{Collection: req.Collection, Status: "started"})
		return
	}

	pass, err := h.svc.RunPass(r.Context(), req.Collection)
	if err != nil {
		if errors.Is(err, apperr.ErrSelection) {
			writeJSON(w, http.StatusBadGateway, PassFailedResponse{Error: err.Error(), Pass: pass})
			return
		}
		writeServiceError(w, "run pass", err)
		return
	}
	writeJSON(w, http.StatusOK, pass)
}

// GetPass handles GET /api/passes/{id}.
//
//	@Summary		Get a pass with its record outcomes
//	@Tags			passes
//	@Produce		json
//	@Param			id	path		string	true	"Pass ID"
//	@Success		200	{object}	Pass
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/passes/{id} [get]
func (h *Handler) GetPass(w http.ResponseWriter, r *http.Request) {
	pass, err := h.svc.GetPass(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "get pass", err)
		return
	}
	writeJSON(w, http.StatusOK, pass)
}

// ListOutputs handles GET /api/outputs.
//
//	@Summary		List generated files
//	@Tags			outputs
//	@Produce		json
//	@Param			collection	query		string	false	"Limit to a collection's markdown directory"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	OutputListResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/outputs [get]
func (h *Handler) ListOutputs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	rows, total, err := h.svc.ListOutputs(r.Context(), q.Get("collection"), limit, offset)
	if err != nil {
		writeServiceError(w, "list outputs", err)
		return
	}
	writeJSON(w, http.StatusOK, OutputListResponse{Outputs: rows, Total: total})
}

// GetOutput handles GET /api/outputs/*.
//
//	@Summary		Get a generated file by path
//	@Tags			outputs
//	@Produce		json
//	@Param			path	path		string	true	"File path relative to the site root"
//	@Success		200		{object}	OutputDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/outputs/{path} [get]
func (h *Handler) GetOutput(w http.ResponseWriter, r *http.Request) {
	path := outputPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	out, err := h.svc.GetOutput(r.Context(), path)
	if err != nil {
		writeServiceError(w, "get output", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across generated files
//	@Tags			outputs
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// RemoteAssets handles GET /api/assets/remote.
//
//	@Summary		List generated files that still link remote assets
//	@Tags			assets
//	@Produce		json
//	@Success		200	{object}	RemoteAssetsResponse
//	@Security		BearerAuth
//	@Router			/assets/remote [get]
func (h *Handler) RemoteAssets(w http.ResponseWriter, r *http.Request) {
	outputs, err := h.svc.RemoteAssets(r.Context())
	if err != nil {
		writeServiceError(w, "remote assets", err)
		return
	}
	if outputs == nil {
		outputs = map[string][]string{}
	}
	writeJSON(w, http.StatusOK, RemoteAssetsResponse{Outputs: outputs})
}

// AssetUsers handles GET /api/assets/users.
//
//	@Summary		List generated files that link an asset
//	@Tags			assets
//	@Produce		json
//	@Param			destination	query		string	true	"Link destination as written in the body"
//	@Success		200			{object}	AssetUsersResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/assets/users [get]
func (h *Handler) AssetUsers(w http.ResponseWriter, r *http.Request) {
	dest := r.URL.Query().Get("destination")
	if dest == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'destination' is required"))
		return
	}
	users, err := h.svc.AssetUsers(r.Context(), dest)
	if err != nil {
		writeServiceError(w, "asset users", err)
		return
	}
	writeJSON(w, http.StatusOK, AssetUsersResponse{Destination: dest, Outputs: users})
}
