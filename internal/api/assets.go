package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notionsite/internal/assets"
	"github.com/starford/notionsite/internal/pipeline"
)

// AssetMount maps a markdown link prefix to a download directory.
type AssetMount struct {
	Prefix string
	Dir    string
}

// AssetMounts derives the link prefix → directory table of every asset kind
// of every collection. Longer prefixes come first.
func AssetMounts(root string, collections []pipeline.Collection) []AssetMount {
	seen := make(map[string]bool)
	var out []AssetMount
	for _, c := range collections {
		for _, k := range assets.Kinds {
			kc := c.Assets.For(k)
			if kc.MarkdownPath == "" || kc.DownloadDir == "" {
				continue
			}
			prefix := strings.Trim(path.Clean("/"+kc.MarkdownPath), "/")
			if prefix == "" || seen[prefix] {
				continue
			}
			seen[prefix] = true
			out = append(out, AssetMount{Prefix: prefix, Dir: filepath.Join(root, filepath.FromSlash(kc.DownloadDir))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i].Prefix) > len(out[j].Prefix) })
	return out
}

// AssetHandler serves localized asset files by their markdown link path.
type AssetHandler struct {
	mounts []AssetMount
}

// NewAssetHandler creates a handler over mounts.
func NewAssetHandler(mounts []AssetMount) *AssetHandler {
	return &AssetHandler{mounts: mounts}
}

// resolve maps a link path to a file inside one of the mounted directories.
func (h *AssetHandler) resolve(link string) (string, bool) {
	cleaned := strings.TrimPrefix(path.Clean("/"+link), "/")
	for _, m := range h.mounts {
		if !strings.HasPrefix(cleaned, m.Prefix+"/") {
			continue
		}
		rel := strings.TrimPrefix(cleaned, m.Prefix+"/")
		abs := filepath.Join(m.Dir, filepath.FromSlash(rel))
		if !strings.HasPrefix(abs, filepath.Clean(m.Dir)+string(os.PathSeparator)) {
			return "", false
		}
		return abs, true
	}
	return "", false
}

// ServeFile handles GET /api/files/*.
//
//	@Summary		Serve a localized asset by its markdown link path
//	@Tags			assets
//	@Param			path	path	string	true	"Link path, e.g. assets/img/hello-world_0.png"
//	@Success		200
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{path} [get]
func (h *AssetHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, ok := h.resolve(wildcardPath(r))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	http.ServeFile(w, r, abs)
}

func wildcardPath(r *http.Request) string {
	return strings.TrimPrefix(chi.URLParam(r, "*"), "/")
}
