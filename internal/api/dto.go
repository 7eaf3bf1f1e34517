package api

import (
	"github.com/starford/notionsite/internal/ledger"
	"github.com/starford/notionsite/internal/models"
	"github.com/starford/notionsite/internal/siteservice"
)

// CollectionsResponse lists the configured post types.
type CollectionsResponse struct {
	Collections []string `json:"collections" example:"blog,docs" validate:"required"`
}

// RunPassRequest is the request body for starting a pass.
type RunPassRequest struct {
	Collection string `json:"collection" example:"blog" validate:"required"`
	// Wait blocks the request until the pass has finished.
	Wait bool `json:"wait" example:"true"`
}

// RunPassAccepted is returned when a pass was started in the background.
type RunPassAccepted struct {
	Collection string `json:"collection" example:"blog" validate:"required"`
	Status     string `json:"status" example:"started" validate:"required"`
}

// Pass is a pass with its record outcomes (aliased from the domain layer).
type Pass = models.Pass

// PassListResponse wraps paginated pass listings.
type PassListResponse struct {
	Passes []models.Pass `json:"passes" validate:"required"`
	Total  int           `json:"total" example:"12" validate:"required"`
}

// PassFailedResponse is returned when selection aborted a pass.
type PassFailedResponse struct {
	Error string       `json:"error" example:"selection failed" validate:"required"`
	Pass  *models.Pass `json:"pass,omitempty"`
}

// OutputDetail is the full generated-file response (aliased from the domain layer).
type OutputDetail = siteservice.OutputDetail

// OutputListResponse wraps paginated output listings.
type OutputListResponse struct {
	Outputs []ledger.OutputRow `json:"outputs" validate:"required"`
	Total   int                `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []ledger.SearchResult `json:"results" validate:"required"`
}

// RemoteAssetsResponse maps generated files to the remote URLs they still link.
type RemoteAssetsResponse struct {
	Outputs map[string][]string `json:"outputs" validate:"required"`
}

// AssetUsersResponse lists the generated files linking an asset.
type AssetUsersResponse struct {
	Destination string   `json:"destination" example:"/assets/img/hello-world_0.png" validate:"required"`
	Outputs     []string `json:"outputs" validate:"required"`
}
