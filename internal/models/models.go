// Package models defines the records shared by the ledger, the service
// layer and the outer surfaces.
package models

import "time"

// Record states, in pipeline order. StateFailed is reachable from any state.
const (
	StateSelected      = "selected"
	StateExtracted     = "extracted"
	StateRendered      = "rendered"
	StateAssembled     = "assembled"
	StateLocalized     = "localized"
	StateWritten       = "written"
	StateStatusUpdated = "status_updated"
	StateFailed        = "failed"
)

// Pass statuses.
const (
	PassRunning   = "running"
	PassCompleted = "completed"
	PassAborted   = "aborted"
)

// Pass is one export run over a collection.
type Pass struct {
	ID         string     `json:"id"`
	Collection string     `json:"collection"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Selected   int        `json:"selected"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Error      string     `json:"error,omitempty"`

	Records []RecordOutcome `json:"records,omitempty"`
}

// RecordOutcome is what happened to one record during a pass. State is the
// last state reached; Error is set when State is StateFailed.
type RecordOutcome struct {
	PassID   string `json:"pass_id,omitempty"`
	RecordID string `json:"record_id"`
	Title    string `json:"title,omitempty"`
	Path     string `json:"path,omitempty"`
	State    string `json:"state"`
	// Stage is the stage that failed, empty on success.
	Stage           string         `json:"stage,omitempty"`
	Error           string         `json:"error,omitempty"`
	AssetsLocalized int            `json:"assets_localized"`
	AssetFailures   []AssetFailure `json:"asset_failures,omitempty"`
	RelationsFailed int            `json:"relations_failed"`
}

// Succeeded reports whether the record reached the end of the pipeline.
func (r RecordOutcome) Succeeded() bool {
	return r.State == StateStatusUpdated
}

// AssetFailure is an asset that kept its remote URL.
type AssetFailure struct {
	Kind  string `json:"kind"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

// OutputMetadata is the lightweight form returned by list operations.
type OutputMetadata struct {
	Path      string    `json:"path"`
	Title     string    `json:"title,omitempty"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
