// Package metrics records export pass counters and durations.
package metrics

import "time"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Recorder receives pass observations. Implementations must tolerate being
// called with a nil receiver when used through NoopRecorder.
type Recorder interface {
	ObservePassDuration(collection string, d time.Duration)
	IncPassOutcome(collection, outcome string)
	IncRecordOutcome(collection, outcome string)
	// IncRecordFailure counts failed records by the stage they failed in.
	IncRecordFailure(collection, stage string)
	IncAssetResult(kind, outcome string)
	IncRelationFailure(collection string)
}

// NoopRecorder discards every observation.
type NoopRecorder struct{}

func (NoopRecorder) ObservePassDuration(string, time.Duration) {}
func (NoopRecorder) IncPassOutcome(string, string)             {}
func (NoopRecorder) IncRecordOutcome(string, string)           {}
func (NoopRecorder) IncRecordFailure(string, string)           {}
func (NoopRecorder) IncAssetResult(string, string)             {}
func (NoopRecorder) IncRelationFailure(string)                 {}
