// Package apperr defines the error taxonomy shared by the export pipeline and
// its outer surfaces.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrSelection aborts a whole pass: the content store could not be queried.
	ErrSelection = errors.New("selection failed")
	// ErrRecordInvalid rejects one record, e.g. one without a title.
	ErrRecordInvalid = errors.New("record invalid")
	ErrRender        = errors.New("render failed")
	// ErrAssetFetch is scoped to one asset; the remote URL stays in the body.
	ErrAssetFetch = errors.New("asset fetch failed")
	// ErrRelationResolve is scoped to one relation entry.
	ErrRelationResolve = errors.New("relation resolve failed")
	ErrWrite           = errors.New("write failed")
	ErrStatusUpdate    = errors.New("status update failed")

	ErrNotFound          = errors.New("not found")
	ErrPassRunning       = errors.New("a pass is already running")
	ErrUnknownCollection = errors.New("unknown collection")
)

// StageError records the pipeline stage at which a record failed.
type StageError struct {
	RecordID string
	Stage    string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("record %s: %s: %v", e.RecordID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
