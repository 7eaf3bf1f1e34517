package pipeline

import "github.com/starford/notionsite/internal/models"

// Event types.
const (
	EventPassStarted    = "pass.started"
	EventRecordFinished = "record.finished"
	EventPassFinished   = "pass.finished"
)

// Event is a progress notification. Pass is a copy without its record list;
// Record is set for EventRecordFinished.
type Event struct {
	Type   string
	Pass   models.Pass
	Record *models.RecordOutcome
}

// Observer receives events synchronously on the pass goroutine.
type Observer func(Event)

func (p *Pipeline) emit(e Event) {
	if p.deps.Observer != nil {
		p.deps.Observer(e)
	}
}

func snapshot(pass *models.Pass) models.Pass {
	s := *pass
	s.Records = nil
	return s
}
