package orchestrator

import (
	"time"

	"github.com/entrhq/wayfind/pkg/fsm"
)

// Summary is the final report of a run: terminal (or failed) state plus the
// complete, ordered execution history. The history is never trimmed to
// "retry cleanly" — failed attempts stay in it.
type Summary struct {
	RunID   string
	Request string
	State   fsm.State

	PlannedSteps     int
	History          []fsm.HistoryEntry
	SelfHealAttempts int

	// FailureReason is empty for completed runs. For cancelled and failed
	// runs it names the cause (rejection, planning failure, exhausted
	// budget).
	FailureReason string

	Elapsed time.Duration
}

// Succeeded reports whether the run reached COMPLETED.
func (s *Summary) Succeeded() bool {
	return s.State == fsm.StateCompleted
}

// ExecutedSteps returns the number of history entries.
func (s *Summary) ExecutedSteps() int {
	return len(s.History)
}

// SuccessRate returns the fraction of executed steps that succeeded, in
// [0, 1]. Returns 0 for an empty history.
func (s *Summary) SuccessRate() float64 {
	if len(s.History) == 0 {
		return 0
	}
	var ok int
	for _, entry := range s.History {
		if entry.Result.OK() {
			ok++
		}
	}
	return float64(ok) / float64(len(s.History))
}

func (o *Orchestrator) summarize(ectx *fsm.Context, started time.Time, reason string) *Summary {
	return &Summary{
		RunID:            ectx.ID(),
		Request:          ectx.Request(),
		State:            ectx.State(),
		PlannedSteps:     ectx.Plan().Len(),
		History:          ectx.History(),
		SelfHealAttempts: ectx.SelfHealAttempts(),
		FailureReason:    reason,
		Elapsed:          time.Since(started),
	}
}
