package credits

import "time"

// Phase identifies the part of a run a batch belongs to.
type Phase string

const (
	PhaseGrant Phase = "grant"
	PhaseQuota Phase = "quota"
)

// Observer receives run and batch events. Implementations must be safe for
// concurrent use because manual and scheduled runs may overlap.
type Observer interface {
	// BatchProcessed is called once per batch. created is the number of rows
	// the batch inserted; err is nil on success.
	BatchProcessed(phase Phase, created int, err error)
	// RunFinished is called once per run, including failed runs.
	RunFinished(res Result, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) BatchProcessed(Phase, int, error) {}
func (noopObserver) RunFinished(Result, time.Duration) {}
