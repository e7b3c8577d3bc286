package anonymizer

// ProgressReporter receives per-type progress from the engine.
type ProgressReporter interface {
	Start(model string, total int64)
	Advance(model string, n int)
	Done(model string, err error)
}

// NopProgress discards progress.
type NopProgress struct{}

func (NopProgress) Start(string, int64) {}
func (NopProgress) Advance(string, int) {}
func (NopProgress) Done(string, error)  {}
