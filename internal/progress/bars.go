// Package progress renders per-model progress bars for anonymization runs.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gookit/color"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Bars reports progress with one mpb bar per model. When disabled it
// prints a line when each model starts and finishes instead.
type Bars struct {
	mu       sync.Mutex
	out      io.Writer
	disabled bool
	progress *mpb.Progress
	bars     map[string]*mpb.Bar
}

// New creates a reporter writing to out.
func New(out io.Writer, disabled bool) *Bars {
	b := &Bars{
		out:      out,
		disabled: disabled,
		bars:     make(map[string]*mpb.Bar),
	}
	if !disabled {
		b.progress = mpb.New(mpb.WithOutput(out), mpb.WithWidth(40))
	}
	return b
}

// Start adds a bar for model.
func (b *Bars) Start(model string, total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.disabled {
		fmt.Fprintf(b.out, "Model %s: anonymizing %s records\n", model, humanize.Comma(total))
		return
	}

	b.bars[model] = b.progress.AddBar(total,
		mpb.BarFillerClearOnComplete(),
		mpb.PrependDecorators(
			decor.Name(model, decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.OnComplete(
				decor.NewPercentage("%.2f", decor.WCSyncSpaceR), "completed",
			),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO), "",
			),
		),
	)
}

// Advance moves model's bar forward by n records.
func (b *Bars) Advance(model string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if bar, ok := b.bars[model]; ok {
		bar.IncrBy(n)
	}
}

// Done completes model's bar, or aborts it when err is set.
func (b *Bars) Done(model string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.disabled {
		if err != nil {
			fmt.Fprintln(b.out, color.Red.Sprintf("Model %s: failed: %v", model, err))
			return
		}
		fmt.Fprintln(b.out, color.Green.Sprintf("Model %s: completed", model))
		return
	}

	bar, ok := b.bars[model]
	if !ok {
		return
	}
	if err != nil {
		bar.Abort(false)
	} else {
		bar.SetTotal(-1, true)
	}
	delete(b.bars, model)
}

// Wait flushes the bars. Bars still open are aborted first.
func (b *Bars) Wait() {
	b.mu.Lock()
	for name, bar := range b.bars {
		bar.Abort(false)
		delete(b.bars, name)
	}
	b.mu.Unlock()

	if b.progress != nil {
		b.progress.Wait()
	}
}
