package progress

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/gookit/color"
	"github.com/stretchr/testify/assert"

	"github.com/dbsmedya/goanonymize/internal/anonymizer"
)

var _ anonymizer.ProgressReporter = (*Bars)(nil)

func TestBars_Disabled(t *testing.T) {
	prev := color.Enable
	color.Enable = false
	defer func() { color.Enable = prev }()

	var buf bytes.Buffer
	b := New(&buf, true)

	b.Start("User", 12345)
	b.Advance("User", 100)
	b.Done("User", nil)
	b.Start("Order", 3)
	b.Done("Order", errors.New("deadlock"))
	b.Wait()

	out := buf.String()
	assert.Contains(t, out, "Model User: anonymizing 12,345 records")
	assert.Contains(t, out, "Model User: completed")
	assert.Contains(t, out, "Model Order: failed: deadlock")
}

func TestBars_Enabled(t *testing.T) {
	b := New(io.Discard, false)

	b.Start("User", 10)
	b.Advance("User", 4)
	b.Advance("User", 6)
	b.Done("User", nil)

	b.Start("Order", 10)
	b.Advance("Order", 2)
	b.Done("Order", errors.New("boom"))

	b.Start("Address", 5)

	b.Advance("Unknown", 1)
	b.Done("Unknown", nil)

	b.Wait()
	assert.Empty(t, b.bars)
}
