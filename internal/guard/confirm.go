package guard

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gookit/color"
	"golang.org/x/term"
)

// TerminalConfirmer prompts on a terminal and reads a yes/no answer.
// Anything other than y or yes declines. When input is not a terminal it
// declines without reading.
type TerminalConfirmer struct {
	In         io.Reader
	Out        io.Writer
	IsTerminal func() bool

	once  sync.Once
	lines chan string
}

// NewTerminalConfirmer prompts on stdin/stderr.
func NewTerminalConfirmer() *TerminalConfirmer {
	return &TerminalConfirmer{
		In:  os.Stdin,
		Out: os.Stderr,
		IsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// Confirm implements Confirmer.
func (c *TerminalConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	banner := color.New(color.FgWhite, color.BgRed, color.OpBold).Sprint(" RESTRICTED ENVIRONMENT ")
	fmt.Fprintln(c.Out, banner)

	if c.IsTerminal != nil && !c.IsTerminal() {
		fmt.Fprintln(c.Out, color.Yellow.Sprint("Input is not a terminal; refusing without --force."))
		return false, nil
	}

	fmt.Fprintf(c.Out, "%s? [y/N]: ", prompt)

	select {
	case <-ctx.Done():
		fmt.Fprintln(c.Out)
		return false, ctx.Err()
	case line := <-c.readLines():
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

// readLines starts the confirmer's single reader goroutine. A line read
// after a cancelled Confirm is handed to the next call. The goroutine exits
// when In reaches EOF or fails, closing the channel.
func (c *TerminalConfirmer) readLines() <-chan string {
	c.once.Do(func() {
		c.lines = make(chan string, 1)
		go func() {
			defer close(c.lines)
			r := bufio.NewReader(c.In)
			for {
				line, err := r.ReadString('\n')
				if line != "" {
					c.lines <- line
				}
				if err != nil {
					return
				}
			}
		}()
	})
	return c.lines
}
