package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/jobaru/internal/apply"
	"github.com/jonathan/jobaru/internal/observability"
)

// Console shows each pause of a ChannelConfirmer on the terminal and
// resumes it when the operator presses Enter. Pauses can also be resumed
// elsewhere (the control server); the console then drops its prompt.
type Console struct {
	in      *LineReader
	out     io.Writer
	printer *observability.Printer
	logger  *zap.Logger
}

// NewConsole creates a Console reading from in and writing to out.
func NewConsole(in *LineReader, out io.Writer, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{in: in, out: out, printer: observability.NewPrinter(out), logger: logger}
}

// Run serves pauses until ctx ends or input closes. Typing "q" calls onQuit.
func (c *Console) Run(ctx context.Context, cc *apply.ChannelConfirmer, onQuit func()) error {
	pauses, unsubscribe := cc.Subscribe()
	defer unsubscribe()

	var current *apply.Pause
	show := func(p apply.Pause) {
		if current != nil && current.Seq == p.Seq {
			return
		}
		current = &p
		c.printer.PrintPause(p)
		fmt.Fprint(c.out, "Press Enter to continue (q to quit): ") //nolint:errcheck
	}
	if p, ok := cc.Pending(); ok {
		show(p)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-pauses:
			if !ok {
				return nil
			}
			show(p)
		case line, ok := <-c.in.Lines():
			if !ok {
				c.logger.Debug("console input closed")
				return nil
			}
			if current == nil {
				continue
			}
			if answer := strings.ToLower(strings.TrimSpace(line)); answer == "q" || answer == "quit" {
				fmt.Fprintln(c.out, "Stopping after the current step.") //nolint:errcheck
				if onQuit != nil {
					onQuit()
				}
				return nil
			}
			err := cc.Resume(current.Seq)
			switch {
			case errors.Is(err, apply.ErrStalePause), errors.Is(err, apply.ErrNoPendingPause):
				fmt.Fprintln(c.out, "That pause was already resumed.") //nolint:errcheck
			case err != nil:
				return err
			}
			current = nil
		}
	}
}
