// Package ui is the terminal side of a run: it shows pauses, reads the
// operator's answers and runs the setup wizard.
package ui

import (
	"bufio"
	"context"
	"io"
	"sync"
)

// LineReader delivers input lines over a channel so a blocked read can be
// abandoned when a context ends. One LineReader should own a given input.
type LineReader struct {
	lines chan string
	done  chan struct{}
	once  sync.Once
}

// NewLineReader starts reading r line by line.
func NewLineReader(r io.Reader) *LineReader {
	lr := &LineReader{lines: make(chan string), done: make(chan struct{})}
	go lr.run(r)
	return lr
}

func (lr *LineReader) run(r io.Reader) {
	defer close(lr.lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case lr.lines <- scanner.Text():
		case <-lr.done:
			return
		}
	}
}

// Lines returns the channel of input lines. It is closed at end of input.
func (lr *LineReader) Lines() <-chan string {
	return lr.lines
}

// ReadLine waits for the next line. It returns io.EOF at end of input.
func (lr *LineReader) ReadLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-lr.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops delivering lines. A read already blocked on the underlying
// reader finishes when that reader returns.
func (lr *LineReader) Close() {
	lr.once.Do(func() { close(lr.done) })
}
