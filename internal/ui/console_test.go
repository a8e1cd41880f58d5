package ui

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobaru/internal/apply"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type consoleHarness struct {
	t      *testing.T
	pw     *io.PipeWriter
	cc     *apply.ChannelConfirmer
	out    *syncBuffer
	cancel context.CancelFunc
	done   chan error
	quits  int
	mu     sync.Mutex
}

func startConsole(t *testing.T) *consoleHarness {
	t.Helper()
	pr, pw := io.Pipe()
	lr := NewLineReader(pr)
	ctx, cancel := context.WithCancel(context.Background())
	h := &consoleHarness{t: t, pw: pw, cc: apply.NewChannelConfirmer(), out: &syncBuffer{}, cancel: cancel, done: make(chan error, 1)}

	go func() {
		h.done <- NewConsole(lr, h.out, nil).Run(ctx, h.cc, func() {
			h.mu.Lock()
			h.quits++
			h.mu.Unlock()
		})
	}()
	t.Cleanup(func() {
		cancel()
		_ = pw.Close()
		lr.Close()
	})
	return h
}

func (h *consoleHarness) confirmAsync(ctx context.Context, p apply.Pause) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- h.cc.Confirm(ctx, p) }()
	return ch
}

func (h *consoleHarness) waitFor(text string, count int) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return strings.Count(h.out.String(), text) >= count
	}, 2*time.Second, 5*time.Millisecond, "waiting for %q", text)
}

func (h *consoleHarness) enter(line string) {
	h.t.Helper()
	_, err := h.pw.Write([]byte(line + "\n"))
	require.NoError(h.t, err)
}

func receive(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
		return nil
	}
}

func TestConsole_EnterResumesPause(t *testing.T) {
	h := startConsole(t)
	confirmed := h.confirmAsync(context.Background(), apply.Pause{Reason: apply.PauseCritical, Action: "Submit application"})

	h.waitFor("Press Enter", 1)
	assert.Contains(t, h.out.String(), "PAUSED #1: CRITICAL")
	assert.Contains(t, h.out.String(), "Submit application")

	h.enter("")
	require.NoError(t, receive(t, confirmed))

	h.cancel()
	require.NoError(t, receive(t, h.done))
}

func TestConsole_SequentialPauses(t *testing.T) {
	h := startConsole(t)

	first := h.confirmAsync(context.Background(), apply.Pause{Reason: apply.PauseUnanswered})
	h.waitFor("Press Enter", 1)
	h.enter("")
	require.NoError(t, receive(t, first))

	second := h.confirmAsync(context.Background(), apply.Pause{Reason: apply.PauseBetweenJobs})
	h.waitFor("Press Enter", 2)
	assert.Contains(t, h.out.String(), "PAUSED #2: BETWEEN_JOBS")
	h.enter("ok")
	require.NoError(t, receive(t, second))
}

func TestConsole_ResumedElsewhere(t *testing.T) {
	h := startConsole(t)
	confirmed := h.confirmAsync(context.Background(), apply.Pause{Reason: apply.PauseLogin})
	h.waitFor("Press Enter", 1)

	require.NoError(t, h.cc.Resume(1))
	require.NoError(t, receive(t, confirmed))

	h.enter("")
	h.waitFor("already resumed", 1)
}

func TestConsole_QuitCallsOnQuit(t *testing.T) {
	h := startConsole(t)
	ctx, cancel := context.WithCancel(context.Background())
	confirmed := h.confirmAsync(ctx, apply.Pause{Reason: apply.PauseStuck})
	h.waitFor("Press Enter", 1)

	h.enter("q")
	require.NoError(t, receive(t, h.done))
	h.mu.Lock()
	assert.Equal(t, 1, h.quits)
	h.mu.Unlock()

	_, pending := h.cc.Pending()
	assert.True(t, pending, "quitting does not resume")
	cancel()
	assert.ErrorIs(t, receive(t, confirmed), context.Canceled)
}

func TestConsole_InputClosedEndsRun(t *testing.T) {
	lr := NewLineReader(strings.NewReader("stray line\n"))
	defer lr.Close()

	err := NewConsole(lr, io.Discard, nil).Run(context.Background(), apply.NewChannelConfirmer(), nil)
	assert.NoError(t, err)
}

func TestLineReader_ReadLine(t *testing.T) {
	lr := NewLineReader(strings.NewReader("one\ntwo\n"))
	defer lr.Close()

	line, err := lr.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "one", line)
	line, err = lr.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "two", line)
	_, err = lr.ReadLine(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineReader_ReadLineCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	lr := NewLineReader(pr)
	defer func() {
		_ = pw.Close()
		lr.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := lr.ReadLine(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
