package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/jobaru/internal/config"
	"github.com/jonathan/jobaru/internal/llm"
)

// harness isolates one command test: in-memory files, a private
// environment and no real generation client or browser.
type harness struct {
	fs  afero.Fs
	env map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{fs: afero.NewMemMapFs(), env: map[string]string{}}

	origFs, origGetenv, origClient, origBrowser := appFs, getenv, newLLMClient, newBrowser
	appFs = h.fs
	getenv = func(key string) string { return h.env[key] }
	newLLMClient = func(context.Context, config.Config, *zap.Logger) llm.Client { return nil }
	newBrowser = func(context.Context, config.Config, *zap.Logger) (applyBrowser, func(), error) {
		t.Fatal("test started a browser without stubbing newBrowser")
		return nil, nil, nil
	}
	t.Cleanup(func() {
		appFs, getenv, newLLMClient, newBrowser = origFs, origGetenv, origClient, origBrowser
		resetFlags(rootCmd)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	resetFlags(rootCmd)
	return h
}

// run executes the root command with args and returns what it printed.
func (h *harness) run(stdin io.Reader, args ...string) (string, error) {
	out := &syncBuffer{}
	err := h.execute(stdin, out, args...)
	return out.String(), err
}

func (h *harness) execute(stdin io.Reader, out io.Writer, args ...string) error {
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	return rootCmd.ExecuteContext(context.Background())
}

func (h *harness) writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(h.fs, path, []byte(content), 0o644))
}

func (h *harness) writeConfig(t *testing.T, cfg config.Config) {
	t.Helper()
	require.NoError(t, cfg.Save(h.fs, config.DefaultPath))
}

// resetFlags clears values left behind by a previous Execute.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// syncBuffer is a bytes.Buffer safe for the console goroutine and the test.
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

// fakeLLM answers each prompt kind with a canned JSON document.
type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
}

func (f *fakeLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier)
}

func (f *fakeLLM) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	switch {
	case strings.Contains(prompt, "career coach"):
		return `{"match_score": 72, "matched_skills": ["Go"], "missing_skills": ["Kubernetes"], "analysis": "Solid backend fit."}`, nil
	case strings.Contains(prompt, "copywriter"):
		return "```json\n{\"cover_letter\": \"Dear Hiring Manager, I build Go services.\", \"intro_email\": \"Subject: Go Developer\"}\n```", nil
	case strings.Contains(prompt, "career consultant"):
		return `{"roles": ["Go Developer", "Backend Engineer", "Platform Engineer"]}`, nil
	}
	return "{}", nil
}

func (f *fakeLLM) GetModel(llm.ModelTier) string { return "fake" }
func (f *fakeLLM) Close() error                  { return nil }
