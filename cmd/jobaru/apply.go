package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/jobaru/internal/apply"
	"github.com/jonathan/jobaru/internal/artifacts"
	"github.com/jonathan/jobaru/internal/browser"
	"github.com/jonathan/jobaru/internal/config"
	"github.com/jonathan/jobaru/internal/ledger"
	"github.com/jonathan/jobaru/internal/listing"
	"github.com/jonathan/jobaru/internal/llm"
	"github.com/jonathan/jobaru/internal/materials"
	"github.com/jonathan/jobaru/internal/observability"
	"github.com/jonathan/jobaru/internal/server"
	"github.com/jonathan/jobaru/internal/session"
	"github.com/jonathan/jobaru/internal/ui"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Search for jobs and walk their Easy Apply forms",
	Long: `Open a browser, wait for you to log in if needed, search for the configured
role and location, then attempt every posting not yet in the ledger.

The run pauses before every submit, on validation errors and on questions it
cannot answer. Press Enter in the terminal to continue, or resume the pause
from the control API when JOBARU_CONTROL_SECRET is set.`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("role", "r", "", "Target job role")
	applyCmd.Flags().StringP("location", "l", "", "Target location")
	applyCmd.Flags().String("resume", "", "Resume file to upload")
	applyCmd.Flags().String("model", "", "Generation model for cover letters")
	applyCmd.Flags().Bool("headless", false, "Run the browser without a window")
	applyCmd.Flags().Int("max-steps", 0, "Step budget per application")
	applyCmd.Flags().Int("max-new-jobs", 0, "Stop after this many new postings")
	applyCmd.Flags().Bool("pause-between-jobs", false, "Ask before moving to the next posting")
	applyCmd.Flags().String("ledger", "", "Processed jobs file")
	applyCmd.Flags().String("debug-dir", "", "Directory for failure screenshots and markup")
	applyCmd.Flags().String("db-url", "", "Postgres URL for the ledger and attempt history")
	applyCmd.Flags().String("control-addr", "", "Listen address of the control API")

	rootCmd.AddCommand(applyCmd)
}

// applyDeps is everything one apply run talks to. Tests replace the
// browser with a fake.
type applyDeps struct {
	out       io.Writer
	in        *ui.LineReader
	cfg       config.Config
	browser   applyBrowser
	ledger    *ledger.Ledger
	recorder  session.Recorder
	client    llm.Client
	jwtConfig *config.JWTConfig
	logger    *zap.Logger
}

// applyBrowser is the browser surface the run needs: searching, the form
// flow and failure captures.
type applyBrowser interface {
	listing.Browser
	apply.Page
	artifacts.Page
}

// newBrowser is swapped in tests.
var newBrowser = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (applyBrowser, func(), error) {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Headless
	sess, err := browser.NewSession(ctx, opts, logger)
	if err != nil {
		return nil, nil, err
	}
	return sess, sess.Close, nil
}

func runApply(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := observability.GetLogger()
	out := cmd.OutOrStdout()

	file, cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	in := ui.NewLineReader(cmd.InOrStdin())
	defer in.Close()

	client := newLLMClient(ctx, cfg, logger)
	if client != nil {
		defer client.Close() //nolint:errcheck
	}

	if len(cfg.Missing()) > 0 || cfg.ResumeText == "" {
		if _, err := completeSetup(ctx, in, out, file, &cfg, client); err != nil {
			return err
		}
	}
	profile := cfg.Profile()
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("invalid applicant profile: %w", err)
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()
	l := ledger.New(st.ledger, logger)
	l.Load(ctx)

	var jwtConfig *config.JWTConfig
	if getenv(config.EnvControlSecret) != "" {
		if jwtConfig, err = config.NewJWTConfig(getenv); err != nil {
			return err
		}
	}

	b, closeBrowser, err := newBrowser(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer closeBrowser()

	summary, err := runSession(ctx, applyDeps{
		out:       out,
		in:        in,
		cfg:       cfg,
		browser:   b,
		ledger:    l,
		recorder:  st.recorder,
		client:    client,
		jwtConfig: jwtConfig,
		logger:    logger,
	})
	observability.NewPrinter(out).PrintSummary(summary)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(out, "Run stopped; the job in progress stays unprocessed.") //nolint:errcheck
		return nil
	}
	return err
}

// runSession serves pauses on the terminal (and the control API when
// configured) while the search and the applications run.
func runSession(ctx context.Context, d applyDeps) (session.Summary, error) {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	confirmer := apply.NewChannelConfirmer()
	hub := server.NewEventHub()

	var srv *server.Server
	if d.jwtConfig != nil {
		var err error
		srv, err = server.New(server.Config{Addr: d.cfg.ControlAddr, JWT: d.jwtConfig}, confirmer, hub, d.logger.Named("server"))
		if err != nil {
			return session.Summary{}, err
		}
		token, err := srv.Token(uuid.NewString())
		if err != nil {
			return session.Summary{}, err
		}
		fmt.Fprintf(d.out, "Control API on http://%s\nBearer token: %s\n", d.cfg.ControlAddr, token) //nolint:errcheck
	}

	g, gctx := errgroup.WithContext(runCtx)

	console := ui.NewConsole(d.in, d.out, d.logger)
	g.Go(func() error {
		return console.Run(gctx, confirmer, cancelRun)
	})
	if srv != nil {
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	var summary session.Summary
	g.Go(func() error {
		defer cancelRun()
		var err error
		summary, err = applyToListings(gctx, d, confirmer, hub)
		return err
	})

	err := g.Wait()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return summary, err
}

// applyToListings logs in, searches and hands the fresh postings to the
// orchestrator.
func applyToListings(ctx context.Context, d applyDeps, confirmer apply.Confirmer, hub *server.EventHub) (session.Summary, error) {
	searcher := listing.NewSearcher(d.browser, confirmer, listing.DefaultSearchOptions(), d.logger)
	if err := searcher.EnsureLoggedIn(ctx); err != nil {
		return session.Summary{}, err
	}
	found, err := searcher.Search(ctx, d.cfg.JobRole, d.cfg.Location)
	if err != nil {
		return session.Summary{}, err
	}
	fresh := listing.Fresh(found, d.ledger.Contains, d.cfg.MaxNewJobs)
	d.logger.Info("Search finished", zap.Int("found", len(found)), zap.Int("new", len(fresh)))
	observability.NewPrinter(d.out).PrintPostings(found, d.ledger.Contains)
	if len(fresh) == 0 {
		fmt.Fprintln(d.out, "Nothing new to apply to.") //nolint:errcheck
	}

	opts := apply.DefaultOptions()
	opts.MaxSteps = d.cfg.MaxSteps
	profile := d.cfg.Profile()
	if d.client != nil && profile.CoverLetter == "" {
		opts.CoverLetters = materials.NewCoverLetterWriter(d.client, d.logger)
	}
	capturer := artifacts.New(appFs, d.browser, d.cfg.DebugDir, d.logger)
	advancer := apply.NewAdvancer(d.browser, confirmer, capturer, opts, d.logger)

	orchestrator := session.New(d.ledger, advancer, session.Options{
		Profile:          profile,
		MaxNewJobs:       d.cfg.MaxNewJobs,
		PauseBetweenJobs: d.cfg.PauseBetweenJobs,
		Confirmer:        confirmer,
		Recorder:         d.recorder,
		OnEvent:          hub.Publish,
	}, d.logger)

	// The orchestrator re-checks the ledger and counts what it skips.
	return orchestrator.Run(ctx, found)
}
