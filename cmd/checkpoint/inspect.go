package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"checkpoint/internal/browser"
	"checkpoint/internal/clock"
	"checkpoint/internal/diagnostics"
	"checkpoint/internal/engine"
	"checkpoint/internal/fingerprint"
	"checkpoint/internal/types"
)

type inspectOptions struct {
	url           string
	headless      bool
	activateAfter time.Duration
}

func newInspectCmd(a *app) *cobra.Command {
	var opts inspectOptions
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Run a verification session against a local Chrome and print what it sees",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := inspect(cmd.Context(), a, opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "", "page to open before sampling (default about:blank)")
	cmd.Flags().BoolVar(&opts.headless, "headless", true, "run Chrome headless")
	cmd.Flags().DurationVar(&opts.activateAfter, "activate-after", 0, "activate the checkbox after this delay and wait for the decision")
	return cmd
}

type inspectReport struct {
	Session     string            `json:"session"`
	Fingerprint types.Fingerprint `json:"fingerprint"`
	Valid       bool              `json:"valid"`
	State       string            `json:"state"`
	Score       *int              `json:"score,omitempty"`
}

// logNotifier stands in for the checkbox UI.
type logNotifier struct{ logger *zap.Logger }

func (n logNotifier) Checking()       { n.logger.Info("checking") }
func (n logNotifier) Verified()       { n.logger.Info("verified") }
func (n logNotifier) Failed()         { n.logger.Info("failed") }
func (n logNotifier) Restart()        { n.logger.Info("restart requested") }
func (n logNotifier) RevealFollowUp() { n.logger.Info("follow-up revealed") }

func inspect(ctx context.Context, a *app, opts inspectOptions) (*inspectReport, error) {
	logger := a.logger.Named("inspect")
	b, err := browser.Launch(ctx, browser.Options{Headless: opts.headless, URL: opts.url}, logger)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	id := uuid.NewString()
	page := engine.New(id, fingerprint.NewCollector(b, logger), b, logNotifier{logger: logger.Named("ui")}, engine.Options{
		Config: a.cfg.Scoring,
		Clock:  clock.Real(),
		Logger: logger,
		Hooks: []engine.Hook{
			diagnostics.Automation(b, logger),
			diagnostics.VM(logger),
		},
	})
	defer page.Close()

	decided := make(chan types.Outcome, 1)
	page.OnDecision(func(out types.Outcome) { decided <- out })
	page.Start(ctx)

	fp, valid := page.Fingerprint()
	report := &inspectReport{Session: id, Fingerprint: fp, Valid: valid}

	if opts.activateAfter > 0 {
		select {
		case <-time.After(opts.activateAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		page.Activate()

		wait := a.cfg.Scoring.SettleMax + time.Second
		select {
		case out := <-decided:
			report.Score = &out.Score
		case <-time.After(wait):
			return nil, fmt.Errorf("no decision within %s", wait)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	report.State = page.State().String()
	return report, nil
}
