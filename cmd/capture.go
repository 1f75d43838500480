package cmd

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/driftbench/probeshot/internal/browser"
	"github.com/driftbench/probeshot/internal/observability"
	"github.com/driftbench/probeshot/internal/poll"
	"github.com/driftbench/probeshot/internal/snapshot"
)

// newCaptureCmd creates and configures the `capture` command.
func newCaptureCmd() *cobra.Command {
	var (
		targetURL string
		labels    []string
		outDir    string
		selector  string
	)

	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "Wait for a page to become ready, then capture numbered screenshots",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Flags override config file and environment values.
			if err := viper.BindPFlag("poll.interval", cmd.Flags().Lookup("interval")); err != nil {
				return err
			}
			if err := viper.BindPFlag("poll.timeout", cmd.Flags().Lookup("timeout")); err != nil {
				return err
			}
			if err := viper.BindPFlag("capture.full_page", cmd.Flags().Lookup("full-page")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg := appConfig
			if err := viper.Unmarshal(cfg); err != nil {
				return fmt.Errorf("failed to apply flag overrides: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			runID := strings.Split(uuid.New().String(), "-")[0]
			log := logger.With(zap.String("run_id", runID), zap.String("url", targetURL))

			if outDir == "" {
				outDir = filepath.Join(cfg.Capture.OutputDir, "run-"+runID)
			}

			seq, err := snapshot.NewSequence(outDir,
				snapshot.WithExtension(cfg.Capture.Extension),
				snapshot.WithLogger(log),
			)
			if err != nil {
				return err
			}
			log.Info("Capture run starting.", zap.String("artifact_dir", seq.Dir()), zap.Strings("labels", labels))

			// 1. Wait for the target to answer HTTP at all before paying the
			// cost of a browser launch.
			pollOpts := poll.Options{Interval: cfg.Poll.Interval, Timeout: cfg.Poll.Timeout}
			if err := poll.Until(ctx, browser.HTTPReady(http.DefaultClient, targetURL), pollOpts); err != nil {
				return fmt.Errorf("target never became reachable: %w", err)
			}
			log.Debug("Target reachable over HTTP.")

			// 2. Launch the browser and navigate.
			session, err := browser.NewSession(ctx, cfg.Browser, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			navCtx, cancelNav := context.WithTimeout(ctx, cfg.Browser.NavigationTimeout)
			defer cancelNav()
			if err := session.Navigate(navCtx, targetURL); err != nil {
				return err
			}

			// 3. Wait for page readiness: a caller-supplied selector when
			// given, document.readyState otherwise.
			readiness := browser.DocumentReady(session)
			if selector != "" {
				readiness = browser.ElementVisible(session, selector)
			}
			src := browser.NewScreenshotSource(session, cfg.Capture)
			if err := poll.Until(ctx, readiness, pollOpts); err != nil {
				// Diagnostic capture of whatever the page looks like; its own
				// failure must not mask the timeout.
				seq.BestEffort(ctx, src, "readiness-timeout")
				return fmt.Errorf("page never became ready: %w", err)
			}

			// 4. One artifact per label, in order.
			for _, label := range labels {
				path, err := seq.Capture(ctx, src, label)
				if err != nil {
					return fmt.Errorf("capture %q: %w", label, err)
				}
				log.Info("Artifact written.", zap.String("path", path))
			}

			log.Info("Capture run complete.", zap.Uint64("artifacts", seq.Count()))
			return nil
		},
	}

	captureCmd.Flags().StringVar(&targetURL, "url", "", "URL to capture (required)")
	captureCmd.Flags().StringSliceVar(&labels, "label", []string{"page"}, "artifact label, repeatable; one screenshot per label")
	captureCmd.Flags().StringVar(&outDir, "out", "", "artifact directory (default: <capture.output_dir>/run-<id>)")
	captureCmd.Flags().StringVar(&selector, "selector", "", "CSS selector that must be visible before capturing")
	captureCmd.Flags().Duration("interval", 0, "polling interval between readiness probes")
	captureCmd.Flags().Duration("timeout", 0, "total readiness budget")
	captureCmd.Flags().Bool("full-page", false, "capture the full document instead of the viewport")
	captureCmd.Flags().Bool("headless", true, "run the browser headless")
	_ = captureCmd.MarkFlagRequired("url")

	return captureCmd
}
