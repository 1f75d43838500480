// Package browser provisions headless Chrome sessions and adapts them to the
// poll and snapshot contracts.
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/driftbench/probeshot/internal/config"
)

// Session owns one browser target. Ctx carries the CDP connection and must be
// combined with an operational deadline for every action run against it.
type Session struct {
	ctx    context.Context
	logger *zap.Logger

	cancelTarget    context.CancelFunc
	cancelAllocator context.CancelFunc
}

// NewSession launches a browser per cfg and verifies it responds before
// returning. Close releases the target and the browser process.
func NewSession(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	allocCtx, cancelAllocator := chromedp.NewExecAllocator(ctx, buildAllocatorOptions(cfg)...)
	targetCtx, cancelTarget := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:             targetCtx,
		logger:          logger.Named("browser"),
		cancelTarget:    cancelTarget,
		cancelAllocator: cancelAllocator,
	}

	// Confirm the browser actually starts; chromedp launches lazily on the
	// first Run.
	if err := chromedp.Run(targetCtx, chromedp.Navigate("about:blank")); err != nil {
		s.Close()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	s.logger.Debug("Browser session started.")
	return s, nil
}

// Context returns the session context carrying the CDP target.
func (s *Session) Context() context.Context { return s.ctx }

// Navigate loads url and waits for the load event, bounded by ctx.
func (s *Session) Navigate(ctx context.Context, url string) error {
	opCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	if err := chromedp.Run(opCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Close tears down the target and the browser process.
func (s *Session) Close() {
	if s.cancelTarget != nil {
		s.cancelTarget()
	}
	if s.cancelAllocator != nil {
		s.cancelAllocator()
	}
	s.logger.Debug("Browser session closed.")
}

// buildAllocatorOptions assembles launch flags from configuration on top of
// chromedp's defaults.
func buildAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("ignore-certificate-errors", cfg.IgnoreTLSErrors),
		chromedp.Flag("disable-gpu", cfg.Headless),
	)

	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}

	// Custom arguments from configuration, "--name" or "--name=value".
	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	return opts
}
