package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/driftbench/probeshot/internal/config"
)

// ScreenshotSource adapts a Session to the snapshot.Source contract. One
// source captures either the visible viewport or the full document,
// depending on configuration.
type ScreenshotSource struct {
	session  *Session
	fullPage bool
	quality  int
	format   page.CaptureScreenshotFormat
}

// NewScreenshotSource builds a capture source over an existing session. The
// image format follows the configured artifact extension so the bytes match
// the filename the sequence assigns.
func NewScreenshotSource(session *Session, cfg config.CaptureConfig) *ScreenshotSource {
	quality := cfg.Quality
	if quality <= 0 {
		quality = 90
	}

	format := page.CaptureScreenshotFormatPng
	switch strings.TrimPrefix(strings.ToLower(cfg.Extension), ".") {
	case "jpg", "jpeg":
		format = page.CaptureScreenshotFormatJpeg
	case "webp":
		format = page.CaptureScreenshotFormatWebp
	}

	return &ScreenshotSource{
		session:  session,
		fullPage: cfg.FullPage,
		quality:  quality,
		format:   format,
	}
}

// Snapshot captures the current page as image bytes. The session context
// supplies the CDP target; ctx bounds the capture itself.
func (s *ScreenshotSource) Snapshot(ctx context.Context) ([]byte, error) {
	opCtx, cancel := CombineContext(s.session.Context(), ctx)
	defer cancel()

	var buf []byte
	var action chromedp.Action
	if s.fullPage {
		// FullScreenshot picks png at quality 100 and jpeg below; clamp so a
		// jpeg request never silently flips format.
		quality := 100
		if s.format != page.CaptureScreenshotFormatPng {
			quality = s.quality
			if quality >= 100 {
				quality = 99
			}
		}
		action = chromedp.FullScreenshot(&buf, quality)
	} else {
		action = chromedp.ActionFunc(func(ctx context.Context) error {
			capture := page.CaptureScreenshot().WithFormat(s.format)
			if s.format == page.CaptureScreenshotFormatJpeg || s.format == page.CaptureScreenshotFormatWebp {
				capture = capture.WithQuality(int64(s.quality))
			}
			var err error
			buf, err = capture.Do(ctx)
			return err
		})
	}

	if err := chromedp.Run(opCtx, action); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}
