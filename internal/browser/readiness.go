package browser

import (
	"context"
	"fmt"
	"net/http"

	"github.com/chromedp/chromedp"

	"github.com/driftbench/probeshot/internal/poll"
)

// HTTPReady returns a probe that succeeds once a GET against url is answered
// with a non-5xx status. A nil client falls back to http.DefaultClient.
func HTTPReady(client *http.Client, url string) poll.Probe {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build readiness request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%s not ready: status %d", url, resp.StatusCode)
		}
		return nil
	}
}

// ElementVisible returns a probe that succeeds once the first element
// matching selector exists and has a visible box. The check is a single CDP
// evaluation per attempt; it never blocks waiting inside the browser, so the
// polling loop keeps control of the cadence.
func ElementVisible(session *Session, selector string) poll.Probe {
	const expr = `(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		return rect.width > 0 && rect.height > 0 && style.visibility !== 'hidden' && style.display !== 'none';
	})()`

	return func(ctx context.Context) error {
		opCtx, cancel := CombineContext(session.Context(), ctx)
		defer cancel()

		var visible bool
		if err := chromedp.Run(opCtx, chromedp.Evaluate(fmt.Sprintf(expr, selector), &visible)); err != nil {
			return fmt.Errorf("evaluate visibility of %q: %w", selector, err)
		}
		if !visible {
			return fmt.Errorf("element %q not visible yet", selector)
		}
		return nil
	}
}

// DocumentReady returns a probe that succeeds once document.readyState is
// "complete".
func DocumentReady(session *Session) poll.Probe {
	return func(ctx context.Context) error {
		opCtx, cancel := CombineContext(session.Context(), ctx)
		defer cancel()

		var state string
		if err := chromedp.Run(opCtx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
			return fmt.Errorf("evaluate readyState: %w", err)
		}
		if state != "complete" {
			return fmt.Errorf("document not ready: %s", state)
		}
		return nil
	}
}
