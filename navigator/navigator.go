package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maksud51/linkharvest/harvester"
	"github.com/maksud51/linkharvest/humanize"
	"github.com/maksud51/linkharvest/metrics"
)

// blockSignals are phrases the target renders when it has decided the client
// is a bot. Their presence triggers one remediation pass before giving up.
var blockSignals = []string{
	"access denied",
	"unusual traffic",
	"verify you are human",
	"we suspect unusual activity",
}

// Navigator owns navigation retries and CAPTCHA handling for one page.
type Navigator struct {
	page    Page
	tracker *Tracker
	relay   *harvester.Client
	logger  *slog.Logger
	metrics *metrics.Metrics

	localSolveTime       time.Duration
	manualWaitTime       time.Duration
	relayTimeout         time.Duration
	relayPollInterval    time.Duration
	relayAutoSolve       bool
	continueOnExhaustion bool
	screenshotDir        string

	delay func(ctx context.Context, min, max time.Duration)
	// idle runs between solve polls to keep the session looking attended.
	idle func(ctx context.Context)
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithRelay wires the CAPTCHA relay client into the solve cascade.
func WithRelay(c *harvester.Client, timeout, pollInterval time.Duration, autoSolve bool) Option {
	return func(n *Navigator) {
		n.relay = c
		if timeout > 0 {
			n.relayTimeout = timeout
		}
		if pollInterval > 0 {
			n.relayPollInterval = pollInterval
		}
		n.relayAutoSolve = autoSolve
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Navigator) { n.logger = l }
}

// WithMetrics wires navigation and CAPTCHA counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Navigator) { n.metrics = m }
}

// WithLocalSolveTime bounds the in-page solver's polling window.
func WithLocalSolveTime(d time.Duration) Option {
	return func(n *Navigator) {
		if d > 0 {
			n.localSolveTime = d
		}
	}
}

// WithContinueOnExhaustion controls the policy after all solve strategies
// fail: continue the navigation anyway, or treat it as a failure. The target
// does not always enforce its challenges, so continuing is the default.
func WithContinueOnExhaustion(v bool) Option {
	return func(n *Navigator) { n.continueOnExhaustion = v }
}

// WithIdleMotion runs fn between solve polls, for attended-session cues such
// as small mouse movements.
func WithIdleMotion(fn func(ctx context.Context)) Option {
	return func(n *Navigator) { n.idle = fn }
}

// WithScreenshotDir enables diagnostic screenshots on unexpected failures.
func WithScreenshotDir(dir string) Option {
	return func(n *Navigator) { n.screenshotDir = dir }
}

// New creates a Navigator around page, tracking CAPTCHA state in tracker.
func New(page Page, tracker *Tracker, opts ...Option) *Navigator {
	n := &Navigator{
		page:                 page,
		tracker:              tracker,
		logger:               slog.Default(),
		localSolveTime:       20 * time.Second,
		manualWaitTime:       20 * time.Second,
		relayTimeout:         120 * time.Second,
		relayPollInterval:    2 * time.Second,
		continueOnExhaustion: true,
		delay:                humanize.Pause,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Tracker exposes the CAPTCHA state for session reporting.
func (n *Navigator) Tracker() *Tracker { return n.tracker }

// Navigate loads url, handling CAPTCHAs, block pages, and timeouts. Every
// failure path resolves to false; it never returns an error or panics.
func (n *Navigator) Navigate(ctx context.Context, url string, wait WaitStrategy, timeout time.Duration, maxRetries int) bool {
	if n.tracker.IsBlocked(url) {
		n.logger.Warn("skipping blocked url", "url", url)
		n.metrics.IncNavigation("blocked")
		return false
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}

	n.delay(ctx, 500*time.Millisecond, 2*time.Second)

	current := timeout
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return false
		}

		n.logger.Debug("navigating",
			"url", url, "attempt", attempt, "max", maxRetries, "timeout", current)

		start := time.Now()
		err := n.page.Goto(ctx, url, wait, current)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				n.logger.Warn("navigation timeout", "url", url, "attempt", attempt)
				n.metrics.IncNavigation("timeout")
				current = time.Duration(float64(current)*1.8) + humanize.Jitter(2*time.Second, 5*time.Second)
				n.delay(ctx, time.Second, 3*time.Second)
				continue
			}
			n.logger.Error("navigation failed", "url", url, "error", err)
			n.metrics.IncNavigation("error")
			n.captureScreenshot(ctx, url)
			return false
		}

		n.delay(ctx, 200*time.Millisecond, 800*time.Millisecond)

		ch, derr := n.detect(ctx, url)
		if derr != nil {
			n.logger.Debug("captcha detection error", "url", url, "error", derr)
		}
		if ch != nil {
			switch n.handleChallenge(ctx, ch) {
			case handleBlocked, handleUnresolved:
				n.metrics.IncNavigation("captcha_failed")
				return false
			case handleSolved, handleContinued:
				n.delay(ctx, time.Second, time.Second)
			}
		}

		html, err := n.page.HTML(ctx)
		if err != nil {
			html = ""
		}
		if hasBlockSignal(html) {
			n.logger.Warn("block signal in page content", "url", url)
			if !n.remediate(ctx) {
				n.metrics.IncNavigation("block_signal")
				return false
			}
		}

		n.metrics.IncNavigation("success")
		n.metrics.ObserveNavigation(time.Since(start))
		n.logger.Info("navigated", "url", url, "attempt", attempt)
		return true
	}

	n.logger.Error("navigation exhausted retries", "url", url, "retries", maxRetries)
	n.metrics.IncNavigation("exhausted")
	return false
}

// remediate waits out a soft block and reloads once, reporting whether the
// block signal cleared.
func (n *Navigator) remediate(ctx context.Context) bool {
	n.logger.Info("attempting block remediation")
	n.delay(ctx, 3*time.Second, 6*time.Second)
	if err := n.page.Reload(ctx, 12*time.Second); err != nil {
		return false
	}
	n.delay(ctx, 2*time.Second, 4*time.Second)

	html, err := n.page.HTML(ctx)
	if err != nil {
		return false
	}
	if hasBlockSignal(html) {
		return false
	}
	n.logger.Info("remediation cleared the block signal")
	return true
}

func hasBlockSignal(html string) bool {
	lower := strings.ToLower(html)
	for _, sig := range blockSignals {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// captureScreenshot saves a diagnostic screenshot, best effort.
func (n *Navigator) captureScreenshot(ctx context.Context, url string) {
	if n.screenshotDir == "" {
		return
	}
	data, err := n.page.Screenshot(ctx)
	if err != nil {
		return
	}
	if err := os.MkdirAll(n.screenshotDir, 0o755); err != nil {
		return
	}
	name := fmt.Sprintf("nav_error_%d.png", time.Now().UnixMilli())
	path := filepath.Join(n.screenshotDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return
	}
	n.logger.Info("saved diagnostic screenshot", "path", path, "url", url)
}
