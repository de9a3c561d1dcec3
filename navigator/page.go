// Package navigator drives a browser page through adversarial territory:
// retrying navigation with growing timeouts, spotting CAPTCHA interstitials
// and block pages, and running a layered cascade of solve strategies before
// giving a URL up as blocked.
package navigator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// WaitStrategy selects the readiness signal a navigation waits for.
type WaitStrategy string

const (
	// WaitDOMReady returns once the document load event fires.
	WaitDOMReady WaitStrategy = "dom-ready"
	// WaitNetworkIdle additionally waits for network requests to settle.
	WaitNetworkIdle WaitStrategy = "network-idle"
)

// Page is the browser surface the navigator needs. The production
// implementation wraps a rod page; tests substitute a scripted fake.
type Page interface {
	// Goto loads url and waits for the given readiness signal.
	Goto(ctx context.Context, url string, wait WaitStrategy, timeout time.Duration) error
	// Reload refreshes the current document.
	Reload(ctx context.Context, timeout time.Duration) error
	// CurrentURL reports the page's present location.
	CurrentURL() string
	// HTML returns the rendered document markup.
	HTML(ctx context.Context) (string, error)
	// EvalString runs a JS function in the page and returns its string result.
	EvalString(ctx context.Context, js string) (string, error)
	// Has reports whether the selector matches anything.
	Has(ctx context.Context, selector string) (bool, error)
	// Screenshot captures the viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
}

// RodPage adapts a rod page to the Page interface.
type RodPage struct {
	page *rod.Page
}

// NewRodPage wraps an attached rod page.
func NewRodPage(p *rod.Page) *RodPage {
	return &RodPage{page: p}
}

func (r *RodPage) Goto(ctx context.Context, url string, wait WaitStrategy, timeout time.Duration) error {
	p := r.page.Context(ctx).Timeout(timeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigator: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("navigator: wait load %s: %w", url, err)
	}
	if wait == WaitNetworkIdle {
		idle := p.WaitRequestIdle(800*time.Millisecond, nil, nil,
			[]proto.NetworkResourceType{
				proto.NetworkResourceTypeImage,
				proto.NetworkResourceTypeMedia,
			})
		idle()
	}
	return nil
}

func (r *RodPage) Reload(ctx context.Context, timeout time.Duration) error {
	p := r.page.Context(ctx).Timeout(timeout)
	if err := p.Reload(); err != nil {
		return fmt.Errorf("navigator: reload: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("navigator: wait load after reload: %w", err)
	}
	return nil
}

func (r *RodPage) CurrentURL() string {
	info, err := r.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (r *RodPage) HTML(ctx context.Context) (string, error) {
	html, err := r.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("navigator: page html: %w", err)
	}
	return html, nil
}

func (r *RodPage) EvalString(ctx context.Context, js string) (string, error) {
	res, err := r.page.Context(ctx).Eval(js)
	if err != nil {
		return "", fmt.Errorf("navigator: eval: %w", err)
	}
	return res.Value.Str(), nil
}

func (r *RodPage) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := r.page.Context(ctx).Has(selector)
	if err != nil {
		return false, fmt.Errorf("navigator: query %s: %w", selector, err)
	}
	return has, nil
}

// PressEscape sends an Escape keystroke, used to dismiss modals.
func (r *RodPage) PressEscape(ctx context.Context) error {
	if err := r.page.Context(ctx).Keyboard.Press(input.Escape); err != nil {
		return fmt.Errorf("navigator: press escape: %w", err)
	}
	return nil
}

func (r *RodPage) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := r.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return nil, fmt.Errorf("navigator: screenshot: %w", err)
	}
	return data, nil
}
