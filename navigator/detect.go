package navigator

import (
	"context"
	"strings"

	"github.com/maksud51/linkharvest/harvester"
)

// Challenge describes a detected CAPTCHA ready for the solve cascade.
type Challenge struct {
	URL     string
	Type    string
	SiteKey string
}

// contentIndicators are keywords that suggest a challenge page. A keyword
// match alone is not enough; pages merely mentioning captchas would trip it.
var contentIndicators = []string{
	"recaptcha",
	"hcaptcha",
	"captcha",
	"challenge-form",
	"verify-you-are-human",
}

// structuralSelectors confirm a keyword match with an actual widget in the DOM.
var structuralSelectors = []string{
	`iframe[src*="recaptcha"]`,
	`iframe[src*="hcaptcha"]`,
	`div.g-recaptcha`,
	`[data-captcha]`,
	`div.h-captcha`,
}

// hasCaptchaMarkers reports whether html still carries challenge vocabulary.
// Used by the solve cascade to decide a challenge has cleared.
func hasCaptchaMarkers(html string) bool {
	lower := strings.ToLower(html)
	return strings.Contains(lower, "h-captcha") ||
		strings.Contains(lower, "g-recaptcha") ||
		strings.Contains(lower, "hcaptcha")
}

const siteKeyRecaptchaJS = `() => {
	const iframe = document.querySelector('iframe[src*="recaptcha"]');
	if (iframe) {
		const match = iframe.src.match(/k=([^&]+)/);
		if (match) return match[1];
	}
	const container = document.querySelector('div.g-recaptcha[data-sitekey], [data-sitekey]');
	if (container && document.querySelector('div.g-recaptcha, iframe[src*="recaptcha"]')) {
		return container.dataset.sitekey || '';
	}
	return '';
}`

const siteKeyHCaptchaJS = `() => {
	const container = document.querySelector('[data-sitekey]');
	if (container) return container.dataset.sitekey || '';
	return '';
}`

// detect checks the loaded page for a CAPTCHA. It returns nil when the page
// is clean. Keyword and structural evidence must both be present.
func (n *Navigator) detect(ctx context.Context, url string) (*Challenge, error) {
	html, err := n.page.HTML(ctx)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(html)
	keyword := false
	for _, ind := range contentIndicators {
		if strings.Contains(lower, ind) {
			keyword = true
			break
		}
	}
	if !keyword {
		n.tracker.MarkAbsent(url)
		return nil, nil
	}

	structural := false
	for _, sel := range structuralSelectors {
		has, err := n.page.Has(ctx, sel)
		if err != nil {
			continue
		}
		if has {
			structural = true
			break
		}
	}
	if !structural {
		return nil, nil
	}

	count := n.tracker.RecordDetection(url)
	n.metrics.IncCaptcha("detected")
	n.logger.Warn("captcha detected", "url", url, "occurrence", count)

	ch := &Challenge{URL: url, Type: harvester.TypeInternalChallenge}
	if key, err := n.page.EvalString(ctx, siteKeyRecaptchaJS); err == nil && key != "" {
		ch.Type = harvester.TypeRecaptchaV2
		ch.SiteKey = key
		return ch, nil
	}
	if key, err := n.page.EvalString(ctx, siteKeyHCaptchaJS); err == nil && key != "" {
		ch.Type = harvester.TypeHCaptcha
		ch.SiteKey = key
	}
	return ch, nil
}
