package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/maksud51/linkharvest/humanize"
	"github.com/maksud51/linkharvest/metrics"
	"github.com/maksud51/linkharvest/navigator"
	"github.com/maksud51/linkharvest/profile"
)

// Page is the browser surface extraction drives: everything the navigator
// needs plus modal dismissal.
type Page interface {
	navigator.Page
	PressEscape(ctx context.Context) error
}

// Extractor harvests profile sections from a loaded page. Sections are
// processed strictly sequentially; modal state on the page is shared and
// concurrent disclosure would corrupt it.
type Extractor struct {
	page    Page
	logger  *slog.Logger
	metrics *metrics.Metrics

	maxScrollIterations int
	maxExpandPasses     int

	delay func(ctx context.Context, min, max time.Duration)
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithMetrics wires section-entry counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

// WithScrollCap bounds the lazy-load scroll loop.
func WithScrollCap(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxScrollIterations = n
		}
	}
}

// New creates an Extractor around page.
func New(page Page, opts ...Option) *Extractor {
	e := &Extractor{
		page:                page,
		logger:              slog.Default(),
		maxScrollIterations: 25,
		maxExpandPasses:     5,
		delay:               humanize.Pause,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Experiences extracts the full employment history, following the "show all"
// detail view when one exists and resolving per-entry skills. It never fails
// hard; whatever parsed before an error is returned.
func (e *Extractor) Experiences(ctx context.Context, profileURL string) []profile.Experience {
	original := e.currentOr(profileURL)
	e.openDetailView(ctx, profileURL, "experience")
	e.scrollToEnd(ctx)
	e.expandAll(ctx)

	raws := e.collectEntries(ctx, "experience")
	var out []profile.Experience
	for _, raw := range raws {
		exp, ok := buildExperience(raw)
		if !ok {
			continue
		}
		if len(exp.Skills) == 0 && raw.SkillsHref != "" {
			exp.Skills = e.skillsFromModal(ctx, raw.SkillsHref)
			e.delay(ctx, 300*time.Millisecond, 700*time.Millisecond)
		}
		out = append(out, exp)
	}
	out = profile.DedupeExperience(out)

	e.restore(ctx, original)
	e.metrics.AddEntries("experience", len(out))
	e.logger.Info("experience extraction done", "entries", len(out))
	return out
}

// Educations extracts the education history, mirroring Experiences.
func (e *Extractor) Educations(ctx context.Context, profileURL string) []profile.Education {
	original := e.currentOr(profileURL)
	e.openDetailView(ctx, profileURL, "education")
	e.scrollToEnd(ctx)
	e.expandAll(ctx)

	raws := e.collectEntries(ctx, "education")
	var out []profile.Education
	for _, raw := range raws {
		edu, ok := buildEducation(raw)
		if !ok {
			continue
		}
		if len(edu.Skills) == 0 && raw.SkillsHref != "" {
			edu.Skills = e.skillsFromModal(ctx, raw.SkillsHref)
			e.delay(ctx, 300*time.Millisecond, 700*time.Millisecond)
		}
		out = append(out, edu)
	}
	out = profile.DedupeEducation(out)

	e.restore(ctx, original)
	e.metrics.AddEntries("education", len(out))
	e.logger.Info("education extraction done", "entries", len(out))
	return out
}

func (e *Extractor) currentOr(fallback string) string {
	if cur := e.page.CurrentURL(); cur != "" {
		return cur
	}
	return fallback
}

func (e *Extractor) restore(ctx context.Context, original string) {
	if original == "" || e.page.CurrentURL() == original {
		return
	}
	if err := e.page.Goto(ctx, original, navigator.WaitDOMReady, 15*time.Second); err != nil {
		e.logger.Debug("could not navigate back", "url", original, "error", err)
	}
}

const findDetailLinkJS = `() => {
	const wanted = '/details/' + %q;
	for (const el of document.querySelectorAll('a, button, [role="button"], [role="link"]')) {
		const href = el.getAttribute('href') || '';
		if (href.includes(wanted)) return href;
		const text = ((el.textContent || '') + ' ' + (el.getAttribute('aria-label') || '')).toLowerCase();
		if ((text.includes('show all') || text.includes('see all')) && text.includes(%q)) {
			const parent = el.closest('a[href*="' + wanted + '"]');
			if (parent) return parent.getAttribute('href');
		}
	}
	return '';
}`

var profileSlugRE = regexp.MustCompile(`/in/([^/?#]+)`)

// openDetailView moves the page to the section's "show all" detail view.
// Falls back to a URL constructed from the profile slug; if both fail the
// page stays where it is and the truncated inline list gets extracted.
func (e *Extractor) openDetailView(ctx context.Context, profileURL, section string) {
	cur := e.page.CurrentURL()
	if strings.Contains(cur, "/details/"+section) {
		return
	}

	js := strings.ReplaceAll(findDetailLinkJS, "%q", jsQuote(section))
	if link, err := e.page.EvalString(ctx, js); err == nil && link != "" {
		target := absolutize(link, profileURL)
		if err := e.page.Goto(ctx, target, navigator.WaitDOMReady, 30*time.Second); err == nil {
			e.delay(ctx, time.Second, 2*time.Second)
			e.logger.Debug("opened detail view", "section", section, "url", target)
			return
		}
	}

	m := profileSlugRE.FindStringSubmatch(profileURL)
	if m == nil {
		return
	}
	base, err := url.Parse(profileURL)
	if err != nil {
		return
	}
	direct := base.Scheme + "://" + base.Host + "/in/" + m[1] + "/details/" + section + "/"
	if err := e.page.Goto(ctx, direct, navigator.WaitDOMReady, 30*time.Second); err == nil {
		e.delay(ctx, time.Second, 2*time.Second)
		e.logger.Debug("opened detail view directly", "section", section, "url", direct)
	}
}

func absolutize(href, pageURL string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

const measureHeightJS = `() => String(Math.max(
	document.body.scrollHeight,
	document.documentElement.scrollHeight))`

const scrollAllJS = `() => {
	window.scrollTo(0, document.body.scrollHeight);
	const containers = document.querySelectorAll(
		'.scaffold-finite-scroll__content, .pvs-list__container, ' +
		'.artdeco-modal__content, .pvs-modal__content, main, ' +
		'[class*="scroll"], [class*="list"]');
	containers.forEach(c => { try { c.scrollTop = c.scrollHeight; } catch (e) {} });
	return '';
}`

const clickLoadMoreJS = `() => {
	const btn = document.querySelector(
		'button.scaffold-finite-scroll__load-button, ' +
		'button[aria-label*="Show more"], button[aria-label*="Load more"]');
	if (btn && btn.offsetParent !== null) {
		try { btn.click(); return '1'; } catch (e) {}
	}
	return '0';
}`

// scrollToEnd scrolls the page and every nested container until the measured
// document height stops growing, clicking load-more controls along the way.
// The iteration cap guards against sticky footers that keep the height alive.
func (e *Extractor) scrollToEnd(ctx context.Context) {
	last := ""
	for i := 0; i < e.maxScrollIterations; i++ {
		if ctx.Err() != nil {
			return
		}
		height, err := e.page.EvalString(ctx, measureHeightJS)
		if err != nil {
			return
		}
		e.page.EvalString(ctx, scrollAllJS)
		e.delay(ctx, 500*time.Millisecond, time.Second)

		if clicked, err := e.page.EvalString(ctx, clickLoadMoreJS); err == nil && clicked == "1" {
			e.delay(ctx, time.Second, 2*time.Second)
			continue
		}
		if height == last {
			e.logger.Debug("scroll settled", "iterations", i+1)
			return
		}
		last = height
	}
}

const clickSeeMoreJS = `() => {
	let clicked = 0;
	const selectors = [
		'.inline-show-more-text__button',
		'[class*="show-more"] button',
		'[class*="see-more"] button',
		'button[class*="show-more"]',
		'button[class*="see-more"]',
	];
	for (const sel of selectors) {
		for (const btn of document.querySelectorAll(sel)) {
			try { if (btn.offsetParent !== null) { btn.click(); clicked++; } } catch (e) {}
		}
	}
	for (const btn of document.querySelectorAll('button, [role="button"], a')) {
		const text = (btn.textContent || '').toLowerCase().trim();
		if ((text === 'see more' || text === 'show more' ||
			text === '…see more' || text === '...see more' ||
			text.includes('…see more')) && btn.offsetParent !== null) {
			try { btn.click(); clicked++; } catch (e) {}
		}
	}
	for (const btn of document.querySelectorAll('button[aria-expanded="false"]')) {
		const text = (btn.textContent || '').toLowerCase();
		if (text.includes('more') || text.includes('expand') || text.includes('show')) {
			try { if (btn.offsetParent !== null) { btn.click(); clicked++; } } catch (e) {}
		}
	}
	return String(clicked);
}`

// expandAll clicks every truncation control until a pass clicks nothing.
func (e *Extractor) expandAll(ctx context.Context) {
	for i := 0; i < e.maxExpandPasses; i++ {
		if ctx.Err() != nil {
			return
		}
		clicked, err := e.page.EvalString(ctx, clickSeeMoreJS)
		if err != nil || clicked == "" || clicked == "0" {
			return
		}
		e.logger.Debug("expanded truncated text", "clicked", clicked, "pass", i+1)
		e.delay(ctx, 500*time.Millisecond, time.Second)
	}
}

func (e *Extractor) collectEntries(ctx context.Context, section string) []rawEntry {
	payload, err := e.page.EvalString(ctx, entriesScript(section))
	if err != nil || payload == "" {
		e.logger.Debug("entry collection failed", "section", section, "error", err)
		return nil
	}
	var raws []rawEntry
	if err := json.Unmarshal([]byte(payload), &raws); err != nil {
		e.logger.Debug("entry payload malformed", "section", section, "error", err)
		return nil
	}
	return raws
}

func jsQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
