package navigator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/maksud51/linkharvest/harvester"
)

type handleResult int

const (
	handleUnresolved handleResult = iota
	handleSolved
	handleContinued
	handleBlocked
)

// solveStrategies is the ordered cascade; first success wins.
var solveStrategies = []struct {
	name string
	run  func(n *Navigator, ctx context.Context, ch *Challenge) bool
}{
	{"local", (*Navigator).solveLocal},
	{"relay", (*Navigator).solveRelay},
	{"manual", (*Navigator).solveManual},
}

// handleChallenge runs the solve cascade for one detected challenge. Each
// call consumes one attempt from the URL's budget; when the budget is spent
// the URL goes on the blocklist.
func (n *Navigator) handleChallenge(ctx context.Context, ch *Challenge) handleResult {
	if !n.tracker.BeginAttempt(ch.URL) {
		n.metrics.IncCaptcha("blocked")
		n.metrics.SetBlockedURLs(len(n.tracker.BlockedURLs()))
		n.logger.Error("captcha attempt budget spent, blocking url", "url", ch.URL)
		return handleBlocked
	}

	n.logger.Warn("captcha handling started",
		"url", ch.URL, "type", ch.Type, "attempt", n.tracker.Attempts(ch.URL))

	for _, st := range solveStrategies {
		n.logger.Info("captcha strategy", "name", st.name, "url", ch.URL)
		if st.run(n, ctx, ch) {
			n.tracker.MarkSolved(ch.URL)
			n.metrics.IncCaptcha("solved")
			n.logger.Info("captcha solved", "strategy", st.name, "url", ch.URL)
			return handleSolved
		}
		if ctx.Err() != nil {
			return handleUnresolved
		}
	}

	if n.tracker.FailAttempt(ch.URL) {
		n.metrics.IncCaptcha("blocked")
		n.metrics.SetBlockedURLs(len(n.tracker.BlockedURLs()))
		n.logger.Error("captcha attempt budget spent, blocking url", "url", ch.URL)
		return handleBlocked
	}

	if n.continueOnExhaustion {
		n.metrics.IncCaptcha("continued")
		n.logger.Warn("captcha unsolved, continuing anyway", "url", ch.URL)
		return handleContinued
	}
	return handleUnresolved
}

const executeTokenJS = `async () => {
	if (window.grecaptcha && window.grecaptcha.execute) {
		try {
			const token = await window.grecaptcha.execute();
			if (token && token.length > 100) return token;
		} catch (e) {}
	}
	const elem = document.querySelector('[name="g-recaptcha-response"]');
	if (elem && elem.value && elem.value.length > 100) return elem.value;
	return '';
}`

const tokenFieldJS = `() => {
	const elem = document.querySelector('[name="g-recaptcha-response"]');
	if (elem && elem.value && elem.value.length > 100) return elem.value;
	if (window.hcaptcha && window.hcaptcha.getResponse) {
		try {
			const r = window.hcaptcha.getResponse();
			if (r && r.length > 100) return r;
		} catch (e) {}
	}
	return '';
}`

const clickCheckboxJS = `() => {
	const targets = document.querySelectorAll(
		'#recaptcha-anchor, .recaptcha-checkbox, .h-captcha, div.g-recaptcha');
	let clicked = 0;
	for (const el of targets) {
		try { el.click(); clicked++; } catch (e) {}
	}
	return String(clicked);
}`

const submitFormJS = `() => {
	const form = document.querySelector('form');
	if (form) { form.submit(); return 'form'; }
	const btn = document.querySelector('button[type="submit"]');
	if (btn) { btn.click(); return 'button'; }
	return '';
}`

// solveLocal tries to make the vendor script produce a token without outside
// help: trigger execute, click the widget, then watch the hidden response
// field for a plausible token.
func (n *Navigator) solveLocal(ctx context.Context, ch *Challenge) bool {
	if token, err := n.page.EvalString(ctx, executeTokenJS); err == nil && token != "" {
		n.page.EvalString(ctx, submitFormJS)
		return true
	}

	n.page.EvalString(ctx, clickCheckboxJS)

	deadline := time.Now().Add(n.localSolveTime)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		token, err := n.page.EvalString(ctx, tokenFieldJS)
		if err == nil && token != "" {
			n.page.EvalString(ctx, submitFormJS)
			return true
		}
		if n.idle != nil {
			n.idle(ctx)
		}
		n.delay(ctx, time.Second, time.Second)
	}
	return false
}

// solveRelay hands the challenge to the human relay and injects the returned
// token. Needs a relay client and a real site key.
func (n *Navigator) solveRelay(ctx context.Context, ch *Challenge) bool {
	if n.relay == nil || ch.SiteKey == "" || ch.Type == harvester.TypeInternalChallenge {
		return false
	}

	id, err := n.relay.CreateChallenge(ctx, ch.SiteKey, ch.URL, ch.Type, n.relayAutoSolve)
	if err != nil {
		n.logger.Warn("relay create failed", "url", ch.URL, "error", err)
		return false
	}

	token, err := n.relay.GetSolution(ctx, id, n.relayTimeout, n.relayPollInterval)
	if err != nil || token == "" {
		return false
	}
	return n.injectToken(ctx, ch, token)
}

// injectToken writes the token into the vendor's response field, fires the
// registered callback, and submits the surrounding form.
func (n *Navigator) injectToken(ctx context.Context, ch *Challenge, token string) bool {
	quoted := strconv.Quote(token)

	var js string
	switch ch.Type {
	case harvester.TypeRecaptchaV2:
		js = fmt.Sprintf(`() => {
	const field = document.querySelector('[name="g-recaptcha-response"]');
	if (field) {
		field.value = %s;
		field.innerText = %s;
	}
	if (window.___grecaptcha_cfg && window.___grecaptcha_cfg.clients) {
		for (const key in window.___grecaptcha_cfg.clients) {
			try { window.___grecaptcha_cfg.clients[key].callback(%s); } catch (e) {}
		}
	}
	return field ? 'ok' : '';
}`, quoted, quoted, quoted)
	case harvester.TypeHCaptcha:
		js = fmt.Sprintf(`() => {
	const field = document.querySelector('[name="h-captcha-response"]');
	if (field) {
		field.value = %s;
		field.innerText = %s;
		return 'ok';
	}
	return '';
}`, quoted, quoted)
	default:
		return false
	}

	res, err := n.page.EvalString(ctx, js)
	if err != nil || res == "" {
		return false
	}
	n.page.EvalString(ctx, submitFormJS)
	n.delay(ctx, 2*time.Second, 3*time.Second)
	return true
}

const clickHumanButtonJS = `() => {
	const buttons = document.querySelectorAll('button');
	for (const btn of buttons) {
		const text = (btn.textContent || '').toLowerCase();
		if (text.includes('human') || text.includes('verify') || text.includes('challenge')) {
			try { btn.click(); return text.trim(); } catch (e) {}
		}
	}
	return '';
}`

// solveManual clicks any visible verify control, then waits for the challenge
// markers to clear or the page to move on. One reload as a last resort.
func (n *Navigator) solveManual(ctx context.Context, ch *Challenge) bool {
	if label, err := n.page.EvalString(ctx, clickHumanButtonJS); err == nil && label != "" {
		n.logger.Info("clicked verify control", "label", label)
		n.delay(ctx, 2*time.Second, 3*time.Second)
	}

	deadline := time.Now().Add(n.manualWaitTime)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		html, err := n.page.HTML(ctx)
		if err == nil && !hasCaptchaMarkers(html) {
			return true
		}
		if cur := n.page.CurrentURL(); cur != "" && cur != ch.URL {
			n.logger.Info("page moved on during challenge", "url", cur)
			return true
		}
		n.delay(ctx, time.Second, time.Second)
	}

	if err := n.page.Reload(ctx, 15*time.Second); err != nil {
		return false
	}
	n.delay(ctx, 2*time.Second, 3*time.Second)
	html, err := n.page.HTML(ctx)
	return err == nil && !hasCaptchaMarkers(html)
}
