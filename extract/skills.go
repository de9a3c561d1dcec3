package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/maksud51/linkharvest/navigator"
	"github.com/maksud51/linkharvest/profile"
)

const clickSkillsLinkJS = `() => {
	const href = %s;
	let btn = document.querySelector('a[href="' + href + '"]');
	if (!btn) btn = document.querySelector('a[data-field$="skill_associations"], a[data-field="position_contextual_skills_see_details"]');
	if (!btn && href) {
		const key = href.split('/').pop().split('?')[0];
		if (key) btn = document.querySelector('a[href*="' + key + '"]');
	}
	if (btn) {
		try { btn.scrollIntoView({block: 'center'}); btn.click(); return '1'; } catch (e) {}
	}
	return '';
}`

const scrollModalJS = `() => {
	const modal = document.querySelector('.artdeco-modal__content, .pvs-modal__content');
	if (modal) modal.scrollTop = modal.scrollHeight;
	const container = document.querySelector('.scaffold-finite-scroll__content, .pvs-list__container');
	if (container) container.scrollTop = container.scrollHeight;
	window.scrollTo(0, document.body.scrollHeight);
	return '';
}`

const modalSkillsJS = `() => {
	const skills = [];
	const skip = ['learn more', 'skills', 'discover', 'endorsed', 'endorsement',
		'see all', 'show all', 'people', 'connection', 'message', 'follow'];
	const keep = (text) => text.length > 0 && text.length <= 60 &&
		!skip.some(s => text.toLowerCase().includes(s));

	for (const el of document.querySelectorAll(
		'.artdeco-modal [data-view-name="profile-component-entity"] .t-bold span[aria-hidden="true"], ' +
		'.pvs-modal [data-view-name="profile-component-entity"] .t-bold span[aria-hidden="true"]')) {
		const text = el.textContent.trim();
		if (keep(text)) skills.push(text);
	}

	if (skills.length === 0) {
		for (const item of document.querySelectorAll('.artdeco-modal li, .pvs-modal li, main li')) {
			const entity = item.querySelector('[data-view-name="profile-component-entity"]');
			if (!entity) continue;
			const titleEl = entity.querySelector('.t-bold span[aria-hidden="true"]');
			if (!titleEl) continue;
			const text = titleEl.textContent.trim();
			if (keep(text)) skills.push(text);
		}
	}

	if (skills.length === 0) {
		const m = (document.body.textContent || '').match(/Skills?:\s*([^\n]+)/i);
		if (m) {
			for (const part of m[1].split(/[·,]/)) {
				const text = part.trim();
				if (keep(text)) skills.push(text);
			}
		}
	}
	return JSON.stringify([...new Set(skills)]);
}`

const closeModalJS = `() => {
	const btn = document.querySelector(
		'.artdeco-modal__dismiss, button[aria-label*="Close"], button[aria-label*="Dismiss"]');
	if (btn) { try { btn.click(); return '1'; } catch (e) {} }
	return '';
}`

// skillsFromModal clicks an entry's skills-disclosure control, drains the
// resulting modal, and dismisses it. Falls back to visiting the disclosure
// URL directly when clicking goes nowhere.
func (e *Extractor) skillsFromModal(ctx context.Context, href string) []string {
	js := fmt.Sprintf(clickSkillsLinkJS, jsQuote(href))
	clicked, err := e.page.EvalString(ctx, js)
	if err == nil && clicked == "1" {
		e.delay(ctx, time.Second, 2*time.Second)
		skills := e.drainSkillsModal(ctx)
		e.dismissModal(ctx)
		if len(skills) > 0 {
			return skills
		}
	}

	if href == "" {
		return nil
	}
	original := e.page.CurrentURL()
	target := absolutize(href, original)
	if err := e.page.Goto(ctx, target, navigator.WaitDOMReady, 20*time.Second); err != nil {
		return nil
	}
	e.delay(ctx, time.Second, 2*time.Second)
	skills := e.drainSkillsModal(ctx)
	if original != "" {
		e.page.Goto(ctx, original, navigator.WaitDOMReady, 15*time.Second)
	}
	return skills
}

func (e *Extractor) drainSkillsModal(ctx context.Context) []string {
	for i := 0; i < 5; i++ {
		e.page.EvalString(ctx, scrollModalJS)
		e.delay(ctx, 200*time.Millisecond, 500*time.Millisecond)
	}

	payload, err := e.page.EvalString(ctx, modalSkillsJS)
	if err != nil || payload == "" {
		return nil
	}
	var skills []string
	if err := json.Unmarshal([]byte(payload), &skills); err != nil {
		return nil
	}
	return profile.DedupeStrings(skills)
}

// dismissModal closes the open overlay: Escape first, close button second.
func (e *Extractor) dismissModal(ctx context.Context) {
	if err := e.page.PressEscape(ctx); err == nil {
		e.delay(ctx, 300*time.Millisecond, 600*time.Millisecond)
		return
	}
	e.page.EvalString(ctx, closeModalJS)
	e.delay(ctx, 300*time.Millisecond, 600*time.Millisecond)
}
