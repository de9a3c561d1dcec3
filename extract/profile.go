package extract

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/maksud51/linkharvest/profile"
)

const topCardJS = `() => {
	const card = {name: '', headline: '', location: '', about: ''};
	const pick = (sels) => {
		for (const sel of sels) {
			const el = document.querySelector(sel);
			if (el) {
				const text = el.textContent.trim();
				if (text) return text;
			}
		}
		return '';
	};
	card.name = pick(['main h1', '.pv-text-details__left-panel h1', 'h1']);
	card.headline = pick(['.text-body-medium.break-words', '[data-generated-suggestion-target]', '.pv-text-details__left-panel .text-body-medium']);
	card.location = pick(['.pv-text-details__left-panel .text-body-small.inline', 'span.text-body-small.inline.t-black--light']);

	let aboutSection = document.querySelector('#about');
	if (aboutSection) aboutSection = aboutSection.closest('section') || aboutSection.parentElement;
	if (aboutSection) {
		const span = aboutSection.querySelector('.inline-show-more-text span[aria-hidden="true"], div.display-flex span[aria-hidden="true"]');
		if (span) card.about = span.textContent.trim();
	}
	return JSON.stringify(card);
}`

// TopCard extracts the profile header: name, headline, location, about.
func (e *Extractor) TopCard(ctx context.Context, rec *profile.Record) {
	payload, err := e.page.EvalString(ctx, topCardJS)
	if err != nil || payload == "" {
		return
	}
	var card struct {
		Name     string `json:"name"`
		Headline string `json:"headline"`
		Location string `json:"location"`
		About    string `json:"about"`
	}
	if err := json.Unmarshal([]byte(payload), &card); err != nil {
		return
	}
	rec.Name = profile.CollapseDuplicateText(card.Name)
	rec.Headline = profile.CollapseDuplicateText(card.Headline)
	rec.Location = card.Location
	rec.About = profile.CollapseDuplicateText(card.About)
}

const sectionTitlesJS = `() => {
	const anchor = document.querySelector('#' + %q);
	if (!anchor) return '[]';
	const section = anchor.closest('section') || anchor.parentElement;
	if (!section) return '[]';
	const out = [];
	for (const li of section.querySelectorAll('li')) {
		const el = li.querySelector('.t-bold span[aria-hidden="true"], .t-bold');
		if (!el) continue;
		const text = el.textContent.trim();
		if (text && text.length <= 120 && !text.toLowerCase().includes('show all')) out.push(text);
	}
	return JSON.stringify(out);
}`

func (e *Extractor) sectionTitles(ctx context.Context, sectionID string) []string {
	js := strings.ReplaceAll(sectionTitlesJS, "%q", jsQuote(sectionID))
	payload, err := e.page.EvalString(ctx, js)
	if err != nil || payload == "" {
		return nil
	}
	var titles []string
	if err := json.Unmarshal([]byte(payload), &titles); err != nil {
		return nil
	}
	var out []string
	for _, t := range titles {
		out = append(out, profile.CollapseDuplicateText(t))
	}
	return profile.DedupeStrings(out)
}

// TopSkills extracts the profile-level skills list.
func (e *Extractor) TopSkills(ctx context.Context) []string {
	skills := e.sectionTitles(ctx, "skills")
	e.metrics.AddEntries("skills", len(skills))
	return skills
}

// Languages extracts the languages section.
func (e *Extractor) Languages(ctx context.Context) []string {
	return e.sectionTitles(ctx, "languages")
}

const certificationsJS = `() => {
	const anchor = document.querySelector('#licenses_and_certifications, #certifications');
	if (!anchor) return '[]';
	const section = anchor.closest('section') || anchor.parentElement;
	const out = [];
	for (const li of section.querySelectorAll('li')) {
		const nameEl = li.querySelector('.t-bold span[aria-hidden="true"]');
		if (!nameEl) continue;
		const cert = {name: nameEl.textContent.trim(), issuer: '', issueDate: '', credentialId: ''};
		const issuerEl = li.querySelector('span.t-14.t-normal > span[aria-hidden="true"]');
		if (issuerEl) cert.issuer = issuerEl.textContent.trim();
		const caption = li.querySelector('[class*="caption"][aria-hidden="true"]');
		if (caption) cert.issueDate = caption.textContent.trim();
		const text = li.textContent || '';
		const m = text.match(/Credential ID\s+([\w-]+)/i);
		if (m) cert.credentialId = m[1];
		if (cert.name && !cert.name.toLowerCase().includes('show all')) out.push(cert);
	}
	return JSON.stringify(out);
}`

// Certifications extracts licenses and certifications.
func (e *Extractor) Certifications(ctx context.Context) []profile.Certification {
	payload, err := e.page.EvalString(ctx, certificationsJS)
	if err != nil || payload == "" {
		return nil
	}
	var raw []struct {
		Name         string `json:"name"`
		Issuer       string `json:"issuer"`
		IssueDate    string `json:"issueDate"`
		CredentialID string `json:"credentialId"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil
	}
	var out []profile.Certification
	seen := make(map[string]struct{})
	for _, c := range raw {
		name := profile.CollapseDuplicateText(c.Name)
		if _, dup := seen[name]; dup || name == "" {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, profile.Certification{
			Name:         name,
			Issuer:       profile.CollapseDuplicateText(c.Issuer),
			IssueDate:    c.IssueDate,
			CredentialID: c.CredentialID,
		})
	}
	e.metrics.AddEntries("certifications", len(out))
	return out
}

const projectsJS = `() => {
	const anchor = document.querySelector('#projects');
	if (!anchor) return '[]';
	const section = anchor.closest('section') || anchor.parentElement;
	const out = [];
	for (const li of section.querySelectorAll('li')) {
		const nameEl = li.querySelector('.t-bold span[aria-hidden="true"]');
		if (!nameEl) continue;
		const proj = {name: nameEl.textContent.trim(), dates: '', description: ''};
		const caption = li.querySelector('span.t-14.t-normal > span[aria-hidden="true"]');
		if (caption) proj.dates = caption.textContent.trim();
		for (const span of li.querySelectorAll('.pvs-entity__sub-components span[aria-hidden="true"]')) {
			const text = span.textContent.trim();
			if (text.length > 50) { proj.description = text; break; }
		}
		if (proj.name && !proj.name.toLowerCase().includes('show all')) out.push(proj);
	}
	return JSON.stringify(out);
}`

// Projects extracts the projects section.
func (e *Extractor) Projects(ctx context.Context) []profile.Project {
	payload, err := e.page.EvalString(ctx, projectsJS)
	if err != nil || payload == "" {
		return nil
	}
	var raw []struct {
		Name        string `json:"name"`
		Dates       string `json:"dates"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil
	}
	var out []profile.Project
	seen := make(map[string]struct{})
	for _, p := range raw {
		name := profile.CollapseDuplicateText(p.Name)
		if _, dup := seen[name]; dup || name == "" {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, profile.Project{
			Name:        name,
			Dates:       p.Dates,
			Description: p.Description,
			Skills:      ParseInlineSkills(p.Description),
		})
	}
	return out
}

const recommendationsJS = `() => {
	const anchor = document.querySelector('#recommendations');
	if (!anchor) return '[]';
	const section = anchor.closest('section') || anchor.parentElement;
	const out = [];
	for (const li of section.querySelectorAll('li')) {
		const nameEl = li.querySelector('.t-bold span[aria-hidden="true"]');
		if (!nameEl) continue;
		const rec = {name: nameEl.textContent.trim(), headline: '', text: ''};
		const headlineEl = li.querySelector('span.t-14.t-normal > span[aria-hidden="true"]');
		if (headlineEl) rec.headline = headlineEl.textContent.trim();
		for (const span of li.querySelectorAll('.pvs-entity__sub-components span[aria-hidden="true"]')) {
			const text = span.textContent.trim();
			if (text.length > 50) { rec.text = text; break; }
		}
		if (rec.name && !rec.name.toLowerCase().includes('show all')) out.push(rec);
	}
	return JSON.stringify(out);
}`

// Recommendations extracts received recommendations.
func (e *Extractor) Recommendations(ctx context.Context) []profile.Recommendation {
	payload, err := e.page.EvalString(ctx, recommendationsJS)
	if err != nil || payload == "" {
		return nil
	}
	var raw []struct {
		Name     string `json:"name"`
		Headline string `json:"headline"`
		Text     string `json:"text"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil
	}
	var out []profile.Recommendation
	for _, r := range raw {
		name := profile.CollapseDuplicateText(r.Name)
		if name == "" {
			continue
		}
		out = append(out, profile.Recommendation{
			Name:     name,
			Headline: profile.CollapseDuplicateText(r.Headline),
			Text:     r.Text,
		})
	}
	return out
}

// accessIssuePhrases mark profiles that cannot be viewed at all.
var accessIssuePhrases = []string{
	"this profile is not available",
	"you cannot view this profile",
	"profile is not public",
	"profile private",
	"404 error",
	"not found",
}

// AccessRestricted reports whether the loaded profile is inaccessible.
func (e *Extractor) AccessRestricted(ctx context.Context) bool {
	markup, err := e.page.HTML(ctx)
	if err != nil {
		return false
	}
	// Phrase-match visible text only: script payloads and hidden chrome can
	// carry these phrases on perfectly accessible pages.
	lower := strings.ToLower(visibleText(markup))
	for _, phrase := range accessIssuePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

const closeUpsellJS = `() => {
	const selectors = [
		'button[aria-label="Close"]',
		'button[aria-label="Dismiss"]',
		'[role="dialog"] button:first-child',
		'.cta-modal button',
	];
	for (const sel of selectors) {
		const btn = document.querySelector(sel);
		if (btn) { try { btn.click(); return '1'; } catch (e) {} }
	}
	return '';
}`

// DismissUpsell closes app-upsell or notification prompts covering the page.
func (e *Extractor) DismissUpsell(ctx context.Context) {
	if closed, err := e.page.EvalString(ctx, closeUpsellJS); err == nil && closed == "1" {
		e.delay(ctx, 500*time.Millisecond, time.Second)
	}
}

// ExpandSections clicks every collapsed block on the main profile view.
func (e *Extractor) ExpandSections(ctx context.Context) {
	e.expandAll(ctx)
}
