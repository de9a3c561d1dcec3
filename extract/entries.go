package extract

import (
	"fmt"
	"strings"

	"github.com/maksud51/linkharvest/profile"
)

// rawEntry is the untyped signal bundle the in-page script gathers per list
// item. Field interpretation and all disambiguation happen Go-side so each
// rule stays unit-testable.
type rawEntry struct {
	Title        string   `json:"title"`
	OrgURL       string   `json:"orgUrl"`
	OrgLinkText  string   `json:"orgLinkText"`
	ParentOrg    string   `json:"parentOrg"`
	ParentOrgURL string   `json:"parentOrgUrl"`
	Meta         []string `json:"meta"`
	Caption      string   `json:"caption"`
	Light        []string `json:"light"`
	Description  string   `json:"description"`
	FullText     string   `json:"fullText"`
	SkillsHref   string   `json:"skillsHref"`
	SkillsLabel  string   `json:"skillsLabel"`
}

// entriesJS collects raw signals for every candidate list item of a section.
// It walks ancestor items to inherit a parent organization for nested roles
// and records the skills-disclosure link without clicking anything.
const entriesJS = `() => {
	const sectionID = %q;
	const isDetailPage = window.location.href.includes('/details/' + sectionID);
	let items = [];

	if (isDetailPage) {
		const main = document.querySelector('main, .scaffold-layout__main') || document;
		items = Array.from(main.querySelectorAll('li')).filter(li => {
			const text = (li.textContent || '').trim();
			if (text.length < 20) return false;
			if (li.closest('nav') || li.closest('footer') || li.closest('[role="navigation"]')) return false;
			return true;
		});
	} else {
		let section = document.querySelector('#' + sectionID);
		if (section) section = section.closest('section') || section.parentElement;
		if (!section) {
			for (const s of document.querySelectorAll('section')) {
				const h = s.querySelector('h2');
				if (h && h.textContent.toLowerCase().includes(sectionID)) { section = s; break; }
			}
		}
		if (section) {
			items = Array.from(section.querySelectorAll('li')).filter(li => {
				const text = (li.textContent || '').trim();
				return text.length > 20 && !text.toLowerCase().includes('show all');
			});
		}
	}

	const entries = [];
	for (const item of items) {
		const entity = item.querySelector('[data-view-name="profile-component-entity"]') || item;
		const raw = {
			title: '', orgUrl: '', orgLinkText: '', parentOrg: '', parentOrgUrl: '',
			meta: [], caption: '', light: [], description: '', fullText: '',
			skillsHref: '', skillsLabel: ''
		};

		raw.fullText = (item.textContent || '').trim();

		const titleEl = entity.querySelector('.t-bold span[aria-hidden="true"], .t-bold, h3 span[aria-hidden="true"]');
		if (titleEl) raw.title = titleEl.textContent.trim();

		for (const span of entity.querySelectorAll('span.t-14.t-normal > span[aria-hidden="true"], span[class*="normal"] > span[aria-hidden="true"]')) {
			const text = span.textContent.trim();
			if (text) raw.meta.push(text);
		}

		const captionEl = entity.querySelector('.pvs-entity__caption-wrapper[aria-hidden="true"], [class*="caption"][aria-hidden="true"]');
		if (captionEl) raw.caption = captionEl.textContent.trim();

		for (const span of entity.querySelectorAll('span.t-14.t-normal.t-black--light > span[aria-hidden="true"], span[class*="light"] > span[aria-hidden="true"]')) {
			const text = span.textContent.trim();
			if (text) raw.light.push(text);
		}

		const sub = entity.querySelector('.pvs-entity__sub-components');
		if (sub) {
			for (const span of sub.querySelectorAll('span[aria-hidden="true"]')) {
				const text = span.textContent.trim();
				if (text.length > 50 && !text.includes('Skills:') && !text.includes('skill') && !text.includes('+')) {
					raw.description = text;
					break;
				}
			}
		}

		const orgLink = entity.querySelector('a[href*="/company/"], a[href*="/school/"]');
		if (orgLink) {
			raw.orgUrl = orgLink.href;
			raw.orgLinkText = (orgLink.getAttribute('aria-label') ||
				orgLink.getAttribute('title') || orgLink.textContent || '').trim();
		}

		let parentLi = item.parentElement ? item.parentElement.closest('li') : null;
		let depth = 0;
		while (parentLi && depth < 5) {
			const parentSub = parentLi.querySelector('.pvs-entity__sub-components');
			if (parentSub && parentSub.querySelectorAll(':scope > ul > li, :scope > div > ul > li').length > 0) {
				const parentEntity = parentLi.querySelector('[data-view-name="profile-component-entity"]') || parentLi;
				const parentTitle = parentEntity.querySelector('.t-bold span[aria-hidden="true"]');
				if (parentTitle) raw.parentOrg = parentTitle.textContent.trim();
				const parentLink = parentEntity.querySelector('a[href*="/company/"], a[href*="/school/"]');
				if (parentLink) raw.parentOrgUrl = parentLink.href;
				break;
			}
			parentLi = parentLi.parentElement ? parentLi.parentElement.closest('li') : null;
			depth++;
		}

		let skillsBtn = item.querySelector('a[data-field$="skill_associations"], a[data-field="position_contextual_skills_see_details"]');
		if (!skillsBtn) skillsBtn = item.querySelector('a[href*="skill-associations"]');
		if (!skillsBtn) {
			for (const link of item.querySelectorAll('a')) {
				const text = (link.textContent || '').toLowerCase();
				const href = link.getAttribute('href') || '';
				if ((text.includes('skill') && (text.includes('+') || /\d+/.test(text))) || href.includes('skill')) {
					skillsBtn = link;
					break;
				}
			}
		}
		if (skillsBtn) {
			raw.skillsHref = skillsBtn.getAttribute('href') || skillsBtn.href || '';
			raw.skillsLabel = skillsBtn.textContent.trim();
		}

		entries.push(raw);
	}
	return JSON.stringify(entries);
}`

func entriesScript(sectionID string) string {
	return fmt.Sprintf(entriesJS, sectionID)
}

// buildExperience interprets one raw entry as an employment record. The
// second return is false when the item is vetoed as not-an-experience.
func buildExperience(raw rawEntry) (profile.Experience, bool) {
	if IsPureEducation(raw.FullText) {
		return profile.Experience{}, false
	}

	exp := profile.Experience{
		Title:           profile.CollapseDuplicateText(raw.Title),
		OrganizationURL: raw.OrgURL,
		Description:     raw.Description,
		RawSourceHash:   profile.SourceHash(raw.FullText),
	}

	var locationFromMeta string
	for _, text := range raw.Meta {
		if isDateLike(text) {
			continue
		}
		if LooksLikeLocation(text) {
			if locationFromMeta == "" {
				locationFromMeta = text
			}
			continue
		}
		if strings.Contains(text, "·") {
			parts := strings.SplitN(text, "·", 2)
			head := strings.TrimSpace(parts[0])
			if exp.Organization == "" && head != "" && !LooksLikeLocation(head) {
				exp.Organization = head
			}
			if len(parts) == 2 {
				tail := strings.TrimSpace(parts[1])
				if IsEmploymentType(tail) {
					exp.EmploymentType = tail
				}
			}
		} else if exp.Organization == "" && len(text) > 2 && len(text) < 200 {
			exp.Organization = text
		}
		if exp.Organization != "" {
			break
		}
	}
	exp.Organization = profile.CollapseDuplicateText(exp.Organization)

	if exp.Organization == "" && raw.OrgLinkText != "" && !LooksLikeLocation(raw.OrgLinkText) {
		exp.Organization = profile.CollapseDuplicateText(raw.OrgLinkText)
	}

	// Nested roles inherit the parent item's organization.
	if (exp.Organization == "" || LooksLikeLocation(exp.Organization)) && raw.ParentOrg != "" {
		if !LooksLikeLocation(raw.ParentOrg) {
			exp.Organization = profile.CollapseDuplicateText(raw.ParentOrg)
			if raw.ParentOrgURL != "" {
				exp.OrganizationURL = raw.ParentOrgURL
			}
		}
	}

	exp.Dates.Start, exp.Dates.End, exp.Dates.DurationText = ParseDateRange(raw.Caption)

	for _, text := range raw.Light {
		if isDateLike(text) {
			continue
		}
		if len(text) > 2 && len(text) < 200 {
			exp.Location = text
			exp.WorkMode = WorkMode(text)
			break
		}
	}
	if exp.Location == "" && locationFromMeta != "" {
		exp.Location = locationFromMeta
		exp.WorkMode = WorkMode(locationFromMeta)
	}

	// An organization that reads as a place belongs in the location field.
	if LooksLikeLocation(exp.Organization) {
		if raw.OrgLinkText != "" && !LooksLikeLocation(raw.OrgLinkText) {
			exp.Organization = raw.OrgLinkText
		} else {
			if exp.Location == "" {
				exp.Location = exp.Organization
			}
			exp.Organization = ""
		}
	}

	if inline := ParseInlineSkills(raw.FullText); len(inline) > 0 {
		exp.Skills = inline
	} else if raw.SkillsLabel != "" && !strings.Contains(strings.ToLower(raw.SkillsLabel), "skill") {
		exp.Skills = SplitSkillList(raw.SkillsLabel)
	}

	// A bare person name with no employment signal is a sidebar widget.
	if LooksLikePersonName(exp.Title) &&
		exp.Organization == "" && exp.Dates.Start == "" && !HasDurationToken(raw.FullText) {
		return profile.Experience{}, false
	}

	if exp.Title == "" && exp.Organization == "" && exp.Dates.Start == "" {
		return profile.Experience{}, false
	}
	return exp, true
}

// buildEducation interprets one raw entry as an education record.
func buildEducation(raw rawEntry) (profile.Education, bool) {
	lower := strings.ToLower(raw.FullText)
	if strings.Contains(lower, "full-time") &&
		!strings.Contains(lower, "university") && !strings.Contains(lower, "college") {
		return profile.Education{}, false
	}

	edu := profile.Education{
		School:        profile.CollapseDuplicateText(raw.Title),
		SchoolURL:     raw.OrgURL,
		Description:   raw.Description,
		RawSourceHash: profile.SourceHash(raw.FullText),
	}

	for _, text := range raw.Meta {
		if isDateLike(text) {
			continue
		}
		if strings.Contains(text, ",") {
			parts := strings.SplitN(text, ",", 2)
			if edu.Degree == "" {
				edu.Degree = strings.TrimSpace(parts[0])
			}
			if len(parts) == 2 && edu.FieldOfStudy == "" {
				edu.FieldOfStudy = strings.TrimSpace(parts[1])
			}
		} else if edu.Degree == "" && len(text) > 2 && len(text) < 200 {
			edu.Degree = text
		}
		if edu.Degree != "" {
			break
		}
	}

	edu.Dates.Start, edu.Dates.End, edu.Dates.DurationText = ParseDateRange(raw.Caption)

	for _, text := range raw.Light {
		tl := strings.ToLower(text)
		if strings.Contains(tl, "grade") || strings.Contains(tl, "gpa") ||
			strings.Contains(tl, "cgpa") || strings.Contains(tl, "class") ||
			strings.Contains(tl, "distinction") {
			edu.Grade = text
			break
		}
	}

	if inline := ParseInlineSkills(raw.FullText); len(inline) > 0 {
		edu.Skills = inline
	} else if raw.SkillsLabel != "" && !strings.Contains(strings.ToLower(raw.SkillsLabel), "skill") {
		edu.Skills = SplitSkillList(raw.SkillsLabel)
	}

	if len(edu.School) <= 2 || IsListNoise(edu.School) {
		return profile.Education{}, false
	}
	return edu, true
}

func isDateLike(text string) bool {
	return strings.Contains(text, " - ") && strings.ContainsAny(text, "0123456789") &&
		yearRE.MatchString(text)
}
