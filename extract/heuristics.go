// Package extract harvests structured profile data from a loaded page. The
// target renders each section with undocumented, shifting markup, so every
// field goes through a cascade of strategies and a set of disambiguation
// heuristics before it is trusted.
package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// locationPatterns match strings that name a place rather than an employer.
var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^[a-z .'-]+,\s*[a-z .'-]+$`),
	regexp.MustCompile(`(?i)\b(dhaka|bangladesh|india|usa|uk|california|new york|london|singapore)\b`),
	regexp.MustCompile(`(?i)\b(remote|on-site|hybrid)\b`),
	regexp.MustCompile(`(?i)\b(district|province|state)\b`),
}

// organizationIndicators veto the location classification; "Dhaka Software
// Ltd" is an employer even though it names a city.
var organizationIndicators = []string{
	"ltd", "inc", "corp", "company", "llc", "limited", "pvt", "private",
	"group", "solutions", "technologies", "services", "institute", "academy",
}

// LooksLikeLocation reports whether text reads as a place name with no
// organization signal.
func LooksLikeLocation(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, ind := range organizationIndicators {
		if strings.Contains(lower, ind) {
			return false
		}
	}
	for _, p := range locationPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

var personNameRE = regexp.MustCompile(`^\p{Lu}[\p{L}.'-]*(?:\s+\p{Lu}[\p{L}.'-]*){0,2}$`)

// LooksLikePersonName matches one to three capitalized word tokens, the shape
// of a bare person name. Sidebars ("People also viewed") leak such strings
// into list items that would otherwise parse as job titles.
func LooksLikePersonName(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	words := strings.Fields(text)
	if len(words) > 3 {
		return false
	}
	for _, w := range words {
		r := []rune(w)
		if !unicode.IsUpper(r[0]) {
			return false
		}
	}
	return personNameRE.MatchString(text)
}

var educationVocabulary = []string{
	"bachelor", "master", "degree", "phd", "diploma", "gpa",
	"graduated", "honors",
}

var employmentVocabulary = []string{
	"developer", "engineer", "manager", "designer", "analyst", "consultant",
	"director", "lead", "specialist", "trainer", "instructor", "mentor",
	"lecturer", "professor", "tutor",
	"full-time", "part-time", "internship", "contract", "apprenticeship",
	"freelance",
}

// HasEducationVocabulary reports degree/GPA style wording in text.
func HasEducationVocabulary(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range educationVocabulary {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// HasEmploymentVocabulary reports job-title or employment-type wording.
func HasEmploymentVocabulary(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range employmentVocabulary {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// IsPureEducation classifies a text block as education-only content. Someone
// employed at a university carries employment vocabulary too, and stays.
func IsPureEducation(text string) bool {
	lower := strings.ToLower(text)
	employment := HasEmploymentVocabulary(lower)
	if employment {
		return false
	}
	institutional := strings.Contains(lower, "university") ||
		strings.Contains(lower, "college") ||
		strings.Contains(lower, "school")
	return institutional || HasEducationVocabulary(lower)
}

var employmentTypeRE = regexp.MustCompile(`(?i)\b(full[- ]time|part[- ]time|self[- ]employed|internship|intern|contract|freelance|apprenticeship|seasonal|temporary)\b`)

// IsEmploymentType reports whether text names an employment arrangement.
func IsEmploymentType(text string) bool {
	return employmentTypeRE.MatchString(text)
}

var durationRE = regexp.MustCompile(`(?i)\d+\s*(yrs?|years?|mos?|months?)`)

// HasDurationToken reports a "3 yrs 2 mos" style duration in text.
func HasDurationToken(text string) bool {
	return durationRE.MatchString(text)
}

var yearRE = regexp.MustCompile(`\d{4}`)

var dateRangeRE = regexp.MustCompile(`^(.+?)\s*[-–]\s*(.+?)(?:\s*·\s*(.+))?$`)
var singleYearRE = regexp.MustCompile(`^\d{4}$`)

// ParseDateRange splits a caption like "Jan 2020 - Present · 3 yrs" into its
// parts. A bare year fills both ends.
func ParseDateRange(caption string) (start, end, duration string) {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return "", "", ""
	}
	if singleYearRE.MatchString(caption) {
		return caption, caption, ""
	}
	m := dateRangeRE.FindStringSubmatch(caption)
	if m == nil {
		return "", "", ""
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), strings.TrimSpace(m[3])
}

// WorkMode extracts the work arrangement from a location-line string.
func WorkMode(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "remote"):
		return "Remote"
	case strings.Contains(lower, "hybrid"):
		return "Hybrid"
	case strings.Contains(lower, "on-site"):
		return "On-site"
	}
	return ""
}

var inlineSkillsRE = regexp.MustCompile(`(?i)skills?:\s*([^\n]+)`)

// ParseInlineSkills pulls a "Skills: A · B · C" list out of free text.
// Returns nil when the marker is absent.
func ParseInlineSkills(text string) []string {
	m := inlineSkillsRE.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return SplitSkillList(m[1])
}

var plusCountRE = regexp.MustCompile(`^\+\d+$`)

// SplitSkillList splits a dot- or comma-delimited skill string, dropping
// "and +5 skills" style trailers.
func SplitSkillList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '·' || r == ','
	})
	var out []string
	for _, p := range parts {
		skill := strings.TrimSpace(p)
		lower := strings.ToLower(skill)
		if skill == "" || len(skill) > 60 {
			continue
		}
		if strings.Contains(lower, "and +") || strings.Contains(lower, "skill") {
			continue
		}
		if plusCountRE.MatchString(skill) {
			continue
		}
		out = append(out, skill)
	}
	return out
}

// noiseSchoolRE matches follower-count strings that leak into school names.
var noiseSchoolRE = regexp.MustCompile(`(?i)^\d+[,\s]*\d*\s*followers`)

// IsListNoise rejects sidebar widgets masquerading as section entries.
func IsListNoise(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "followers") ||
		strings.Contains(lower, "members") ||
		strings.Contains(lower, "follows your") ||
		strings.Contains(lower, "viewed your") ||
		lower == "fiverr" ||
		lower == "upwork" ||
		noiseSchoolRE.MatchString(name)
}
