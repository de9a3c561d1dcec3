// Package profile defines the typed records produced by a scrape and the
// pure normalization rules applied to them: duplicate-text collapse,
// composite-key deduplication, completeness scoring, and contact merging.
//
// Fields absent on the page are empty strings / nil slices in memory. The
// legacy "N/A" sentinel is an export concern (see the export package).
package profile

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// DateRange is a parsed "Jan 2020 - Present · 3 yrs" caption.
type DateRange struct {
	Start        string `json:"start,omitempty"`
	End          string `json:"end,omitempty"`
	DurationText string `json:"duration,omitempty"`
}

// Experience is one position entry from the experience section.
type Experience struct {
	Title           string    `json:"title"`
	Organization    string    `json:"organization,omitempty"`
	OrganizationURL string    `json:"organization_url,omitempty"`
	EmploymentType  string    `json:"employment_type,omitempty"`
	Dates           DateRange `json:"dates"`
	Location        string    `json:"location,omitempty"`
	WorkMode        string    `json:"work_mode,omitempty"` // Remote, Hybrid, On-site
	Skills          []string  `json:"skills,omitempty"`
	Description     string    `json:"description,omitempty"`
	RawSourceHash   string    `json:"-"`
}

// Key is the deduplication key: title|organization|startDate.
func (e Experience) Key() string {
	return e.Title + "|" + e.Organization + "|" + e.Dates.Start
}

// Education is one entry from the education section.
type Education struct {
	School        string    `json:"school"`
	SchoolURL     string    `json:"school_url,omitempty"`
	Degree        string    `json:"degree,omitempty"`
	FieldOfStudy  string    `json:"field_of_study,omitempty"`
	Dates         DateRange `json:"dates"`
	Grade         string    `json:"grade,omitempty"`
	Activities    []string  `json:"activities,omitempty"`
	Skills        []string  `json:"skills,omitempty"`
	Description   string    `json:"description,omitempty"`
	RawSourceHash string    `json:"-"`
}

// Key is the deduplication key: school|degree|startDate.
func (e Education) Key() string {
	return e.School + "|" + e.Degree + "|" + e.Dates.Start
}

// Certification is a license/certification entry.
type Certification struct {
	Name         string `json:"name"`
	Issuer       string `json:"issuer,omitempty"`
	IssueDate    string `json:"issue_date,omitempty"`
	CredentialID string `json:"credential_id,omitempty"`
}

// Project is a project entry.
type Project struct {
	Name        string   `json:"name"`
	Dates       string   `json:"dates,omitempty"`
	Description string   `json:"description,omitempty"`
	Skills      []string `json:"skills,omitempty"`
}

// Recommendation is a received recommendation.
type Recommendation struct {
	Name     string `json:"name"`
	Headline string `json:"headline,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Record is the immutable snapshot of one scraped profile.
type Record struct {
	URL             string           `json:"url"`
	Name            string           `json:"name,omitempty"`
	Headline        string           `json:"headline,omitempty"`
	Location        string           `json:"location,omitempty"`
	About           string           `json:"about,omitempty"`
	Experience      []Experience     `json:"experience,omitempty"`
	Education       []Education      `json:"education,omitempty"`
	Skills          []string         `json:"skills,omitempty"`
	Certifications  []Certification  `json:"certifications,omitempty"`
	Projects        []Project        `json:"projects,omitempty"`
	Languages       []string         `json:"languages,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	Contact         ContactInfo      `json:"contact_info,omitempty"`
	ScrapedAt       time.Time        `json:"scraped_at"`
}

// Completeness scores the record 0–100: the share of non-empty fields among
// name, headline, location, about, experience, education and skills.
func (r *Record) Completeness() float64 {
	filled := 0
	if r.Name != "" {
		filled++
	}
	if r.Headline != "" {
		filled++
	}
	if r.Location != "" {
		filled++
	}
	if r.About != "" {
		filled++
	}
	if len(r.Experience) > 0 {
		filled++
	}
	if len(r.Education) > 0 {
		filled++
	}
	if len(r.Skills) > 0 {
		filled++
	}
	return float64(filled) / 7 * 100
}

// SourceHash fingerprints the raw text an entry was parsed from, so repeated
// runs can recognise unchanged entries.
func SourceHash(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:8])
}
