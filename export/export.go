// Package export renders completed profile records to JSON dumps and
// per-profile Markdown reports.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"

	"github.com/maksud51/linkharvest/profile"
)

// Exporter writes scraped records to files.
type Exporter struct {
	logger *slog.Logger
	md     *converter.Converter
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// New creates an Exporter.
func New(opts ...Option) *Exporter {
	e := &Exporter{
		logger: slog.Default(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// jsonEnvelope is the shape of the JSON dump file.
type jsonEnvelope struct {
	ExportedAt time.Time         `json:"exported_at"`
	Count      int               `json:"count"`
	Profiles   []*profile.Record `json:"profiles"`
}

// JSON writes records as a single pretty-printed JSON document.
func (e *Exporter) JSON(w io.Writer, records []*profile.Record) error {
	env := jsonEnvelope{
		ExportedAt: time.Now().UTC(),
		Count:      len(records),
		Profiles:   records,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("export: encode json: %w", err)
	}
	return nil
}

// WriteJSONFile writes the JSON dump to path, creating parent directories.
func (e *Exporter) WriteJSONFile(path string, records []*profile.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()
	if err := e.JSON(f, records); err != nil {
		return err
	}
	e.logger.Info("json export written", "path", path, "profiles", len(records))
	return nil
}

// Markdown writes a human-readable report covering all records.
func (e *Exporter) Markdown(w io.Writer, records []*profile.Record) error {
	var b strings.Builder
	b.WriteString("# Profile Report\n\n")
	fmt.Fprintf(&b, "Exported %s · %d profiles\n\n", time.Now().UTC().Format("2006-01-02 15:04 MST"), len(records))

	for _, rec := range records {
		e.writeProfile(&b, rec)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("export: write markdown: %w", err)
	}
	return nil
}

// WriteMarkdownFile writes the report to path, creating parent directories.
func (e *Exporter) WriteMarkdownFile(path string, records []*profile.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()
	if err := e.Markdown(f, records); err != nil {
		return err
	}
	e.logger.Info("markdown report written", "path", path, "profiles", len(records))
	return nil
}

func (e *Exporter) writeProfile(b *strings.Builder, rec *profile.Record) {
	fmt.Fprintf(b, "## %s\n\n", orNA(rec.Name))
	fmt.Fprintf(b, "- **URL**: %s\n", orNA(rec.URL))
	fmt.Fprintf(b, "- **Headline**: %s\n", orNA(rec.Headline))
	fmt.Fprintf(b, "- **Location**: %s\n", orNA(rec.Location))
	fmt.Fprintf(b, "- **Completeness**: %.0f%%\n\n", rec.Completeness())

	if rec.About != "" {
		b.WriteString("### About\n\n")
		b.WriteString(e.richText(rec.About))
		b.WriteString("\n\n")
	}

	if len(rec.Experience) > 0 {
		b.WriteString("### Experience\n\n")
		for _, exp := range rec.Experience {
			fmt.Fprintf(b, "- **%s** at %s", orNA(exp.Title), orNA(exp.Organization))
			if exp.Dates.Start != "" {
				fmt.Fprintf(b, " (%s - %s)", exp.Dates.Start, orNA(exp.Dates.End))
			}
			b.WriteString("\n")
			if exp.Location != "" {
				fmt.Fprintf(b, "  - %s\n", exp.Location)
			}
			if len(exp.Skills) > 0 {
				fmt.Fprintf(b, "  - Skills: %s\n", strings.Join(exp.Skills, ", "))
			}
			if exp.Description != "" {
				fmt.Fprintf(b, "  - %s\n", e.richText(exp.Description))
			}
		}
		b.WriteString("\n")
	}

	if len(rec.Education) > 0 {
		b.WriteString("### Education\n\n")
		for _, edu := range rec.Education {
			fmt.Fprintf(b, "- **%s**", orNA(edu.School))
			if edu.Degree != "" {
				fmt.Fprintf(b, ", %s", edu.Degree)
			}
			if edu.FieldOfStudy != "" {
				fmt.Fprintf(b, " in %s", edu.FieldOfStudy)
			}
			if edu.Dates.Start != "" {
				fmt.Fprintf(b, " (%s - %s)", edu.Dates.Start, orNA(edu.Dates.End))
			}
			b.WriteString("\n")
			if edu.Grade != "" {
				fmt.Fprintf(b, "  - %s\n", edu.Grade)
			}
		}
		b.WriteString("\n")
	}

	if len(rec.Skills) > 0 {
		b.WriteString("### Skills\n\n")
		fmt.Fprintf(b, "%s\n\n", strings.Join(rec.Skills, " · "))
	}

	if len(rec.Certifications) > 0 {
		b.WriteString("### Certifications\n\n")
		for _, c := range rec.Certifications {
			fmt.Fprintf(b, "- **%s**", c.Name)
			if c.Issuer != "" {
				fmt.Fprintf(b, " — %s", c.Issuer)
			}
			if c.IssueDate != "" {
				fmt.Fprintf(b, " (%s)", c.IssueDate)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if !rec.Contact.Empty() {
		b.WriteString("### Contact\n\n")
		for _, channel := range contactOrder {
			for _, v := range rec.Contact[channel] {
				fmt.Fprintf(b, "- **%s**: %s\n", channel, v)
			}
		}
		b.WriteString("\n")
	}
}

// contactOrder fixes the report's channel ordering.
var contactOrder = []string{
	profile.ChannelEmail, profile.ChannelPhone, profile.ChannelWebsite,
	profile.ChannelGitHub, profile.ChannelLinkedIn, profile.ChannelTwitter,
	profile.ChannelFacebook, profile.ChannelInstagram, profile.ChannelYouTube,
	profile.ChannelWhatsApp, profile.ChannelTelegram, profile.ChannelSkype,
	profile.ChannelBirthday, profile.ChannelConnected,
}

// richText renders HTML-bearing field content as Markdown; plain text passes
// through unchanged.
func (e *Exporter) richText(text string) string {
	if !strings.Contains(text, "<") {
		return text
	}
	out, err := e.md.ConvertString(text)
	if err != nil || strings.TrimSpace(out) == "" {
		return text
	}
	return strings.TrimSpace(out)
}

// orNA maps empty fields to the report's absent-value sentinel. Records keep
// empty strings internally; "N/A" exists only on this boundary.
func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
