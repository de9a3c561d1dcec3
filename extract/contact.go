package extract

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/maksud51/linkharvest/navigator"
	"github.com/maksud51/linkharvest/profile"
)

// Contact extracts the dedicated contact overlay: structured channels, the
// website list, and the connected/birthday dates. Returns nil when the
// overlay is unreachable or empty.
func (e *Extractor) Contact(ctx context.Context, profileURL string) *profile.ContactInfo {
	if !strings.Contains(profileURL, "/in/") {
		return nil
	}
	overlayURL := strings.TrimRight(profileURL, "/") + "/overlay/contact-info/"

	if err := e.page.Goto(ctx, overlayURL, navigator.WaitDOMReady, 20*time.Second); err != nil {
		e.logger.Debug("contact overlay unreachable", "url", overlayURL, "error", err)
		return nil
	}
	e.delay(ctx, 500*time.Millisecond, time.Second)

	markup, err := e.page.HTML(ctx)
	if err != nil {
		return nil
	}

	info := ParseOverlay(markup, profileURL)

	e.page.Goto(ctx, profileURL, navigator.WaitDOMReady, 10*time.Second)
	if info.Empty() {
		return nil
	}
	return &info
}

// overlaySection is one labeled block of the contact overlay.
type overlaySection struct {
	Header string
	Text   string
	Hrefs  []string
}

// ParseOverlay turns the overlay markup into structured contact channels.
// Sections are anchored by their headers so a Birthday date is never read
// out of an adjacent Connected section.
func ParseOverlay(markup, profileURL string) profile.ContactInfo {
	info := profile.NewContactInfo()
	sections := overlaySections(markup)

	var websites []string
	for _, sec := range sections {
		switch strings.ToLower(strings.TrimSpace(sec.Header)) {
		case "website", "websites":
			for _, href := range sec.Hrefs {
				if strings.HasPrefix(href, "http") && !sameHost(href, profileURL) {
					websites = append(websites, href)
				}
			}
		case "connected":
			if date := matchDateWithYear(sec.Text); date != "" {
				info.Add(profile.ChannelConnected, date)
			}
		case "birthday":
			if date := matchShortDate(sec.Text); date != "" {
				info.Add(profile.ChannelBirthday, date)
			}
		}
	}

	text := OverlayText(markup)
	scanChannels(&info, text)

	// Header-anchored fallbacks when the overlay markup carried no sections.
	if len(info[profile.ChannelConnected]) == 0 {
		if date := anchoredDate(text, "connected", matchDateWithYear); date != "" {
			info.Add(profile.ChannelConnected, date)
		}
	}
	if len(info[profile.ChannelBirthday]) == 0 {
		if date := anchoredDate(text, "birthday", matchShortDate); date != "" {
			info.Add(profile.ChannelBirthday, date)
		}
	}

	for _, w := range FilterWebsites(websites) {
		info.Add(profile.ChannelWebsite, w)
	}
	return info
}

// overlaySections walks the overlay DOM collecting per-section header, text,
// and link targets.
func overlaySections(markup string) []overlaySection {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var sections []overlaySection
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "section" {
			sec := overlaySection{}
			var inner func(m *html.Node)
			inner = func(m *html.Node) {
				if m.Type == html.ElementNode {
					switch m.Data {
					case "h3":
						if sec.Header == "" {
							sec.Header = nodeText(m)
						}
					case "a":
						for _, attr := range m.Attr {
							if attr.Key == "href" && attr.Val != "" {
								sec.Hrefs = append(sec.Hrefs, attr.Val)
							}
						}
					case "script", "style":
						return
					}
				}
				for c := m.FirstChild; c != nil; c = c.NextSibling {
					inner(c)
				}
			}
			inner(n)
			sec.Text = nodeText(n)
			if sec.Header != "" {
				sections = append(sections, sec)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sections
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(m *html.Node)
	walk = func(m *html.Node) {
		if m.Type == html.ElementNode && (m.Data == "script" || m.Data == "style") {
			return
		}
		if m.Type == html.TextNode {
			b.WriteString(m.Data)
			b.WriteString(" ")
		}
		for c := m.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

var overlayPolicy = bluemonday.StrictPolicy()

// OverlayText flattens overlay markup to plain text with scripts and styles
// dropped.
func OverlayText(markup string) string {
	return html.UnescapeString(overlayPolicy.Sanitize(markup))
}

var (
	emailRE     = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRE     = regexp.MustCompile(`\+?\d[\d\s().-]{6,18}\d`)
	githubRE    = regexp.MustCompile(`(?i)github\.com/([A-Za-z0-9-]+)`)
	twitterRE   = regexp.MustCompile(`(?i)(?:twitter\.com|x\.com)/([A-Za-z0-9_]{2,})`)
	linkedinRE  = regexp.MustCompile(`(?i)linkedin\.com/in/([A-Za-z0-9%-]+)`)
	facebookRE  = regexp.MustCompile(`(?i)facebook\.com/([A-Za-z0-9.]{4,})`)
	instagramRE = regexp.MustCompile(`(?i)instagram\.com/([A-Za-z0-9_.]{2,})`)
	youtubeRE   = regexp.MustCompile(`(?i)(?:youtube\.com/(?:@|c/|channel/|user/)|youtu\.be/)([A-Za-z0-9_@.-]+)`)
	whatsappRE  = regexp.MustCompile(`(?i)(?:wa\.me/|whatsapp[:\s]{0,3})(\+?\d[\d\s-]{6,14}\d)`)
	telegramRE  = regexp.MustCompile(`(?i)(?:t\.me/|telegram[:\s]{0,3}@?)([A-Za-z0-9_]{4,})`)
	skypeRE     = regexp.MustCompile(`(?i)skype:?\s*([A-Za-z0-9_.:-]{4,})`)
)

// scanChannels appends every channel identifier found in text. ContactInfo's
// Add already normalizes and drops duplicates, so earlier values always win.
func scanChannels(info *profile.ContactInfo, text string) {
	for _, m := range emailRE.FindAllString(text, -1) {
		info.Add(profile.ChannelEmail, m)
	}
	for _, m := range phoneRE.FindAllString(text, -1) {
		if digits := countDigits(m); digits >= 7 && digits <= 15 {
			info.Add(profile.ChannelPhone, strings.TrimSpace(m))
		}
	}
	addMatches(info, profile.ChannelGitHub, githubRE, text, "github.com/")
	addMatches(info, profile.ChannelTwitter, twitterRE, text, "twitter.com/")
	addMatches(info, profile.ChannelLinkedIn, linkedinRE, text, "linkedin.com/in/")
	addMatches(info, profile.ChannelFacebook, facebookRE, text, "facebook.com/")
	addMatches(info, profile.ChannelInstagram, instagramRE, text, "instagram.com/")
	addMatches(info, profile.ChannelYouTube, youtubeRE, text, "youtube.com/")
	addMatches(info, profile.ChannelWhatsApp, whatsappRE, text, "")
	addMatches(info, profile.ChannelTelegram, telegramRE, text, "t.me/")
	addMatches(info, profile.ChannelSkype, skypeRE, text, "")
}

func addMatches(info *profile.ContactInfo, channel string, re *regexp.Regexp, text, prefix string) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		id := strings.TrimSpace(m[1])
		if id == "" {
			continue
		}
		info.Add(channel, prefix+id)
	}
}

// ScanRecordText is the second contact pass: it re-scans every free-text
// field already extracted into the record and appends anything new. Overlay
// values are never overwritten.
func ScanRecordText(info *profile.ContactInfo, rec *profile.Record) {
	fields := []string{rec.About, rec.Headline}
	for _, exp := range rec.Experience {
		fields = append(fields, exp.Description)
	}
	for _, edu := range rec.Education {
		fields = append(fields, edu.Description)
	}
	for _, p := range rec.Projects {
		fields = append(fields, p.Description)
	}
	for _, c := range rec.Certifications {
		fields = append(fields, c.Name)
	}
	for _, r := range rec.Recommendations {
		fields = append(fields, r.Text)
	}
	for _, f := range fields {
		if f != "" {
			scanChannels(info, f)
		}
	}
}

var dateWithYearRE = regexp.MustCompile(`[A-Z][a-z]+\s+\d{1,2},?\s+\d{4}`)
var shortDateRE = regexp.MustCompile(`[A-Z][a-z]+\s+\d{1,2}\b`)

func matchDateWithYear(text string) string { return dateWithYearRE.FindString(text) }
func matchShortDate(text string) string    { return shortDateRE.FindString(text) }

// anchoredDate scans a bounded window after a section header so adjacent
// date sections cannot bleed into each other.
func anchoredDate(text, header string, match func(string) string) string {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, header)
	if idx < 0 {
		return ""
	}
	window := text[idx:]
	if len(window) > 120 {
		window = window[:120]
	}
	return match(window)
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func sameHost(rawURL, other string) bool {
	a, err1 := url.Parse(rawURL)
	b, err2 := url.Parse(other)
	if err1 != nil || err2 != nil {
		return false
	}
	return strings.TrimPrefix(a.Host, "www.") == strings.TrimPrefix(b.Host, "www.")
}

// genericDomains never count as personal websites.
var genericDomains = map[string]struct{}{
	"gmail.com": {}, "yahoo.com": {}, "outlook.com": {}, "hotmail.com": {},
	"mail.com": {}, "linkedin.com": {}, "indeed.com": {}, "glassdoor.com": {},
	"monster.com": {}, "facebook.com": {}, "twitter.com": {}, "x.com": {},
	"instagram.com": {}, "youtube.com": {}, "drive.google.com": {},
	"docs.google.com": {}, "dropbox.com": {}, "mega.nz": {}, "mediafire.com": {},
}

// publishingPlatforms host personal pages under a subdomain or a single path
// segment.
var publishingPlatforms = []string{
	"github.io", "medium.com", "substack.com", "wordpress.com", "blogspot.com",
	"notion.site", "behance.net", "dribbble.com", "dev.to", "hashnode.dev",
	"about.me", "linktr.ee", "carrd.co", "vercel.app", "netlify.app",
}

// FilterWebsites prunes a raw website list: generic providers and academic
// root domains go, bare roots go unless the host itself is a personal
// platform subdomain, and a root is dropped when a more specific URL for the
// same host survives.
func FilterWebsites(raw []string) []string {
	type candidate struct {
		url      string
		host     string
		pathLen  int
		specific bool
	}
	var candidates []candidate

	for _, w := range raw {
		u, err := url.Parse(strings.TrimSpace(w))
		if err != nil || u.Host == "" {
			continue
		}
		host := strings.ToLower(strings.TrimPrefix(u.Host, "www."))
		if _, generic := genericDomains[host]; generic {
			continue
		}
		path := strings.Trim(u.Path, "/")
		if path == "" {
			if isAcademicRoot(host) {
				continue
			}
			// Bare roots pass only when the subdomain itself names a person.
			if !isPlatformSubdomain(host) {
				continue
			}
		}
		candidates = append(candidates, candidate{
			url:      w,
			host:     host,
			pathLen:  len(path),
			specific: path != "",
		})
	}

	// Prefer the specific URL when both it and a root survived for one host.
	hasSpecific := make(map[string]bool)
	for _, c := range candidates {
		if c.specific {
			hasSpecific[c.host] = true
		}
	}

	var out []string
	seen := make(map[string]struct{})
	for _, c := range candidates {
		if !c.specific && hasSpecific[c.host] {
			continue
		}
		key := c.host + "/" + strings.Trim(c.url, "/")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c.url)
	}
	return out
}

func isAcademicRoot(host string) bool {
	return strings.HasSuffix(host, ".edu") || strings.Contains(host, ".ac.")
}

// isPlatformSubdomain reports a host like user.github.io or name.substack.com.
func isPlatformSubdomain(host string) bool {
	for _, p := range publishingPlatforms {
		if strings.HasSuffix(host, "."+p) {
			return true
		}
	}
	return false
}
