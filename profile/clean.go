package profile

import "strings"

// CollapseDuplicateText fixes the doubled-label artifact produced by
// overlapping accessible and visible text nodes: "CEOCEO" -> "CEO",
// "Senior Developer Senior Developer" -> "Senior Developer". Text without
// an exact first-half/second-half repeat is returned unchanged.
func CollapseDuplicateText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}

	// Perfect character-level duplicate.
	if n := len(text); n >= 2 && n%2 == 0 {
		half := n / 2
		if text[:half] == text[half:] {
			return text[:half]
		}
	}

	// Duplicate with a space separator: "CEO CEO" -> "CEO".
	parts := strings.Fields(text)
	if n := len(parts); n >= 2 && n%2 == 0 {
		half := n / 2
		if equalFields(parts[:half], parts[half:]) {
			return strings.Join(parts[:half], " ")
		}
	}

	return text
}

func equalFields(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DedupeExperience keeps the first entry per (title|organization|startDate)
// key, preserving order. Titles and organizations are collapsed first so the
// key is computed on cleaned text.
func DedupeExperience(entries []Experience) []Experience {
	seen := make(map[string]bool, len(entries))
	out := entries[:0:0]
	for _, e := range entries {
		e.Title = CollapseDuplicateText(e.Title)
		e.Organization = CollapseDuplicateText(e.Organization)
		key := e.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

// DedupeEducation mirrors DedupeExperience for education entries.
func DedupeEducation(entries []Education) []Education {
	seen := make(map[string]bool, len(entries))
	out := entries[:0:0]
	for _, e := range entries {
		e.School = CollapseDuplicateText(e.School)
		e.Degree = CollapseDuplicateText(e.Degree)
		key := e.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

// DedupeStrings keeps first occurrence, case-insensitively.
func DedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0:0]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		lower := strings.ToLower(v)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, v)
	}
	return out
}
