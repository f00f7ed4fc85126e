// Package sections defines the four fixed sections of a generated concept and
// extracts them from result text.
package sections

import "strings"

// Section is one required part of a generated concept.
type Section struct {
	Key     string
	Heading string
	// Marker is the greppable part of the heading that the validator looks for.
	Marker string
}

var (
	Overview       = Section{Key: "overview", Heading: "## 🎮 GAME CONCEPT OVERVIEW", Marker: "GAME CONCEPT OVERVIEW"}
	Implementation = Section{Key: "implementation", Heading: "## ⚙️ UNITY IMPLEMENTATION", Marker: "UNITY IMPLEMENTATION"}
	Roadmap        = Section{Key: "roadmap", Heading: "## 📅 DEVELOPMENT ROADMAP", Marker: "DEVELOPMENT ROADMAP"}
	Scope          = Section{Key: "scope", Heading: "## 🎯 SCOPE & FEASIBILITY", Marker: "SCOPE & FEASIBILITY"}
)

// Required lists the sections in the order the output must present them.
func Required() []Section {
	return []Section{Overview, Implementation, Roadmap, Scope}
}

// ByKey finds a section by its key or marker, ignoring case.
func ByKey(key string) (Section, bool) {
	for _, s := range Required() {
		if strings.EqualFold(s.Key, key) || strings.EqualFold(s.Marker, key) {
			return s, true
		}
	}
	return Section{}, false
}

const headingPrefix = "##"

// Extract returns the part of fullText that starts at the "##" heading line
// containing marker (case-insensitive) and runs up to the next "##" heading line
// or the end of the text. The heading line is included. ok is false when no
// heading carries the marker.
func Extract(fullText, marker string) (section string, ok bool) {
	if strings.TrimSpace(marker) == "" {
		return "", false
	}
	lowerMarker := strings.ToLower(marker)

	start, pos := -1, 0
	for _, line := range strings.SplitAfter(fullText, "\n") {
		isHeading := strings.HasPrefix(strings.TrimSpace(line), headingPrefix)
		switch {
		case start < 0 && isHeading && strings.Contains(strings.ToLower(line), lowerMarker):
			start = pos
		case start >= 0 && isHeading:
			return strings.TrimSpace(fullText[start:pos]), true
		}
		pos += len(line)
	}
	if start < 0 {
		return "", false
	}
	return strings.TrimSpace(fullText[start:]), true
}

// Plain strips markdown heading and bold markers from an extracted section,
// matching how the result is shown to readers.
func Plain(section string) string {
	s := strings.ReplaceAll(section, "**", "")
	s = strings.ReplaceAll(s, headingPrefix, "")
	return strings.TrimSpace(s)
}
