package sections

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `Intro line
## 🎮 GAME CONCEPT OVERVIEW
**Title Options:** Ronda Malam
## ⚙️ UNITY IMPLEMENTATION
**Essential Scripts:** WarungManager.cs
## 📅 DEVELOPMENT ROADMAP
Week 1: prototype
## 🎯 SCOPE & FEASIBILITY
**Realistic Goals:** one level
`

func TestExtractReturnsSectionUpToNextHeading(t *testing.T) {
	got, ok := Extract(sample, Implementation.Marker)
	require.True(t, ok)
	assert.Equal(t, "## ⚙️ UNITY IMPLEMENTATION\n**Essential Scripts:** WarungManager.cs", got)
}

func TestExtractLastSectionRunsToEnd(t *testing.T) {
	got, ok := Extract(sample, Scope.Marker)
	require.True(t, ok)
	assert.Equal(t, "## 🎯 SCOPE & FEASIBILITY\n**Realistic Goals:** one level", got)
}

func TestExtractIsCaseInsensitiveAndIgnoresBodyMentions(t *testing.T) {
	text := "The development roadmap is below.\n## Development Roadmap\nWeek 1\n## Other\n"
	got, ok := Extract(text, "DEVELOPMENT ROADMAP")
	require.True(t, ok)
	assert.Equal(t, "## Development Roadmap\nWeek 1", got)
}

func TestExtractMissingSection(t *testing.T) {
	_, ok := Extract("no headings at all", Overview.Marker)
	assert.False(t, ok)

	_, ok = Extract(sample, "")
	assert.False(t, ok)
}

func TestPlainStripsMarkdown(t *testing.T) {
	got, _ := Extract(sample, Overview.Marker)
	assert.Equal(t, "🎮 GAME CONCEPT OVERVIEW\nTitle Options: Ronda Malam", Plain(got))
}

func TestByKey(t *testing.T) {
	s, ok := ByKey("ROADMAP")
	require.True(t, ok)
	assert.Equal(t, Roadmap, s)

	s, ok = ByKey("scope & feasibility")
	require.True(t, ok)
	assert.Equal(t, Scope, s)

	_, ok = ByKey("risk")
	assert.False(t, ok)
}

func TestRequiredOrder(t *testing.T) {
	keys := make([]string, 0, 4)
	for _, s := range Required() {
		keys = append(keys, s.Key)
	}
	assert.Equal(t, []string{"overview", "implementation", "roadmap", "scope"}, keys)
}
