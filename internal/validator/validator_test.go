package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"ideaforge/internal/models"
)

const structured = `## 🎮 GAME CONCEPT OVERVIEW
Ronda Night Watch: patrol the kampung.
## ⚙️ UNITY IMPLEMENTATION
WarungManager.cs keeps the warung stocked.
## 📅 DEVELOPMENT ROADMAP
Week 1: prototype.
## 🎯 SCOPE & FEASIBILITY
One village.
`

func TestCheckCountsCaseInsensitiveOccurrences(t *testing.T) {
	outcome := New().Check(structured, "ronda, warung")

	assert.True(t, outcome.Valid, outcome.Warning)
	assert.Empty(t, outcome.Warning)
	assert.Equal(t, []models.KeywordResult{
		{Keyword: "ronda", Found: true, Count: 1},
		{Keyword: "warung", Found: true, Count: 2},
	}, outcome.Keywords)
}

func TestCheckReportsMissingKeywordsAndSections(t *testing.T) {
	text := "## 🎮 GAME CONCEPT OVERVIEW\nRonda only.\n## 📅 DEVELOPMENT ROADMAP\n"
	outcome := New().Check(text, "ronda  warung,,pasar")

	assert.False(t, outcome.Valid)
	assert.Equal(t, []string{"warung", "pasar"}, outcome.MissingKeywords)
	assert.Equal(t, []string{"warung", "pasar"}, outcome.UnderusedKeywords)
	assert.Equal(t, []string{"UNITY IMPLEMENTATION", "SCOPE & FEASIBILITY"}, outcome.MissingSections)
	assert.Equal(t,
		"Missing keywords: warung, pasar | Underused keywords: warung, pasar | Response is missing required sections: UNITY IMPLEMENTATION, SCOPE & FEASIBILITY",
		outcome.Warning)
	assert.Contains(t, strings.ToLower(outcome.Warning), "missing required sections")
}

func TestCheckSectionMarkersAreCaseSensitive(t *testing.T) {
	text := strings.ReplaceAll(structured, "DEVELOPMENT ROADMAP", "Development Roadmap")
	outcome := New().Check(text, "ronda")

	assert.False(t, outcome.Valid)
	assert.Equal(t, []string{"DEVELOPMENT ROADMAP"}, outcome.MissingSections)
	assert.Empty(t, outcome.MissingKeywords)
}

func TestCheckEmptyInputIsInvalidNotPanic(t *testing.T) {
	for _, tc := range []struct{ text, keywords string }{
		{"", "ronda"},
		{structured, ""},
		{structured, " , "},
	} {
		outcome := New().Check(tc.text, tc.keywords)
		assert.False(t, outcome.Valid)
		assert.Equal(t, emptyInputWarning, outcome.Warning)
	}
}

func TestCheckEscapesMetacharacters(t *testing.T) {
	text := structured + "\nUses C++ and c++ plus a.b"
	outcome := New().Check(text, "c++ a.b")

	assert.Equal(t, 2, outcome.Keywords[0].Count)
	assert.Equal(t, 1, outcome.Keywords[1].Count)
}

func TestUnderuseThresholdIsIndependentOfMissing(t *testing.T) {
	outcome := New(WithMinOccurrences(2)).Check(structured, "ronda warung")

	assert.False(t, outcome.Valid)
	assert.Empty(t, outcome.MissingKeywords)
	assert.Equal(t, []string{"ronda"}, outcome.UnderusedKeywords)
	assert.Equal(t, "Underused keywords: ronda", outcome.Warning)
	assert.True(t, outcome.Keywords[0].Found)
}

func TestMissingThresholdCanBeRaised(t *testing.T) {
	outcome := New(WithMinFound(2)).Check(structured, "ronda warung")

	assert.Equal(t, []string{"ronda"}, outcome.MissingKeywords)
	assert.Empty(t, outcome.UnderusedKeywords)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"ronda", "warung", "pasar"}, Tokenize(" Ronda,\tWARUNG\n pasar, "))
	assert.Empty(t, Tokenize(" ,, "))
}
