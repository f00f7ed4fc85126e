package models

import (
	"fmt"
	"strings"
	"time"
)

// Platform is the Unity rendering target of a generated concept.
type Platform string

const (
	Platform2D Platform = "Unity 2D"
	Platform3D Platform = "Unity 3D"
)

// Timeline is the development timeframe and team size of a generated concept.
type Timeline string

const (
	TimelineSoloShort    Timeline = "1 Month Solo"
	TimelineTeamExtended Timeline = "3-6 Months Team"
)

// Category is the game genre requested by the user.
type Category string

const (
	CategoryCasual  Category = "Casual"
	CategoryPuzzle  Category = "Puzzle"
	CategoryHorror  Category = "Horror"
	CategoryAnomaly Category = "Anomaly"
	CategoryIdle    Category = "Idle"
)

var (
	platformAliases = map[string]Platform{
		"2d":       Platform2D,
		"unity 2d": Platform2D,
		"3d":       Platform3D,
		"unity 3d": Platform3D,
	}
	timelineAliases = map[string]Timeline{
		"solo-short":      TimelineSoloShort,
		"1 month solo":    TimelineSoloShort,
		"team-extended":   TimelineTeamExtended,
		"3-6 months team": TimelineTeamExtended,
	}
	categories = []Category{CategoryCasual, CategoryPuzzle, CategoryHorror, CategoryAnomaly, CategoryIdle}
)

// ParsePlatform resolves a platform name or short alias such as "2D".
func ParsePlatform(s string) (Platform, error) {
	if p, ok := platformAliases[normalizeEnum(s)]; ok {
		return p, nil
	}
	return "", fmt.Errorf("platform %q must be one of %q or %q", s, Platform2D, Platform3D)
}

// ParseTimeline resolves a timeline name or short alias such as "solo-short".
func ParseTimeline(s string) (Timeline, error) {
	if t, ok := timelineAliases[normalizeEnum(s)]; ok {
		return t, nil
	}
	return "", fmt.Errorf("timeline %q must be one of %q or %q", s, TimelineSoloShort, TimelineTeamExtended)
}

// ParseCategory resolves a category name, ignoring case.
func ParseCategory(s string) (Category, error) {
	key := normalizeEnum(s)
	for _, c := range categories {
		if strings.ToLower(string(c)) == key {
			return c, nil
		}
	}
	return "", fmt.Errorf("category %q must be one of %v", s, categories)
}

func normalizeEnum(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// GenerationRequest is one user action asking for a game concept.
type GenerationRequest struct {
	SessionID string   `json:"sessionId"`
	Keywords  string   `json:"keywords"`
	Platform  Platform `json:"platform"`
	Timeline  Timeline `json:"timeline"`
	Category  Category `json:"category"`
}

// ResultMetadata describes which provider produced a result and how long it took.
type ResultMetadata struct {
	ProviderName string    `json:"providerName"`
	Dialect      string    `json:"dialect"`
	LatencyMS    int64     `json:"latencyMs"`
	Timestamp    time.Time `json:"timestamp"`
}

// ProviderFailure is a single provider attempt that did not produce text.
type ProviderFailure struct {
	ProviderName string `json:"provider"`
	Message      string `json:"error"`
}

// ProviderResult is the outcome of one orchestration run.
type ProviderResult struct {
	Success  bool              `json:"success"`
	Text     string            `json:"text,omitempty"`
	Metadata ResultMetadata    `json:"metadata"`
	Failures []ProviderFailure `json:"failures,omitempty"`
	Err      error             `json:"-"`
}

// KeywordResult reports coverage for a single keyword token.
type KeywordResult struct {
	Keyword string `json:"keyword"`
	Found   bool   `json:"found"`
	Count   int    `json:"count"`
}

// ValidationOutcome is the verdict on a generated text.
type ValidationOutcome struct {
	Valid             bool            `json:"valid"`
	Warning           string          `json:"warning"`
	Keywords          []KeywordResult `json:"keywordResults"`
	MissingKeywords   []string        `json:"missingKeywords,omitempty"`
	UnderusedKeywords []string        `json:"underusedKeywords,omitempty"`
	MissingSections   []string        `json:"missingSections,omitempty"`
}

// HistoryEntry is an immutable record of an accepted generation.
type HistoryEntry struct {
	ID           string            `json:"id"`
	Request      GenerationRequest `json:"request"`
	ResultText   string            `json:"resultText"`
	ProviderName string            `json:"providerName"`
	Timestamp    time.Time         `json:"timestamp"`
}
