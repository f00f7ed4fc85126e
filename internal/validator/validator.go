package validator

import (
	"regexp"
	"strings"

	"ideaforge/internal/models"
	"ideaforge/internal/sections"
)

const (
	warningSeparator   = " | "
	emptyInputWarning  = "Missing response or keywords"
	missingSectionsMsg = "Response is missing required sections"
)

var tokenSeparators = regexp.MustCompile(`[,\s]+`)

// Validator checks generated text for keyword coverage and section structure.
type Validator struct {
	minFound       int
	minOccurrences int
	markers        []string
}

// Option configures a Validator.
type Option func(*Validator)

// WithMinFound sets the occurrence count below which a keyword counts as missing.
func WithMinFound(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.minFound = n
		}
	}
}

// WithMinOccurrences sets the occurrence count below which a keyword counts as underused.
func WithMinOccurrences(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.minOccurrences = n
		}
	}
}

// New returns a Validator requiring every keyword at least once and all four sections.
func New(opts ...Option) *Validator {
	markers := make([]string, 0, 4)
	for _, s := range sections.Required() {
		markers = append(markers, s.Marker)
	}
	v := &Validator{minFound: 1, minOccurrences: 1, markers: markers}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Tokenize splits keyword input on commas and whitespace, lower-casing each token
// and discarding empty ones.
func Tokenize(keywords string) []string {
	var tokens []string
	for _, tok := range tokenSeparators.Split(strings.ToLower(keywords), -1) {
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Check validates responseText against keywords. It never fails: problems are
// reported in the returned outcome.
func (v *Validator) Check(responseText, keywords string) models.ValidationOutcome {
	tokens := Tokenize(keywords)
	if responseText == "" || len(tokens) == 0 {
		return models.ValidationOutcome{Valid: false, Warning: emptyInputWarning}
	}

	lowerResponse := strings.ToLower(responseText)

	outcome := models.ValidationOutcome{Keywords: make([]models.KeywordResult, 0, len(tokens))}
	for _, tok := range tokens {
		// Literal, non-overlapping matches; tokens may contain regexp metacharacters.
		count := strings.Count(lowerResponse, tok)
		outcome.Keywords = append(outcome.Keywords, models.KeywordResult{
			Keyword: tok,
			Found:   count >= 1,
			Count:   count,
		})
		if count < v.minFound {
			outcome.MissingKeywords = append(outcome.MissingKeywords, tok)
		}
		if count < v.minOccurrences {
			outcome.UnderusedKeywords = append(outcome.UnderusedKeywords, tok)
		}
	}

	for _, marker := range v.markers {
		if !strings.Contains(responseText, marker) {
			outcome.MissingSections = append(outcome.MissingSections, marker)
		}
	}

	var warnings []string
	if len(outcome.MissingKeywords) > 0 {
		warnings = append(warnings, "Missing keywords: "+strings.Join(outcome.MissingKeywords, ", "))
	}
	if len(outcome.UnderusedKeywords) > 0 {
		warnings = append(warnings, "Underused keywords: "+strings.Join(outcome.UnderusedKeywords, ", "))
	}
	if len(outcome.MissingSections) > 0 {
		warnings = append(warnings, missingSectionsMsg+": "+strings.Join(outcome.MissingSections, ", "))
	}

	outcome.Valid = len(warnings) == 0
	outcome.Warning = strings.Join(warnings, warningSeparator)
	return outcome
}
