package prompt

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"ideaforge/internal/models"
	"ideaforge/internal/sections"
)

// MaxFieldLength caps every sanitized free-text field, in characters.
const MaxFieldLength = 500

const sectionUnavailable = "Information not available."

var (
	angleBrackets = regexp.MustCompile(`[<>]`)
	jsScheme      = regexp.MustCompile(`(?i)javascript:`)
	eventHandler  = regexp.MustCompile(`(?i)on\w+=`)
)

// Sanitize removes markup and script-injection tokens from untrusted input, trims
// it and caps its length. Input is never rejected.
func Sanitize(input string) string {
	s := input
	for {
		next := angleBrackets.ReplaceAllString(s, "")
		next = jsScheme.ReplaceAllString(next, "")
		next = eventHandler.ReplaceAllString(next, "")
		if next == s {
			break
		}
		s = next
	}
	s = strings.TrimSpace(s)

	runes := []rune(s)
	if len(runes) > MaxFieldLength {
		s = strings.TrimSpace(string(runes[:MaxFieldLength]))
	}
	return s
}

// Keywords returns the keyword text exactly as Build embeds it in the prompt.
// Responses must be checked against this text, not the raw input.
func Keywords(req models.GenerationRequest) string {
	return Sanitize(req.Keywords)
}

type generationData struct {
	SessionID string
	Keywords  string
	Platform  string
	Timeline  string
	Category  string
	Sections  []sections.Section
}

var generationTemplate = template.Must(template.New("generation").Parse(`
==== FRESH GAME GENERATION SESSION ====
SESSION_ID: {{.SessionID}}
CRITICAL REQUIREMENTS:
1. USE ALL PROVIDED KEYWORDS EXACTLY AS GIVEN: "{{.Keywords}}"
2. Every keyword MUST appear verbatim, with exact spelling, in the game title, description, or mechanics
3. If keywords seem unusual, creatively integrate them into the concept
4. Validate keyword presence before finalizing output

ROLE: Unity Game Design Specialist for Solo/Small Team Development

TASK: Generate ONE unique game concept that INCORPORATES ALL THESE KEYWORDS: "{{.Keywords}}"

MANDATORY KEYWORD USAGE:
- Each keyword must be used at least once
- Keywords must be integrated naturally into the concept
- Never omit, translate or anglicize any keyword

PARAMETERS:
- Keywords: "{{.Keywords}}"
- Platform: {{.Platform}}
- Timeline: {{.Timeline}}
- Category: {{.Category}}

MANDATORY ANALYSIS PROCESS:
1. Read ONLY these keywords: "{{.Keywords}}"
2. Identify the UNIQUE ESSENCE of these specific words
3. What activities, behaviors, or interactions do these keywords represent?
4. What emotions or atmospheres do they naturally evoke?
5. Derive game mechanics FROM this essence (not adapt keywords TO existing templates)

OUTPUT STRUCTURE REQUIRED (use these headings exactly, in this order):
{{range .Sections}}
{{.Heading}}
{{- if eq .Key "overview"}}
**Title Options:** [3 creative titles]
**Core Essence:** [What makes these keywords unique]
**Primary Activity:** [What players will actually DO]
**Unique Hook:** [Why this is different from existing games]
{{- else if eq .Key "implementation"}}
**Platform Optimization:** [Specific to Unity 2D/3D choice]
**Essential Scripts:** [List of C# scripts needed]
**Key Prefabs:** [Main prefabs to create]
**Technical Challenges:** [Unity-specific implementation issues]
{{- else if eq .Key "roadmap"}}
[Detailed timeline based on selected timeframe]
{{- else if eq .Key "scope"}}
**Realistic Goals:** [What's achievable in timeframe]
**Risk Factors:** [Potential development challenges]
**Simplification Options:** [If scope is too ambitious]
{{- end}}
{{end}}
CRITICAL CONSTRAINTS:
- Focus ONLY on "{{.Keywords}}" - no other influences
- All suggestions must be realistic for Unity development
- Timeline must be achievable for selected team size
- Provide specific, actionable implementation guidance

==== END CONTEXT ISOLATION ====
`))

// Build renders the generation prompt for req. It performs no I/O and returns
// identical output for identical input.
func Build(req models.GenerationRequest) (string, error) {
	data := generationData{
		SessionID: Sanitize(req.SessionID),
		Keywords:  Keywords(req),
		Platform:  Sanitize(string(req.Platform)),
		Timeline:  Sanitize(string(req.Timeline)),
		Category:  Sanitize(string(req.Category)),
		Sections:  sections.Required(),
	}

	var buf bytes.Buffer
	if err := generationTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render generation prompt: %w", err)
	}
	return buf.String(), nil
}

// BuildTranslation wraps text in the translation instruction for the named language.
func BuildTranslation(text, languageName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate the following game development documentation strictly to %s while preserving:\n", languageName)
	b.WriteString("1. All technical terms (keep in English)\n")
	b.WriteString("2. Markdown formatting\n")
	b.WriteString("3. Code blocks and special characters\n")
	b.WriteString("4. Section headers structure, including every \"##\" heading line exactly as written\n\n")
	b.WriteString("Only translate natural language portions. Return the exact same structure with translated text.\n\n")
	b.WriteString("Text to translate:\n")
	b.WriteString(text)
	return b.String()
}

// BuildImplementationBrief turns a generated concept into a follow-up prompt asking
// a coding assistant for the complete Unity implementation.
func BuildImplementationBrief(resultText string) (string, error) {
	if strings.TrimSpace(resultText) == "" {
		return "", fmt.Errorf("%w: result text must not be empty", models.ErrInvalidInput)
	}

	section := func(s sections.Section) string {
		if text, ok := sections.Extract(resultText, s.Marker); ok {
			return sections.Plain(text)
		}
		return sectionUnavailable
	}

	return fmt.Sprintf(`Create a Unity game with the following specifications:

Game Overview:
%s

Technical Requirements:
%s

Development Plan:
%s

Please provide the complete implementation including:
1. All necessary C# scripts
2. GameObject hierarchy setup
3. Component configurations
4. Scene organization
5. Asset requirements`,
		section(sections.Overview),
		section(sections.Implementation),
		section(sections.Roadmap),
	), nil
}
