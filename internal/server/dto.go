package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ideaforge/internal/models"
	"ideaforge/internal/sections"
)

var (
	errEmptyText      = errors.New("text must be provided")
	errUnknownSection = errors.New("unknown section")
)

// ideaRequest is the body of POST /v1/ideas.
type ideaRequest struct {
	SessionID string `json:"sessionId"`
	Keywords  string `json:"keywords"`
	Platform  string `json:"platform"`
	Timeline  string `json:"timeline"`
	Category  string `json:"category"`
}

func (r ideaRequest) toModel() models.GenerationRequest {
	return models.GenerationRequest{
		SessionID: r.SessionID,
		Keywords:  r.Keywords,
		Platform:  models.Platform(r.Platform),
		Timeline:  models.Timeline(r.Timeline),
		Category:  models.Category(r.Category),
	}
}

// translationRequest is the body of POST /v1/translations. Section optionally
// limits the translation to one section, named by key or marker.
type translationRequest struct {
	Text     string
	Language string
	Marker   string
}

// UnmarshalJSON decodes and validates the request.
func (r *translationRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Text     string `json:"text"`
		Language string `json:"language"`
		Section  string `json:"section"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode translation request: %w", err)
	}

	if strings.TrimSpace(raw.Text) == "" {
		return errEmptyText
	}
	r.Text = raw.Text
	r.Language = strings.TrimSpace(raw.Language)

	if section := strings.TrimSpace(raw.Section); section != "" {
		s, ok := sections.ByKey(section)
		if !ok {
			return fmt.Errorf("%w %q", errUnknownSection, section)
		}
		r.Marker = s.Marker
	}
	return nil
}

type translationResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Section  string `json:"section,omitempty"`
}

// briefRequest is the body of POST /v1/briefs.
type briefRequest struct {
	Text string
}

// UnmarshalJSON decodes and validates the request.
func (r *briefRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode brief request: %w", err)
	}
	if strings.TrimSpace(raw.Text) == "" {
		return errEmptyText
	}
	r.Text = raw.Text
	return nil
}

type briefResponse struct {
	Prompt string `json:"prompt"`
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
}

type historyResponse struct {
	SessionID string                `json:"sessionId"`
	Entries   []models.HistoryEntry `json:"entries"`
}
