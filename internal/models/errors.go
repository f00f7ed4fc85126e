package models

import (
	"errors"
	"strings"
)

// ErrInvalidInput indicates caller-supplied parameters were rejected before any provider call.
var ErrInvalidInput = errors.New("invalid input")

// ParamError lists every parameter problem found in a single request.
type ParamError struct {
	Problems []string
}

func (e *ParamError) Error() string {
	return "invalid parameters: " + strings.Join(e.Problems, ", ")
}

// Is reports ErrInvalidInput so callers can match on the sentinel.
func (e *ParamError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Validate checks that every field is present and that enum fields hold known values.
// Enum fields are normalised in place.
func (r *GenerationRequest) Validate() error {
	var problems []string

	if strings.TrimSpace(r.SessionID) == "" {
		problems = append(problems, "sessionId is required")
	}
	if strings.TrimSpace(r.Keywords) == "" {
		problems = append(problems, "keywords is required and must be non-empty")
	}

	if strings.TrimSpace(string(r.Platform)) == "" {
		problems = append(problems, "platform is required")
	} else if p, err := ParsePlatform(string(r.Platform)); err != nil {
		problems = append(problems, err.Error())
	} else {
		r.Platform = p
	}

	if strings.TrimSpace(string(r.Timeline)) == "" {
		problems = append(problems, "timeline is required")
	} else if t, err := ParseTimeline(string(r.Timeline)); err != nil {
		problems = append(problems, err.Error())
	} else {
		r.Timeline = t
	}

	if strings.TrimSpace(string(r.Category)) == "" {
		problems = append(problems, "category is required")
	} else if c, err := ParseCategory(string(r.Category)); err != nil {
		problems = append(problems, err.Error())
	} else {
		r.Category = c
	}

	if len(problems) > 0 {
		return &ParamError{Problems: problems}
	}
	return nil
}
