package domain

import (
	"encoding/json"
	"strings"

	"nexus-backend/pkg/ai"
)

const (
	// ExhaustedMessage replaces the answer when the iteration budget runs out
	ExhaustedMessage = "I couldn't finish working through that request. Please try again or narrow the question."
	// RetryMessage is the only text shown to users when a turn fails outright
	RetryMessage = "Something went wrong while preparing your answer. Please try again."
)

// Answer is the structured reply shape. Widgets and citations are rendered by
// the client and kept opaque here.
type Answer struct {
	TextSummary string            `json:"textSummary"`
	Widgets     []json.RawMessage `json:"widgets"`
	Citations   []json.RawMessage `json:"citations"`
}

// ParseAnswer reads model output as an Answer. Anything that does not decode
// to a non-empty answer becomes the text summary as-is.
func ParseAnswer(content string) Answer {
	var a Answer
	if err := ai.DecodeJSON(content, &a); err != nil || (a.TextSummary == "" && len(a.Widgets) == 0) {
		a = Answer{TextSummary: strings.TrimSpace(content)}
	}
	if a.Widgets == nil {
		a.Widgets = []json.RawMessage{}
	}
	if a.Citations == nil {
		a.Citations = []json.RawMessage{}
	}
	return a
}
