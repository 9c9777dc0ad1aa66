package ai

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// StripCodeFence removes a surrounding ```json ... ``` block if the model added one
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

// ExtractJSONObject returns the outermost {...} span of text, or text unchanged
func ExtractJSONObject(text string) string {
	text = StripCodeFence(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

// DecodeJSON unmarshals model output into v. If the raw text is not valid JSON it is
// repaired once with jsonrepair before giving up.
func DecodeJSON(raw string, v any) error {
	text := ExtractJSONObject(raw)
	err := json.Unmarshal([]byte(text), v)
	if err == nil {
		return nil
	}

	fixed, repairErr := jsonrepair.JSONRepair(text)
	if repairErr != nil {
		return err
	}
	log.Printf("[AI] Repaired malformed JSON (%d -> %d bytes)", len(text), len(fixed))
	return json.Unmarshal([]byte(fixed), v)
}

// ParseArguments decodes tool call arguments into a generic object.
// Malformed or empty arguments yield an empty object rather than an error.
func ParseArguments(raw json.RawMessage) map[string]any {
	args := map[string]any{}
	if len(raw) == 0 {
		return args
	}

	// Some providers send arguments as a JSON-encoded string
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = json.RawMessage(asString)
	}

	if err := DecodeJSON(string(raw), &args); err != nil || args == nil {
		log.Printf("[AI] Failed to parse tool arguments, defaulting to {}: %q", string(raw))
		return map[string]any{}
	}
	return args
}
