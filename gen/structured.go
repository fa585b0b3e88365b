package gen

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MissingFieldPlaceholder fills output fields the model failed to
// produce, so downstream nodes receive a complete field map instead of a
// hard failure.
const MissingFieldPlaceholder = "N/A"

// StructuredPrompt appends field instructions to a prompt so the model
// answers with a JSON object keyed by the declared field ids.
func StructuredPrompt(prompt string, fields []OutputField) string {
	if len(fields) == 0 {
		return prompt
	}
	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n\nRespond with a single JSON object containing exactly these keys:\n")
	for _, field := range fields {
		if field.Description != "" {
			fmt.Fprintf(&sb, "- %q: %s\n", field.ID, field.Description)
		} else {
			fmt.Fprintf(&sb, "- %q\n", field.ID)
		}
	}
	sb.WriteString("Every value must be a string. Do not include any other keys or text.")
	return sb.String()
}

// ParseStructuredText extracts one string value per declared field from a
// model response. The response may wrap the JSON object in code fences or
// surrounding prose. Fields the response misses are filled with
// MissingFieldPlaceholder; a fully unparsable response routes the raw
// text into the first field. The returned map always contains every
// declared field id.
func ParseStructuredText(raw string, fields []OutputField) map[string]string {
	result := make(map[string]string, len(fields))

	parsed := map[string]any{}
	if object := extractJSONObject(raw); object != "" {
		// A decode error here leaves parsed empty and the fallback below
		// takes over.
		_ = json.Unmarshal([]byte(object), &parsed)
	}

	for i, field := range fields {
		if value, ok := parsed[field.ID]; ok && value != nil {
			switch v := value.(type) {
			case string:
				result[field.ID] = v
			default:
				encoded, err := json.Marshal(v)
				if err != nil {
					result[field.ID] = fmt.Sprintf("%v", v)
				} else {
					result[field.ID] = string(encoded)
				}
			}
			continue
		}
		if len(parsed) == 0 && i == 0 && strings.TrimSpace(raw) != "" {
			result[field.ID] = strings.TrimSpace(raw)
			continue
		}
		result[field.ID] = MissingFieldPlaceholder
	}
	return result
}

// extractJSONObject returns the first top-level JSON object found in the
// text, tolerating markdown code fences.
func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	if fenced := strings.Index(text, "```"); fenced != -1 {
		rest := text[fenced+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end != -1 {
			text = strings.TrimSpace(rest[:end])
		}
	}
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}
