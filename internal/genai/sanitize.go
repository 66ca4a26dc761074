package genai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripCodeFence removes incidental markdown wrapping (```json … ```)
// models sometimes add despite instructions. The content itself is
// untouched.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject pulls the outermost {...} out of free-form model text.
// Used only on the legacy path; the structured path is schema-constrained.
func ExtractJSONObject(raw string) (string, error) {
	s := StripCodeFence(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in model output")
	}
	return s[start : end+1], nil
}

// PruneUnknownKeys removes top-level keys not in allowed, for strict
// additionalProperties=false friendliness. Returns the re-encoded document
// and the dropped key names.
func PruneUnknownKeys(doc []byte, allowed map[string]struct{}) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	var dropped []string
	for k := range m {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k)
		}
	}
	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, dropped, nil
}
