package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseAnalyses decodes an analyzer's raw text output. Models wrap JSON in
// markdown fences or prose often enough that the first balanced array is
// extracted before unmarshalling. A bare object is accepted as a batch of
// one, which some models produce for single-item prompts.
func parseAnalyses(resp string) ([]Analysis, error) {
	cleaned := strings.TrimSpace(resp)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	if jsonStr, ok := extractFirstJSONArray(cleaned); ok {
		cleaned = jsonStr
	}

	var analyses []Analysis
	if err := json.Unmarshal([]byte(cleaned), &analyses); err != nil {
		var single Analysis
		if objErr := json.Unmarshal([]byte(strings.TrimSpace(cleaned)), &single); objErr == nil && single.ID != "" {
			return []Analysis{single}, nil
		}
		return nil, fmt.Errorf("not a JSON analysis array: %w", err)
	}
	return analyses, nil
}

// extractFirstJSONArray finds the first outermost balanced [...].
func extractFirstJSONArray(s string) (string, bool) {
	start := strings.Index(s, "[")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}

		if char == '\\' {
			escaped = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if char == '[' {
				depth++
			} else if char == ']' {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}
