package llmutil

import (
	"fmt"
	"strings"
)

// ExtractJSONObject pulls a JSON object out of model output that may carry
// markdown fences or surrounding prose. It locates the first '{' and the
// last '}' and returns the substring between them, inclusive.
// Returns an error if no object-shaped region is found.
func ExtractJSONObject(text string) (string, error) {
	content := strings.TrimSpace(text)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object found in text")
	}
	return content[start : end+1], nil
}
