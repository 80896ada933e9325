package research

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeReply decodes a model reply into out. Models routinely wrap JSON in
// markdown fences or surround it with prose, so the reply is trimmed to the
// outermost JSON value before decoding. A non-nil error means the caller
// must substitute its documented fallback value; decode failures never
// propagate past the call site.
func decodeReply(reply string, out any) error {
	trimmed := extractJSON(reply)
	if trimmed == "" {
		return fmt.Errorf("no JSON value in reply")
	}
	if err := json.Unmarshal([]byte(trimmed), out); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}

// extractJSON strips markdown code fences and returns the outermost JSON
// object or array in s, or "" when none is present.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')

	start := objStart
	end := strings.LastIndexByte(s, '}')
	if objStart == -1 || (arrStart != -1 && arrStart < objStart) {
		start = arrStart
		end = strings.LastIndexByte(s, ']')
	}
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
