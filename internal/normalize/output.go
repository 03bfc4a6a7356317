// Package normalize maps provider-specific job payloads onto the canonical
// job model.
package normalize

import (
	"encoding/json"
	"sort"
	"strings"
)

// priorityKeys are checked before any other field of an output object.
var priorityKeys = []string{"url", "video", "mp4", "download_url"}

// ExtractResult finds the primary result URL in a provider output and returns
// it together with the value to keep for auditing. Providers return a bare
// string, a list of URLs or an object; anything else yields no URL.
func ExtractResult(raw any) (string, any) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, v
	case []any:
		return findURL(v), v
	case map[string]any:
		return findURL(v), v
	default:
		return "", v
	}
}

// ExtractResultJSON decodes raw before calling ExtractResult. Undecodable
// input is kept verbatim as the audit value.
func ExtractResultJSON(raw json.RawMessage) (string, json.RawMessage) {
	if len(raw) == 0 {
		return "", nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", raw
	}
	if decoded == nil {
		return "", nil
	}
	url, _ := ExtractResult(decoded)
	return url, raw
}

func findURL(v any) string {
	switch t := v.(type) {
	case string:
		if hasScheme(t) {
			return t
		}
	case []any:
		for _, item := range t {
			if url := findURL(item); url != "" {
				return url
			}
		}
	case map[string]any:
		for _, key := range priorityKeys {
			if s, ok := t[key].(string); ok && hasScheme(s) {
				return s
			}
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := t[k].(string); ok && hasScheme(s) {
				return s
			}
		}
		for _, k := range keys {
			switch t[k].(type) {
			case []any, map[string]any:
				if url := findURL(t[k]); url != "" {
					return url
				}
			}
		}
	}
	return ""
}

func hasScheme(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// ErrorText flattens a provider error field, which may be a JSON string, an
// object or null.
func ErrorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if msg := strings.TrimSpace(obj.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(obj.Detail); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(raw))
}
