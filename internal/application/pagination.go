package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ParseNextLink extracts the rel="next" target from a Link header.
// It returns "" when the header is empty or carries no next relation.
func ParseNextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
				continue
			}
			for _, rel := range strings.Fields(strings.Trim(strings.TrimSpace(value), `"`)) {
				if strings.EqualFold(rel, "next") {
					return target[1 : len(target)-1]
				}
			}
		}
	}
	return ""
}

// extractRecords finds the array of records in a listing page. rootKey wins when present;
// otherwise the page must carry an array-valued field. ok is false when none is found.
func extractRecords(body []byte, rootKey string) (records []json.RawMessage, ok bool, err error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, false, fmt.Errorf("failed to decode page: %w", err)
	}

	if raw, exists := fields[rootKey]; exists && isArray(raw) {
		return decodeArray(raw)
	}

	keys := make([]string, 0, len(fields))
	for key, raw := range fields {
		if isArray(raw) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, false, nil
	}
	sort.Strings(keys)
	return decodeArray(fields[keys[0]])
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func decodeArray(raw json.RawMessage) ([]json.RawMessage, bool, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, fmt.Errorf("failed to decode records: %w", err)
	}
	return items, true, nil
}
