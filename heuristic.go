package nucleus

import (
	"encoding/json"
	"sort"
	"strings"
)

// tokenFromPayload pulls a bearer token out of an arbitrary JSON object a
// capture mechanism lifted from browser storage. The well-known field names
// are tried first; after that a heuristic walk looks for any key containing
// "token" or "auth". The heuristic half is best-effort by nature: it exists
// because the storage schema this targets is undocumented and has changed
// before. Keys are visited in sorted order so the result is deterministic.
func tokenFromPayload(data []byte) (string, bool) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", false
	}
	for _, key := range []string{"access_token", "accessToken", "token"} {
		if tok, ok := payload[key].(string); ok && strings.TrimSpace(tok) != "" {
			return strings.TrimSpace(tok), true
		}
	}
	return probeTokenKeys(payload)
}

func probeTokenKeys(obj map[string]any) (string, bool) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Strings at this level first, then one level down.
	for _, k := range keys {
		if !tokenLikeKey(k) {
			continue
		}
		if tok, ok := obj[k].(string); ok && strings.TrimSpace(tok) != "" {
			return strings.TrimSpace(tok), true
		}
	}
	for _, k := range keys {
		if nested, ok := obj[k].(map[string]any); ok {
			if tok, ok := probeTokenKeys(nested); ok {
				return tok, true
			}
		}
	}
	return "", false
}

func tokenLikeKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "token") || strings.Contains(lower, "auth")
}
