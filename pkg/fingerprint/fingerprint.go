// Package fingerprint produces deterministic content hashes of item
// snapshots so the ingestion pipeline can skip re-ranking unchanged
// redeliveries.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Snapshot returns the SHA-256 hex digest of data's canonical form: keys
// sorted at every level, values JSON-encoded. Paths listed in exclude
// (dot notation; a parent path excludes its whole subtree) are left out so
// churn-only fields never change the hash.
func Snapshot(data map[string]any, exclude map[string]bool) string {
	var b strings.Builder
	writeCanonical(&b, data, exclude, "")
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeCanonical(b *strings.Builder, value any, exclude map[string]bool, path string) {
	switch v := value.(type) {
	case map[string]any:
		writeMap(b, v, exclude, path)
	case []any:
		b.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, elem, exclude, path)
		}
		b.WriteByte(']')
	default:
		raw, _ := json.Marshal(v)
		b.Write(raw)
	}
}

func writeMap(b *strings.Builder, m map[string]any, exclude map[string]bool, path string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteByte('{')
	first := true
	for _, k := range keys {
		keyPath := k
		if path != "" {
			keyPath = path + "." + k
		}
		if excluded(keyPath, exclude) {
			continue
		}

		if !first {
			b.WriteByte(',')
		}
		first = false
		rawKey, _ := json.Marshal(k)
		b.Write(rawKey)
		b.WriteByte(':')
		writeCanonical(b, m[k], exclude, keyPath)
	}
	b.WriteByte('}')
}

func excluded(path string, exclude map[string]bool) bool {
	if exclude == nil {
		return false
	}
	if exclude[path] {
		return true
	}
	for parent := range exclude {
		if strings.HasPrefix(path, parent+".") {
			return true
		}
	}
	return false
}
