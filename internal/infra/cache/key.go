package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
)

// Key derives a deterministic cache key from a source and its request
// params. Params are canonicalized through JSON encoding (object keys
// are emitted sorted), so logically identical requests map to the same
// key regardless of map iteration order, stable across process restarts.
func Key(source string, params map[string]any) string {
	return fmt.Sprintf("%s:%s", source, paramsDigest(params))
}

func paramsDigest(params map[string]any) string {
	canon, err := json.Marshal(params)
	if err != nil {
		// Non-serializable params still need a stable digest.
		canon = []byte(fmt.Sprintf("%v", params))
	}
	sum := sha256.Sum256(canon)
	return fmt.Sprintf("%x", sum[:8])
}

// fileName returns the disk file name for a key, derived from the same
// digest so lookups survive restarts.
func fileName(source string, params map[string]any) string {
	return fmt.Sprintf("%s_%s.json", sanitizeName(source), paramsDigest(params))
}

func sanitizeName(source string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, source)
}
