// Package identutil derives filesystem-safe artifact keys from login
// identities, which may contain arbitrary characters.
package identutil

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// SafeKey maps an identity to a name safe for filesystem and object-store
// keys. Unsafe runes become underscores; a short hash suffix keeps distinct
// identities from colliding after substitution.
func SafeKey(identity string) string {
	var b strings.Builder
	for _, r := range identity {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		cleaned = "identity"
	}
	if len(cleaned) > 64 {
		cleaned = cleaned[:64]
	}

	if cleaned == identity {
		return cleaned
	}
	h := fnv.New32a()
	h.Write([]byte(identity))
	return fmt.Sprintf("%s-%08x", cleaned, h.Sum32())
}
