// Package slug builds the human-readable path segment that follows a
// workgroup id in its canonical URL.
package slug

import (
	"strings"

	"github.com/dalemusser/mdregistry/internal/app/system/normalize"
)

// Make folds s (lowercase, diacritics stripped) and joins its runs of
// letters and digits with single hyphens.
func Make(s string) string {
	folded := normalize.Fold(s)
	var b strings.Builder
	pendingDash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// Matches reports whether got is an acceptable slug for name: non-empty and
// a prefix of the canonical slug. Truncated links keep working.
func Matches(got, name string) bool {
	return got != "" && strings.HasPrefix(Make(name), got)
}
