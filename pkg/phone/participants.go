package phone

import (
	"strings"

	"phonesim/pkg/models"
)

// NormalizeParticipants trims names, drops empties and de-duplicates
// case-insensitively, preserving first-seen order. Callers that need the
// player present prepend models.SelfName before calling.
func NormalizeParticipants(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}

// WithSelf returns participants normalized and guaranteed to contain
// models.SelfName, prepended when missing.
func WithSelf(names []string) []string {
	return NormalizeParticipants(append([]string{models.SelfName}, names...))
}

// BuildThreadTitle derives a display title: comma-joined names excluding
// the player. A thread with no other participants gets a fixed label.
func BuildThreadTitle(participants []string) string {
	var others []string
	for _, p := range participants {
		if !strings.EqualFold(p, models.SelfName) {
			others = append(others, p)
		}
	}
	if len(others) == 0 {
		return "Just you"
	}
	return strings.Join(others, ", ")
}
