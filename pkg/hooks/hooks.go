package hooks

import (
	"regexp"
	"strings"
)

// Hook types, in priority order. Urgency outranks social framing so a
// sentence carrying both resolves to the urgent event.
const (
	HookUrgent   = "urgent"
	HookInvite   = "invite"
	HookLocation = "location"
	HookCheckin  = "checkin"
)

// Hook is a narrative-derived signal that forces a phone event.
type Hook struct {
	Type      string
	TopicHint string
}

// keyword tables, tested first-match-wins in declaration order.
var hookCategories = []struct {
	typ      string
	keywords []string
}{
	{HookUrgent, []string{"danger", "emergency", "hospital", "police", "fight", "injured", "help"}},
	{HookInvite, []string{"party", "hangout", "meet up", "come over", "tonight", "plans"}},
	{HookLocation, []string{"cafe", "school", "work", "mall", "park", "street", "home", "apartment"}},
	{HookCheckin, []string{"where are you", "late", "waiting", "on my way"}},
}

// DetectStoryPhoneHook scans narrative text for phone-relevant signals.
// Returns nil when the text carries none.
func DetectStoryPhoneHook(storyText string) *Hook {
	text := strings.ToLower(storyText)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	for _, cat := range hookCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(text, kw) {
				return &Hook{Type: cat.typ, TopicHint: kw}
			}
		}
	}
	return nil
}

// mentionedInText reports a case-insensitive word-boundary match of name.
func mentionedInText(text, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// hookTargetLimit is how many recipients a hook addresses.
func hookTargetLimit(hookType string) int {
	if hookType == HookCheckin {
		return 1
	}
	return 2
}

// ChooseHookTargets ranks candidate recipients for a hook: characters
// mentioned in the text first, then characters active in the scene, then
// any remaining known contacts, de-duplicated in that precedence order.
// knownContacts holds lowercase names; displayNames maps them back to
// their roster spelling.
func ChooseHookTargets(hook *Hook, storyText string, activeCharacters, knownContacts []string, displayNames map[string]string) []string {
	if hook == nil || len(knownContacts) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(knownContacts))
	for _, k := range knownContacts {
		known[strings.ToLower(k)] = struct{}{}
	}
	seen := make(map[string]struct{})
	var ranked []string
	add := func(name string) {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return
		}
		if _, ok := known[key]; !ok {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		if disp, ok := displayNames[key]; ok && disp != "" {
			ranked = append(ranked, disp)
		} else {
			ranked = append(ranked, name)
		}
	}

	for _, k := range knownContacts {
		disp := k
		if d, ok := displayNames[strings.ToLower(k)]; ok && d != "" {
			disp = d
		}
		if mentionedInText(storyText, disp) {
			add(k)
		}
	}
	for _, a := range activeCharacters {
		add(a)
	}
	for _, k := range knownContacts {
		add(k)
	}

	limit := hookTargetLimit(hook.Type)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
