package hooks

import (
	"strings"

	"phonesim/pkg/models"
)

// phoneCueWords gate contact unlocking: without one of these the text is
// not about phones at all and name mentions are ignored.
var phoneCueWords = []string{"text", "number", "call", "phone", "dm", "reach", "contact", "message"}

func hasPhoneCue(text string) bool {
	for _, w := range phoneCueWords {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// FindStoryContactUnlocks scans narrative text for newly available phone
// numbers. A known character unlocks when the text carries a phone cue and
// the character is either mentioned by name or active in the scene.
// contacts is mutated in place; the returned slice holds the roster
// spelling of each newly unlocked name.
func FindStoryContactUnlocks(storyText string, activeCharacters []string, contacts map[string]models.Contact, characterNames []string) []string {
	text := strings.ToLower(storyText)
	if !hasPhoneCue(text) {
		return nil
	}
	active := make(map[string]struct{}, len(activeCharacters))
	for _, a := range activeCharacters {
		active[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	var unlocked []string
	for _, name := range characterNames {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || key == strings.ToLower(models.SelfName) {
			continue
		}
		if c, ok := contacts[key]; ok && c.HasNumber {
			continue
		}
		_, isActive := active[key]
		if !isActive && !mentionedInText(storyText, name) {
			continue
		}
		contacts[key] = models.Contact{HasNumber: true}
		unlocked = append(unlocked, name)
	}
	return unlocked
}
