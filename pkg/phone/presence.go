package phone

import (
	"fmt"
	"strings"

	"phonesim/pkg/models"
)

// Presence windows, relative to "now" in epoch ms.
const (
	OnlineWindowMs = 2 * 60 * 1000
	RecentWindowMs = 30 * 60 * 1000
)

const PresenceOnline = "online"

// MarkPresence records simulated activity for a character. The player and
// empty names are ignored. Keys are lowercased.
func MarkPresence(meta map[string]models.Presence, name string, now int64) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, models.SelfName) {
		return
	}
	meta[strings.ToLower(name)] = models.Presence{Status: PresenceOnline, LastActiveTS: now}
}

// BuildPresenceTextForThread returns a short presence line for a thread,
// or "" when the data is too stale to be worth showing.
func BuildPresenceTextForThread(t *models.Thread, meta map[string]models.Presence, now int64) string {
	others := t.Others()
	if len(others) == 0 {
		return ""
	}
	if len(others) == 1 {
		name := others[0]
		p, ok := meta[strings.ToLower(name)]
		if !ok || p.LastActiveTS == 0 {
			return ""
		}
		age := now - p.LastActiveTS
		switch {
		case age <= OnlineWindowMs:
			return name + " is online"
		case age <= RecentWindowMs:
			return name + " active recently"
		}
		return ""
	}
	// group: count who is inside the online window, otherwise fall back to
	// the most recently active participant
	online := 0
	var freshest string
	var freshestTS int64
	for _, name := range others {
		p, ok := meta[strings.ToLower(name)]
		if !ok || p.LastActiveTS == 0 {
			continue
		}
		if now-p.LastActiveTS <= OnlineWindowMs {
			online++
		}
		if p.LastActiveTS > freshestTS {
			freshestTS = p.LastActiveTS
			freshest = name
		}
	}
	if online > 0 {
		return fmt.Sprintf("%d online", online)
	}
	if freshest != "" && now-freshestTS <= RecentWindowMs {
		return freshest + " active recently"
	}
	return ""
}
