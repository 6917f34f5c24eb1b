package sim

import (
	"context"
	"os"
	"regexp"
	"strings"

	"phonesim/pkg/gen"
	"phonesim/pkg/logger"
	"phonesim/pkg/models"
	"phonesim/pkg/phone"
	"phonesim/pkg/telemetry"
	"phonesim/pkg/utils"
)

// burstOpts sizes and flavors one inbound burst.
type burstOpts struct {
	min, max  int
	topicHint string
	// chatter marks a side conversation between characters.
	chatter bool
}

var awaitingReplyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(can|could|will|would|should|won't|wanna|gonna)\s+(you|u)\b`),
	regexp.MustCompile(`(?i)\blet me know\b`),
}

// isThreadAwaitingUserReply reports whether the latest character message
// reads as a question or prompt to the player. Bursting on top of an
// unanswered prompt piles up noise, so such threads sit quiet.
func isThreadAwaitingUserReply(t *models.Thread) bool {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		m := &t.Messages[i]
		if m.System {
			continue
		}
		if m.From == models.SelfName {
			return false
		}
		if strings.Contains(m.Text, "?") {
			return true
		}
		for _, re := range awaitingReplyPatterns {
			if re.MatchString(m.Text) {
				return true
			}
		}
		return false
	}
	return false
}

// chooseNextSpeaker picks a random speaker from the pool, excluding the
// immediately previous one unless the pool has a single member.
func (s *Service) chooseNextSpeaker(pool []string, prev string) string {
	if len(pool) == 0 {
		return ""
	}
	if len(pool) == 1 {
		return pool[0]
	}
	candidates := pool
	if prev != "" {
		var rest []string
		for _, p := range pool {
			if !strings.EqualFold(p, prev) {
				rest = append(rest, p)
			}
		}
		if len(rest) > 0 {
			candidates = rest
		}
	}
	return candidates[s.rng.Intn(len(candidates))]
}

// appendInboundBurst generates up to N inbound messages into the thread,
// awaiting each generation sequentially. A failed generation skips that
// turn; the burst continues.
func (s *Service) appendInboundBurst(ctx context.Context, tick *tickState, t *models.Thread, pool []string, opts burstOpts, res *PollResult) {
	if len(pool) == 0 {
		return
	}
	if isThreadAwaitingUserReply(t) {
		logger.Debug("burst_skipped_awaiting_reply", "thread", t.ID)
		return
	}
	n := tick.opts.MessageCount
	if n <= 0 {
		n = opts.min
		if opts.max > opts.min {
			n += s.rng.Intn(opts.max - opts.min + 1)
		}
	}

	prev := ""
	if m := t.LastMessage(); m != nil && m.From != models.SelfName {
		prev = m.From
	}
	for i := 0; i < n; i++ {
		speaker := s.chooseNextSpeaker(pool, prev)
		prev = speaker

		photoPath := ""
		pm := s.cfg.Phone.PhotoMessaging
		if pm.Enabled && tick.photos < pm.MaxPerTick && s.rng.Float64() < pm.Chance {
			photoPath = s.moodPhotoPath(opts.topicHint)
		}

		text, err := s.gen.Generate(ctx, gen.Request{
			Speaker:      speaker,
			Participants: t.Participants,
			Recent:       recentMessages(t, 16),
			TopicHint:    opts.topicHint,
			Chatter:      opts.chatter,
			Photo:        photoPath != "",
		})
		if err != nil || strings.TrimSpace(text) == "" {
			telemetry.GenerationFailures.Inc()
			logger.Warn("burst_generation_failed", "thread", t.ID, "speaker", speaker, "error", err)
			continue
		}

		msg := models.Message{
			ID:   utils.GenID(),
			From: speaker,
			Text: text,
			TS:   tick.now,
		}
		if photoPath != "" {
			msg.Image = &models.Image{Path: photoPath, Caption: text, Source: "sprite"}
			tick.photos++
			res.PhotosGenerated++
			telemetry.PhotosAttached.Inc()
		}
		t.Messages = append(t.Messages, msg)
		t.UpdatedTS = tick.now
		t.UnreadCount++
		phone.MarkPresence(tick.doc.Meta.Presence, speaker, tick.now)
		// the sender saw the thread to write this, so player messages are read
		phone.AdvanceThreadReceipts(t, models.ReceiptRead, tick.now)
		res.IncomingMessages++
		telemetry.MessagesGenerated.Inc()
	}
}

// recentMessages returns up to limit most recent messages, oldest first.
func recentMessages(t *models.Thread, limit int) []models.Message {
	if len(t.Messages) <= limit {
		return t.Messages
	}
	return t.Messages[len(t.Messages)-limit:]
}

// mood word sets for photo filename matching, keyed by hook keyword class.
var moodWords = map[string][]string{
	"danger": {"worried", "scared", "shock"}, "emergency": {"worried", "scared", "shock"},
	"hospital": {"worried", "sad"}, "police": {"worried", "shock"},
	"fight": {"angry", "shock"}, "injured": {"sad", "worried"}, "help": {"worried"},
	"party": {"happy", "excited"}, "hangout": {"happy"}, "meet up": {"happy"},
	"come over": {"happy"}, "tonight": {"happy", "excited"}, "plans": {"happy"},
}

// moodPhotoPath picks a sprite file whose name matches the hint's mood,
// falling back to a neutral sprite, then any sprite. Empty when no sprite
// directory is configured or readable.
func (s *Service) moodPhotoPath(hint string) string {
	dir := s.cfg.Phone.SpriteDir
	if dir == "" {
		return ""
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return ""
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	match := func(words []string) string {
		for _, n := range names {
			low := strings.ToLower(n)
			for _, w := range words {
				if strings.Contains(low, w) {
					return n
				}
			}
		}
		return ""
	}
	if words, ok := moodWords[strings.ToLower(hint)]; ok {
		if n := match(words); n != "" {
			return dir + "/" + n
		}
	}
	if n := match([]string{"neutral", "normal"}); n != "" {
		return dir + "/" + n
	}
	return dir + "/" + names[s.rng.Intn(len(names))]
}
