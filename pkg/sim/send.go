package sim

import (
	"context"
	"strings"

	"phonesim/pkg/gen"
	"phonesim/pkg/logger"
	"phonesim/pkg/models"
	"phonesim/pkg/phone"
	"phonesim/pkg/telemetry"
	"phonesim/pkg/utils"
)

const maxAutoResponders = 2

// SendOptions tunes an outbound send.
type SendOptions struct {
	// ActiveCharacters are on stage and excluded from auto-reply.
	ActiveCharacters []string
}

// SendMessage appends a player message to the thread and triggers bounded
// auto-replies. Each responder is handled in isolation: a failed reply
// becomes a system notice instead of aborting the send.
func (s *Service) SendMessage(ctx context.Context, threadID, text string, opts SendOptions) (*models.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(threadID) == "" || strings.TrimSpace(text) == "" {
		return nil, models.NewFailure(models.CodeInvalidMessage, "thread id and text are required")
	}
	doc, err := s.repo.LoadThreads()
	if err != nil {
		return nil, err
	}
	t := findThread(&doc, threadID)
	if t == nil {
		return nil, models.NewFailure(models.CodeThreadNotFound, "no such thread", threadID)
	}

	now := s.nowMs()
	t.Messages = append(t.Messages, models.Message{
		ID:      utils.GenID(),
		From:    models.SelfName,
		Text:    text,
		TS:      now,
		Receipt: &models.Receipt{State: models.ReceiptSent},
	})
	t.UpdatedTS = now

	replyPhotos := 0
	for _, responder := range s.pickAutoResponders(t, opts.ActiveCharacters) {
		s.autoReply(ctx, &doc, t, responder, now, &replyPhotos)
	}

	if err := s.repo.SaveThreads(doc); err != nil {
		return nil, err
	}
	out := *t
	return &out, nil
}

// pickAutoResponders selects up to two responders. Small threads answer
// with everyone; larger groups favor the participants who spoke most
// recently, so replies stay contextual rather than random.
func (s *Service) pickAutoResponders(t *models.Thread, active []string) []string {
	activeSet := make(map[string]struct{}, len(active))
	for _, a := range active {
		activeSet[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	var others []string
	for _, p := range t.Others() {
		if _, onStage := activeSet[strings.ToLower(p)]; !onStage {
			others = append(others, p)
		}
	}
	if len(others) <= maxAutoResponders {
		return others
	}
	// recency rank: walk history newest-first, collecting distinct senders
	ranked := make([]string, 0, maxAutoResponders)
	seen := make(map[string]struct{})
	for i := len(t.Messages) - 1; i >= 0 && len(ranked) < maxAutoResponders; i-- {
		m := &t.Messages[i]
		if m.System || m.From == models.SelfName {
			continue
		}
		key := strings.ToLower(m.From)
		if _, dup := seen[key]; dup {
			continue
		}
		for _, o := range others {
			if strings.EqualFold(o, m.From) {
				ranked = append(ranked, o)
				seen[key] = struct{}{}
				break
			}
		}
	}
	// quiet threads: fill from participant order
	for _, o := range others {
		if len(ranked) >= maxAutoResponders {
			break
		}
		if _, dup := seen[strings.ToLower(o)]; !dup {
			ranked = append(ranked, o)
			seen[strings.ToLower(o)] = struct{}{}
		}
	}
	return ranked
}

// autoReply generates one responder's reply. Failure appends a system
// notice; the other responders still run.
func (s *Service) autoReply(ctx context.Context, doc *models.ThreadsDoc, t *models.Thread, responder string, now int64, replyPhotos *int) {
	photoPath := ""
	pm := s.cfg.Phone.PhotoMessaging
	if pm.Enabled && *replyPhotos < pm.MaxReplyPhotos && s.rng.Float64() < pm.ReplyChance {
		photoPath = s.moodPhotoPath("")
	}

	text, err := s.gen.Generate(ctx, gen.Request{
		Speaker:      responder,
		Participants: t.Participants,
		Recent:       recentMessages(t, 16),
		Reply:        true,
		Photo:        photoPath != "",
	})
	if err != nil || strings.TrimSpace(text) == "" {
		telemetry.GenerationFailures.Inc()
		logger.Warn("auto_reply_failed", "thread", t.ID, "responder", responder, "error", err)
		t.Messages = append(t.Messages, models.Message{
			ID:     utils.GenID(),
			From:   responder,
			Text:   responder + " could not reply right now.",
			TS:     now,
			System: true,
		})
		t.UpdatedTS = now
		return
	}

	msg := models.Message{
		ID:   utils.GenID(),
		From: responder,
		Text: text,
		TS:   now,
	}
	if photoPath != "" {
		msg.Image = &models.Image{Path: photoPath, Caption: text, Source: "sprite"}
		*replyPhotos++
		telemetry.PhotosAttached.Inc()
	}
	t.Messages = append(t.Messages, msg)
	t.UpdatedTS = now
	t.UnreadCount++
	phone.MarkPresence(doc.Meta.Presence, responder, now)
	phone.AdvanceThreadReceipts(t, models.ReceiptRead, now)
	telemetry.MessagesGenerated.Inc()
}
