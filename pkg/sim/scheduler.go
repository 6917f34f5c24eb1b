package sim

import (
	"context"
	"strings"
	"time"

	"phonesim/pkg/hooks"
	"phonesim/pkg/logger"
	"phonesim/pkg/models"
	"phonesim/pkg/phone"
	"phonesim/pkg/telemetry"
)

// Poll triggers.
const (
	TriggerMainChat = "main-chat"
	TriggerPeriodic = "periodic"
)

// Scheduler actions.
const (
	ActionMessage   = "message"
	ActionChatter   = "chatter"
	ActionNewDM     = "new-dm"
	ActionNewGroup  = "new-group"
	ActionStoryHook = "story-hook"
	ActionNone      = "none"
)

// Weighted action tables, cumulative thresholds over a uniform draw in
// [0,1). Main-chat ticks lean toward activity in existing threads; other
// triggers skip ambient chatter entirely.
var (
	mainChatWeights = []struct {
		limit  float64
		action string
	}{
		{0.45, ActionMessage},
		{0.75, ActionChatter},
		{0.90, ActionNewDM},
		{1.00, ActionNewGroup},
	}
	periodicWeights = []struct {
		limit  float64
		action string
	}{
		{0.55, ActionMessage},
		{0.80, ActionNewDM},
		{1.00, ActionNewGroup},
	}
)

// PollOptions drives one scheduler tick.
type PollOptions struct {
	Trigger string
	// MinInterval overrides the rate gate; nil selects the default for
	// the trigger (zero for main-chat, configured interval otherwise).
	MinInterval *time.Duration
	Force       bool
	StoryText   string
	// ActiveCharacters are on stage in the main narrative and cannot text.
	ActiveCharacters []string
	// MessageCount overrides the burst size when positive.
	MessageCount int
	// Action bypasses the weighted draw when set.
	Action string
}

// PollResult summarizes one scheduler tick.
type PollResult struct {
	CreatedThreads        []string `json:"created_threads"`
	IncomingMessages      int      `json:"incoming_messages"`
	PhotosGenerated       int      `json:"photos_generated"`
	NewlyUnlockedContacts []string `json:"newly_unlocked_contacts"`
	Trigger               string   `json:"trigger"`
	Action                string   `json:"action"`
	Skipped               bool     `json:"skipped"`
}

// PollUpdates runs one tick of the scheduler: rate-gates itself, applies
// narrative unlocks and hooks, then either executes a hook event or a
// weighted random action. Generation failures never fail the tick.
func (s *Service) PollUpdates(ctx context.Context, opts PollOptions) (PollResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.Trigger == "" {
		opts.Trigger = TriggerPeriodic
	}
	res := PollResult{Trigger: opts.Trigger, Action: ActionNone}

	minInterval := s.cfg.Scheduler.MinInterval.Duration()
	if opts.Trigger == TriggerMainChat {
		minInterval = 0
	}
	if opts.MinInterval != nil {
		minInterval = *opts.MinInterval
	}

	doc, err := s.repo.LoadThreads()
	if err != nil {
		return res, err
	}
	now := s.nowMs()
	if !opts.Force && now-doc.Meta.LastPollTS < minInterval.Milliseconds() {
		res.Skipped = true
		telemetry.PollsSkipped.Inc()
		return res, nil
	}
	doc.Meta.LastPollTS = now

	contacts, err := s.loadContacts()
	if err != nil {
		return res, err
	}

	// narrative unlocks run before availability so a just-unlocked contact
	// can be texted this very tick
	unlocked := hooks.FindStoryContactUnlocks(opts.StoryText, opts.ActiveCharacters, contacts.Contacts, s.cfg.Phone.Characters)
	res.NewlyUnlockedContacts = unlocked
	if n := len(unlocked); n > 0 {
		telemetry.ContactsUnlocked.Add(float64(n))
		logger.Info("contacts_unlocked", "names", strings.Join(unlocked, ","))
	}

	available := s.availableContacts(&contacts, opts.ActiveCharacters)
	if len(available) == 0 {
		if err := s.persist(doc, contacts); err != nil {
			return res, err
		}
		telemetry.PollsTotal.WithLabelValues(res.Trigger, res.Action).Inc()
		return res, nil
	}

	// receipt drift: deliveries happen off-screen regardless of the action
	for i := range doc.Threads {
		if s.rng.Float64() < s.cfg.Scheduler.ReceiptDriftChance {
			phone.AdvanceThreadReceipts(&doc.Threads[i], models.ReceiptDelivered, now)
		}
	}

	tick := &tickState{
		doc:       &doc,
		contacts:  &contacts,
		available: available,
		opts:      opts,
		now:       now,
	}

	hook := hooks.DetectStoryPhoneHook(opts.StoryText)
	if hook != nil {
		targets := hooks.ChooseHookTargets(hook, opts.StoryText, opts.ActiveCharacters, available, s.displayNames())
		// hook targets must also be free to text
		targets = intersect(targets, available)
		if len(targets) > 0 {
			res.Action = ActionStoryHook
			s.runHook(ctx, tick, hook, targets, &res)
			if err := s.persist(doc, contacts); err != nil {
				return res, err
			}
			telemetry.PollsTotal.WithLabelValues(res.Trigger, res.Action).Inc()
			return res, nil
		}
	}

	action := opts.Action
	if action == "" {
		action = s.drawAction(opts.Trigger)
	}
	res.Action = action

	switch action {
	case ActionMessage:
		s.runMessage(ctx, tick, &res)
	case ActionChatter:
		s.runChatter(ctx, tick, &res)
	case ActionNewDM:
		s.runNewDM(ctx, tick, &res)
	case ActionNewGroup:
		s.runNewGroup(ctx, tick, &res)
	default:
		res.Action = ActionNone
	}

	if err := s.persist(doc, contacts); err != nil {
		return res, err
	}
	telemetry.PollsTotal.WithLabelValues(res.Trigger, res.Action).Inc()
	logger.Debug("poll_complete", "trigger", res.Trigger, "action", res.Action, "incoming", res.IncomingMessages)
	return res, nil
}

// tickState bundles the mutable state threaded through one tick.
type tickState struct {
	doc       *models.ThreadsDoc
	contacts  *models.ContactsDoc
	available []string
	opts      PollOptions
	now       int64
	photos    int
}

func (s *Service) persist(doc models.ThreadsDoc, contacts models.ContactsDoc) error {
	if err := s.repo.SaveThreads(doc); err != nil {
		return err
	}
	return s.repo.SaveContacts(contacts)
}

// availableContacts returns display names of contacts with numbers who are
// not currently on stage.
func (s *Service) availableContacts(contacts *models.ContactsDoc, active []string) []string {
	activeSet := make(map[string]struct{}, len(active))
	for _, a := range active {
		activeSet[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	disp := s.displayNames()
	var out []string
	for _, name := range s.cfg.Phone.Characters {
		key := strings.ToLower(strings.TrimSpace(name))
		c, ok := contacts.Contacts[key]
		if !ok || !c.HasNumber {
			continue
		}
		if _, onStage := activeSet[key]; onStage {
			continue
		}
		if d, ok := disp[key]; ok {
			out = append(out, d)
		}
	}
	return out
}

func (s *Service) drawAction(trigger string) string {
	weights := periodicWeights
	if trigger == TriggerMainChat {
		weights = mainChatWeights
	}
	r := s.rng.Float64()
	for _, w := range weights {
		if r < w.limit {
			return w.action
		}
	}
	return weights[len(weights)-1].action
}

// runHook executes a story hook instead of a random action. Invite and
// location hooks with two targets become a three-party thread; everything
// else lands in a 1:1 with the top target.
func (s *Service) runHook(ctx context.Context, tick *tickState, hook *hooks.Hook, targets []string, res *PollResult) {
	group := len(targets) >= 2 && (hook.Type == hooks.HookInvite || hook.Type == hooks.HookLocation)
	if group {
		t, _ := s.destinationThread(tick, targets[:2], res)
		min, max := 2, 3
		if tick.opts.Trigger != TriggerMainChat {
			min, max = 1, 2
		}
		s.appendInboundBurst(ctx, tick, t, targets[:2], burstOpts{min: min, max: max, topicHint: hook.TopicHint}, res)
		return
	}
	t, _ := s.destinationThread(tick, targets[:1], res)
	s.appendInboundBurst(ctx, tick, t, targets[:1], burstOpts{min: 1, max: 2, topicHint: hook.TopicHint}, res)
}

// runMessage bursts into a random existing thread containing an available
// contact.
func (s *Service) runMessage(ctx context.Context, tick *tickState, res *PollResult) {
	candidates := s.threadsWithAvailable(tick)
	if len(candidates) == 0 {
		res.Action = ActionNone
		return
	}
	t := candidates[s.rng.Intn(len(candidates))]
	speakers := intersect(t.Others(), tick.available)
	if len(speakers) == 0 {
		res.Action = ActionNone
		return
	}
	min, max := 1, 1
	if tick.opts.Trigger == TriggerMainChat {
		max = 2
	}
	// in a main-chat group thread, sometimes the whole set chimes in
	wholeSet := tick.opts.Trigger == TriggerMainChat && len(speakers) > 1 && s.rng.Float64() < s.cfg.Scheduler.GroupBurstChance
	if !wholeSet {
		speakers = []string{speakers[s.rng.Intn(len(speakers))]}
	}
	s.appendInboundBurst(ctx, tick, t, speakers, burstOpts{min: min, max: max}, res)
}

// runChatter bursts a side conversation across a group thread's speakers,
// not addressed to the player.
func (s *Service) runChatter(ctx context.Context, tick *tickState, res *PollResult) {
	var candidates []*models.Thread
	for _, t := range s.threadsWithAvailable(tick) {
		if len(t.Others()) >= 2 {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		res.Action = ActionNone
		return
	}
	t := candidates[s.rng.Intn(len(candidates))]
	speakers := intersect(t.Others(), tick.available)
	if len(speakers) == 0 {
		res.Action = ActionNone
		return
	}
	s.appendInboundBurst(ctx, tick, t, speakers, burstOpts{min: 2, max: 3, chatter: true}, res)
}

// runNewDM opens (or reuses) a 1:1 with a random available contact.
func (s *Service) runNewDM(ctx context.Context, tick *tickState, res *PollResult) {
	c := tick.available[s.rng.Intn(len(tick.available))]
	t, _ := s.destinationThread(tick, []string{c}, res)
	min, max := 1, 1
	if tick.opts.Trigger == TriggerMainChat {
		max = 2
	}
	s.appendInboundBurst(ctx, tick, t, []string{c}, burstOpts{min: min, max: max}, res)
}

// runNewGroup creates a three-party thread from two random available
// contacts.
func (s *Service) runNewGroup(ctx context.Context, tick *tickState, res *PollResult) {
	if len(tick.available) < 2 {
		res.Action = ActionNone
		return
	}
	i := s.rng.Intn(len(tick.available))
	j := s.rng.Intn(len(tick.available) - 1)
	if j >= i {
		j++
	}
	pair := []string{tick.available[i], tick.available[j]}
	t, _ := s.destinationThread(tick, pair, res)
	min, max := 1, 2
	if tick.opts.Trigger == TriggerMainChat {
		min, max = 2, 3
	}
	s.appendInboundBurst(ctx, tick, t, pair, burstOpts{min: min, max: max}, res)
}

// destinationThread finds or creates the thread for the given contacts and
// records a creation in the result.
func (s *Service) destinationThread(tick *tickState, others []string, res *PollResult) (*models.Thread, bool) {
	t, created := findOrCreateThread(tick.doc, phone.WithSelf(others), tick.now)
	if created {
		res.CreatedThreads = append(res.CreatedThreads, t.ID)
	}
	return t, created
}

// threadsWithAvailable lists threads with at least one available speaker.
func (s *Service) threadsWithAvailable(tick *tickState) []*models.Thread {
	var out []*models.Thread
	for i := range tick.doc.Threads {
		t := &tick.doc.Threads[i]
		if len(intersect(t.Others(), tick.available)) > 0 {
			out = append(out, t)
		}
	}
	return out
}

// intersect keeps names from a that are present in b (case-insensitive),
// preserving a's order.
func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, x := range b {
		set[strings.ToLower(x)] = struct{}{}
	}
	var out []string
	for _, x := range a {
		if _, ok := set[strings.ToLower(x)]; ok {
			out = append(out, x)
		}
	}
	return out
}
