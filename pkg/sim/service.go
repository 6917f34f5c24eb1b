package sim

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"phonesim/pkg/config"
	"phonesim/pkg/gen"
	"phonesim/pkg/logger"
	"phonesim/pkg/models"
	"phonesim/pkg/phone"
	"phonesim/pkg/utils"
)

// Service is the phone simulation engine. All randomness flows through the
// injected rng and all time through the injected clock so scheduling
// decisions are deterministically testable.
type Service struct {
	repo Repository
	gen  gen.Generator
	cfg  *config.Config

	now func() time.Time
	rng *rand.Rand

	// mu serializes operations: the design assumes one logical caller at
	// a time over the shared persisted documents.
	mu sync.Mutex
}

// Option customizes a Service.
type Option func(*Service)

// WithClock injects a time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand injects a random source.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

// New builds a Service over the given repository and generator.
func New(repo Repository, g gen.Generator, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		gen:  g,
		cfg:  cfg,
		now:  time.Now,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) nowMs() int64 { return s.now().UTC().UnixMilli() }

// loadContacts loads the contacts document and seeds it from the roster
// and the configured starter numbers when entries are missing.
func (s *Service) loadContacts() (models.ContactsDoc, error) {
	doc, err := s.repo.LoadContacts()
	if err != nil {
		return doc, err
	}
	s.seedContacts(&doc)
	return doc, nil
}

func (s *Service) seedContacts(doc *models.ContactsDoc) {
	if doc.Contacts == nil {
		doc.Contacts = make(map[string]models.Contact)
	}
	// roster backfill is grant-free and safe to repeat
	for _, name := range s.cfg.Phone.Characters {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || key == strings.ToLower(models.SelfName) {
			continue
		}
		if _, ok := doc.Contacts[key]; !ok {
			doc.Contacts[key] = models.Contact{}
		}
	}
	// starter grants run once per document lifetime; re-granting on every
	// load would undo explicit revocations
	if doc.Seeded {
		return
	}
	doc.Seeded = true
	for name, has := range s.cfg.Phone.StarterKnownNumbers {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		c := doc.Contacts[key]
		// starter overrides only grant numbers, never revoke
		if has && !c.HasNumber {
			c.HasNumber = true
			doc.Contacts[key] = c
		}
	}
}

// displayNames maps lowercase contact keys back to roster spelling.
func (s *Service) displayNames() map[string]string {
	out := make(map[string]string, len(s.cfg.Phone.Characters))
	for _, name := range s.cfg.Phone.Characters {
		out[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(name)
	}
	return out
}

// ListThreads returns thread summaries sorted by last activity, newest
// first.
func (s *Service) ListThreads() ([]models.ThreadSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.repo.LoadThreads()
	if err != nil {
		return nil, err
	}
	now := s.nowMs()
	out := make([]models.ThreadSummary, 0, len(doc.Threads))
	for i := range doc.Threads {
		t := &doc.Threads[i]
		sum := models.ThreadSummary{
			ID:           t.ID,
			Title:        t.Title,
			Participants: t.Participants,
			UpdatedTS:    t.UpdatedTS,
			UnreadCount:  t.UnreadCount,
			PresenceText: phone.BuildPresenceTextForThread(t, doc.Meta.Presence, now),
		}
		if m := t.LastMessage(); m != nil {
			sum.Preview = m.Text
		}
		out = append(out, sum)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedTS > out[j].UpdatedTS })
	return out, nil
}

// ThreadView is a thread plus its presence line.
type ThreadView struct {
	models.Thread
	PresenceText string `json:"presence_text,omitempty"`
}

// GetThread returns the full thread with presence text, or nil when the
// id is unknown.
func (s *Service) GetThread(id string) (*ThreadView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.repo.LoadThreads()
	if err != nil {
		return nil, err
	}
	t := findThread(&doc, id)
	if t == nil {
		return nil, nil
	}
	return &ThreadView{
		Thread:       *t,
		PresenceText: phone.BuildPresenceTextForThread(t, doc.Meta.Presence, s.nowMs()),
	}, nil
}

// CreateThread creates a thread for the given participants, or returns the
// existing thread with the same participant set. Participants must all be
// known contacts with numbers.
func (s *Service) CreateThread(participants []string, title string) (*models.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := phone.WithSelf(participants)
	if len(normalized) < 2 {
		return nil, models.NewFailure(models.CodeInvalidParticipants, "at least one participant besides "+models.SelfName+" is required")
	}
	contacts, err := s.loadContacts()
	if err != nil {
		return nil, err
	}
	for _, p := range normalized {
		if strings.EqualFold(p, models.SelfName) {
			continue
		}
		c, ok := contacts.Contacts[strings.ToLower(p)]
		if !ok || !c.HasNumber {
			return nil, models.NewFailure(models.CodeContactNotAvailable, "contact has no phone number", p)
		}
	}

	doc, err := s.repo.LoadThreads()
	if err != nil {
		return nil, err
	}
	t, created := findOrCreateThread(&doc, normalized, s.nowMs())
	if title != "" {
		t.Title = title
	}
	if err := s.repo.SaveThreads(doc); err != nil {
		return nil, err
	}
	if err := s.repo.SaveContacts(contacts); err != nil {
		return nil, err
	}
	if created {
		logger.Info("thread_created", "id", t.ID, "participants", strings.Join(t.Participants, ","))
	}
	out := *t
	return &out, nil
}

// MarkRead clears the unread counter and advances player receipts to read.
// Returns false when the thread is unknown.
func (s *Service) MarkRead(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.repo.LoadThreads()
	if err != nil {
		return false, err
	}
	t := findThread(&doc, id)
	if t == nil {
		return false, nil
	}
	t.UnreadCount = 0
	phone.AdvanceThreadReceipts(t, models.ReceiptRead, s.nowMs())
	if err := s.repo.SaveThreads(doc); err != nil {
		return false, err
	}
	return true, nil
}

// GetContacts lists contacts sorted by name.
func (s *Service) GetContacts() ([]models.ContactView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadContacts()
	if err != nil {
		return nil, err
	}
	disp := s.displayNames()
	out := make([]models.ContactView, 0, len(doc.Contacts))
	for key, c := range doc.Contacts {
		name := key
		if d, ok := disp[key]; ok {
			name = d
		}
		out = append(out, models.ContactView{Name: name, HasNumber: c.HasNumber})
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

// SetContactKnown flips a contact's number availability.
func (s *Service) SetContactKnown(name string, hasNumber bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return false, models.NewFailure(models.CodeInvalidContact, "contact name is required")
	}
	doc, err := s.loadContacts()
	if err != nil {
		return false, err
	}
	doc.Contacts[key] = models.Contact{HasNumber: hasNumber}
	if err := s.repo.SaveContacts(doc); err != nil {
		return false, err
	}
	return true, nil
}

// ResetState clears all threads and reseeds contacts from the configured
// starters.
func (s *Service) ResetState() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Reset(); err != nil {
		return err
	}
	contacts := models.ContactsDoc{Contacts: make(map[string]models.Contact)}
	s.seedContacts(&contacts)
	if err := s.repo.SaveContacts(contacts); err != nil {
		return err
	}
	threads := models.ThreadsDoc{Meta: models.ThreadMeta{Presence: make(map[string]models.Presence)}}
	return s.repo.SaveThreads(threads)
}

func findThread(doc *models.ThreadsDoc, id string) *models.Thread {
	for i := range doc.Threads {
		if doc.Threads[i].ID == id {
			return &doc.Threads[i]
		}
	}
	return nil
}

// participantKey builds a case-insensitive set key for thread lookup.
func participantKey(participants []string) string {
	keys := make([]string, 0, len(participants))
	for _, p := range participants {
		keys = append(keys, strings.ToLower(strings.TrimSpace(p)))
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

// findOrCreateThread returns the thread with the exact participant set,
// creating it when absent. participants must already be normalized and
// include the player.
func findOrCreateThread(doc *models.ThreadsDoc, participants []string, now int64) (*models.Thread, bool) {
	want := participantKey(participants)
	for i := range doc.Threads {
		if participantKey(doc.Threads[i].Participants) == want {
			return &doc.Threads[i], false
		}
	}
	t := models.Thread{
		ID:           utils.GenThreadID(),
		Title:        phone.BuildThreadTitle(participants),
		Participants: participants,
		CreatedTS:    now,
		UpdatedTS:    now,
	}
	doc.Threads = append(doc.Threads, t)
	return &doc.Threads[len(doc.Threads)-1], true
}
