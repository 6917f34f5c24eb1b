package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"phonesim/pkg/config"
	"phonesim/pkg/gen"
	"phonesim/pkg/models"
)

// memRepo is an in-memory Repository. Loads return deep copies so a tick
// that bails out cannot leak partial mutations back, matching the store's
// load-copy semantics.
type memRepo struct {
	threads     models.ThreadsDoc
	contacts    models.ContactsDoc
	threadSaves int
}

func (r *memRepo) LoadThreads() (models.ThreadsDoc, error) {
	var out models.ThreadsDoc
	b, _ := json.Marshal(r.threads)
	if err := json.Unmarshal(b, &out); err != nil {
		return out, err
	}
	if out.Meta.Presence == nil {
		out.Meta.Presence = make(map[string]models.Presence)
	}
	return out, nil
}

func (r *memRepo) SaveThreads(d models.ThreadsDoc) error {
	r.threads = d
	r.threadSaves++
	return nil
}

func (r *memRepo) LoadContacts() (models.ContactsDoc, error) {
	var out models.ContactsDoc
	b, _ := json.Marshal(r.contacts)
	if err := json.Unmarshal(b, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (r *memRepo) SaveContacts(d models.ContactsDoc) error {
	r.contacts = d
	return nil
}

func (r *memRepo) Reset() error {
	r.threads = models.ThreadsDoc{}
	r.contacts = models.ContactsDoc{}
	return nil
}

// scriptGen produces numbered lines and can be told to fail for specific
// speakers (lowercase keys).
type scriptGen struct {
	calls   int
	failFor map[string]bool
	last    gen.Request
}

func (g *scriptGen) Generate(_ context.Context, req gen.Request) (string, error) {
	g.last = req
	if g.failFor[strings.ToLower(req.Speaker)] {
		return "", errors.New("backend down")
	}
	g.calls++
	return fmt.Sprintf("line %d from %s", g.calls, req.Speaker), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{
			MinInterval:        config.Duration(20 * time.Second),
			ReceiptDriftChance: config.DefaultReceiptDriftChance,
			GroupBurstChance:   config.DefaultGroupBurstChance,
		},
		Phone: config.PhoneConfig{
			Characters: []string{"Jake", "Mia", "Sam", "Lena"},
			StarterKnownNumbers: map[string]bool{
				"jake": true, "mia": true, "sam": true, "lena": true,
			},
		},
	}
}

func newTestService(t *testing.T, cfg *config.Config, g gen.Generator, nowMs int64) (*Service, *memRepo) {
	t.Helper()
	if g == nil {
		g = &scriptGen{}
	}
	repo := &memRepo{}
	svc := New(repo, g, cfg,
		WithRand(rand.New(rand.NewSource(42))),
		WithClock(func() time.Time { return time.UnixMilli(nowMs) }),
	)
	return svc, repo
}

func TestCreateThreadValidatesParticipants(t *testing.T) {
	svc, _ := newTestService(t, testConfig(), nil, 1_000_000)

	_, err := svc.CreateThread(nil, "")
	var f *models.Failure
	if !errors.As(err, &f) || f.Code != models.CodeInvalidParticipants {
		t.Fatalf("expected INVALID_PARTICIPANTS; got %v", err)
	}

	_, err = svc.CreateThread([]string{"Nobody"}, "")
	if !errors.As(err, &f) || f.Code != models.CodeContactNotAvailable {
		t.Fatalf("expected CONTACT_NOT_AVAILABLE; got %v", err)
	}
}

func TestCreateThreadRejectsContactWithoutNumber(t *testing.T) {
	cfg := testConfig()
	cfg.Phone.StarterKnownNumbers = map[string]bool{"jake": true}
	svc, _ := newTestService(t, cfg, nil, 1_000_000)

	// Mia is on the roster but has no number yet
	_, err := svc.CreateThread([]string{"Mia"}, "")
	var f *models.Failure
	if !errors.As(err, &f) || f.Code != models.CodeContactNotAvailable {
		t.Fatalf("expected CONTACT_NOT_AVAILABLE; got %v", err)
	}
}

func TestCreateThreadFindsExistingBySet(t *testing.T) {
	svc, _ := newTestService(t, testConfig(), nil, 1_000_000)

	a, err := svc.CreateThread([]string{"Jake", "Mia"}, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Title != "Jake, Mia" {
		t.Fatalf("unexpected title %q", a.Title)
	}
	// same set, different order and casing
	b, err := svc.CreateThread([]string{"mia", "JAKE"}, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID != b.ID {
		t.Fatalf("expected the same thread; got %s and %s", a.ID, b.ID)
	}
}

func TestMarkRead(t *testing.T) {
	svc, repo := newTestService(t, testConfig(), nil, 1_000_000)
	th, err := svc.CreateThread([]string{"Jake"}, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	repo.threads.Threads[0].UnreadCount = 3
	repo.threads.Threads[0].Messages = []models.Message{{
		ID: "m1", From: models.SelfName, Text: "hey",
		Receipt: &models.Receipt{State: models.ReceiptSent},
	}}

	ok, err := svc.MarkRead(th.ID)
	if err != nil || !ok {
		t.Fatalf("mark read: ok=%v err=%v", ok, err)
	}
	got := repo.threads.Threads[0]
	if got.UnreadCount != 0 {
		t.Fatalf("unread not cleared: %d", got.UnreadCount)
	}
	if got.Messages[0].Receipt.State != models.ReceiptRead {
		t.Fatalf("receipt not advanced: %+v", got.Messages[0].Receipt)
	}

	ok, err = svc.MarkRead("th_missing")
	if err != nil || ok {
		t.Fatalf("expected ok=false for unknown thread; got ok=%v err=%v", ok, err)
	}
}

func TestGetThreadUnknownIsNil(t *testing.T) {
	svc, _ := newTestService(t, testConfig(), nil, 1_000_000)
	v, err := svc.GetThread("th_missing")
	if err != nil || v != nil {
		t.Fatalf("expected nil,nil; got %v, %v", v, err)
	}
}

func TestSetContactKnown(t *testing.T) {
	svc, repo := newTestService(t, testConfig(), nil, 1_000_000)

	_, err := svc.SetContactKnown("  ", true)
	var f *models.Failure
	if !errors.As(err, &f) || f.Code != models.CodeInvalidContact {
		t.Fatalf("expected INVALID_CONTACT; got %v", err)
	}

	ok, err := svc.SetContactKnown("Rena", true)
	if err != nil || !ok {
		t.Fatalf("set contact: ok=%v err=%v", ok, err)
	}
	if !repo.contacts.Contacts["rena"].HasNumber {
		t.Fatalf("contact not saved: %+v", repo.contacts.Contacts)
	}
}

func TestSetContactKnownRevokesStarter(t *testing.T) {
	svc, repo := newTestService(t, testConfig(), nil, 1_000_000)

	ok, err := svc.SetContactKnown("Jake", false)
	if err != nil || !ok {
		t.Fatalf("revoke: ok=%v err=%v", ok, err)
	}
	if repo.contacts.Contacts["jake"].HasNumber {
		t.Fatalf("revocation not persisted: %+v", repo.contacts.Contacts)
	}

	// the starter grant must not resurrect the number on the next load
	var f *models.Failure
	_, err = svc.CreateThread([]string{"Jake"}, "")
	if !errors.As(err, &f) || f.Code != models.CodeContactNotAvailable {
		t.Fatalf("expected CONTACT_NOT_AVAILABLE after revoke; got %v", err)
	}
	contacts, err := svc.GetContacts()
	if err != nil {
		t.Fatalf("get contacts: %v", err)
	}
	for _, c := range contacts {
		if c.Name == "Jake" && c.HasNumber {
			t.Fatalf("revoked starter listed with a number: %+v", contacts)
		}
	}
}

func TestResetStateReseedsStarters(t *testing.T) {
	cfg := testConfig()
	cfg.Phone.StarterKnownNumbers = map[string]bool{"jake": true}
	svc, repo := newTestService(t, cfg, nil, 1_000_000)

	if _, err := svc.CreateThread([]string{"Jake"}, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.SetContactKnown("mia", true); err != nil {
		t.Fatalf("set contact: %v", err)
	}

	if err := svc.ResetState(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(repo.threads.Threads) != 0 {
		t.Fatalf("threads survived reset: %d", len(repo.threads.Threads))
	}
	if !repo.contacts.Contacts["jake"].HasNumber {
		t.Fatalf("starter number lost on reset")
	}
	if repo.contacts.Contacts["mia"].HasNumber {
		t.Fatalf("runtime unlock survived reset")
	}
}

func TestListThreadsSortsByActivity(t *testing.T) {
	svc, repo := newTestService(t, testConfig(), nil, 1_000_000)
	if _, err := svc.CreateThread([]string{"Jake"}, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateThread([]string{"Mia"}, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	repo.threads.Threads[0].UpdatedTS = 100
	repo.threads.Threads[0].Messages = []models.Message{{ID: "m", From: "Jake", Text: "old news"}}
	repo.threads.Threads[1].UpdatedTS = 200

	out, err := svc.ListThreads()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 || out[0].Title != "Mia" || out[1].Title != "Jake" {
		t.Fatalf("unexpected order: %+v", out)
	}
	if out[1].Preview != "old news" {
		t.Fatalf("missing preview: %+v", out[1])
	}
}
