package sim

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"phonesim/pkg/config"
	"phonesim/pkg/models"
)

func TestIsThreadAwaitingUserReply(t *testing.T) {
	cases := []struct {
		name string
		msgs []models.Message
		want bool
	}{
		{"empty thread", nil, false},
		{"question", []models.Message{{From: "Jake", Text: "you coming?"}}, true},
		{"modal prompt", []models.Message{{From: "Jake", Text: "can you grab snacks"}}, true},
		{"let me know", []models.Message{{From: "Jake", Text: "let me know when free"}}, true},
		{"statement", []models.Message{{From: "Jake", Text: "omw"}}, false},
		{"player spoke last", []models.Message{
			{From: "Jake", Text: "you coming?"},
			{From: models.SelfName, Text: "yes"},
		}, false},
		{"system notice ignored", []models.Message{
			{From: "Jake", Text: "you coming?"},
			{From: "Jake", Text: "Jake could not reply right now.", System: true},
		}, true},
	}
	for _, c := range cases {
		th := &models.Thread{Messages: c.msgs}
		if got := isThreadAwaitingUserReply(th); got != c.want {
			t.Fatalf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestPollSkipsThreadAwaitingReply(t *testing.T) {
	svc, repo := newTestService(t, testConfig(), nil, 1_000_000)
	repo.threads = models.ThreadsDoc{Threads: []models.Thread{{
		ID:           "th_1",
		Participants: []string{models.SelfName, "Jake"},
		Messages:     []models.Message{{ID: "m1", From: "Jake", Text: "you coming?"}},
	}}}

	res, err := svc.PollUpdates(context.Background(), PollOptions{
		Trigger: TriggerPeriodic,
		Force:   true,
		Action:  ActionMessage,
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.IncomingMessages != 0 {
		t.Fatalf("burst piled onto an unanswered prompt: %+v", res)
	}
	if n := len(repo.threads.Threads[0].Messages); n != 1 {
		t.Fatalf("thread grew: %d messages", n)
	}
}

func TestChooseNextSpeakerExcludesPrevious(t *testing.T) {
	svc, _ := newTestService(t, testConfig(), nil, 1_000_000)
	pool := []string{"Jake", "Mia"}
	for i := 0; i < 25; i++ {
		if got := svc.chooseNextSpeaker(pool, "Jake"); got != "Mia" {
			t.Fatalf("previous speaker repeated: %s", got)
		}
	}
	// a lone speaker may repeat
	if got := svc.chooseNextSpeaker([]string{"Jake"}, "Jake"); got != "Jake" {
		t.Fatalf("expected Jake; got %s", got)
	}
	if got := svc.chooseNextSpeaker(nil, ""); got != "" {
		t.Fatalf("expected empty for empty pool; got %s", got)
	}
}

func TestPollPhotoGating(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"happy.png", "neutral.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644); err != nil {
			t.Fatalf("write sprite: %v", err)
		}
	}
	cfg := testConfig()
	cfg.Phone.SpriteDir = dir
	cfg.Phone.PhotoMessaging = config.PhotoConfig{Enabled: true, Chance: 1.0, MaxPerTick: 1}

	svc, repo := newTestService(t, cfg, nil, 1_000_000)
	res, err := svc.PollUpdates(context.Background(), PollOptions{
		Trigger:      TriggerPeriodic,
		Force:        true,
		Action:       ActionNewDM,
		MessageCount: 3,
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.PhotosGenerated != 1 {
		t.Fatalf("per-tick photo cap ignored: %+v", res)
	}
	withPhoto := 0
	for _, m := range repo.threads.Threads[0].Messages {
		if m.Image != nil {
			withPhoto++
			if !strings.HasPrefix(m.Image.Path, dir) {
				t.Fatalf("unexpected sprite path %q", m.Image.Path)
			}
		}
	}
	if withPhoto != 1 {
		t.Fatalf("expected exactly one photo message; got %d", withPhoto)
	}
}

func TestMoodPhotoPathPrefersMatchingMood(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"mia_happy.png", "mia_neutral.png", "mia_worried.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644); err != nil {
			t.Fatalf("write sprite: %v", err)
		}
	}
	cfg := testConfig()
	cfg.Phone.SpriteDir = dir
	svc, _ := newTestService(t, cfg, nil, 1_000_000)

	if got := svc.moodPhotoPath("party"); !strings.Contains(got, "happy") {
		t.Fatalf("expected happy sprite for party; got %q", got)
	}
	if got := svc.moodPhotoPath("emergency"); !strings.Contains(got, "worried") {
		t.Fatalf("expected worried sprite for emergency; got %q", got)
	}
	if got := svc.moodPhotoPath("unknown-hint"); !strings.Contains(got, "neutral") {
		t.Fatalf("expected neutral fallback; got %q", got)
	}
	svc.cfg.Phone.SpriteDir = ""
	if got := svc.moodPhotoPath("party"); got != "" {
		t.Fatalf("expected empty without sprite dir; got %q", got)
	}
}
