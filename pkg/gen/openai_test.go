package gen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"phonesim/pkg/models"
)

func TestOpenAIGeneratorGenerate(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  sure, omw  "}}]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("test-key", "test-model")
	g.SetBaseURL(srv.URL)

	out, err := g.Generate(context.Background(), Request{
		Speaker:      "Jake",
		Participants: []string{models.SelfName, "Jake"},
		Recent:       []models.Message{{From: models.SelfName, Text: "hey"}},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "sure, omw" {
		t.Fatalf("unexpected output %q", out)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["model"] != "test-model" {
		t.Fatalf("unexpected model %v", gotBody["model"])
	}
}

func TestOpenAIGeneratorErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("k", "m")
	g.SetBaseURL(srv.URL)
	if _, err := g.Generate(context.Background(), Request{Speaker: "Jake"}); err == nil {
		t.Fatalf("expected error on 429")
	}
}

func TestOpenAIGeneratorEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("k", "m")
	g.SetBaseURL(srv.URL)
	_, err := g.Generate(context.Background(), Request{Speaker: "Jake"})
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty; got %v", err)
	}
}

func TestBuildChatMessages(t *testing.T) {
	msgs := buildChatMessages(Request{
		Speaker:      "Mia",
		Participants: []string{models.SelfName, "Jake", "Mia"},
		Recent: []models.Message{
			{From: models.SelfName, Text: "hello"},
			{From: "Mia", Text: "hey!"},
		},
		TopicHint: "party",
		Reply:     true,
	})
	if len(msgs) != 3 {
		t.Fatalf("expected system + 2 turns; got %d", len(msgs))
	}
	sys := msgs[0]["content"]
	if !strings.Contains(sys, "You are Mia") || !strings.Contains(sys, "party") {
		t.Fatalf("system prompt missing context: %q", sys)
	}
	if msgs[1]["role"] != "user" || msgs[2]["role"] != "assistant" {
		t.Fatalf("unexpected roles %v", msgs)
	}
}
