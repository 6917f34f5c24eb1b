package gen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"phonesim/pkg/models"
)

const defaultBaseURL = "https://api.openai.com"

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIGenerator builds a generator for the given key and model.
func NewOpenAIGenerator(apiKey, model string) *OpenAIGenerator {
	return &OpenAIGenerator{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// SetBaseURL overrides the endpoint (tests, local inference servers).
func (g *OpenAIGenerator) SetBaseURL(url string) {
	g.baseURL = strings.TrimRight(url, "/")
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	body := map[string]interface{}{
		"model":       g.model,
		"messages":    buildChatMessages(req),
		"max_tokens":  120,
		"temperature": 0.9,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation backend returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmpty
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

// buildChatMessages flattens the thread context into a chat prompt. The
// system prompt pins the persona; recent messages become alternating turns.
func buildChatMessages(req Request) []map[string]string {
	var sys strings.Builder
	fmt.Fprintf(&sys, "You are %s texting in a group chat with %s.", req.Speaker, strings.Join(req.Participants, ", "))
	sys.WriteString(" Write one short casual text message. No quotes, no narration.")
	if req.TopicHint != "" {
		fmt.Fprintf(&sys, " The message relates to: %s.", req.TopicHint)
	}
	if req.Reply {
		fmt.Fprintf(&sys, " You are replying directly to %s.", models.SelfName)
	}
	if req.Chatter {
		fmt.Fprintf(&sys, " You are talking to the other characters, not to %s.", models.SelfName)
	}
	if req.Photo {
		sys.WriteString(" The message accompanies a photo you just took; write a fitting caption.")
	}

	msgs := []map[string]string{{"role": "system", "content": sys.String()}}
	for _, m := range req.Recent {
		role := "user"
		if m.From == req.Speaker {
			role = "assistant"
		}
		msgs = append(msgs, map[string]string{"role": role, "content": m.From + ": " + m.Text})
	}
	return msgs
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
