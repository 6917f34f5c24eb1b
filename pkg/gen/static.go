package gen

import (
	"context"
	"fmt"
	"sync/atomic"
)

// StaticGenerator cycles through canned lines. It backs offline mode and
// tests, where the simulation should keep producing activity without a
// generation backend.
type StaticGenerator struct {
	Lines []string
	n     atomic.Uint64
}

var defaultLines = []string{
	"hey, you around?",
	"lol ok",
	"did you see that??",
	"omw",
	"can't talk rn, later",
	"wait what happened",
}

func (g *StaticGenerator) Generate(_ context.Context, req Request) (string, error) {
	lines := g.Lines
	if len(lines) == 0 {
		lines = defaultLines
	}
	i := g.n.Add(1)
	line := lines[int(i-1)%len(lines)]
	if req.TopicHint != "" {
		return fmt.Sprintf("%s (%s)", line, req.TopicHint), nil
	}
	return line, nil
}
