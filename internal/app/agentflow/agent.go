package agentflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/quester-agent/internal/domain"
	"github.com/PabloGalante/quester-agent/internal/observability"
)

// Output token caps per agent.
const (
	orchestratorMaxTokens = 500
	interviewerMaxTokens  = 1000
	writerMaxTokens       = 2000
)

// RenderConversation formats messages as "role: content" blocks separated by
// blank lines, the form every agent receives its history in.
func RenderConversation(msgs []domain.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, string(m.Role)+": "+m.Content)
	}
	return strings.Join(parts, "\n\n")
}

// generateInto runs one generation and decodes the JSON answer into out.
func generateInto(ctx context.Context, gen domain.Generator, agent string, req domain.GenerationRequest, out any) error {
	log := observability.LoggerFromContext(ctx).With("agent", agent)
	start := time.Now()
	log.Info("agent run start")

	raw, err := gen.Generate(ctx, req)
	if err != nil {
		log.Error("agent failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return fmt.Errorf("agent %s failed: %w", agent, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		log.Error("agent output undecodable", "error", err)
		return fmt.Errorf("agent %s: %w: %v", agent, domain.ErrGenerationFailure, err)
	}

	log.Info("agent run end", "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// cleanList trims entries, drops blanks and case-insensitive duplicates,
// and drops anything equal to one of exclude.
func cleanList(in []string, exclude ...string) []string {
	seen := make(map[string]bool, len(in)+len(exclude))
	for _, e := range exclude {
		seen[strings.ToLower(strings.TrimSpace(e))] = true
	}
	out := []string{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
