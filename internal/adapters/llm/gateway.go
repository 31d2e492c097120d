package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/quester-agent/internal/domain"
	"github.com/PabloGalante/quester-agent/internal/observability"
)

// DefaultTimeout bounds one generation call.
const DefaultTimeout = 15 * time.Second

// Model is the raw text-generation capability.
type Model interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Gateway implements domain.Generator on top of a Model. It enforces the
// per-call timeout and the output schema, and never retries.
type Gateway struct {
	model   Model
	timeout time.Duration
}

func NewGateway(model Model, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{model: model, timeout: timeout}
}

type completion struct {
	text string
	err  error
}

// Generate runs one generation. Every failure is reported as
// domain.ErrGenerationFailure.
func (g *Gateway) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	log := observability.LoggerFromContext(ctx).With("generation", req.Name)
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// The model may ignore ctx; the select keeps the bound anyway.
	done := make(chan completion, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- completion{err: fmt.Errorf("model panicked: %v", r)}
			}
		}()
		text, err := g.model.Complete(ctx, BuildPrompt(req))
		done <- completion{text: text, err: err}
	}()

	var res completion
	select {
	case res = <-done:
	case <-ctx.Done():
		res = completion{err: ctx.Err()}
	}

	if res.err != nil {
		if errors.Is(res.err, context.DeadlineExceeded) {
			log.Warn("generation timed out", "timeout", g.timeout.String())
			return "", fmt.Errorf("%w: %s timed out after %s", domain.ErrGenerationFailure, req.Name, g.timeout)
		}
		log.Warn("generation failed", "error", res.err)
		return "", fmt.Errorf("%w: %s: %w", domain.ErrGenerationFailure, req.Name, res.err)
	}

	text := stripCodeFence(res.text)
	if text == "" {
		log.Warn("generation returned no output")
		return "", fmt.Errorf("%w: %s returned no output", domain.ErrGenerationFailure, req.Name)
	}
	if req.Schema != nil {
		if err := req.Schema.Validate([]byte(text)); err != nil {
			log.Warn("generation does not match schema", "error", err)
			return "", fmt.Errorf("%w: %s: %w", domain.ErrGenerationFailure, req.Name, err)
		}
	}

	log.Debug("generation done", "elapsed_ms", time.Since(start).Milliseconds(), "chars", len(text))
	return text, nil
}

// stripCodeFence removes a ```json fence some models wrap around JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		return ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
