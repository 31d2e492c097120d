package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

// HandlerFunc answers one prompt.
type HandlerFunc func(ctx context.Context, p Prompt) (string, error)

// MockLLM is a Model for local mode and tests. Handlers are looked up by
// prompt name; the built-in ones give Quester a minimal personality and
// anything else gets a placeholder value shaped by the prompt schema.
type MockLLM struct {
	mu       sync.Mutex
	handlers map[string]HandlerFunc
	prompts  []Prompt
}

func NewMockLLM() *MockLLM {
	m := &MockLLM{handlers: make(map[string]HandlerFunc)}
	m.handlers[domain.OrchestratorOutput] = mockOrchestrator
	m.handlers[domain.InterviewerOutput] = mockInterviewer
	m.handlers[domain.WriterOutput] = mockWriter
	return m
}

// Handle replaces the handler for prompts named name.
func (m *MockLLM) Handle(name string, fn HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[name] = fn
}

// HandleJSON makes prompts named name answer with v encoded as JSON.
func (m *MockLLM) HandleJSON(name string, v any) {
	m.Handle(name, func(context.Context, Prompt) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	})
}

// Prompts returns every prompt received so far.
func (m *MockLLM) Prompts() []Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Prompt(nil), m.prompts...)
}

// PromptsNamed filters Prompts by name.
func (m *MockLLM) PromptsNamed(name string) []Prompt {
	var out []Prompt
	for _, p := range m.Prompts() {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out
}

func (m *MockLLM) Complete(ctx context.Context, p Prompt) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, p)
	h, ok := m.handlers[p.Name]
	m.mu.Unlock()

	if !ok {
		b, err := json.Marshal(placeholder(p.Schema, p.Name))
		return string(b), err
	}
	return h(ctx, p)
}

var (
	exactTopic = regexp.MustCompile(`return EXACTLY: "([^"]*)"`)
	mainTopic  = regexp.MustCompile(`Main topic being discussed: "([^"]*)"`)
)

func mockOrchestrator(_ context.Context, p Prompt) (string, error) {
	topic := ""
	if m := exactTopic.FindStringSubmatch(p.System); m != nil {
		topic = m[1]
	} else if msgs := userLines(p.User); len(msgs) > 0 {
		topic = guessTopic(msgs[len(msgs)-1])
	}
	if topic == "" {
		topic = domain.DefaultTopicLabel
	}
	return encode(map[string]any{"currentTopic": topic, "newTopics": []string{}})
}

func mockInterviewer(_ context.Context, p Prompt) (string, error) {
	topic := domain.DefaultTopicLabel
	if m := mainTopic.FindStringSubmatch(p.System); m != nil {
		topic = m[1]
	}
	return encode(map[string]any{
		"message": fmt.Sprintf("I hear you. Tell me more about %s: what matters most to you there?", topic),
	})
}

func mockWriter(_ context.Context, p Prompt) (string, error) {
	lines := userLines(p.User)
	bullets := make([]string, 0, len(lines))
	for _, l := range lines {
		bullets = append(bullets, "- "+l)
	}
	return encode(map[string]any{
		"sections": []map[string]string{
			{"title": "Notes", "content": strings.Join(bullets, "\n")},
		},
		"completeness":   min(100, 10*len(lines)),
		"missingAspects": []string{},
	})
}

// userLines extracts user turns from a rendered conversation.
func userLines(conversation string) []string {
	var out []string
	for _, block := range strings.Split(conversation, "\n\n") {
		if text, ok := strings.CutPrefix(block, string(domain.RoleUser)+": "); ok {
			out = append(out, strings.TrimSpace(text))
		}
	}
	return out
}

// guessTopic turns "I want to write about my trip to Japan." into "Trip to Japan".
func guessTopic(msg string) string {
	msg = strings.TrimSpace(msg)
	if _, after, ok := strings.Cut(msg, " about "); ok {
		msg = after
	}
	msg = strings.TrimRight(msg, ".!?¿¡ ")
	for _, p := range []string{"my ", "the ", "a ", "an "} {
		if len(msg) > len(p) && strings.EqualFold(msg[:len(p)], p) {
			msg = msg[len(p):]
			break
		}
	}
	words := strings.Fields(msg)
	if len(words) == 0 {
		return ""
	}
	if len(words) > 6 {
		words = words[:6]
	}
	out := strings.Join(words, " ")
	r, size := utf8.DecodeRuneInString(out)
	return string(unicode.ToUpper(r)) + out[size:]
}

// placeholder builds a value of the schema's shape.
func placeholder(s *domain.Schema, name string) any {
	if s == nil {
		return "mock " + name
	}
	switch s.Type {
	case domain.TypeObject:
		obj := make(map[string]any, len(s.Properties))
		for prop, ps := range s.Properties {
			obj[prop] = placeholder(ps, prop)
		}
		return obj
	case domain.TypeArray:
		return []any{}
	case domain.TypeNumber, domain.TypeInteger:
		return 0
	case domain.TypeBoolean:
		return false
	default:
		return "mock " + name
	}
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
