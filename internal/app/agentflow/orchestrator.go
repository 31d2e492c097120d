package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

var orchestratorSchema = &domain.Schema{
	Type: domain.TypeObject,
	Properties: map[string]*domain.Schema{
		"currentTopic": {
			Type:        domain.TypeString,
			Description: "The topic currently being discussed. Always present and never empty.",
		},
		"newTopics": {
			Type:        domain.TypeArray,
			Items:       &domain.Schema{Type: domain.TypeString},
			Description: "Other topics mentioned that are not the focus right now (empty if none).",
		},
	},
	Required: []string{"currentTopic", "newTopics"},
}

type OrchestratorInput struct {
	Messages     []domain.Message
	CurrentTopic *domain.Topic
	Backlog      []domain.Topic
}

type OrchestratorOutput struct {
	CurrentTopic string   `json:"currentTopic"`
	NewTopics    []string `json:"newTopics"`
}

// OrchestratorAgent detects the topic under discussion and any side topics.
type OrchestratorAgent struct {
	gen domain.Generator
}

func NewOrchestratorAgent(gen domain.Generator) *OrchestratorAgent {
	return &OrchestratorAgent{gen: gen}
}

func (a *OrchestratorAgent) Name() string {
	return "orchestrator"
}

// Run fails with domain.ErrAgentOutputInvalid when no current topic comes
// back. NewTopics never repeats the current topic or itself.
func (a *OrchestratorAgent) Run(ctx context.Context, in OrchestratorInput) (OrchestratorOutput, error) {
	req := domain.GenerationRequest{
		Name:            domain.OrchestratorOutput,
		Instructions:    orchestratorInstructions(in),
		Conversation:    RenderConversation(in.Messages),
		Schema:          orchestratorSchema,
		MaxOutputTokens: orchestratorMaxTokens,
	}

	var out OrchestratorOutput
	if err := generateInto(ctx, a.gen, a.Name(), req, &out); err != nil {
		return OrchestratorOutput{}, err
	}

	out.CurrentTopic = strings.TrimSpace(out.CurrentTopic)
	if out.CurrentTopic == "" {
		return OrchestratorOutput{}, fmt.Errorf("%w: orchestrator returned an empty currentTopic", domain.ErrAgentOutputInvalid)
	}
	out.NewTopics = cleanList(out.NewTopics, out.CurrentTopic)
	return out, nil
}

const orchestratorBasePrompt = `You are the Orchestrator agent for Quester. You detect and classify topics in an interview-style conversation.

Your job:
- Find the main topic the conversation is about right now
- Notice side topics the user mentions that deserve their own thread later
- Keep the main thread apart from tangents

Rules:
- currentTopic is always required and must describe what is actively being discussed
- On the very first message, the topic the user brings up becomes currentTopic
- When the user clearly moves on to something else, currentTopic changes with them
- newTopics lists other topics mentioned in passing; never repeat currentTopic there
- Give a clear, descriptive currentTopic even for general conversation
- IMPORTANT: when there is an active topic and the conversation is still about it, return its title EXACTLY as given. Do not rephrase, shorten, expand or translate it.`

func orchestratorInstructions(in OrchestratorInput) string {
	var b strings.Builder
	b.WriteString(orchestratorBasePrompt)

	if in.CurrentTopic != nil && in.CurrentTopic.Title != "" {
		fmt.Fprintf(&b, "\n\nCurrent active topic: \"%s\"", in.CurrentTopic.Title)
		fmt.Fprintf(&b, "\nIMPORTANT: If the conversation is still about this same topic, return EXACTLY: \"%s\"", in.CurrentTopic.Title)
	}

	if len(in.Backlog) > 0 {
		titles := make([]string, 0, len(in.Backlog))
		for _, t := range in.Backlog {
			titles = append(titles, t.Title)
		}
		b.WriteString("\n\nTopics already in the backlog: " + strings.Join(titles, ", "))
	}

	b.WriteString("\n\nReturn:\n- currentTopic: the main topic being discussed\n- newTopics: new side topics mentioned (empty array if none)")
	return b.String()
}
