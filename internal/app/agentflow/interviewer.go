package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

var interviewerSchema = &domain.Schema{
	Type: domain.TypeObject,
	Properties: map[string]*domain.Schema{
		"message": {
			Type:        domain.TypeString,
			Description: "Your conversational response to the user",
		},
	},
	Required: []string{"message"},
}

type InterviewerInput struct {
	Messages      []domain.Message
	CurrentTopic  string
	BacklogTopics []string
	Preferences   domain.Preferences
}

type InterviewerOutput struct {
	Message string `json:"message"`
}

// InterviewerAgent produces the next conversational turn.
type InterviewerAgent struct {
	gen domain.Generator
}

func NewInterviewerAgent(gen domain.Generator) *InterviewerAgent {
	return &InterviewerAgent{gen: gen}
}

func (a *InterviewerAgent) Name() string {
	return "interviewer"
}

func (a *InterviewerAgent) Run(ctx context.Context, in InterviewerInput) (InterviewerOutput, error) {
	req := domain.GenerationRequest{
		Name:            domain.InterviewerOutput,
		Instructions:    interviewerInstructions(in),
		Conversation:    RenderConversation(in.Messages),
		Schema:          interviewerSchema,
		MaxOutputTokens: interviewerMaxTokens,
	}

	var out InterviewerOutput
	if err := generateInto(ctx, a.gen, a.Name(), req, &out); err != nil {
		return InterviewerOutput{}, err
	}

	out.Message = strings.TrimSpace(out.Message)
	if out.Message == "" {
		return InterviewerOutput{}, fmt.Errorf("%w: interviewer returned an empty message", domain.ErrAgentOutputInvalid)
	}
	return out, nil
}

const interviewerBasePrompt = `You are the Interviewer agent for Quester, a conversational writing partner that works like a seasoned interviewer.

How you work:
- Ask ONE question at a time so the user is never overwhelmed
- Summarize what the user said and confirm you understood before moving on
- Keep the terms the user likes and stay away from the ones they dislike
- Open ideas up first, then narrow them down to the key themes
- Now and then, frame where the conversation is heading and check it with the user
- IMPORTANT: always answer in the same language the user writes in

Your goal is to help the user clarify, confirm and structure their thoughts until they become finished writing.`

func interviewerInstructions(in InterviewerInput) string {
	var b strings.Builder
	b.WriteString(interviewerBasePrompt)

	fmt.Fprintf(&b, "\n\nCurrent topic context:\n- Main topic being discussed: \"%s\"", in.CurrentTopic)
	if len(in.BacklogTopics) > 0 {
		b.WriteString("\n- Topics in backlog for later: " + strings.Join(in.BacklogTopics, ", "))
	}

	prefs := in.Preferences
	if len(prefs.PreferredTerms) > 0 || len(prefs.AvoidedTerms) > 0 {
		b.WriteString("\n\nUser preferences:")
		if len(prefs.PreferredTerms) > 0 {
			b.WriteString("\n- Preferred terms to preserve: " + strings.Join(prefs.PreferredTerms, ", "))
		}
		if len(prefs.AvoidedTerms) > 0 {
			b.WriteString("\n- Terms to avoid: " + strings.Join(prefs.AvoidedTerms, ", "))
		}
	}

	b.WriteString("\n\nWrite your next turn as a professional interviewer following the guidelines above.")
	return b.String()
}
