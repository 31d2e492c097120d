package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

var writerSchema = &domain.Schema{
	Type: domain.TypeObject,
	Properties: map[string]*domain.Schema{
		"sections": {
			Type:        domain.TypeArray,
			Description: "Document sections with titles and content",
			Items: &domain.Schema{
				Type: domain.TypeObject,
				Properties: map[string]*domain.Schema{
					"title":   {Type: domain.TypeString, Description: "Section title"},
					"content": {Type: domain.TypeString, Description: "Section content in Markdown"},
				},
				Required: []string{"title", "content"},
			},
		},
		"completeness": {
			Type:        domain.TypeNumber,
			Description: "Draft completeness percentage (0-100)",
		},
		"missingAspects": {
			Type:        domain.TypeArray,
			Items:       &domain.Schema{Type: domain.TypeString},
			Description: "Aspects still missing or needing more detail",
		},
	},
	Required: []string{"sections", "completeness", "missingAspects"},
}

type WriterInput struct {
	TopicID       domain.TopicID
	TopicTitle    string
	Messages      []domain.Message
	PreviousDraft *domain.Draft
	Mode          domain.UpdateMode
}

type WriterOutput struct {
	Sections       []domain.Section
	Completeness   int
	MissingAspects []string
}

type writerResponse struct {
	Sections []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"sections"`
	Completeness   float64  `json:"completeness"`
	MissingAspects []string `json:"missingAspects"`
}

// Draft stamps the output as the draft for topic at now.
func (o WriterOutput) Draft(topicID domain.TopicID, topicTitle string, now domain.Timestamp) domain.Draft {
	return domain.Draft{
		TopicID:        topicID,
		TopicTitle:     topicTitle,
		Sections:       o.Sections,
		Completeness:   o.Completeness,
		MissingAspects: o.MissingAspects,
		UpdatedAt:      now,
	}
}

// WriterAgent turns one topic's messages into a sectioned document.
type WriterAgent struct {
	gen domain.Generator
}

func NewWriterAgent(gen domain.Generator) *WriterAgent {
	return &WriterAgent{gen: gen}
}

func (a *WriterAgent) Name() string {
	return "writer"
}

// Run returns a full replacement draft. Completeness is clamped to 0..100.
func (a *WriterAgent) Run(ctx context.Context, in WriterInput) (WriterOutput, error) {
	req := domain.GenerationRequest{
		Name:            domain.WriterOutput,
		Instructions:    writerInstructions(in),
		Conversation:    RenderConversation(in.Messages),
		Schema:          writerSchema,
		MaxOutputTokens: writerMaxTokens,
	}

	var res writerResponse
	if err := generateInto(ctx, a.gen, a.Name(), req, &res); err != nil {
		return WriterOutput{}, err
	}

	out := WriterOutput{
		Sections:       make([]domain.Section, 0, len(res.Sections)),
		Completeness:   domain.ClampCompleteness(res.Completeness),
		MissingAspects: cleanList(res.MissingAspects),
	}
	for _, s := range res.Sections {
		out.Sections = append(out.Sections, domain.Section{
			Title:   domain.NormalizeSectionTitle(s.Title),
			Content: domain.NormalizeSectionContent(s.Content),
		})
	}
	return out, nil
}

const writerBasePrompt = `You are the Writer agent for Quester. You turn an interview conversation into a structured document.

Your job:
- Build a well-structured document about "%s" from the conversation
- CRITICAL: use only information the user stated explicitly. Never add, infer or invent content.
- CRITICAL: write in the SAME LANGUAGE the user used. Do not translate.
- Keep the user's own terms, ideas and voice
- Group the information into logical sections with clear titles, written in Markdown
- Judge how complete the draft is and what is still missing

Structure:
- Section titles describe what was actually discussed
- Each section holds ONLY information found in the conversation
- When an area has too little information, keep it short or mark it "[To be discussed]"
- Do not fill gaps with assumptions or general knowledge
- Only use details and examples that come from the conversation itself

Completeness:
- 0-25: very early, basic structure or minimal content
- 26-50: basic content in place, needs significant expansion
- 51-75: main points covered, details or refinement missing
- 76-100: comprehensive, with details, examples and polish

Missing aspects:
- Be specific about the information still needed
- Focus on substantive gaps, not polish
- Point at concrete areas to explore next`

func writerInstructions(in WriterInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, writerBasePrompt, in.TopicTitle)

	if in.Mode == domain.UpdateIncremental && in.PreviousDraft != nil {
		fmt.Fprintf(&b, "\n\nUpdate mode: INCREMENTAL\nThe previous draft had %d sections and was %d%% complete.",
			len(in.PreviousDraft.Sections), in.PreviousDraft.Completeness)
		b.WriteString(`

For an incremental update:
- Keep existing sections and their content where they still fit
- Add the new information from the recent conversation
- Expand or refine sections with new insights
- Reorganize or merge sections only when it makes the document clearer
- Update completeness to reflect what was added`)
	} else {
		b.WriteString("\n\nUpdate mode: FULL REVISION\nWrite a fresh, complete document from the whole conversation.")
	}

	b.WriteString(`

Return:
- sections: sections with title and Markdown content
- completeness: percentage (0-100) of how complete the draft is
- missingAspects: specific aspects still to be covered`)
	return b.String()
}
