package llm

import (
	"github.com/PabloGalante/quester-agent/internal/domain"
)

// Prompt is what a Model receives: system instructions, the rendered
// conversation as user content, and the JSON contract for the answer.
type Prompt struct {
	Name            string
	System          string
	User            string
	Schema          *domain.Schema
	MaxOutputTokens int
}

// BuildPrompt maps a generation request onto a model prompt.
func BuildPrompt(req domain.GenerationRequest) Prompt {
	return Prompt{
		Name:            req.Name,
		System:          req.Instructions,
		User:            req.Conversation,
		Schema:          req.Schema,
		MaxOutputTokens: req.MaxOutputTokens,
	}
}
