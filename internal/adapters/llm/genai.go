package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// Backends supported by GenAIModel.
const (
	BackendGemini = "gemini"
	BackendVertex = "vertex"
)

type GenAIConfig struct {
	Backend  string
	APIKey   string
	Project  string
	Location string
	Model    string
}

// GenAIModel is a Model backed by Gemini, either through the Gemini API
// (API key) or through Vertex AI (project + location).
type GenAIModel struct {
	client    *genai.Client
	modelName string
}

func NewGenAIModel(ctx context.Context, cfg GenAIConfig) (*GenAIModel, error) {
	cc := &genai.ClientConfig{}
	switch cfg.Backend {
	case BackendVertex:
		if cfg.Project == "" || cfg.Location == "" {
			return nil, fmt.Errorf("vertex backend requires project and location")
		}
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
	case BackendGemini, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini backend requires an API key")
		}
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = cfg.APIKey
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GenAIModel{
		client:    client,
		modelName: modelName,
	}, nil
}

// Complete sends one structured-output request. The conversation goes as a
// single user turn; the answer is constrained to p.Schema as JSON.
func (m *GenAIModel) Complete(ctx context.Context, p Prompt) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(p.User, genai.RoleUser)}

	temp := float32(0.7)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   int32(p.MaxOutputTokens),
	}
	if p.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toGenaiSchema(p.Schema)
	}

	res, err := m.client.Models.GenerateContent(ctx, m.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("genai generate content: %w", err)
	}

	// Only the text; an empty answer is judged by the gateway.
	return res.Text(), nil
}
