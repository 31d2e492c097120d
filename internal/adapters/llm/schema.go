package llm

import (
	"slices"

	"google.golang.org/genai"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

var genaiTypes = map[domain.SchemaType]genai.Type{
	domain.TypeObject:  genai.TypeObject,
	domain.TypeArray:   genai.TypeArray,
	domain.TypeString:  genai.TypeString,
	domain.TypeNumber:  genai.TypeNumber,
	domain.TypeInteger: genai.TypeInteger,
	domain.TypeBoolean: genai.TypeBoolean,
}

// toGenaiSchema converts an output contract into the genai response schema.
// Required properties are ordered first so the model emits them early.
func toGenaiSchema(s *domain.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genaiTypes[s.Type],
		Description: s.Description,
		Required:    slices.Clone(s.Required),
		Items:       toGenaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
		order := slices.Clone(s.Required)
		for _, name := range s.PropertyNames() {
			if !slices.Contains(order, name) {
				order = append(order, name)
			}
		}
		out.PropertyOrdering = order
	}
	return out
}
