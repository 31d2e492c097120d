package domain

import (
	"math"
	"strings"
)

// Section is one titled block of a draft. Content is Markdown.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Draft is the structured document derived from one topic's messages.
// It is replaced wholesale on every successful Writer run.
type Draft struct {
	TopicID        TopicID   `json:"topicId"`
	TopicTitle     string    `json:"topicTitle"`
	Sections       []Section `json:"sections"`
	Completeness   int       `json:"completeness"`
	MissingAspects []string  `json:"missingAspects"`
	UpdatedAt      Timestamp `json:"updatedAt"`
}

// DraftMetadata is the listing view of a draft.
type DraftMetadata struct {
	TopicID      TopicID   `json:"topicId"`
	TopicTitle   string    `json:"topicTitle"`
	Completeness int       `json:"completeness"`
	UpdatedAt    Timestamp `json:"updatedAt"`
}

func (d Draft) Metadata() DraftMetadata {
	return DraftMetadata{
		TopicID:      d.TopicID,
		TopicTitle:   d.TopicTitle,
		Completeness: d.Completeness,
		UpdatedAt:    d.UpdatedAt,
	}
}

// ClampCompleteness rounds v and bounds it to [0,100].
func ClampCompleteness(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	switch {
	case r < 0:
		return 0
	case r > 100:
		return 100
	default:
		return int(r)
	}
}

// NormalizeSectionTitle collapses a section title onto one line.
func NormalizeSectionTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}

// NormalizeSectionContent drops trailing whitespace and leading blank lines.
// Indentation of the first content line is kept.
func NormalizeSectionContent(content string) string {
	lines := strings.Split(strings.TrimRight(content, " \t\r\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

// Normalized returns a copy of d in the form the draft encoding preserves
// exactly: section titles on one line, content normalized, completeness
// within 0..100 and non-nil collections.
func (d Draft) Normalized() Draft {
	out := d
	out.Completeness = ClampCompleteness(float64(d.Completeness))
	out.Sections = make([]Section, 0, len(d.Sections))
	for _, s := range d.Sections {
		out.Sections = append(out.Sections, Section{
			Title:   NormalizeSectionTitle(s.Title),
			Content: NormalizeSectionContent(s.Content),
		})
	}
	out.MissingAspects = append([]string{}, d.MissingAspects...)
	return out
}
