// Package draftstore persists per-topic drafts as human-readable Markdown.
//
// A draft file is a YAML front matter block followed by one section per
// document section:
//
//	---
//	topicId: topic_123
//	topicTitle: Trip to Japan
//	completeness: 40
//	missingAspects:
//	    - Budget
//	updatedAt: "2024-05-01T10:00:00Z"
//	---
//
//	## Itinerary
//
//	Tokyo, then Kyoto.
//
// Content lines that start like a section marker are written with one extra
// leading backslash and restored on decode.
package draftstore

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

const (
	frontMatterDelim = "---"
	sectionMarker    = "## "
)

// escapedMarker matches content lines that need escaping: any run of
// backslashes (possibly empty) followed by a section marker.
var escapedMarker = regexp.MustCompile(`^\\*## |^\\*##$`)

type header struct {
	TopicID        string   `yaml:"topicId"`
	TopicTitle     string   `yaml:"topicTitle"`
	Completeness   *int     `yaml:"completeness"`
	MissingAspects []string `yaml:"missingAspects"`
	UpdatedAt      string   `yaml:"updatedAt"`
}

// Encode renders d in the draft file layout.
// The draft is normalized first; see domain.Draft.Normalized.
func Encode(d domain.Draft) ([]byte, error) {
	d = d.Normalized()
	completeness := d.Completeness
	h := header{
		TopicID:        string(d.TopicID),
		TopicTitle:     d.TopicTitle,
		Completeness:   &completeness,
		MissingAspects: d.MissingAspects,
		UpdatedAt:      d.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	meta, err := yaml.Marshal(&h)
	if err != nil {
		return nil, fmt.Errorf("encode draft header: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(frontMatterDelim + "\n")
	buf.Write(meta)
	buf.WriteString(frontMatterDelim + "\n")

	for _, s := range d.Sections {
		buf.WriteString("\n")
		buf.WriteString(sectionMarker + s.Title + "\n\n")
		if body := escapeContent(s.Content); body != "" {
			buf.WriteString(body + "\n")
		}
	}
	return buf.Bytes(), nil
}

// Decode parses a draft file. It fails with domain.ErrMalformedDraft when the
// front matter is absent or a required field cannot be found.
func Decode(data []byte) (domain.Draft, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	if len(lines) == 0 || strings.TrimRight(lines[0], " \t") != frontMatterDelim {
		return domain.Draft{}, fmt.Errorf("%w: missing front matter", domain.ErrMalformedDraft)
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t") == frontMatterDelim {
			end = i
			break
		}
	}
	if end < 0 {
		return domain.Draft{}, fmt.Errorf("%w: unterminated front matter", domain.ErrMalformedDraft)
	}

	var h header
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &h); err != nil {
		return domain.Draft{}, fmt.Errorf("%w: header: %v", domain.ErrMalformedDraft, err)
	}
	if err := h.validate(); err != nil {
		return domain.Draft{}, err
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, h.UpdatedAt)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("%w: updatedAt: %v", domain.ErrMalformedDraft, err)
	}

	aspects := h.MissingAspects
	if aspects == nil {
		aspects = []string{}
	}
	return domain.Draft{
		TopicID:        domain.TopicID(h.TopicID),
		TopicTitle:     h.TopicTitle,
		Sections:       parseSections(lines[end+1:]),
		Completeness:   domain.ClampCompleteness(float64(*h.Completeness)),
		MissingAspects: aspects,
		UpdatedAt:      updatedAt,
	}, nil
}

func (h header) validate() error {
	var missing []string
	if h.TopicID == "" {
		missing = append(missing, "topicId")
	}
	if h.TopicTitle == "" {
		missing = append(missing, "topicTitle")
	}
	if h.Completeness == nil {
		missing = append(missing, "completeness")
	}
	if h.UpdatedAt == "" {
		missing = append(missing, "updatedAt")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrMalformedDraft, strings.Join(missing, ", "))
	}
	return nil
}

func parseSections(lines []string) []domain.Section {
	sections := []domain.Section{}
	var (
		cur  *domain.Section
		body []string
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Content = domain.NormalizeSectionContent(strings.Join(body, "\n"))
		sections = append(sections, *cur)
	}

	for _, line := range lines {
		if isMarker(line) {
			flush()
			cur = &domain.Section{Title: domain.NormalizeSectionTitle(strings.TrimPrefix(line, "##"))}
			body = body[:0]
			continue
		}
		if cur == nil {
			continue
		}
		body = append(body, unescapeLine(line))
	}
	flush()
	return sections
}

func isMarker(line string) bool {
	return strings.HasPrefix(line, sectionMarker) || line == "##"
}

func escapeContent(content string) string {
	if content == "" {
		return ""
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if escapedMarker.MatchString(line) {
			lines[i] = `\` + line
		}
	}
	return strings.Join(lines, "\n")
}

func unescapeLine(line string) string {
	if strings.HasPrefix(line, `\`) && escapedMarker.MatchString(line) {
		return line[1:]
	}
	return line
}
