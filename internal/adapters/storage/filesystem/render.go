package filesystem

import (
	"strings"
	"time"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

// RenderTranscript renders messages as a readable conversation log.
func RenderTranscript(msgs []domain.Message) string {
	var b strings.Builder
	b.WriteString("# Conversation\n\n")

	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		who := "Quester"
		if m.Role == domain.RoleUser {
			who = "User"
		}
		b.WriteString("## " + who + " (" + m.Timestamp.UTC().Format(time.RFC3339) + ")\n\n")
		b.WriteString(m.Content + "\n")
	}
	return b.String()
}

// RenderTopics renders each topic with its status, questions and notes.
func RenderTopics(topics []domain.Topic) string {
	var b strings.Builder
	b.WriteString("# Topics\n\n")

	if len(topics) == 0 {
		b.WriteString("No topics yet.\n")
		return b.String()
	}

	for i, t := range topics {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## " + t.Title + " (" + statusLabel(t.Status) + ")\n\n")
		writeList(&b, "Questions", t.Questions)
		writeList(&b, "Notes", t.Notes)
	}
	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("### " + heading + "\n\n")
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
	b.WriteString("\n")
}

func statusLabel(s domain.TopicStatus) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}
