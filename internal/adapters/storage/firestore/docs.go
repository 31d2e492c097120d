package firestore

import (
	"time"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type sessionDoc struct {
	Title          string       `firestore:"title"`
	Messages       []messageDoc `firestore:"messages"`
	Topics         []topicDoc   `firestore:"topics"`
	CurrentTopic   string       `firestore:"current_topic"`
	PreferredTerms []string     `firestore:"preferred_terms"`
	AvoidedTerms   []string     `firestore:"avoided_terms"`
	CreatedAt      time.Time    `firestore:"created_at"`
	UpdatedAt      time.Time    `firestore:"updated_at"`
}

type summaryDoc struct {
	Title     string    `firestore:"title"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type messageDoc struct {
	ID        string    `firestore:"id"`
	Role      string    `firestore:"role"`
	Content   string    `firestore:"content"`
	Timestamp time.Time `firestore:"timestamp"`
	TopicID   string    `firestore:"topic_id"`
}

type topicDoc struct {
	ID        string   `firestore:"id"`
	Title     string   `firestore:"title"`
	Status    string   `firestore:"status"`
	Questions []string `firestore:"questions"`
	Notes     []string `firestore:"notes"`
}

type draftDoc struct {
	Body      []byte    `firestore:"body"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func toSessionDoc(s *domain.Session) sessionDoc {
	doc := sessionDoc{
		Title:          s.Title,
		Messages:       make([]messageDoc, 0, len(s.Messages)),
		Topics:         make([]topicDoc, 0, len(s.Topics)),
		CurrentTopic:   string(s.CurrentTopicID),
		PreferredTerms: s.UserPreferences.PreferredTerms,
		AvoidedTerms:   s.UserPreferences.AvoidedTerms,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	for _, m := range s.Messages {
		doc.Messages = append(doc.Messages, messageDoc{
			ID:        string(m.ID),
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
			TopicID:   string(m.TopicID),
		})
	}
	for _, t := range s.Topics {
		doc.Topics = append(doc.Topics, topicDoc{
			ID:        string(t.ID),
			Title:     t.Title,
			Status:    string(t.Status),
			Questions: t.Questions,
			Notes:     t.Notes,
		})
	}
	return doc
}

func fromSessionDoc(id domain.SessionID, doc sessionDoc) *domain.Session {
	s := &domain.Session{
		ID:             id,
		Title:          doc.Title,
		Messages:       make([]domain.Message, 0, len(doc.Messages)),
		Topics:         make([]domain.Topic, 0, len(doc.Topics)),
		CurrentTopicID: domain.TopicID(doc.CurrentTopic),
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
	s.UpdatePreferences(domain.Preferences{
		PreferredTerms: doc.PreferredTerms,
		AvoidedTerms:   doc.AvoidedTerms,
	})
	for _, m := range doc.Messages {
		s.Messages = append(s.Messages, domain.Message{
			ID:        domain.MessageID(m.ID),
			Role:      domain.Role(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
			TopicID:   domain.TopicID(m.TopicID),
		})
	}
	for _, t := range doc.Topics {
		topic := domain.Topic{
			ID:        domain.TopicID(t.ID),
			Title:     t.Title,
			Status:    domain.TopicStatus(t.Status),
			Questions: t.Questions,
			Notes:     t.Notes,
		}
		if topic.Questions == nil {
			topic.Questions = []string{}
		}
		if topic.Notes == nil {
			topic.Notes = []string{}
		}
		s.Topics = append(s.Topics, topic)
	}
	return s
}
