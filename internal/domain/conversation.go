package domain

// Message is one turn in a session's timeline. Immutable once appended.
type Message struct {
	ID        MessageID `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`

	// TopicID attributes the message to the topic that was active when it was exchanged.
	TopicID TopicID `json:"topicId,omitempty"`
}

// Topic is a named thread of conversation tracked independently.
type Topic struct {
	ID        TopicID     `json:"id,omitempty"`
	Title     string      `json:"title"`
	Status    TopicStatus `json:"status"`
	Questions []string    `json:"questions"`
	Notes     []string    `json:"notes"`
}

// Preferences holds the user's vocabulary choices for the Interviewer.
type Preferences struct {
	PreferredTerms []string `json:"preferredTerms"`
	AvoidedTerms   []string `json:"avoidedTerms"`
}

// Session is the top-level aggregate: it owns messages and topics.
// Persistence always writes the whole aggregate.
type Session struct {
	ID              SessionID   `json:"id"`
	Title           string      `json:"title,omitempty"`
	Messages        []Message   `json:"messages"`
	Topics          []Topic     `json:"topics"`
	CurrentTopicID  TopicID     `json:"currentTopic,omitempty"`
	UserPreferences Preferences `json:"userPreferences"`
	CreatedAt       Timestamp   `json:"createdAt"`
	UpdatedAt       Timestamp   `json:"updatedAt"`
}

// SessionSummary is the lightweight listing shape.
type SessionSummary struct {
	ID        SessionID `json:"id"`
	Title     string    `json:"title,omitempty"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// TopicRef names the topic the orchestrator considers current.
type TopicRef struct {
	Title string `json:"title"`
}

// TopicUpdates is the orchestrator-derived change set folded into a session.
type TopicUpdates struct {
	CurrentTopic *TopicRef `json:"currentTopic,omitempty"`
	NewTopics    []Topic   `json:"newTopics,omitempty"`
}

// NewSession builds an empty session stamped at now.
func NewSession(title string, now Timestamp) *Session {
	return &Session{
		ID:       NewSessionID(now),
		Title:    title,
		Messages: []Message{},
		Topics:   []Topic{},
		UserPreferences: Preferences{
			PreferredTerms: []string{},
			AvoidedTerms:   []string{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Summary returns the listing view of the session.
func (s *Session) Summary() SessionSummary {
	return SessionSummary{ID: s.ID, Title: s.Title, UpdatedAt: s.UpdatedAt}
}

// Clone returns a deep copy so stores never share slices with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = append([]Message{}, s.Messages...)
	c.Topics = make([]Topic, len(s.Topics))
	for i, t := range s.Topics {
		t.Questions = append([]string{}, t.Questions...)
		t.Notes = append([]string{}, t.Notes...)
		c.Topics[i] = t
	}
	c.UserPreferences = Preferences{
		PreferredTerms: append([]string{}, s.UserPreferences.PreferredTerms...),
		AvoidedTerms:   append([]string{}, s.UserPreferences.AvoidedTerms...),
	}
	return &c
}

// LatestSummary picks the most recent session per NewerSession.
func LatestSummary(all []SessionSummary) (SessionSummary, bool) {
	if len(all) == 0 {
		return SessionSummary{}, false
	}
	best := all[0]
	for _, s := range all[1:] {
		if NewerSession(s, best) {
			best = s
		}
	}
	return best, true
}
