package domain

import (
	"fmt"
	"sort"
	"strings"
)

// CurrentTopic returns the active topic referenced by CurrentTopicID, or nil.
// The pointer aliases the session's topic slice.
func (s *Session) CurrentTopic() *Topic {
	if s.CurrentTopicID == "" {
		return nil
	}
	t := s.topic(s.CurrentTopicID)
	if t == nil || t.Status != TopicActive {
		return nil
	}
	return t
}

// BacklogTopics returns the backlog sorted by title.
func (s *Session) BacklogTopics() []Topic {
	out := s.topicsWithStatus(TopicBacklog)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
	})
	return out
}

func (s *Session) CompletedTopics() []Topic {
	return s.topicsWithStatus(TopicCompleted)
}

// ApplyTopicUpdates folds orchestrator output into the topic set.
//
// A current-topic title that differs from the active topic's title is a
// transition: the old topic goes to the backlog and the target becomes
// active. The target is a backlog topic with the same title (compared
// case-insensitively) when one exists, otherwise a new topic. Completed
// topics are never reopened. A matching title only refreshes the active topic. New topics are
// de-duplicated case-insensitively against every known title; when no topic
// is active once the current-topic step is done, the first new topic that
// survives de-duplication becomes active.
func (s *Session) ApplyTopicUpdates(u TopicUpdates) {
	if u.CurrentTopic != nil {
		title := u.CurrentTopic.Title
		if strings.TrimSpace(title) == "" {
			title = ""
		}

		current := s.CurrentTopic()
		switch {
		case current != nil && title != "" && title != current.Title:
			current.Status = TopicBacklog
			s.activateByTitle(title)
		case current != nil:
			if title != "" {
				current.Title = title
			}
		default:
			if title == "" {
				title = UntitledCurrentTopic
			}
			s.activateByTitle(title)
		}
	}

	if len(u.NewTopics) == 0 {
		return
	}

	hasCurrent := s.CurrentTopic() != nil
	seen := make(map[string]bool, len(s.Topics)+len(u.NewTopics))
	for _, t := range s.Topics {
		seen[strings.ToLower(t.Title)] = true
	}

	for _, nt := range u.NewTopics {
		title := strings.TrimSpace(nt.Title)
		if title == "" {
			title = UntitledNewTopic
		}
		key := strings.ToLower(title)
		if seen[key] {
			continue
		}
		seen[key] = true

		if !hasCurrent {
			s.installActive(title, nt.Questions, nt.Notes)
			hasCurrent = true
			continue
		}
		s.Topics = append(s.Topics, Topic{
			ID:        NewTopicID(),
			Title:     title,
			Status:    TopicBacklog,
			Questions: nonNil(nt.Questions),
			Notes:     nonNil(nt.Notes),
		})
	}
}

// AddTopic appends a backlog topic, or returns the existing topic with the same title.
func (s *Session) AddTopic(title string) (Topic, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Topic{}, fmt.Errorf("%w: topic title is required", ErrInvalidInput)
	}
	for _, t := range s.Topics {
		if strings.EqualFold(t.Title, title) {
			return t, nil
		}
	}
	t := Topic{
		ID:        NewTopicID(),
		Title:     title,
		Status:    TopicBacklog,
		Questions: []string{},
		Notes:     []string{},
	}
	s.Topics = append(s.Topics, t)
	return t, nil
}

// SetCurrentTopic activates a backlog topic and demotes the previous active one.
func (s *Session) SetCurrentTopic(id TopicID) error {
	t := s.topic(id)
	if t == nil {
		return fmt.Errorf("topic %s: %w", id, ErrNotFound)
	}
	if t.Status == TopicCompleted {
		return fmt.Errorf("%w: topic %s is completed", ErrInvalidInput, id)
	}
	for i := range s.Topics {
		if s.Topics[i].Status == TopicActive && s.Topics[i].ID != id {
			s.Topics[i].Status = TopicBacklog
		}
	}
	t.Status = TopicActive
	s.CurrentTopicID = id
	return nil
}

// CompleteTopic marks a topic completed; completing the active topic clears the current reference.
func (s *Session) CompleteTopic(id TopicID) error {
	t := s.topic(id)
	if t == nil {
		return fmt.Errorf("topic %s: %w", id, ErrNotFound)
	}
	t.Status = TopicCompleted
	if s.CurrentTopicID == id {
		s.CurrentTopicID = ""
	}
	return nil
}

func (s *Session) UpdatePreferences(p Preferences) {
	s.UserPreferences = Preferences{
		PreferredTerms: nonNil(p.PreferredTerms),
		AvoidedTerms:   nonNil(p.AvoidedTerms),
	}
}

// AppendMessage records a message attributed to the current topic, if any.
func (s *Session) AppendMessage(role Role, content string, now Timestamp) Message {
	m := Message{
		ID:        NewMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: now,
	}
	if cur := s.CurrentTopic(); cur != nil {
		m.TopicID = cur.ID
	}
	s.Messages = append(s.Messages, m)
	return m
}

// TagUntagged attributes the listed messages to the current topic when they carry none yet.
func (s *Session) TagUntagged(ids ...MessageID) {
	cur := s.CurrentTopic()
	if cur == nil {
		return
	}
	want := make(map[MessageID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range s.Messages {
		if want[s.Messages[i].ID] && s.Messages[i].TopicID == "" {
			s.Messages[i].TopicID = cur.ID
		}
	}
}

// MessagesForTopic selects the messages attributed to topic. Histories that
// carry no attribution at all are returned whole.
func MessagesForTopic(msgs []Message, topic TopicID) []Message {
	var out []Message
	tagged := false
	for _, m := range msgs {
		if m.TopicID != "" {
			tagged = true
		}
		if m.TopicID == topic {
			out = append(out, m)
		}
	}
	if !tagged {
		return msgs
	}
	return out
}

// activateByTitle resumes the backlog topic titled title, or installs a new one.
func (s *Session) activateByTitle(title string) {
	for i := range s.Topics {
		if s.Topics[i].Status == TopicBacklog && strings.EqualFold(s.Topics[i].Title, title) {
			_ = s.SetCurrentTopic(s.Topics[i].ID)
			return
		}
	}
	s.installActive(title, nil, nil)
}

func (s *Session) installActive(title string, questions, notes []string) {
	for i := range s.Topics {
		if s.Topics[i].Status == TopicActive {
			s.Topics[i].Status = TopicBacklog
		}
	}
	t := Topic{
		ID:        NewTopicID(),
		Title:     title,
		Status:    TopicActive,
		Questions: nonNil(questions),
		Notes:     nonNil(notes),
	}
	s.Topics = append(s.Topics, t)
	s.CurrentTopicID = t.ID
}

func (s *Session) topic(id TopicID) *Topic {
	for i := range s.Topics {
		if s.Topics[i].ID == id {
			return &s.Topics[i]
		}
	}
	return nil
}

func (s *Session) topicsWithStatus(status TopicStatus) []Topic {
	out := []Topic{}
	for _, t := range s.Topics {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// Validate checks a client-supplied snapshot: a safe id, unique topic ids,
// known message roles, at most one active topic, and a current reference
// that points at it.
func (s *Session) Validate() error {
	if !IsSafeID(string(s.ID)) {
		return fmt.Errorf("%w: invalid session id %q", ErrInvalidInput, s.ID)
	}
	ids := make(map[TopicID]bool, len(s.Topics))
	var active []TopicID
	for _, t := range s.Topics {
		if t.ID == "" || ids[t.ID] {
			return fmt.Errorf("%w: missing or duplicate topic id %q", ErrInvalidInput, t.ID)
		}
		ids[t.ID] = true
		switch t.Status {
		case TopicActive:
			active = append(active, t.ID)
		case TopicBacklog, TopicCompleted:
		default:
			return fmt.Errorf("%w: topic %s has unknown status %q", ErrInvalidInput, t.ID, t.Status)
		}
	}
	for i, m := range s.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidInput, i, m.Role)
		}
	}
	if len(active) > 1 {
		return fmt.Errorf("%w: %d active topics", ErrInvalidInput, len(active))
	}
	if s.CurrentTopicID != "" && (len(active) == 0 || active[0] != s.CurrentTopicID) {
		return fmt.Errorf("%w: current topic %s is not the active topic", ErrInvalidInput, s.CurrentTopicID)
	}
	return nil
}
