package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PabloGalante/quester-agent/internal/app/agentflow"
	"github.com/PabloGalante/quester-agent/internal/app/tasks"
	"github.com/PabloGalante/quester-agent/internal/domain"
	"github.com/PabloGalante/quester-agent/internal/draftstore"
	"github.com/PabloGalante/quester-agent/internal/observability"
)

type Service struct {
	sessions domain.SessionStore
	drafts   *draftstore.Store
	tracker  *tasks.Tracker
	now      func() time.Time

	orchestrator *agentflow.OrchestratorAgent
	interviewer  *agentflow.InterviewerAgent
	writer       *agentflow.WriterAgent

	spawn      func(func())
	background sync.WaitGroup
	locks      sessionLocks
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSpawner replaces the goroutine launcher used for draft runs.
func WithSpawner(spawn func(func())) Option {
	return func(s *Service) { s.spawn = spawn }
}

func NewService(
	gen domain.Generator,
	sessions domain.SessionStore,
	drafts *draftstore.Store,
	tracker *tasks.Tracker,
	opts ...Option,
) *Service {
	s := &Service{
		sessions:     sessions,
		drafts:       drafts,
		tracker:      tracker,
		now:          time.Now,
		orchestrator: agentflow.NewOrchestratorAgent(gen),
		interviewer:  agentflow.NewInterviewerAgent(gen),
		writer:       agentflow.NewWriterAgent(gen),
		spawn:        func(f func()) { go f() },
		locks:        sessionLocks{held: make(map[domain.SessionID]*sessionLock)},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type StartSessionInput struct {
	Title string
}

type StartSessionOutput struct {
	Session *domain.Session
}

func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	session := domain.NewSession(strings.TrimSpace(in.Title), s.now())

	log := observability.LoggerFromContext(ctx).With("session_id", session.ID)
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, err
	}

	log.Info("session started")
	return &StartSessionOutput{Session: session}, nil
}

func (s *Service) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	if !domain.IsSafeID(string(id)) {
		return nil, fmt.Errorf("%w: invalid session id %q", domain.ErrInvalidInput, id)
	}
	return s.sessions.GetSession(ctx, id)
}

func (s *Service) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	return s.sessions.ListSessions(ctx)
}

// LatestSession returns domain.ErrNotFound when there are no sessions.
func (s *Service) LatestSession(ctx context.Context) (*domain.Session, error) {
	return s.sessions.LatestSession(ctx)
}

// SaveSession stores a caller-owned snapshot as is, after checking its
// topic invariants.
func (s *Service) SaveSession(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: session is required", domain.ErrInvalidInput)
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(session.ID)
	defer unlock()

	if session.Messages == nil {
		session.Messages = []domain.Message{}
	}
	if session.Topics == nil {
		session.Topics = []domain.Topic{}
	}
	session.UpdatePreferences(session.UserPreferences)
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now()
	}
	session.UpdatedAt = s.now()

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

type SendMessageInput struct {
	SessionID domain.SessionID
	Text      string
}

type SendMessageOutput struct {
	UserMessage  domain.Message
	AgentMessage domain.Message
	TopicUpdates *domain.TopicUpdates
	Session      *domain.Session
}

// SendMessage runs a turn against a stored session and folds the result
// back into it. Nothing is saved when the turn fails, so the caller can
// resend the same text.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: message text is required", domain.ErrInvalidInput)
	}
	if !domain.IsSafeID(string(in.SessionID)) {
		return nil, fmt.Errorf("%w: invalid session id %q", domain.ErrInvalidInput, in.SessionID)
	}

	unlock := s.locks.lock(in.SessionID)
	defer unlock()

	session, err := s.sessions.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With("session_id", session.ID)

	userMsg := session.AppendMessage(domain.RoleUser, text, s.now())

	cc := &ChatContext{
		Backlog:     session.BacklogTopics(),
		Preferences: session.UserPreferences,
	}
	if cur := session.CurrentTopic(); cur != nil {
		c := *cur
		cc.CurrentTopic = &c
	}

	out, err := s.Chat(ctx, ChatInput{
		SessionID: session.ID,
		Messages:  session.Messages,
		Context:   cc,
	})
	if err != nil {
		return nil, err
	}

	agentMsg := session.AppendMessage(domain.RoleAssistant, out.Message, s.now())
	if out.TopicUpdates != nil {
		session.ApplyTopicUpdates(*out.TopicUpdates)
		session.TagUntagged(userMsg.ID, agentMsg.ID)
		userMsg, agentMsg = findMessage(session, userMsg), findMessage(session, agentMsg)
	}
	session.UpdatedAt = s.now()

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		log.Error("failed to save session", "error", err)
		return nil, err
	}

	log.Info("send message completed", "messages", len(session.Messages))
	return &SendMessageOutput{
		UserMessage:  userMsg,
		AgentMessage: agentMsg,
		TopicUpdates: out.TopicUpdates,
		Session:      session,
	}, nil
}

func (s *Service) AddTopic(ctx context.Context, id domain.SessionID, title string) (domain.Topic, error) {
	var topic domain.Topic
	_, err := s.mutate(ctx, id, func(sess *domain.Session) error {
		var err error
		topic, err = sess.AddTopic(title)
		return err
	})
	return topic, err
}

func (s *Service) ActivateTopic(ctx context.Context, id domain.SessionID, topicID domain.TopicID) (*domain.Session, error) {
	return s.mutate(ctx, id, func(sess *domain.Session) error {
		return sess.SetCurrentTopic(topicID)
	})
}

func (s *Service) CompleteTopic(ctx context.Context, id domain.SessionID, topicID domain.TopicID) (*domain.Session, error) {
	return s.mutate(ctx, id, func(sess *domain.Session) error {
		return sess.CompleteTopic(topicID)
	})
}

func (s *Service) UpdatePreferences(ctx context.Context, id domain.SessionID, prefs domain.Preferences) (*domain.Session, error) {
	return s.mutate(ctx, id, func(sess *domain.Session) error {
		sess.UpdatePreferences(prefs)
		return nil
	})
}

// mutate loads, changes and saves one session under its lock.
func (s *Service) mutate(ctx context.Context, id domain.SessionID, fn func(*domain.Session) error) (*domain.Session, error) {
	if !domain.IsSafeID(string(id)) {
		return nil, fmt.Errorf("%w: invalid session id %q", domain.ErrInvalidInput, id)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	session.UpdatedAt = s.now()
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func findMessage(s *domain.Session, m domain.Message) domain.Message {
	for _, msg := range s.Messages {
		if msg.ID == m.ID {
			return msg
		}
	}
	return m
}
