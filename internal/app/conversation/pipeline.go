package conversation

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/PabloGalante/quester-agent/internal/app/agentflow"
	"github.com/PabloGalante/quester-agent/internal/domain"
	"github.com/PabloGalante/quester-agent/internal/observability"
)

// ChatContext is the caller-owned topic state sent with a turn.
type ChatContext struct {
	CurrentTopic *domain.Topic      `json:"currentTopic,omitempty"`
	Backlog      []domain.Topic     `json:"backlog"`
	Preferences  domain.Preferences `json:"preferences"`
}

type ChatInput struct {
	SessionID domain.SessionID `json:"sessionId"`
	Messages  []domain.Message `json:"messages"`
	Context   *ChatContext     `json:"context,omitempty"`
}

type ChatOutput struct {
	Message      string               `json:"message"`
	TopicUpdates *domain.TopicUpdates `json:"topicUpdates,omitempty"`
}

// Chat runs one turn: orchestrator, then interviewer, then the detached
// draft stage. Only an interviewer failure fails the turn.
func (s *Service) Chat(ctx context.Context, in ChatInput) (*ChatOutput, error) {
	if len(in.Messages) == 0 {
		return nil, fmt.Errorf("%w: messages are required", domain.ErrInvalidInput)
	}
	if in.SessionID != "" && !domain.IsSafeID(string(in.SessionID)) {
		return nil, fmt.Errorf("%w: invalid session id %q", domain.ErrInvalidInput, in.SessionID)
	}
	for i, m := range in.Messages {
		if !m.Role.Valid() {
			return nil, fmt.Errorf("%w: message %d has unknown role %q", domain.ErrInvalidInput, i, m.Role)
		}
	}

	cc := ChatContext{}
	if in.Context != nil {
		cc = *in.Context
	}
	if cc.CurrentTopic != nil && cc.CurrentTopic.Title == "" && cc.CurrentTopic.ID == "" {
		cc.CurrentTopic = nil
	}

	if in.SessionID != "" {
		ctx = observability.WithSessionID(ctx, string(in.SessionID))
	}
	log := observability.LoggerFromContext(ctx)
	log.Info("chat turn started", "messages", len(in.Messages))

	orch, err := s.orchestrator.Run(ctx, agentflow.OrchestratorInput{
		Messages:     in.Messages,
		CurrentTopic: cc.CurrentTopic,
		Backlog:      cc.Backlog,
	})
	detected := err == nil
	if err != nil {
		log.Warn("topic detection failed, continuing without topic update", "error", err)
	}

	topic := domain.DefaultTopicLabel
	switch {
	case detected:
		topic = orch.CurrentTopic
	case cc.CurrentTopic != nil && cc.CurrentTopic.Title != "":
		topic = cc.CurrentTopic.Title
	}

	backlog := make([]string, 0, len(cc.Backlog))
	for _, t := range cc.Backlog {
		backlog = append(backlog, t.Title)
	}

	reply, err := s.interviewer.Run(ctx, agentflow.InterviewerInput{
		Messages:      in.Messages,
		CurrentTopic:  topic,
		BacklogTopics: backlog,
		Preferences:   cc.Preferences,
	})
	if err != nil {
		log.Error("interviewer failed", "error", err)
		return nil, fmt.Errorf("interviewer: %w", err)
	}

	out := &ChatOutput{Message: reply.Message}
	if detected {
		out.TopicUpdates = &domain.TopicUpdates{
			CurrentTopic: &domain.TopicRef{Title: orch.CurrentTopic},
		}
		for _, title := range orch.NewTopics {
			out.TopicUpdates.NewTopics = append(out.TopicUpdates.NewTopics, domain.Topic{
				Title:     title,
				Status:    domain.TopicBacklog,
				Questions: []string{},
				Notes:     []string{},
			})
		}
	}

	if in.SessionID != "" && cc.CurrentTopic != nil && domain.IsSafeID(string(cc.CurrentTopic.ID)) {
		s.startDraft(ctx, in.SessionID, *cc.CurrentTopic, in.Messages)
	}

	log.Info("chat turn completed", "topic", topic, "topic_detected", detected)
	return out, nil
}

// startDraft records a running task and hands the Writer run to the spawner.
// It never waits for the run.
func (s *Service) startDraft(ctx context.Context, sessionID domain.SessionID, topic domain.Topic, msgs []domain.Message) {
	topicMsgs := slices.Clone(domain.MessagesForTopic(msgs, topic.ID))
	bg := context.WithoutCancel(ctx)

	s.tracker.Start(sessionID, topic.ID, domain.TaskDraftGeneration)
	s.background.Add(1)
	s.spawn(func() {
		defer s.background.Done()
		s.runDraft(bg, sessionID, topic, topicMsgs)
	})
}

func (s *Service) runDraft(ctx context.Context, sessionID domain.SessionID, topic domain.Topic, msgs []domain.Message) {
	log := observability.LoggerFromContext(ctx).With("topic_id", topic.ID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("draft generation panicked", "panic", r)
			s.tracker.Fail(sessionID, topic.ID, fmt.Sprintf("panic: %v", r))
		}
	}()

	if err := s.generateDraft(ctx, sessionID, topic, msgs); err != nil {
		log.Error("draft generation failed", "error", err)
		s.tracker.Fail(sessionID, topic.ID, err.Error())
		return
	}
	s.tracker.Complete(sessionID, topic.ID)
	log.Info("draft generation completed")
}

// generateDraft picks the update mode from the stored draft alone: none or
// unreadable means a full revision.
func (s *Service) generateDraft(ctx context.Context, sessionID domain.SessionID, topic domain.Topic, msgs []domain.Message) error {
	prev, found, err := s.drafts.Load(ctx, sessionID, topic.ID)
	in := agentflow.WriterInput{
		TopicID:    topic.ID,
		TopicTitle: topic.Title,
		Messages:   msgs,
		Mode:       domain.UpdateFullRevision,
	}
	switch {
	case errors.Is(err, domain.ErrMalformedDraft):
		observability.LoggerFromContext(ctx).Warn("previous draft unreadable, regenerating", "topic_id", topic.ID, "error", err)
	case err != nil:
		return err
	case found:
		in.Mode = domain.UpdateIncremental
		in.PreviousDraft = &prev
	}

	if in.TopicTitle == "" {
		in.TopicTitle = domain.UntitledCurrentTopic
	}

	res, err := s.writer.Run(ctx, in)
	if err != nil {
		return err
	}
	return s.drafts.Save(ctx, sessionID, res.Draft(topic.ID, in.TopicTitle, s.now()))
}

// Wait blocks until every draft run started so far has finished.
func (s *Service) Wait() {
	s.background.Wait()
}
