package drafts

import (
	"context"
	"fmt"

	"github.com/PabloGalante/quester-agent/internal/app/tasks"
	"github.com/PabloGalante/quester-agent/internal/domain"
	"github.com/PabloGalante/quester-agent/internal/draftstore"
	"github.com/PabloGalante/quester-agent/internal/observability"
)

// Service holds the read side of drafts: lookup, listing, deletion and the
// status of the background run that produces them.
type Service struct {
	store   *draftstore.Store
	tracker *tasks.Tracker
}

// NewService creates a drafts service over a draft store and a task tracker.
func NewService(store *draftstore.Store, tracker *tasks.Tracker) *Service {
	return &Service{
		store:   store,
		tracker: tracker,
	}
}

// GetDraftOutput reports whether a draft exists; Draft is nil when it does not.
type GetDraftOutput struct {
	Exists bool          `json:"exists"`
	Draft  *domain.Draft `json:"draft"`
}

func (s *Service) GetDraft(ctx context.Context, sessionID domain.SessionID, topicID domain.TopicID) (*GetDraftOutput, error) {
	if err := checkKey(sessionID, topicID); err != nil {
		return nil, err
	}

	draft, found, err := s.store.Load(ctx, sessionID, topicID)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("failed to load draft",
			"session_id", sessionID, "topic_id", topicID, "error", err)
		return nil, err
	}
	if !found {
		return &GetDraftOutput{Exists: false}, nil
	}
	return &GetDraftOutput{Exists: true, Draft: &draft}, nil
}

// ListDrafts returns draft metadata for a session, newest first.
func (s *Service) ListDrafts(ctx context.Context, sessionID domain.SessionID) ([]domain.DraftMetadata, error) {
	if !domain.IsSafeID(string(sessionID)) {
		return nil, fmt.Errorf("%w: invalid session id %q", domain.ErrInvalidInput, sessionID)
	}
	return s.store.List(ctx, sessionID)
}

// DeleteDraft removes the draft and forgets its task record. Deleting a
// draft that does not exist succeeds.
func (s *Service) DeleteDraft(ctx context.Context, sessionID domain.SessionID, topicID domain.TopicID) error {
	if err := checkKey(sessionID, topicID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionID, topicID); err != nil {
		return err
	}
	s.tracker.Cleanup(sessionID, topicID)

	observability.LoggerFromContext(ctx).Info("draft deleted", "session_id", sessionID, "topic_id", topicID)
	return nil
}

// TaskStatus returns the latest draft run for the key, or domain.ErrNotFound
// when none was started in this process (or it was swept).
func (s *Service) TaskStatus(_ context.Context, sessionID domain.SessionID, topicID domain.TopicID) (domain.BackgroundTask, error) {
	if err := checkKey(sessionID, topicID); err != nil {
		return domain.BackgroundTask{}, err
	}
	task, ok := s.tracker.Get(sessionID, topicID)
	if !ok {
		return domain.BackgroundTask{}, fmt.Errorf("task %s/%s: %w", sessionID, topicID, domain.ErrNotFound)
	}
	return task, nil
}

func checkKey(sessionID domain.SessionID, topicID domain.TopicID) error {
	if !domain.IsSafeID(string(sessionID)) {
		return fmt.Errorf("%w: invalid session id %q", domain.ErrInvalidInput, sessionID)
	}
	if !domain.IsSafeID(string(topicID)) {
		return fmt.Errorf("%w: invalid topic id %q", domain.ErrInvalidInput, topicID)
	}
	return nil
}
