package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

// SessionStore keeps whole-session snapshots in a map. Callers get copies.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[domain.SessionID]*domain.Session),
	}
}

func (s *SessionStore) SaveSession(_ context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *SessionStore) GetSession(_ context.Context, id domain.SessionID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}

	return sess.Clone(), nil
}

// ListSessions returns summaries, newest first.
func (s *SessionStore) ListSessions(_ context.Context) ([]domain.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SessionSummary, 0, len(s.sessions))
	for _, sess := range s.sessions {
		result = append(result, sess.Summary())
	}
	sort.Slice(result, func(i, j int) bool {
		return domain.NewerSession(result[i], result[j])
	})

	return result, nil
}

func (s *SessionStore) LatestSession(ctx context.Context) (*domain.Session, error) {
	all, err := s.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	latest, ok := domain.LatestSummary(all)
	if !ok {
		return nil, fmt.Errorf("latest session: %w", domain.ErrNotFound)
	}
	return s.GetSession(ctx, latest.ID)
}
