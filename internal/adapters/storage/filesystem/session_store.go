package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/PabloGalante/quester-agent/internal/domain"
	"github.com/PabloGalante/quester-agent/internal/observability"
)

const (
	sessionFile      = "session.json"
	conversationFile = "conversation.md"
	topicsFile       = "topics.md"
)

type SessionStore struct {
	dir string
}

func NewSessionStore(dir string) *SessionStore {
	return &SessionStore{dir: dir}
}

// SaveSession writes the snapshot and its two Markdown renderings.
func (s *SessionStore) SaveSession(_ context.Context, session *domain.Session) error {
	if session == nil {
		return fmt.Errorf("%w: session is required", domain.ErrInvalidInput)
	}
	if err := checkID("session", string(session.ID)); err != nil {
		return err
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}

	dir := filepath.Join(s.dir, string(session.ID))
	if err := writeFileAtomic(filepath.Join(dir, sessionFile), data); err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(dir, conversationFile), []byte(RenderTranscript(session.Messages))); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dir, topicsFile), []byte(RenderTopics(session.Topics)))
}

func (s *SessionStore) GetSession(_ context.Context, id domain.SessionID) (*domain.Session, error) {
	if err := checkID("session", string(id)); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, string(id), sessionFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	normalize(&session)
	return &session, nil
}

// ListSessions returns summaries newest first. Directories without a
// readable snapshot are skipped.
func (s *SessionStore) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.SessionSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	log := observability.LoggerFromContext(ctx)
	out := make([]domain.SessionSummary, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || !domain.IsSafeID(e.Name()) {
			continue
		}
		sess, err := s.GetSession(ctx, domain.SessionID(e.Name()))
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				log.Warn("skipping unreadable session", "dir", e.Name(), "error", err)
			}
			continue
		}
		out = append(out, sess.Summary())
	}

	sort.Slice(out, func(i, j int) bool {
		return domain.NewerSession(out[i], out[j])
	})
	return out, nil
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

// normalize replaces nil collections left by hand-edited snapshots.
func normalize(s *domain.Session) {
	if s.Messages == nil {
		s.Messages = []domain.Message{}
	}
	if s.Topics == nil {
		s.Topics = []domain.Topic{}
	}
	for i := range s.Topics {
		if s.Topics[i].Questions == nil {
			s.Topics[i].Questions = []string{}
		}
		if s.Topics[i].Notes == nil {
			s.Topics[i].Notes = []string{}
		}
	}
	s.UpdatePreferences(s.UserPreferences)
}
