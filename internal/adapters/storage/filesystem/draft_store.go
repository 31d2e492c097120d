package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

const (
	draftsDir = "drafts"
	draftExt  = ".md"
)

// DraftBlobs keeps one Markdown file per draft under the session directory.
type DraftBlobs struct {
	dir string
}

func NewDraftBlobs(dir string) *DraftBlobs {
	return &DraftBlobs{dir: dir}
}

func (s *DraftBlobs) path(sessionID domain.SessionID, topicID domain.TopicID) (string, error) {
	if err := checkID("session", string(sessionID)); err != nil {
		return "", err
	}
	if err := checkID("topic", string(topicID)); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, string(sessionID), draftsDir, string(topicID)+draftExt), nil
}

func (s *DraftBlobs) Put(_ context.Context, sessionID domain.SessionID, topicID domain.TopicID, data []byte) error {
	path, err := s.path(sessionID, topicID)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

func (s *DraftBlobs) Get(_ context.Context, sessionID domain.SessionID, topicID domain.TopicID) ([]byte, error) {
	path, err := s.path(sessionID, topicID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read draft %s: %w", path, err)
	}
	return data, nil
}

// Keys lists topic ids with a draft file, sorted.
func (s *DraftBlobs) Keys(_ context.Context, sessionID domain.SessionID) ([]domain.TopicID, error) {
	if err := checkID("session", string(sessionID)); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.dir, string(sessionID), draftsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.TopicID{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list drafts %s: %w", sessionID, err)
	}

	keys := make([]domain.TopicID, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, draftExt) {
			continue
		}
		keys = append(keys, domain.TopicID(strings.TrimSuffix(name, draftExt)))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

func (s *DraftBlobs) Delete(_ context.Context, sessionID domain.SessionID, topicID domain.TopicID) error {
	path, err := s.path(sessionID, topicID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete draft %s: %w", path, err)
	}
	return nil
}
