package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

// DraftBlobs is a simple in-memory implementation of domain.DraftBlobStore.
// It is NOT persistent and is only suitable for development / local mode.
type DraftBlobs struct {
	mu        sync.RWMutex
	bySession map[domain.SessionID]map[domain.TopicID][]byte
}

// NewDraftBlobs creates a new in-memory DraftBlobStore.
func NewDraftBlobs() *DraftBlobs {
	return &DraftBlobs{
		bySession: make(map[domain.SessionID]map[domain.TopicID][]byte),
	}
}

// Put stores a copy of data, replacing any previous value.
func (s *DraftBlobs) Put(_ context.Context, sessionID domain.SessionID, topicID domain.TopicID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, ok := s.bySession[sessionID]
	if !ok {
		drafts = make(map[domain.TopicID][]byte)
		s.bySession[sessionID] = drafts
	}
	drafts[topicID] = append([]byte(nil), data...)
	return nil
}

func (s *DraftBlobs) Get(_ context.Context, sessionID domain.SessionID, topicID domain.TopicID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.bySession[sessionID][topicID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Keys returns the topic ids stored for the session, sorted.
func (s *DraftBlobs) Keys(_ context.Context, sessionID domain.SessionID) ([]domain.TopicID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]domain.TopicID, 0, len(s.bySession[sessionID]))
	for id := range s.bySession[sessionID] {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

func (s *DraftBlobs) Delete(_ context.Context, sessionID domain.SessionID, topicID domain.TopicID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.bySession[sessionID], topicID)
	return nil
}
