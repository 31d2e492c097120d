package draftstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/PabloGalante/quester-agent/internal/domain"
	"github.com/PabloGalante/quester-agent/internal/observability"
)

// Store encodes drafts onto a key-value blob backend. Writes overwrite the
// whole draft; concurrent writers for the same key race and the last one wins.
type Store struct {
	blobs domain.DraftBlobStore
}

func New(blobs domain.DraftBlobStore) *Store {
	return &Store{blobs: blobs}
}

// Save overwrites the draft stored for (sessionID, draft.TopicID). The draft
// is normalized before encoding, and anything Load could not read back is
// refused with domain.ErrInvalidInput.
func (s *Store) Save(ctx context.Context, sessionID domain.SessionID, draft domain.Draft) error {
	if draft.TopicID == "" {
		return fmt.Errorf("%w: draft topic id is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(draft.TopicTitle) == "" {
		return fmt.Errorf("%w: draft topic title is required", domain.ErrInvalidInput)
	}
	data, err := Encode(draft)
	if err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, sessionID, draft.TopicID, data); err != nil {
		return fmt.Errorf("save draft %s/%s: %w", sessionID, draft.TopicID, err)
	}
	return nil
}

// Load returns the stored draft. found is false when nothing is stored for
// the key; corrupt content fails with domain.ErrMalformedDraft.
func (s *Store) Load(ctx context.Context, sessionID domain.SessionID, topicID domain.TopicID) (draft domain.Draft, found bool, err error) {
	data, err := s.blobs.Get(ctx, sessionID, topicID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Draft{}, false, nil
	}
	if err != nil {
		return domain.Draft{}, false, fmt.Errorf("load draft %s/%s: %w", sessionID, topicID, err)
	}
	draft, err = Decode(data)
	if err != nil {
		return domain.Draft{}, false, fmt.Errorf("load draft %s/%s: %w", sessionID, topicID, err)
	}
	return draft, true, nil
}

// List returns metadata for every decodable draft in the session, newest
// first. Drafts that fail to decode are skipped and logged.
func (s *Store) List(ctx context.Context, sessionID domain.SessionID) ([]domain.DraftMetadata, error) {
	log := observability.LoggerFromContext(ctx).With("session_id", sessionID)

	keys, err := s.blobs.Keys(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list drafts %s: %w", sessionID, err)
	}

	out := make([]domain.DraftMetadata, 0, len(keys))
	for _, topicID := range keys {
		draft, found, err := s.Load(ctx, sessionID, topicID)
		if err != nil {
			log.Warn("skipping unreadable draft", "topic_id", topicID, "error", err)
			continue
		}
		if !found {
			continue
		}
		out = append(out, draft.Metadata())
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Delete removes the draft; deleting an absent draft is not an error.
func (s *Store) Delete(ctx context.Context, sessionID domain.SessionID, topicID domain.TopicID) error {
	if err := s.blobs.Delete(ctx, sessionID, topicID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete draft %s/%s: %w", sessionID, topicID, err)
	}
	return nil
}
