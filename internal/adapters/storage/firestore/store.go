package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

// Store keeps each session as one document holding the whole aggregate, and
// the session's drafts in a "drafts" subcollection.
type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store for projectID.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("sessions")
}

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol().Doc(string(id))
}

func (s *Store) draftsCol(sessionID domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(sessionID).Collection("drafts")
}

func (s *Store) draftDoc(sessionID domain.SessionID, topicID domain.TopicID) *firestore.DocumentRef {
	return s.draftsCol(sessionID).Doc(string(topicID))
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

// SaveSession overwrites the session document with the full snapshot.
func (s *Store) SaveSession(ctx context.Context, session *domain.Session) error {
	if session == nil || !domain.IsSafeID(string(session.ID)) {
		return fmt.Errorf("%w: invalid session", domain.ErrInvalidInput)
	}
	if _, err := s.sessionDoc(session.ID).Set(ctx, toSessionDoc(session)); err != nil {
		return fmt.Errorf("firestore SaveSession: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	if !domain.IsSafeID(string(id)) {
		return nil, fmt.Errorf("%w: invalid session id %q", domain.ErrInvalidInput, id)
	}

	snap, err := s.sessionDoc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}
	return fromSessionDoc(id, doc), nil
}

// ListSessions reads only the summary fields, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	iter := s.sessionsCol().Select("title", "updated_at").Documents(ctx)
	defer iter.Stop()

	out := []domain.SessionSummary{}
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListSessions: %w", err)
		}

		var doc summaryDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode summaryDoc: %w", err)
		}
		out = append(out, domain.SessionSummary{
			ID:        domain.SessionID(snap.Ref.ID),
			Title:     doc.Title,
			UpdatedAt: doc.UpdatedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return domain.NewerSession(out[i], out[j])
	})
	return out, nil
}

func (s *Store) LatestSession(ctx context.Context) (*domain.Session, error) {
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

// ─────────────────────────────────────────
// DraftBlobStore implementation
// ─────────────────────────────────────────

// DraftBlobs exposes the drafts subcollection as a domain.DraftBlobStore.
func (s *Store) DraftBlobs() *DraftBlobs {
	return &DraftBlobs{store: s}
}

type DraftBlobs struct {
	store *Store
}

func (d *DraftBlobs) Put(ctx context.Context, sessionID domain.SessionID, topicID domain.TopicID, data []byte) error {
	doc := draftDoc{Body: data, UpdatedAt: time.Now().UTC()}
	if _, err := d.store.draftDoc(sessionID, topicID).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore PutDraft: %w", err)
	}
	return nil
}

func (d *DraftBlobs) Get(ctx context.Context, sessionID domain.SessionID, topicID domain.TopicID) ([]byte, error) {
	snap, err := d.store.draftDoc(sessionID, topicID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetDraft: %w", err)
	}

	var doc draftDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode draftDoc: %w", err)
	}
	return doc.Body, nil
}

func (d *DraftBlobs) Keys(ctx context.Context, sessionID domain.SessionID) ([]domain.TopicID, error) {
	iter := d.store.draftsCol(sessionID).DocumentRefs(ctx)

	keys := []domain.TopicID{}
	for {
		ref, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListDrafts: %w", err)
		}
		keys = append(keys, domain.TopicID(ref.ID))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

// Delete succeeds when the document does not exist.
func (d *DraftBlobs) Delete(ctx context.Context, sessionID domain.SessionID, topicID domain.TopicID) error {
	if _, err := d.store.draftDoc(sessionID, topicID).Delete(ctx); err != nil && !isNotFound(err) {
		return fmt.Errorf("firestore DeleteDraft: %w", err)
	}
	return nil
}
