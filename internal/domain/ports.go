package domain

import "context"

// Output contract names used by the agents.
const (
	OrchestratorOutput = "orchestrator_output"
	InterviewerOutput  = "interviewer_output"
	WriterOutput       = "writer_output"
)

// GenerationRequest is one call to the opaque text-generation capability.
// Name identifies the output contract (e.g. "orchestrator_output").
type GenerationRequest struct {
	Name            string
	Instructions    string
	Conversation    string
	Schema          *Schema
	MaxOutputTokens int
}

// Generator returns text that matches req.Schema, or fails with ErrGenerationFailure.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// SessionStore persists whole-session snapshots.
type SessionStore interface {
	SaveSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id SessionID) (*Session, error)
	ListSessions(ctx context.Context) ([]SessionSummary, error)
	LatestSession(ctx context.Context) (*Session, error)
}

// DraftBlobStore is the durable key-value store behind the draft store,
// keyed by (session, topic). Get returns ErrNotFound for absent keys and
// Delete is idempotent.
type DraftBlobStore interface {
	Put(ctx context.Context, sessionID SessionID, topicID TopicID, data []byte) error
	Get(ctx context.Context, sessionID SessionID, topicID TopicID) ([]byte, error)
	Keys(ctx context.Context, sessionID SessionID) ([]TopicID, error)
	Delete(ctx context.Context, sessionID SessionID, topicID TopicID) error
}
