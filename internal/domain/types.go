package domain

import "time"

type SessionID string
type TopicID string
type MessageID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

type TopicStatus string

const (
	TopicActive    TopicStatus = "active"
	TopicBacklog   TopicStatus = "backlog"
	TopicCompleted TopicStatus = "completed"
)

// UpdateMode tells the Writer whether to extend a previous draft or start over.
type UpdateMode string

const (
	UpdateIncremental  UpdateMode = "incremental"
	UpdateFullRevision UpdateMode = "full_revision"
)

// Fallback labels used when agent output or user input carries no title.
const (
	DefaultTopicLabel    = "General Discussion"
	UntitledCurrentTopic = "Current Discussion"
	UntitledNewTopic     = "Unnamed Topic"
)

type Timestamp = time.Time
