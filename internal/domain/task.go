package domain

type TaskType string

const TaskDraftGeneration TaskType = "draft_generation"

type TaskStatus string

const (
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// BackgroundTask is the process-lifetime record of one detached draft run.
type BackgroundTask struct {
	SessionID   SessionID  `json:"sessionId"`
	TopicID     TopicID    `json:"topicId"`
	TaskType    TaskType   `json:"taskType"`
	Status      TaskStatus `json:"status"`
	StartedAt   Timestamp  `json:"startedAt"`
	CompletedAt *Timestamp `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func (t BackgroundTask) Finished() bool {
	return t.Status == TaskCompleted || t.Status == TaskFailed
}
