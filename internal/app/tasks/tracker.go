// Package tasks tracks detached background work for the lifetime of the
// process. Nothing here is persisted.
package tasks

import (
	"sort"
	"sync"
	"time"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

// Tracker keeps at most one record per (session, topic). Starting a task for
// a key that already has one replaces it; there is no queue.
//
// Complete and Fail address the key, not a particular run: when a superseded
// run finishes after a newer one started, it updates the newer record.
type Tracker struct {
	mu    sync.Mutex
	tasks map[string]*domain.BackgroundTask
	now   func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		tasks: make(map[string]*domain.BackgroundTask),
		now:   time.Now,
	}
}

func key(sessionID domain.SessionID, topicID domain.TopicID) string {
	return string(sessionID) + ":" + string(topicID)
}

// Start records a running task, discarding any previous record for the key.
func (t *Tracker) Start(sessionID domain.SessionID, topicID domain.TopicID, taskType domain.TaskType) domain.BackgroundTask {
	t.mu.Lock()
	defer t.mu.Unlock()

	task := &domain.BackgroundTask{
		SessionID: sessionID,
		TopicID:   topicID,
		TaskType:  taskType,
		Status:    domain.TaskRunning,
		StartedAt: t.now(),
	}
	t.tasks[key(sessionID, topicID)] = task
	return *task
}

// Complete marks the task completed. Unknown keys are ignored.
func (t *Tracker) Complete(sessionID domain.SessionID, topicID domain.TopicID) {
	t.finish(sessionID, topicID, domain.TaskCompleted, "")
}

// Fail marks the task failed with msg. Unknown keys are ignored.
func (t *Tracker) Fail(sessionID domain.SessionID, topicID domain.TopicID, msg string) {
	t.finish(sessionID, topicID, domain.TaskFailed, msg)
}

func (t *Tracker) finish(sessionID domain.SessionID, topicID domain.TopicID, status domain.TaskStatus, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[key(sessionID, topicID)]
	if !ok {
		return
	}
	now := t.now()
	task.Status = status
	task.CompletedAt = &now
	task.Error = msg
}

// Get returns a copy of the record for the key.
func (t *Tracker) Get(sessionID domain.SessionID, topicID domain.TopicID) (domain.BackgroundTask, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[key(sessionID, topicID)]
	if !ok {
		return domain.BackgroundTask{}, false
	}
	return copyTask(task), true
}

// Cleanup removes the record for the key.
func (t *Tracker) Cleanup(sessionID domain.SessionID, topicID domain.TopicID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.tasks, key(sessionID, topicID))
}

// List returns every record, oldest first.
func (t *Tracker) List() []domain.BackgroundTask {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.BackgroundTask, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, copyTask(task))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Sweep drops finished records that completed more than retention ago and
// returns how many were removed. Running records are kept.
func (t *Tracker) Sweep(retention time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-retention)
	removed := 0
	for k, task := range t.tasks {
		if task.Finished() && task.CompletedAt != nil && task.CompletedAt.Before(cutoff) {
			delete(t.tasks, k)
			removed++
		}
	}
	return removed
}

func copyTask(task *domain.BackgroundTask) domain.BackgroundTask {
	c := *task
	if task.CompletedAt != nil {
		at := *task.CompletedAt
		c.CompletedAt = &at
	}
	return c
}
