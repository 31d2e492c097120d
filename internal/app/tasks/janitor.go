package tasks

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/PabloGalante/quester-agent/internal/observability"
)

// Janitor periodically sweeps finished task records from a Tracker.
type Janitor struct {
	tracker   *Tracker
	retention time.Duration
	cron      *cron.Cron
}

// NewJanitor schedules sweeps with a standard cron spec; descriptors such as
// "@every 5m" are accepted.
func NewJanitor(tracker *Tracker, schedule string, retention time.Duration) (*Janitor, error) {
	j := &Janitor{
		tracker:   tracker,
		retention: retention,
		cron:      cron.New(),
	}
	if _, err := j.cron.AddFunc(schedule, j.sweep); err != nil {
		return nil, fmt.Errorf("task sweep schedule %q: %w", schedule, err)
	}
	return j, nil
}

func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Janitor) sweep() {
	if n := j.tracker.Sweep(j.retention); n > 0 {
		observability.Logger().Info("swept finished tasks", "removed", n, "retention", j.retention.String())
	}
}

// ValidateSchedule reports whether spec is a schedule the janitor accepts.
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}
