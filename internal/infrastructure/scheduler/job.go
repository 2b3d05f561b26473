package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler is the work a job performs on each run
type Handler func(ctx context.Context) error

// Kind distinguishes fixed-interval jobs from wall-clock anchored jobs
type Kind string

const (
	KindInterval Kind = "interval"
	KindAnchored Kind = "anchored"
)

// JobStatus represents the state of a registered job. There is no failed
// state: a failed run is logged and the job is scheduled again.
type JobStatus string

const (
	JobStatusScheduled JobStatus = "scheduled"
	JobStatusRunning   JobStatus = "running"
)

// JobInfo is a point-in-time view of a registered job
type JobInfo struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Kind      Kind          `json:"kind"`
	Interval  time.Duration `json:"interval,omitempty"`
	Hour      int           `json:"hour,omitempty"`
	Weekday   *time.Weekday `json:"weekday,omitempty"`
	Status    JobStatus     `json:"status"`
	LastRun   *time.Time    `json:"last_run,omitempty"`
	NextRun   time.Time     `json:"next_run"`
	LastError string        `json:"last_error,omitempty"`
	Runs      int           `json:"runs"`
}

type job struct {
	id       uuid.UUID
	name     string
	kind     Kind
	interval time.Duration
	hour     int
	weekday  *time.Weekday
	handler  Handler

	// runMu serializes runs so a job never overlaps itself
	runMu sync.Mutex

	mu        sync.Mutex
	status    JobStatus
	lastRun   *time.Time
	nextRun   time.Time
	lastError string
	runs      int

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func (j *job) info() JobInfo {
	j.mu.Lock()
	defer j.mu.Unlock()
	info := JobInfo{
		ID:        j.id,
		Name:      j.name,
		Kind:      j.kind,
		Interval:  j.interval,
		Hour:      j.hour,
		Status:    j.status,
		NextRun:   j.nextRun,
		LastError: j.lastError,
		Runs:      j.runs,
	}
	if j.weekday != nil {
		wd := *j.weekday
		info.Weekday = &wd
	}
	if j.lastRun != nil {
		t := *j.lastRun
		info.LastRun = &t
	}
	return info
}

func (j *job) cancel() {
	j.stopOnce.Do(func() { close(j.stop) })
}

func (j *job) stopped() bool {
	select {
	case <-j.stop:
		return true
	default:
		return false
	}
}

// NextAnchoredRun returns the first time strictly after now at hour:00 in
// now's location. With a weekday the result falls on that weekday; without
// one it is today if still ahead, otherwise tomorrow.
func NextAnchoredRun(now time.Time, hour int, weekday *time.Weekday) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if weekday == nil {
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}

	days := (int(*weekday) - int(now.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, days)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}
