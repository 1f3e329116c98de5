// Package scheduler drives named recurring jobs at intervals that adapt
// to a job's type, a shared mood vector, and how well its last run went.
package scheduler

import "time"

// RunFunc is the work a job performs when triggered. The returned
// feedback (expected in [0,1]) describes how the run actually went —
// the same signal a caller would fold into a prompt pattern's score —
// and drives this job's own recency factor on its next tick. It is
// only consulted when err is nil.
type RunFunc func() (feedback float64, err error)

// Status is a job's terminal outcome from its most recent run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// NeutralFeedback is the feedback value assumed for a job that hasn't
// completed a run yet, so its first interval computation is unbiased.
const NeutralFeedback = 0.5

// RecentSuccessThreshold is the feedback value at or above which a
// job's most recent run counts as a success for RecentSuccess.
const RecentSuccessThreshold = 0.5

// Job is one registered unit of recurring work.
type Job struct {
	Name         string        `json:"name"`
	BaseInterval time.Duration `json:"base_interval"`

	// TypeFactor is this job's flat baseline cadence multiplier,
	// independent of mood — part of f_type.
	TypeFactor float64 `json:"type_factor"`

	// MoodDimension and MoodSensitivity are the other half of f_type:
	// the one mood dimension (if any) this job's cadence specifically
	// reacts to, on top of the generic mood factor every job gets.
	// Sensitivity > 0 stretches the interval as the dimension rises
	// (e.g. dreams stretch under high calm); < 0 shortens it (e.g.
	// existential questions shorten under high tension). A job with no
	// MoodDimension only feels the generic mood factor.
	MoodDimension   string  `json:"mood_dimension,omitempty"`
	MoodSensitivity float64 `json:"mood_sensitivity,omitempty"`

	LastRun time.Time `json:"last_run"`

	// LastFeedback and RecentSuccess summarize how the last run went,
	// and feed f_recency on the next tick.
	LastFeedback  float64 `json:"last_feedback"`
	RecentSuccess bool    `json:"recent_success"`

	// AdaptedInterval caches the most recently computed wait so an
	// observer (e.g. the heartbeat endpoint) can see a job's current
	// effective cadence without recomputing it.
	AdaptedInterval time.Duration `json:"adapted_interval"`

	Status    Status `json:"status"`
	RunCount  int    `json:"run_count"`
	FailCount int    `json:"fail_count"`
}

// Mood is a named set of dimensions in [0,1] that scale job cadence:
// curiosity, calm, and tension. Unrecognized or absent dimensions
// default to a neutral 0.5.
type Mood map[string]float64

func (m Mood) get(dim string) float64 {
	if v, ok := m[dim]; ok {
		return v
	}
	return 0.5
}
