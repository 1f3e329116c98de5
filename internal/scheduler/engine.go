package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ehrlich-b/noetic/internal/config"
	"github.com/ehrlich-b/noetic/internal/logger"
	"github.com/ehrlich-b/noetic/internal/store"
)

// runnerState is the live, non-persisted half of a registered job: the
// work function and its trigger channel.
type runnerState struct {
	job     *Job
	run     RunFunc
	trigger chan struct{}
	cancel  context.CancelFunc
}

// Scheduler owns every registered job and the shared mood vector that
// scales their cadence. Job bodies are serialized globally: only one
// runs at a time, so a slow job naturally throttles the rest rather than
// racing them over shared state.
type Scheduler struct {
	mu      sync.Mutex
	runMu   sync.Mutex
	dataDir string
	rng     *rand.Rand
	mood    Mood
	jobs    map[string]*runnerState
	wg      sync.WaitGroup
	stopped chan struct{}
}

// New constructs a Scheduler backed by dataDir for state persistence.
func New(dataDir string) *Scheduler {
	return &Scheduler{
		dataDir: dataDir,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		mood:    Mood{},
		jobs:    make(map[string]*runnerState),
		stopped: make(chan struct{}),
	}
}

// Load restores persisted job bookkeeping (last run, counts, status) so
// a restart resumes cadence rather than resetting every job's clock.
// Jobs must still be Register'd after Load; Load only seeds state for
// names that get registered.
func (s *Scheduler) Load() (map[string]*Job, error) {
	var saved []*Job
	ok, err := store.LoadJSON(config.SchedulerStatePath(s.dataDir), &saved)
	if err != nil {
		return nil, fmt.Errorf("load scheduler state: %w", err)
	}
	out := make(map[string]*Job)
	if ok {
		for _, j := range saved {
			out[j.Name] = j
		}
	}
	return out, nil
}

func (s *Scheduler) persistLocked() error {
	out := make([]*Job, 0, len(s.jobs))
	for _, r := range s.jobs {
		out = append(out, r.job)
	}
	if err := store.SaveJSON(config.SchedulerStatePath(s.dataDir), out); err != nil {
		return fmt.Errorf("persist scheduler state: %w", err)
	}
	return nil
}

// Register adds a job. moodDimension names the one mood dimension (if
// any) this job type reacts to beyond the generic mood factor;
// moodSensitivity is ignored when moodDimension is "". If restored is
// non-nil (from Load), its counters, last-run time, and last feedback
// seed the new job instead of starting fresh.
func (s *Scheduler) Register(name string, baseInterval time.Duration, typeFactor float64, moodDimension string, moodSensitivity float64, run RunFunc, restored *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := &Job{
		Name:            name,
		BaseInterval:    baseInterval,
		TypeFactor:      typeFactor,
		MoodDimension:   moodDimension,
		MoodSensitivity: moodSensitivity,
		LastFeedback:    NeutralFeedback,
		Status:          StatusIdle,
	}
	if restored != nil {
		j.LastRun = restored.LastRun
		j.RunCount = restored.RunCount
		j.FailCount = restored.FailCount
		j.LastFeedback = restored.LastFeedback
		j.RecentSuccess = restored.RecentSuccess
	}
	s.jobs[name] = &runnerState{job: j, run: run, trigger: make(chan struct{}, 1)}
}

// SetMood replaces the shared mood vector used by every job's interval
// computation from this point forward.
func (s *Scheduler) SetMood(mood Mood) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mood = mood
}

// Start launches one cooperative tick loop per registered job.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.jobs {
		runCtx, cancel := context.WithCancel(ctx)
		r.cancel = cancel
		s.wg.Add(1)
		go s.loop(runCtx, r)
	}
}

// Stop cancels every job's tick loop and waits for in-flight runs to
// return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for _, r := range s.jobs {
		if r.cancel != nil {
			r.cancel()
		}
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Trigger runs name immediately, bypassing its interval check exactly
// once. Each job holds at most one pending trigger: a trigger sent while
// the job is running waits and runs it again afterwards, and any further
// trigger sent while one is already pending is dropped.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	r, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: job %s", store.ErrNotFound, name)
	}
	select {
	case r.trigger <- struct{}{}:
	default:
	}
	return nil
}

func (s *Scheduler) loop(ctx context.Context, r *runnerState) {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		wait := interval(r.job, s.mood, s.rng)
		r.job.AdaptedInterval = wait
		s.mu.Unlock()

		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-r.trigger:
			timer.Stop()
			s.execute(ctx, r)
		case <-timer.C:
			s.execute(ctx, r)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, r *runnerState) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if ctx.Err() != nil {
		s.mu.Lock()
		r.job.Status = StatusCancelled
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	r.job.Status = StatusRunning
	s.mu.Unlock()

	feedback, err := r.run()

	s.mu.Lock()
	if ctx.Err() != nil {
		r.job.Status = StatusCancelled
	} else if err != nil {
		r.job.Status = StatusFailed
		r.job.FailCount++
		logger.Component("scheduler").Warn("scheduled job failed", "job", r.job.Name, "error", err)
	} else {
		r.job.Status = StatusCompleted
		r.job.RunCount++
		r.job.LastRun = time.Now()
		r.job.LastFeedback = feedback
		r.job.RecentSuccess = feedback >= RecentSuccessThreshold
	}
	persistErr := s.persistLocked()
	s.mu.Unlock()
	if persistErr != nil {
		logger.Component("scheduler").Warn("failed to persist state", "error", persistErr)
	}
}

// Jobs returns a snapshot of every registered job's current state.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, r := range s.jobs {
		out = append(out, *r.job)
	}
	return out
}
