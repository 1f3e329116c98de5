package scheduler

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"
)

func TestMoodFactorNeutralIsUnity(t *testing.T) {
	f := moodFactor(Mood{"calm": 0.5, "tension": 0.5})
	if f != 1.0 {
		t.Errorf("moodFactor(neutral) = %v, want 1.0", f)
	}
}

func TestMoodFactorTensionShortensInterval(t *testing.T) {
	calm := moodFactor(Mood{"tension": 0.1, "calm": 0.9})
	tense := moodFactor(Mood{"tension": 0.9, "calm": 0.1})
	if tense >= calm {
		t.Errorf("tense factor %v should be less than calm factor %v", tense, calm)
	}
}

func TestJobMoodCouplingNoDimensionIsUnity(t *testing.T) {
	j := &Job{TypeFactor: 1.0}
	if f := jobMoodCoupling(j, Mood{"calm": 0.9, "tension": 0.9}); f != 1.0 {
		t.Errorf("jobMoodCoupling with no MoodDimension = %v, want 1.0", f)
	}
}

func TestJobMoodCouplingPositiveSensitivityStretchesWithDimension(t *testing.T) {
	j := &Job{TypeFactor: 1.0, MoodDimension: "calm", MoodSensitivity: 1.0}
	low := jobMoodCoupling(j, Mood{"calm": 0.1})
	high := jobMoodCoupling(j, Mood{"calm": 0.9})
	if high <= low {
		t.Errorf("positive sensitivity: coupling at high calm %v should exceed low calm %v", high, low)
	}
}

func TestJobMoodCouplingNegativeSensitivityShortensWithDimension(t *testing.T) {
	j := &Job{TypeFactor: 1.0, MoodDimension: "tension", MoodSensitivity: -1.0}
	low := jobMoodCoupling(j, Mood{"tension": 0.1})
	high := jobMoodCoupling(j, Mood{"tension": 0.9})
	if high >= low {
		t.Errorf("negative sensitivity: coupling at high tension %v should be less than low tension %v", high, low)
	}
}

func TestRecencyFactorNoRunYetIsNeutral(t *testing.T) {
	j := &Job{BaseInterval: time.Minute}
	if f := recencyFactor(j); f != 1.0 {
		t.Errorf("recencyFactor for a never-run job = %v, want 1.0", f)
	}
}

func TestRecencyFactorLowFeedbackLengthensInterval(t *testing.T) {
	j := &Job{BaseInterval: time.Minute, LastRun: time.Now(), LastFeedback: 0.1}
	if f := recencyFactor(j); f <= 1.0 {
		t.Errorf("recencyFactor for low feedback = %v, want > 1.0", f)
	}
}

func TestRecencyFactorHighFeedbackShortensInterval(t *testing.T) {
	j := &Job{BaseInterval: time.Minute, LastRun: time.Now(), LastFeedback: 0.9}
	if f := recencyFactor(j); f >= 1.0 {
		t.Errorf("recencyFactor for high feedback = %v, want < 1.0", f)
	}
}

func TestIntervalJitterStaysInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	j := &Job{BaseInterval: 10 * time.Second, TypeFactor: 1.0, LastFeedback: NeutralFeedback}
	for i := 0; i < 50; i++ {
		got := interval(j, Mood{}, rng)
		min := time.Duration(float64(j.BaseInterval) * JitterMin * 0.25)
		max := time.Duration(float64(j.BaseInterval) * JitterMax * 2.0 * 1.5)
		if got < min || got > max {
			t.Fatalf("interval out of plausible bounds: got %v, want [%v,%v]", got, min, max)
		}
	}
}

// TestExistentialShortensMoreThanNeutralUnderHighTension exercises the
// S5 scenario: under high tension, a job coupled to tension at negative
// sensitivity should see its effective interval shrink substantially
// more than a mood-neutral job with the same base interval.
func TestExistentialShortensMoreThanNeutralUnderHighTension(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	mood := Mood{"tension": 0.9, "calm": 0.1, "curiosity": 0.5}

	neutral := &Job{BaseInterval: 60 * time.Second, TypeFactor: 1.0, LastFeedback: NeutralFeedback}
	existential := &Job{BaseInterval: 60 * time.Second, TypeFactor: 1.0, MoodDimension: "tension", MoodSensitivity: -1.0, LastFeedback: NeutralFeedback}

	const rounds = 200
	var neutralTotal, existentialTotal time.Duration
	for i := 0; i < rounds; i++ {
		neutralTotal += interval(neutral, mood, rng)
		existentialTotal += interval(existential, mood, rng)
	}
	neutralMean := float64(neutralTotal) / rounds
	existentialMean := float64(existentialTotal) / rounds

	if ratio := existentialMean / neutralMean; ratio > 0.8 {
		t.Errorf("existential/neutral mean interval ratio = %v, want <= 0.8 under high tension", ratio)
	}
}

func TestTriggerBypassesWaitAndRunsJob(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	var ran int32
	s.Register("test-job", time.Hour, 1.0, "", 0, func() (float64, error) {
		atomic.AddInt32(&ran, 1)
		return NeutralFeedback, nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	if err := s.Trigger("test-job"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&ran) == 0 {
		select {
		case <-deadline:
			t.Fatal("triggered job did not run within the deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}
	s.Stop()
}

func TestTriggerUnknownJobIsNotFound(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Trigger("nope"); err == nil {
		t.Fatal("Trigger: want error for unregistered job")
	}
}

func TestStopReturnsAfterInFlightRunCompletes(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	started := make(chan struct{})
	release := make(chan struct{})
	s.Register("slow-job", time.Hour, 1.0, "", 0, func() (float64, error) {
		close(started)
		<-release
		return NeutralFeedback, nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	if err := s.Trigger("slow-job"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	<-started
	close(release)
	s.Stop()
}

func TestExecuteRecordsFeedbackAndRecentSuccess(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	s.Register("feedback-job", time.Hour, 1.0, "", 0, func() (float64, error) {
		return 0.9, nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	if err := s.Trigger("feedback-job"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		jobs := s.Jobs()
		if len(jobs) == 1 && jobs[0].RunCount > 0 {
			if jobs[0].LastFeedback != 0.9 {
				t.Errorf("LastFeedback = %v, want 0.9", jobs[0].LastFeedback)
			}
			if !jobs[0].RecentSuccess {
				t.Error("RecentSuccess = false, want true for feedback 0.9")
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("job did not complete within the deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}
	s.Stop()
}

func TestPersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s1 := New(dir)
	s1.Register("job-a", time.Minute, 1.0, "", 0, func() (float64, error) { return NeutralFeedback, nil }, nil)
	ctx, cancel := context.WithCancel(context.Background())
	s1.Start(ctx)
	if err := s1.Trigger("job-a"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()
	s1.Stop()

	restored, err := New(dir).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := restored["job-a"]; !ok {
		t.Fatal("Load: expected job-a to be present after restart")
	}
}
