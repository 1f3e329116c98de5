package scheduler

import (
	"math/rand"
	"time"
)

// JitterMin and JitterMax bound the uniform random multiplier applied to
// every computed interval so that jobs with identical parameters don't
// lock-step onto the same tick forever.
const (
	JitterMin = 0.85
	JitterMax = 1.15
)

// moodClamp bounds a multiplicative mood factor so a single extreme
// reading can speed up a job by at most 4x or slow it down by at most 2x.
func moodClamp(f float64) float64 {
	if f < 0.25 {
		return 0.25
	}
	if f > 2.0 {
		return 2.0
	}
	return f
}

// moodFactor is f_mood: a small closed-form function of the whole mood
// vector, applied uniformly to every job regardless of type. High calm
// lengthens every job's interval a little; high tension shortens every
// job's interval a little. A neutral mood (both at 0.5) leaves the base
// interval untouched.
func moodFactor(mood Mood) float64 {
	calm := mood.get("calm")
	tension := mood.get("tension")
	return moodClamp(1.0 + (calm - tension))
}

// jobMoodCoupling is the mood-reactive half of f_type: a job registered
// with a MoodDimension additionally reacts to that one dimension,
// stacking on top of the generic moodFactor every job already gets. A
// job with no MoodDimension is unaffected (returns 1.0).
func jobMoodCoupling(j *Job, mood Mood) float64 {
	if j.MoodDimension == "" {
		return 1.0
	}
	return moodClamp(1.0 + j.MoodSensitivity*(mood.get(j.MoodDimension)-0.5))
}

// typeFactor is f_type: this job's flat baseline multiplier combined
// with its specific mood-dimension coupling, if it has one.
func typeFactor(j *Job, mood Mood) float64 {
	base := j.TypeFactor
	if base <= 0 {
		base = 1.0
	}
	return base * jobMoodCoupling(j, mood)
}

// recencyFactor is f_recency: it reacts to how the job's last run
// actually went rather than to wall-clock staleness. A low-feedback run
// lengthens the next interval; a high-feedback run shortens it. A job
// that hasn't completed a run yet is neutral.
func recencyFactor(j *Job) float64 {
	if j.LastRun.IsZero() {
		return 1.0
	}
	return moodClamp(1.5 - j.LastFeedback)
}

// interval computes the adaptive tick interval for j under mood, using
// rng for the jitter term.
func interval(j *Job, mood Mood, rng *rand.Rand) time.Duration {
	jitter := JitterMin + rng.Float64()*(JitterMax-JitterMin)
	f := float64(j.BaseInterval) * typeFactor(j, mood) * moodFactor(mood) * recencyFactor(j) * jitter
	return time.Duration(f)
}
