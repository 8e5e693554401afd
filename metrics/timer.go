package metrics

import "time"

// TimerBuckets defines histogram bucket upper bounds as durations,
// converted to seconds for the exposition format.
type TimerBuckets []time.Duration

// Seconds converts the bounds to float seconds.
func (b TimerBuckets) Seconds() []float64 {
	secs := make([]float64, len(b))
	for i, d := range b {
		secs[i] = d.Seconds()
	}
	return secs
}

// DefaultTimerBuckets covers the common request-latency range.
var DefaultTimerBuckets = TimerBuckets{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2500 * time.Millisecond,
	5 * time.Second,
	10 * time.Second,
}

// Time runs f and returns how long it took. The stdlib clock is
// monotonic, so the result is safe against wall-clock adjustments.
func Time(f func()) time.Duration {
	start := time.Now()
	f()
	return time.Since(start)
}

// Secs converts a duration to the float seconds expected by timer
// histograms.
func Secs(d time.Duration) float64 {
	return d.Seconds()
}
