package propagator

import (
	"context"
	"time"
)

// Shaper throttles a transfer given a signed rate: positive values are an
// absolute bytes/second cap, values in (-100, 0) are a percentage of
// uncapped throughput, and 0 or <= -100 disable shaping. One Shaper is
// scoped to a single transfer and reset at the start of each attempt.
type Shaper struct {
	rate      int64
	lastTime  time.Time
	lastBytes int64
}

// NewShaper constructs a Shaper for the given signed rate.
func NewShaper(rate int64) *Shaper {
	return &Shaper{rate: rate}
}

// Reset clears the sampling baseline; call it at the start of each transfer
// attempt so a paused-then-resumed upload doesn't see an inflated elapsed
// time on its first sample.
func (s *Shaper) Reset() {
	s.lastTime = time.Now()
	s.lastBytes = 0
}

// Sample records that totalBytes have now moved and returns how long the
// caller should sleep before issuing its next chunk.
func (s *Shaper) Sample(totalBytes int64) time.Duration {
	now := time.Now()
	if s.lastTime.IsZero() {
		s.lastTime = now
		s.lastBytes = totalBytes
		return 0
	}

	delta := totalBytes - s.lastBytes
	elapsed := now.Sub(s.lastTime)

	var sleep time.Duration
	switch {
	case s.rate > 0 && delta > 0:
		target := time.Duration(float64(delta) / float64(s.rate) * float64(time.Second))
		if target > elapsed {
			sleep = target - elapsed
		}
	case s.rate < 0 && s.rate > -100:
		percent := float64(-s.rate)
		sleep = time.Duration(elapsed.Seconds() * (100.0 - percent) / percent * float64(time.Second))
	}

	if sleep < 0 {
		sleep = 0
	}

	// The caller is about to block for `sleep` before transferring more
	// bytes. Fold that into the baseline now so the next call's elapsed
	// time measures only real transfer time, not the enforced pause.
	s.lastTime = now.Add(sleep)
	s.lastBytes = totalBytes

	return sleep
}

// Sleep blocks for the duration unless ctx is already done, in which case
// it returns immediately so a cancelled transfer doesn't stall on shaping.
func (s *Shaper) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
