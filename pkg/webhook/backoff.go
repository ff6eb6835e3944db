package webhook

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff is exponential backoff with jitter. Each retry doubles the delay,
// starting at Initial and capped at Max. Jitter spreads the delay by up to
// that fraction in either direction.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Jitter  float64
}

// Interval returns the delay before retry n, counting from 1.
func (b Backoff) Interval(n int) time.Duration {
	if n <= 0 || b.Initial <= 0 {
		return 0
	}
	d := float64(b.Initial) * math.Pow(2, float64(n-1))
	if b.Jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*b.Jitter
	}
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	return time.Duration(d)
}
