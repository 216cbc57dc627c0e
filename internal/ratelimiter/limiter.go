package ratelimiter

import (
	"sync"

	"golang.org/x/time/rate"
)

// SubjectLimiters holds one token bucket per polling subject, created
// lazily on first sight. Each limiter enforces a steady-state rate;
// burst equals the rate so no extra capacity is saved up beyond the
// configured per-second maximum.
//
// Polls are cheap but destructive, so the limiter throttles abusive
// pollers per subject instead of globally: one noisy service provider
// cannot starve the rest.
type SubjectLimiters struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// New creates SubjectLimiters granting ratePerSec polls per second per subject.
func New(ratePerSec int) *SubjectLimiters {
	return &SubjectLimiters{
		limiters: make(map[int64]*rate.Limiter),
		rate:     rate.Limit(ratePerSec),
		burst:    ratePerSec,
	}
}

// Allow reports whether the subject may poll now. Non-blocking: the HTTP
// layer answers 429 instead of queueing the request.
func (sl *SubjectLimiters) Allow(subjectID int64) bool {
	sl.mu.Lock()
	l, ok := sl.limiters[subjectID]
	if !ok {
		l = rate.NewLimiter(sl.rate, sl.burst)
		sl.limiters[subjectID] = l
	}
	sl.mu.Unlock()

	return l.Allow()
}
