package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// RobotsLoader fetches and parses robots.txt for a site root such as "https://example.com".
type RobotsLoader func(ctx context.Context, siteRoot string) (*Rules, error)

// Session owns the per-domain state of one fetch batch: request gaps, robots rules and
// failure counters. It is safe for concurrent use and is discarded after the batch.
type Session struct {
	now          func() time.Time
	defaultGap   time.Duration
	maxFailures  int
	resetEvery   time.Duration
	robotsFlight singleflight.Group

	mu        sync.Mutex
	domains   map[string]*domainState
	lastReset time.Time
}

type domainState struct {
	limiter      *rate.Limiter
	failures     int
	robots       *Rules
	robotsLoaded bool
}

// NewSession builds an empty session. A nil clock uses time.Now.
func NewSession(opts Options, clock func() time.Time) *Session {
	opts = opts.withDefaults()
	if clock == nil {
		clock = time.Now
	}
	return &Session{
		now:         clock,
		defaultGap:  opts.DefaultGap,
		maxFailures: opts.MaxFailures,
		resetEvery:  opts.FailureReset,
		domains:     make(map[string]*domainState),
		lastReset:   clock(),
	}
}

// state returns the domain's state, creating it on first use. Callers hold s.mu.
func (s *Session) state(domain string) *domainState {
	st, ok := s.domains[domain]
	if !ok {
		st = &domainState{limiter: rate.NewLimiter(rate.Every(s.defaultGap), 1)}
		s.domains[domain] = st
	}
	return st
}

// maybeReset clears every failure counter once the reset period has elapsed. Callers hold s.mu.
func (s *Session) maybeReset() {
	now := s.now()
	if now.Sub(s.lastReset) < s.resetEvery {
		return
	}
	for _, st := range s.domains {
		st.failures = 0
	}
	s.lastReset = now
}

// Skipped reports whether the domain has failed too often to be tried again.
func (s *Session) Skipped(domain string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeReset()
	return s.state(domain).failures >= s.maxFailures
}

// RecordFailure increments the domain's failure counter.
func (s *Session) RecordFailure(domain string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeReset()
	s.state(domain).failures++
}

// Failures returns the domain's current failure count.
func (s *Session) Failures(domain string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeReset()
	return s.state(domain).failures
}

// Wait blocks until the domain's request gap has elapsed or ctx is done.
func (s *Session) Wait(ctx context.Context, domain string) error {
	s.mu.Lock()
	limiter := s.state(domain).limiter
	s.mu.Unlock()
	return limiter.Wait(ctx)
}

// Robots returns the domain's cached rules, loading them once. Concurrent callers for the
// same domain share one load. Load errors are cached as nil rules, which allow everything.
func (s *Session) Robots(ctx context.Context, domain, siteRoot string, load RobotsLoader) *Rules {
	s.mu.Lock()
	st := s.state(domain)
	if st.robotsLoaded {
		rules := st.robots
		s.mu.Unlock()
		return rules
	}
	s.mu.Unlock()

	v, _, _ := s.robotsFlight.Do(domain, func() (any, error) {
		s.mu.Lock()
		if st.robotsLoaded {
			rules := st.robots
			s.mu.Unlock()
			return rules, nil
		}
		s.mu.Unlock()

		rules, err := load(ctx, siteRoot)
		if err != nil {
			rules = nil
		}

		s.mu.Lock()
		st.robots = rules
		st.robotsLoaded = true
		if rules != nil && rules.CrawlDelay > 0 {
			st.limiter.SetLimit(rate.Every(rules.CrawlDelay))
		}
		s.mu.Unlock()
		return rules, nil
	})

	rules, _ := v.(*Rules)
	return rules
}
