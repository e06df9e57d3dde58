// Package fetch selects ranked articles worth reading in full and downloads them politely:
// per-domain request gaps, robots rules, failure back-off and a batch deadline.
package fetch

import "time"

// DefaultUserAgent identifies the fetcher to sites and robots rules.
const DefaultUserAgent = "NewsCurator/1.0 (+https://github.com/newscurator)"

// Options tune the fetch stage. Zero values take the defaults below.
type Options struct {
	UserAgent string
	// MaxPerCluster caps how many articles of one cluster are fetched.
	MaxPerCluster int
	MaxConcurrent int
	// DefaultGap separates requests to one domain when robots has no crawl-delay.
	DefaultGap     time.Duration
	RequestTimeout time.Duration
	// ArticleTimeout bounds robots, gap waiting and the request for one article.
	ArticleTimeout time.Duration
	// BatchCeiling is the wall-clock budget of a whole batch.
	BatchCeiling  time.Duration
	RobotsTimeout time.Duration
	// MaxFailures is how many failures put a domain on the skip list.
	MaxFailures int
	// FailureReset clears all failure counters once this much time passed since the last reset.
	FailureReset time.Duration
	MaxBodyBytes int64
	// MinContentChars is the shortest extracted body accepted before falling back to raw text.
	MinContentChars int
	// FallbackChars bounds the raw-text fallback.
	FallbackChars int
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.MaxPerCluster <= 0 {
		o.MaxPerCluster = 3
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 6
	}
	if o.DefaultGap <= 0 {
		o.DefaultGap = 50 * time.Millisecond
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 15 * time.Second
	}
	if o.ArticleTimeout <= 0 {
		o.ArticleTimeout = 30 * time.Second
	}
	if o.BatchCeiling <= 0 {
		o.BatchCeiling = 5 * time.Minute
	}
	if o.RobotsTimeout <= 0 {
		o.RobotsTimeout = 3 * time.Second
	}
	if o.MaxFailures <= 0 {
		o.MaxFailures = 3
	}
	if o.FailureReset <= 0 {
		o.FailureReset = time.Hour
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 4 << 20
	}
	if o.MinContentChars <= 0 {
		o.MinContentChars = 200
	}
	if o.FallbackChars <= 0 {
		o.FallbackChars = 4000
	}
	return o
}
