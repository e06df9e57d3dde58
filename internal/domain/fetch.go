package domain

// Fetch failure reasons.
const (
	ReasonSkipped = "skipped"
	ReasonRobots  = "robots"
	ReasonTimeout = "timeout"
	ReasonHTTP    = "http"
	ReasonNetwork = "network"
	ReasonContent = "content"
	ReasonInvalid = "invalid_url"
)

// FetchFailure records why an article's full content could not be fetched.
type FetchFailure struct {
	Article Article
	Reason  string
	Detail  string
}

// FetchReport is the outcome of one fetch batch. Every selected article lands in exactly one list.
type FetchReport struct {
	Fetched  []FetchedArticle
	Failures []FetchFailure
	// Selected counts articles chosen for fetching out of the ranked input.
	Selected int
}
