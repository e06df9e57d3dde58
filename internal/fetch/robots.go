package fetch

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
)

// Rules are the robots.txt rules that apply to one user agent.
type Rules struct {
	data  *robotstxt.RobotsData
	agent string
	// CrawlDelay is the delay requested for this agent, zero when absent.
	CrawlDelay time.Duration
}

// ParseRobots reads robots.txt for userAgent. Groups are matched by product token, so
// "User-agent: NewsCurator/1.0" applies to "NewsCurator/1.0 (+...)" while "User-agent: news"
// does not. An unparsable file yields nil rules, which allow everything.
func ParseRobots(r io.Reader, userAgent string) *Rules {
	token := agentToken(userAgent)
	if token == "" {
		token = agentToken(DefaultUserAgent)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromBytes(normalizeAgents(body, token))
	if err != nil {
		return nil
	}

	return &Rules{
		data:       data,
		agent:      token,
		CrawlDelay: data.FindGroup(token).CrawlDelay,
	}
}

// Allowed reports whether path may be fetched. Either the wildcard or the own-agent group
// disallowing the path is enough to refuse it. A nil Rules allows everything.
func (r *Rules) Allowed(path string) bool {
	if r == nil || r.data == nil {
		return true
	}
	if path == "" {
		path = "/"
	}
	return r.data.TestAgent(path, "*") && r.data.TestAgent(path, r.agent)
}

// normalizeAgents rewrites every User-agent value to its product token. Tokens other than
// "*" and our own are prefixed with '~' so the library's prefix lookup can never select them.
func normalizeAgents(body []byte, own string) []byte {
	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(key), "user-agent") {
			if i := strings.IndexByte(value, '#'); i >= 0 {
				value = value[:i]
			}
			switch token := agentToken(value); token {
			case "*", own:
				line = "User-agent: " + token
			default:
				line = "User-agent: ~" + token
			}
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return out.Bytes()
}

// agentToken reduces a User-Agent value to its lower-cased product name.
func agentToken(userAgent string) string {
	token := strings.TrimSpace(userAgent)
	if i := strings.IndexAny(token, "/ \t"); i >= 0 {
		token = token[:i]
	}
	return strings.ToLower(token)
}
