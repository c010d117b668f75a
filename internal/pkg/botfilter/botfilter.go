// Package botfilter drops tracking submissions from known crawlers before
// they reach the document store.
package botfilter

import (
	"strings"
	"sync"

	"go.elara.ws/pcre"
)

// botPatterns are matched case-insensitively against the full user agent.
// The list targets the crawlers that actually show up in tracking traffic;
// it is not a full device detector.
var botPatterns = []string{
	`(?i)bot\b`,
	`(?i)crawl(er|ing)`,
	`(?i)spider`,
	`(?i)slurp`,
	`(?i)(google|bing|yandex|baidu|duckduck)bot`,
	`(?i)facebookexternalhit`,
	`(?i)headlesschrome`,
	`(?i)phantomjs`,
	`(?i)lighthouse`,
	`(?i)wget|curl/|python-requests|go-http-client|okhttp`,
	`(?i)pingdom|uptimerobot|statuscake|site24x7`,
}

var (
	compileOnce sync.Once
	compiled    []*pcre.Regexp
)

func patterns() []*pcre.Regexp {
	compileOnce.Do(func() {
		compiled = make([]*pcre.Regexp, 0, len(botPatterns))
		for _, pattern := range botPatterns {
			re, err := pcre.Compile(pattern)
			if err != nil {
				// A broken pattern disables itself, never the filter.
				continue
			}
			compiled = append(compiled, re)
		}
	})
	return compiled
}

// IsBot reports whether a user agent belongs to a known crawler or tooling
// client. An empty user agent is not treated as a bot; schema-free ingestion
// tolerates clients that send none.
func IsBot(userAgent string) bool {
	ua := strings.TrimSpace(userAgent)
	if ua == "" {
		return false
	}
	for _, re := range patterns() {
		if re.MatchString(ua) {
			return true
		}
	}
	return false
}
