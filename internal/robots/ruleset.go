package robots

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RuleSet holds the directives from a robots.txt file that apply to one
// user agent: the union of every matching User-agent section.
type RuleSet struct {
	Disallowed []string
	Allowed    []string
	CrawlDelay time.Duration
}

// ParseRuleSet parses a robots.txt body and collects the rules that apply
// to the given user agent. A section applies when its declared agent is "*",
// matches the agent exactly, or is contained in the agent as a substring
// (case-insensitive). Crawl-delay takes the maximum across matching sections.
func ParseRuleSet(body []byte, agent string) *RuleSet {
	rs := &RuleSet{}

	var inMatchingSection bool
	var lastLineWasAgent bool

	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			lastLineWasAgent = false
			continue
		}

		directive, value, found := strings.Cut(line, ":")
		if !found {
			lastLineWasAgent = false
			continue
		}
		directive = strings.ToLower(strings.TrimSpace(directive))
		value = strings.TrimSpace(value)

		switch directive {
		case "user-agent":
			matches := agentMatches(value, agent)
			if lastLineWasAgent {
				// Stacked User-agent lines share one section.
				inMatchingSection = inMatchingSection || matches
			} else {
				inMatchingSection = matches
			}
			lastLineWasAgent = true
			continue
		case "disallow":
			if inMatchingSection && value != "" {
				rs.Disallowed = append(rs.Disallowed, value)
			}
		case "allow":
			if inMatchingSection && value != "" {
				rs.Allowed = append(rs.Allowed, value)
			}
		case "crawl-delay":
			if inMatchingSection {
				if delay := parseDelay(value); delay > rs.CrawlDelay {
					rs.CrawlDelay = delay
				}
			}
		}
		lastLineWasAgent = false
	}

	return rs
}

// Allows reports whether the path may be crawled under this rule set.
// An explicit Allow pattern matching the path always wins, even when a
// broader Disallow pattern matches too.
func (rs *RuleSet) Allows(path string) bool {
	if path == "" {
		path = "/"
	}

	for _, pattern := range rs.Allowed {
		if matchesPath(pattern, path) {
			return true
		}
	}
	for _, pattern := range rs.Disallowed {
		if matchesPath(pattern, path) {
			return false
		}
	}
	return true
}

// agentMatches reports whether a declared User-agent value applies to the
// querying agent.
func agentMatches(declared, agent string) bool {
	if declared == "*" {
		return true
	}
	declared = strings.ToLower(declared)
	agent = strings.ToLower(agent)
	return declared == agent || strings.Contains(agent, declared)
}

// matchesPath matches a robots.txt path pattern against a URL path.
// Patterns containing "*" become prefix-anchored regular expressions;
// all others are plain prefix matches.
func matchesPath(pattern, path string) bool {
	if !strings.Contains(pattern, "*") {
		return strings.HasPrefix(path, pattern)
	}

	expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*")
	re, err := regexp.Compile(expr)
	if err != nil {
		return strings.HasPrefix(path, pattern)
	}
	return re.MatchString(path)
}

// parseDelay converts a Crawl-delay value in seconds to a duration.
// Malformed values are ignored.
func parseDelay(value string) time.Duration {
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
