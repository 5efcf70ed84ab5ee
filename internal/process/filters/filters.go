// Package filters implements the content gate evaluated before buffering.
//
// The gate checks two things, in order:
//   - Blocklist phrases (case-insensitive substring match)
//   - Links (all links blocked, or only hosts outside the domain whitelist)
//
// A violation means the message is deleted on sight and never buffered.
package filters

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
)

const (
	ReasonBlocklist   = "blocklist hit"
	ReasonBlockedLink = "blocked link"

	trailingPunct = ".,;!)]"
)

// authorityRegex captures the whole authority, userinfo and port included.
var authorityRegex = regexp.MustCompile(`(?i)https?://([^\s/?#\\<>"'\x60]+)`)

// Verdict is the result of evaluating a message text.
type Verdict struct {
	Violation bool
	Reason    string
}

// Clean is the verdict for text that passed every check.
var Clean = Verdict{}

// ContentFilter is a stateless, config-driven gate. Safe for concurrent use.
type ContentFilter struct {
	phrases       []string
	domains       []string
	blockAllLinks bool
}

// New creates a ContentFilter. Phrases are case folded and domains lower-cased once here.
func New(cfg domain.ContentFilterConfig) *ContentFilter {
	caser := cases.Fold()

	phrases := make([]string, 0, len(cfg.BlocklistPhrases))

	for _, p := range cfg.BlocklistPhrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		phrases = append(phrases, caser.String(p))
	}

	domains := make([]string, 0, len(cfg.WhitelistedDomains))

	for _, d := range cfg.WhitelistedDomains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d == "" {
			continue
		}

		domains = append(domains, d)
	}

	return &ContentFilter{
		phrases:       phrases,
		domains:       domains,
		blockAllLinks: cfg.BlockAllLinks,
	}
}

// Evaluate returns Clean or a violation with its reason.
func (f *ContentFilter) Evaluate(text string) Verdict {
	if text == "" {
		return Clean
	}

	if f.hitsBlocklist(text) {
		return Verdict{Violation: true, Reason: ReasonBlocklist}
	}

	if f.hasBlockedLink(text) {
		return Verdict{Violation: true, Reason: ReasonBlockedLink}
	}

	return Clean
}

func (f *ContentFilter) hitsBlocklist(text string) bool {
	if len(f.phrases) == 0 {
		return false
	}

	// Casers keep state between calls, so each evaluation gets its own.
	folded := cases.Fold().String(text)

	for _, p := range f.phrases {
		if strings.Contains(folded, p) {
			return true
		}
	}

	return false
}

func (f *ContentFilter) hasBlockedLink(text string) bool {
	hosts := ExtractHosts(text)
	if len(hosts) == 0 {
		return false
	}

	if f.blockAllLinks {
		return true
	}

	for _, host := range hosts {
		if !f.allowedHost(host) {
			return true
		}
	}

	return false
}

// allowedHost matches the whitelist on a label boundary so that
// notexample.com does not pass for example.com.
func (f *ContentFilter) allowedHost(host string) bool {
	for _, d := range f.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}

	return false
}

// ExtractHosts returns the lower-cased host of every http(s) URL in text.
// Userinfo and port are dropped, so example.com@evil.com yields evil.com.
func ExtractHosts(text string) []string {
	matches := authorityRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	hosts := make([]string, 0, len(matches))

	for _, m := range matches {
		host := hostOf(m[1])
		if host == "" {
			continue
		}

		hosts = append(hosts, host)
	}

	return hosts
}

func hostOf(authority string) string {
	// A closing bracket may belong to an IPv6 literal, so it is trimmed last.
	authority = strings.TrimRight(authority, strings.TrimSuffix(trailingPunct, "]"))

	if i := strings.LastIndex(authority, "@"); i >= 0 {
		authority = authority[i+1:]
	}

	host := authority

	if strings.HasPrefix(host, "[") {
		if end := strings.Index(host, "]"); end > 0 {
			host = host[1:end]
		}
	} else if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}

	return strings.TrimRight(strings.ToLower(host), trailingPunct)
}
