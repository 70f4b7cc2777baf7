package scheduler

import (
	"regexp"
	"strings"
	"time"

	"github.com/likexian/whois"
)

// LiveWhois queries the registry WHOIS servers directly.
func LiveWhois(domain string) (string, error) {
	return whois.Whois(domain)
}

// Registries disagree on the label; the date itself is ISO-ish everywhere
// that matters.
var expiryPattern = regexp.MustCompile(
	`(?i)(?:registry expiry date|registrar registration expiration date|expiration date|expiry date|paid-till)\s*:\s*(\d{4}-\d{2}-\d{2})`)

// extractWhoisExpiry pulls the expiration date out of a raw WHOIS reply.
func extractWhoisExpiry(raw string) (time.Time, bool) {
	m := expiryPattern.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(m[1]))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
