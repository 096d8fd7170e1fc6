package netrisk

import "strings"

// suspiciousAgents are substrings that mark automated clients.
var suspiciousAgents = []string{
	"bot", "crawler", "spider", "scraper", "phantom", "selenium", "headless",
}

// SecurityChecks summarizes request-level signals that are independent
// of the client IP.
type SecurityChecks struct {
	SuspiciousUserAgent bool     `json:"suspiciousUserAgent"`
	MissingUserAgent    bool     `json:"missingUserAgent"`
	Reasons             []string `json:"reasons"`
}

// CheckRequest inspects request headers for automation markers.
// An empty user agent is flagged separately; browsers always send one.
func CheckRequest(userAgent string) SecurityChecks {
	checks := SecurityChecks{Reasons: []string{}}
	if strings.TrimSpace(userAgent) == "" {
		checks.MissingUserAgent = true
		checks.Reasons = append(checks.Reasons, "Missing user agent")
		return checks
	}
	ua := strings.ToLower(userAgent)
	for _, marker := range suspiciousAgents {
		if strings.Contains(ua, marker) {
			checks.SuspiciousUserAgent = true
			checks.Reasons = append(checks.Reasons, "Suspicious user agent detected")
			break
		}
	}
	return checks
}
