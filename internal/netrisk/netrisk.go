// Package netrisk classifies the network a payment request originates
// from. It combines an external IP intelligence lookup with a local
// address-range heuristic fallback and produces a coarse risk level
// used to gate checkout.
package netrisk

import (
	"context"
	"net"
	"strings"
	"time"

	"bookvault/internal/circuitbreaker"
	"bookvault/internal/logging"
	"bookvault/internal/metrics"
)

// RiskLevel is the coarse outcome of a network assessment.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Assessment is the result of classifying a client IP.
type Assessment struct {
	IP        string    `json:"ip"`
	IsVPN     bool      `json:"isVpn"`
	IsProxy   bool      `json:"isProxy"`
	IsTor     bool      `json:"isTor"`
	RiskLevel RiskLevel `json:"riskLevel"`
	Score     int       `json:"score"`
	Source    string    `json:"source"` // "lookup" or "local"
	CheckedAt time.Time `json:"checkedAt"`
}

// LookupResult is the normalized response from an IP intelligence provider.
type LookupResult struct {
	Proxy bool
	VPN   bool
	Tor   bool
	Risk  int    // provider risk score, 0-100
	Type  string // provider connection type, e.g. "VPN", "Residential"
}

// LookupClient queries an external IP intelligence provider.
type LookupClient interface {
	Lookup(ctx context.Context, ip string) (*LookupResult, error)
}

// breakerKey is the single circuit key for the lookup provider.
const breakerKey = "risk_lookup"

// Detector classifies client IPs. A nil lookup client means the
// detector runs on the local heuristic only. Assessments are computed
// fresh on every call; network risk can change between requests, and
// the circuit breaker already bounds load on the provider.
type Detector struct {
	lookup  LookupClient
	breaker *circuitbreaker.Breaker
}

// NewDetector creates a detector. lookup may be nil.
func NewDetector(lookup LookupClient) *Detector {
	return &Detector{
		lookup:  lookup,
		breaker: circuitbreaker.New(5, 30*time.Second),
	}
}

// Detect classifies an IP address. It never returns an error: on any
// lookup failure it falls back to the local heuristic, and on a
// malformed or empty IP it returns a low-risk assessment so checkout
// is not blocked by missing client metadata.
func (d *Detector) Detect(ctx context.Context, ip string) *Assessment {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		a := &Assessment{
			IP:        ip,
			RiskLevel: RiskLow,
			Source:    "local",
			CheckedAt: time.Now(),
		}
		metrics.RiskAssessmentsTotal.WithLabelValues(string(a.RiskLevel)).Inc()
		return a
	}

	var a *Assessment
	if d.lookup != nil && d.breaker.Allow(breakerKey) {
		result, err := d.lookup.Lookup(ctx, parsed.String())
		if err != nil {
			d.breaker.RecordFailure(breakerKey)
			metrics.RiskLookupFallbacksTotal.Inc()
			logging.L(ctx).Warn("risk lookup failed, using local heuristic",
				"ip", parsed.String(), "error", err)
			a = d.localCheck(parsed)
		} else {
			d.breaker.RecordSuccess(breakerKey)
			a = scoreLookup(parsed.String(), result)
		}
	} else {
		if d.lookup != nil {
			// Circuit open — provider is down, don't hammer it.
			metrics.RiskLookupFallbacksTotal.Inc()
		}
		a = d.localCheck(parsed)
	}

	metrics.RiskAssessmentsTotal.WithLabelValues(string(a.RiskLevel)).Inc()
	return a
}

// scoreLookup converts a provider result to an assessment using a
// weighted score: proxy 3, vpn 3, tor 4, provider risk above 50 adds 2,
// connection type "VPN" adds 2. Score 5+ is high, 3+ is medium.
func scoreLookup(ip string, r *LookupResult) *Assessment {
	score := 0
	if r.Proxy {
		score += 3
	}
	if r.VPN {
		score += 3
	}
	if r.Tor {
		score += 4
	}
	if r.Risk > 50 {
		score += 2
	}
	if strings.EqualFold(r.Type, "VPN") {
		score += 2
	}

	level := RiskLow
	switch {
	case score >= 5:
		level = RiskHigh
	case score >= 3:
		level = RiskMedium
	}

	return &Assessment{
		IP:        ip,
		IsVPN:     r.VPN || r.Tor || strings.EqualFold(r.Type, "VPN"),
		IsProxy:   r.Proxy,
		IsTor:     r.Tor,
		RiskLevel: level,
		Score:     score,
		Source:    "lookup",
		CheckedAt: time.Now(),
	}
}

// localCheck is the offline heuristic: private and loopback ranges are
// treated as tunneled traffic at medium risk, everything else is low.
func (d *Detector) localCheck(ip net.IP) *Assessment {
	a := &Assessment{
		IP:        ip.String(),
		RiskLevel: RiskLow,
		Source:    "local",
		CheckedAt: time.Now(),
	}
	if ip.IsPrivate() || ip.IsLoopback() {
		a.IsVPN = true
		a.RiskLevel = RiskMedium
	}
	return a
}

// ShouldBlockPayment reports whether an assessment is severe enough to
// refuse checkout. Only the combination of a detected VPN and a high
// risk level blocks. A high-risk non-VPN or a medium-risk VPN passes.
func ShouldBlockPayment(a *Assessment) bool {
	return a != nil && a.IsVPN && a.RiskLevel == RiskHigh
}
