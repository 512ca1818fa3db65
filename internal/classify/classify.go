// Package classify maps a decoded payload string to a risk verdict by asking
// an external reasoning service. Failures never escape this package: callers
// always get a renderable Classification, degraded to the conservative
// middle ground when the service is unreachable or returns garbage.
package classify

import (
	"context"
	"strings"
)

// RiskCategory is the closed three-way verdict.
type RiskCategory string

const (
	RiskSafe       RiskCategory = "Safe"
	RiskSuspicious RiskCategory = "Suspicious"
	RiskPhishing   RiskCategory = "Phishing"
)

// Classification is the normalized verdict for one payload.
type Classification struct {
	Risk       RiskCategory `json:"risk"`
	Confidence float64      `json:"confidence"`
	Reasons    []string     `json:"reasons"`
}

// Classifier evaluates a candidate URL. Implementations must not return an
// error; on any internal failure they return Fallback().
type Classifier interface {
	Classify(ctx context.Context, raw string) Classification
}

// FallbackReason explains a degraded verdict when analysis could not run.
const FallbackReason = "automated analysis was unavailable; treat this link with caution"

// Fallback is the deterministic result substituted when the reasoning service
// fails. Suspicious rather than Safe: an analysis outage must never
// green-light a link.
func Fallback() Classification {
	return Classification{
		Risk:       RiskSuspicious,
		Confidence: 0.5,
		Reasons:    []string{FallbackReason},
	}
}

// NormalizeRisk maps a free-form label onto the closed enumeration,
// case-insensitively. Anything unrecognized lands on Suspicious.
func NormalizeRisk(label string) RiskCategory {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "safe", "benign", "clean":
		return RiskSafe
	case "phishing", "malicious":
		return RiskPhishing
	case "suspicious":
		return RiskSuspicious
	default:
		return RiskSuspicious
	}
}

// Normalize clamps a raw service reply into a well-formed Classification.
func Normalize(label string, confidence float64, reasons []string) Classification {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	if len(reasons) == 0 {
		reasons = []string{"no specific indicators reported"}
	}
	return Classification{
		Risk:       NormalizeRisk(label),
		Confidence: confidence,
		Reasons:    reasons,
	}
}
