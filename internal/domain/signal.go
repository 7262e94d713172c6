// Package domain defines the core interfaces and types for QValley.
package domain

// Verdict is the three-way risk classification of an analyzed input.
type Verdict string

const (
	VerdictSafe       Verdict = "SAFE"
	VerdictSuspicious Verdict = "SUSPICIOUS"
	VerdictFraud      Verdict = "FRAUD"
)

// Rank orders verdicts by risk for thresholding (FRAUD > SUSPICIOUS > SAFE).
// Verdicts are stored and transmitted as labels, never as ranks.
func (v Verdict) Rank() int {
	switch v {
	case VerdictFraud:
		return 2
	case VerdictSuspicious:
		return 1
	default:
		return 0
	}
}

// RiskSignal is the normalized output of every analyzer path.
// Trust is always in [0,100]; higher means safer. Reasons is never nil:
// when no rule fires it is an empty slice. A RiskSignal is immutable once
// produced — callers persist or return it, never mutate it.
type RiskSignal struct {
	Trust   int      `json:"trust"`
	Verdict Verdict  `json:"verdict"`
	Reasons []string `json:"reasons"`
	Action  string   `json:"action"`
}

// Analyzer feature names used when persisting results.
const (
	FeatureBank       = "bank"
	FeatureChat       = "chatbot"
	FeatureMicrofraud = "microfraud"
	FeatureScreenshot = "screenshot"
)
