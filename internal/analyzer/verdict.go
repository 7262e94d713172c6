package analyzer

import (
	"github.com/Yasin-shaik/QValley/internal/domain"
)

// Verdict thresholds, applied identically across every analyzer.
const (
	safeThreshold       = 75
	suspiciousThreshold = 50
)

// Classify maps a trust score to a verdict: >=75 SAFE, >=50 SUSPICIOUS,
// else FRAUD. Callers must clamp trust to [0,100] first.
func Classify(trust int) domain.Verdict {
	switch {
	case trust >= safeThreshold:
		return domain.VerdictSafe
	case trust >= suspiciousThreshold:
		return domain.VerdictSuspicious
	default:
		return domain.VerdictFraud
	}
}

// ActionMap is a three-entry verdict-to-action table. The classifier is
// parameterized by the table, not by analyzer-specific branching: adding an
// analyzer means supplying a new map, never new control flow.
type ActionMap struct {
	Safe       string
	Suspicious string
	Fraud      string
}

// For returns the action for a verdict.
func (m ActionMap) For(v domain.Verdict) string {
	switch v {
	case domain.VerdictFraud:
		return m.Fraud
	case domain.VerdictSuspicious:
		return m.Suspicious
	default:
		return m.Safe
	}
}

// ClassifyAction classifies trust and resolves the action in one step.
func ClassifyAction(trust int, m ActionMap) (domain.Verdict, string) {
	v := Classify(trust)
	return v, m.For(v)
}

// Per-family action tables.
var (
	// TransactionActions covers the bank-row and micro-fraud paths.
	TransactionActions = ActionMap{
		Safe:       "Allow • Monitor",
		Suspicious: "Manual review • OTP confirm • Call-back verification",
		Fraud:      "HOLD & VERIFY KYC • Block payee • Call customer",
	}

	// ChatActions covers payment-request message analysis.
	ChatActions = ActionMap{
		Safe:       "Proceed if UPI name matches • Keep proof",
		Suspicious: "Verify UPI name in your UPI app • Call back • Ask for invoice/GST",
		Fraud:      "Do NOT pay • Call the person via saved contact • Report/Block",
	}

	// ImageActions covers screenshot forensics.
	ImageActions = ActionMap{
		Safe:       "Looks clean • Keep a copy",
		Suspicious: "Verify sender via another channel • Inspect QR before paying",
		Fraud:      "Do not act on this screenshot • Report to your bank",
	}
)
