package analyzer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Yasin-shaik/QValley/internal/domain"
)

// Chat-message rule inputs. Matching is case-insensitive substring except
// the handle format, which is a full regex match on the lowered handle.
var (
	urgencyWords = []string{"immediately", "urgent", "right now", "final notice", "asap"}
	threatWords  = []string{"penalty", "fine", "blocked", "legal action", "police"}

	handlePattern = regexp.MustCompile(`^[a-z0-9._-]{2,}@[a-z]{2,}$`)
)

const chatHighAmount = 20000

// chatRisk evaluates the deterministic chat rule set: each triggered rule
// is independently additive. Kept separate from AnalyzeChat so the trigger
// set can be tested without the jitter and blend.
func chatRisk(req domain.ChatRequest) (int, []string) {
	risk := 0
	reasons := []string{}
	text := strings.ToLower(req.Message)
	handle := strings.ToLower(req.UPI)

	if containsAny(text, urgencyWords) {
		risk += 14
		reasons = append(reasons, "Urgency language detected")
	}
	if containsAny(text, threatWords) {
		risk += 16
		reasons = append(reasons, "Threatening consequence detected")
	}
	if handle != "" && !handlePattern.MatchString(handle) {
		risk += 8
		reasons = append(reasons, "UPI format looks unusual")
	}
	if req.Amount >= chatHighAmount {
		risk += 16
		reasons = append(reasons, "High amount (≥ ₹20k)")
	}
	if req.Relationship == "unknown" || req.Relationship == "stranger" {
		risk += 8
		reasons = append(reasons, "Unknown sender")
	}

	return risk, reasons
}

// AnalyzeChat scores a payment-request message. Custom rules (if attached)
// contribute additional hits before clamping; the heuristic estimate is then
// blended with the bucketed estimate at weight 0.6.
func (a *Analyzer) AnalyzeChat(req domain.ChatRequest) domain.RiskSignal {
	risk, reasons := chatRisk(req)

	if a.rules != nil {
		for _, hit := range a.rules.EvaluateChat(req) {
			risk += hit.Points
			if hit.Reason != "" {
				reasons = append(reasons, hit.Reason)
			}
		}
	}

	risk = clamp(risk + a.jitter(-2, 3))
	heuristic := 100 - risk

	key := chatBlendKey(req)
	trust := Blend(heuristic, a.sampleInBand(key), WeightChat)

	verdict, action := ClassifyAction(trust, ChatActions)
	return domain.RiskSignal{
		Trust:   trust,
		Verdict: verdict,
		Reasons: reasons,
		Action:  action,
	}
}

// chatBlendKey is stable for identical inputs and distinct for distinct ones.
func chatBlendKey(req domain.ChatRequest) []byte {
	var b strings.Builder
	b.WriteString(req.Message)
	b.WriteByte('|')
	b.WriteString(req.UPI)
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(req.Amount, 'f', -1, 64))
	b.WriteByte('|')
	b.WriteString(req.Relationship)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(req.History))
	return []byte(b.String())
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
