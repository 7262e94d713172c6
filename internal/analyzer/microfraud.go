package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Yasin-shaik/QValley/internal/domain"
)

// Micro-fraud group rule thresholds.
const (
	microSmallAvg   = 300
	microMinRepeats = 3
	microHighCount  = 5
	microHighTotal  = 2000
)

// GroupResult pairs a payee group with its risk signal.
type GroupResult struct {
	Group  domain.TransactionGroup `json:"group"`
	Signal domain.RiskSignal       `json:"signal"`
}

// GroupByPayee partitions transactions by case-folded payee, summing
// amounts and counting occurrences. Output order is the insertion order of
// each payee's first occurrence; transactions with an empty payee are
// skipped. The group keeps the payee spelling of the first occurrence.
func GroupByPayee(txs []domain.BatchTransaction) []domain.TransactionGroup {
	index := make(map[string]int)
	groups := []domain.TransactionGroup{}

	for _, tx := range txs {
		key := strings.ToLower(strings.TrimSpace(tx.Payee))
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, domain.TransactionGroup{Payee: tx.Payee})
		}
		groups[i].Total += tx.Amount
		groups[i].Count++
	}

	return groups
}

// AnalyzeMicrofraud scores a flat batch of transactions for repeated
// small-payment patterns, one RiskSignal per distinct payee. The group
// rules need the whole batch, so grouping happens before any rule fires.
// No jitter on this path.
func (a *Analyzer) AnalyzeMicrofraud(txs []domain.BatchTransaction) []GroupResult {
	groups := GroupByPayee(txs)
	results := make([]GroupResult, 0, len(groups))

	for _, g := range groups {
		risk := 0
		reasons := []string{}

		avg := g.Total / float64(max(1, g.Count))
		if avg <= microSmallAvg && g.Count >= microMinRepeats {
			risk += 18
			reasons = append(reasons, fmt.Sprintf("Repeated small payments (%d)", g.Count))
		}
		if g.Count >= microHighCount && g.Total >= microHighTotal {
			risk += 16
			reasons = append(reasons, fmt.Sprintf("High total (₹%.2f) across small payments", g.Total))
		}

		heuristic := 100 - clamp(risk)
		trust := Blend(heuristic, a.sampleInBand(microBlendKey(g)), WeightMicrofraud)

		verdict, action := ClassifyAction(trust, TransactionActions)
		results = append(results, GroupResult{
			Group: g,
			Signal: domain.RiskSignal{
				Trust:   trust,
				Verdict: verdict,
				Reasons: reasons,
				Action:  action,
			},
		})
	}

	return results
}

func microBlendKey(g domain.TransactionGroup) []byte {
	var b strings.Builder
	b.WriteString(strings.ToLower(g.Payee))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(g.Total, 'f', -1, 64))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(g.Count))
	return []byte(b.String())
}
