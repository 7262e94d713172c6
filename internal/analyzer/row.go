package analyzer

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Yasin-shaik/QValley/internal/domain"
)

// RowReasonPool is the fixed reason vocabulary for the standalone
// transaction-row path.
var RowReasonPool = []string{
	"High transaction amount",
	"Suspicious payee pattern",
	"Unusual time of transfer",
	"Repeated payments detected",
	"New/unknown payee",
	"Risky invoice-like pattern",
	"Potential phishing QR/invoice",
}

// AnalyzeRow scores a single raw bank transaction row.
//
// This path is a mock model and is non-deterministic by design: the score
// is a uniform draw in [5,95] and the reasons are a random 1-3 element
// subset of RowReasonPool. There is no bucketing or blending. Callers that
// need reproducibility must construct the Analyzer with a seeded source.
func (a *Analyzer) AnalyzeRow(account, payee string, amount float64, ts string) *domain.Transaction {
	score := 5 + a.intn(91)

	pool := make([]string, len(RowReasonPool))
	copy(pool, RowReasonPool)
	a.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	reasons := pool[:1+a.intn(3)]

	verdict, action := ClassifyAction(score, TransactionActions)

	return &domain.Transaction{
		ID:        uuid.New().String(),
		Account:   strings.TrimSpace(account),
		Payee:     strings.ToLower(strings.TrimSpace(payee)),
		Amount:    amount,
		TS:        NormalizeTimestamp(ts),
		Score:     score,
		Verdict:   verdict,
		Reasons:   reasons,
		Action:    action,
		CreatedAt: time.Now().UTC(),
	}
}

// Accepted input timestamp layouts, tried in order.
var tsLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// NormalizeTimestamp parses a row timestamp and renders it in the canonical
// layout; unparseable or empty input defaults to the current UTC time.
func NormalizeTimestamp(s string) string {
	s = strings.TrimSpace(s)
	if s != "" {
		candidate := strings.Replace(s, " ", "T", 1)
		for _, layout := range tsLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t.Format(domain.TimestampLayout)
			}
		}
	}
	return time.Now().UTC().Format(domain.TimestampLayout)
}
