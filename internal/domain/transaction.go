package domain

import (
	"time"
)

// TimestampLayout is the canonical textual format for transaction timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Transaction is a bank transaction row together with its risk analysis.
// Rows arrive either via CSV upload (pre-analyzed or raw) or via direct API
// calls; once constructed they are read-only.
type Transaction struct {
	ID      string  `json:"id"`
	Account string  `json:"account"`
	Payee   string  `json:"payee"` // case-folded
	Amount  float64 `json:"amount"`
	TS      string  `json:"ts"` // TimestampLayout, UTC

	Score   int      `json:"score"`
	Verdict Verdict  `json:"verdict"`
	Reasons []string `json:"reasons"`
	Action  string   `json:"action"`

	CreatedAt time.Time `json:"createdAt"`
}

// Signal extracts the RiskSignal portion of the row.
func (t *Transaction) Signal() RiskSignal {
	return RiskSignal{
		Trust:   t.Score,
		Verdict: t.Verdict,
		Reasons: t.Reasons,
		Action:  t.Action,
	}
}

// TransactionGroup is the per-payee aggregate used by the micro-fraud
// estimator. Built fresh per request, never persisted — only the resulting
// RiskSignal is.
type TransactionGroup struct {
	Payee string  `json:"payee"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// Analysis is a persisted analyzer result for the non-bank features
// (chatbot, microfraud, screenshot). InputValue is a short human-readable
// summary of what was analyzed, set by the caller before persistence.
type Analysis struct {
	ID         string    `json:"id"`
	Feature    string    `json:"feature"`
	InputValue string    `json:"inputValue,omitempty"`
	Score      int       `json:"score"`
	Verdict    Verdict   `json:"verdict"`
	Reasons    []string  `json:"reasons"`
	Action     string    `json:"action,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ChatRequest is the input shape for the chat-message estimator.
type ChatRequest struct {
	Message      string  `json:"message"`
	UPI          string  `json:"upi,omitempty"`
	Amount       float64 `json:"amount,omitempty"`
	Relationship string  `json:"relationship,omitempty"`
	History      int     `json:"history,omitempty"`
}

// BatchTransaction is one parsed line of a micro-fraud batch.
type BatchTransaction struct {
	Date   string  `json:"date"`
	Payee  string  `json:"payee"`
	Amount float64 `json:"amount"`
}
