package domain

import "time"

// RiskRule is a user-configurable risk rule evaluated against chat-message
// inputs. When its CEL expression evaluates to true (or a positive number)
// the rule contributes Points to the accumulated risk and Reason to the
// reason list, before clamping and blending.
type RiskRule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Expression is a CEL expression over the chat-request variables:
	// message, handle, amount, relationship, history.
	Expression string `json:"expression"`

	// Points added to the risk total when the rule triggers.
	Points int `json:"points"`

	// Reason appended to the signal when the rule triggers.
	Reason string `json:"reason"`

	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// RuleHit records a triggered custom rule.
type RuleHit struct {
	RuleID string `json:"ruleId"`
	Points int    `json:"points"`
	Reason string `json:"reason"`
}
