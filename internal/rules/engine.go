// Package rules provides the CEL-Go based custom risk rule engine.
//
// Custom rules augment the built-in chat-message heuristics: each rule is a
// CEL expression over the chat-request variables, and a triggered rule adds
// its configured points and reason to the accumulated risk before clamping.
package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/Yasin-shaik/QValley/internal/domain"
)

// Engine compiles and evaluates custom risk rules.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled map[string]*compiledRule
}

type compiledRule struct {
	config  *domain.RiskRule
	program cel.Program
}

// NewEngine creates a rule engine with the chat-request variable set.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("message", cel.StringType),
		cel.Variable("handle", cel.StringType),
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("relationship", cel.StringType),
		cel.Variable("history", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:      env,
		compiled: make(map[string]*compiledRule),
	}, nil
}

// ValidateRule compiles a rule without loading it.
func (e *Engine) ValidateRule(cfg *domain.RiskRule) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg *domain.RiskRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiled[cfg.ID] = compiled
	return nil
}

// LoadRules compiles and loads all enabled rules.
func (e *Engine) LoadRules(configs []*domain.RiskRule) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules swaps the loaded rule set for the given one (hot reload).
func (e *Engine) ReloadRules(configs []*domain.RiskRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := make(map[string]*compiledRule)
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		next[cfg.ID] = compiled
	}

	e.compiled = next
	return nil
}

// GetLoadedRules returns the currently loaded rule configurations.
func (e *Engine) GetLoadedRules() []*domain.RiskRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*domain.RiskRule, 0, len(e.compiled))
	for _, c := range e.compiled {
		out = append(out, c.config)
	}
	return out
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// EvaluateChat evaluates all loaded rules against a chat request and
// returns the triggered hits. Evaluation errors skip the rule rather than
// failing the analysis.
func (e *Engine) EvaluateChat(req domain.ChatRequest) []domain.RuleHit {
	e.mu.RLock()
	loaded := make([]*compiledRule, 0, len(e.compiled))
	for _, c := range e.compiled {
		loaded = append(loaded, c)
	}
	e.mu.RUnlock()

	if len(loaded) == 0 {
		return nil
	}

	activation := map[string]any{
		"message":      req.Message,
		"handle":       req.UPI,
		"amount":       req.Amount,
		"relationship": req.Relationship,
		"history":      req.History,
	}

	var hits []domain.RuleHit
	for _, c := range loaded {
		out, _, err := c.program.Eval(activation)
		if err != nil {
			continue
		}
		if triggered(out) {
			hits = append(hits, domain.RuleHit{
				RuleID: c.config.ID,
				Points: c.config.Points,
				Reason: c.config.Reason,
			})
		}
	}
	return hits
}

// triggered interprets a CEL result: bool true, or any positive number.
func triggered(val ref.Val) bool {
	switch v := val.(type) {
	case types.Bool:
		return bool(v)
	case types.Double:
		return float64(v) > 0
	case types.Int:
		return int64(v) > 0
	default:
		return false
	}
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled = make(map[string]*compiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.RiskRule) (*compiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", cfg.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &compiledRule{config: cfg, program: program}, nil
}
