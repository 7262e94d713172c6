// Package analyzer implements the heuristic risk-scoring engine.
//
// Each analyzer path produces a domain.RiskSignal: a rule-based heuristic
// trust estimate blended with a hash-bucketed secondary signal, classified
// into a verdict and a recommended action. Estimators are pure and
// synchronous; the only shared state is the random source used for jitter
// and for the standalone transaction-row mock, which is injected so tests
// can seed it.
package analyzer

import (
	"math/rand"
	"sync"
	"time"

	"github.com/Yasin-shaik/QValley/internal/domain"
)

// ChatRuleEvaluator supplies additional additive risk hits for the
// chat-message estimator (custom CEL rules). Implementations must be safe
// for concurrent use.
type ChatRuleEvaluator interface {
	EvaluateChat(req domain.ChatRequest) []domain.RuleHit
}

// Analyzer evaluates inputs against the built-in heuristic rule sets.
// Safe for concurrent use: the random source is guarded by a mutex.
type Analyzer struct {
	mu  sync.Mutex
	rng *rand.Rand

	// deterministicBands derives within-band samples from the content
	// digest instead of the random source, making identical inputs yield
	// identical bucketed estimates.
	deterministicBands bool

	rules ChatRuleEvaluator
}

// New creates an Analyzer. A nil source means time-seeded randomness,
// which is the production default; tests inject a fixed seed.
func New(src rand.Source) *Analyzer {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Analyzer{rng: rand.New(src)}
}

// SetRules attaches a custom rule evaluator for the chat path.
func (a *Analyzer) SetRules(e ChatRuleEvaluator) {
	a.rules = e
}

// SetDeterministicBands toggles digest-derived within-band sampling.
func (a *Analyzer) SetDeterministicBands(on bool) {
	a.deterministicBands = on
}

// intn draws a uniform value in [0,n) from the shared source.
func (a *Analyzer) intn(n int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Intn(n)
}

// jitter draws a uniform value in [lo,hi].
func (a *Analyzer) jitter(lo, hi int) int {
	return lo + a.intn(hi-lo+1)
}

// shuffle permutes n elements using the shared source.
func (a *Analyzer) shuffle(n int, swap func(i, j int)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rng.Shuffle(n, swap)
}

// clamp bounds a score to [0,100].
func clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// dedupe removes duplicate reasons, preserving first occurrence order.
func dedupe(reasons []string) []string {
	seen := make(map[string]struct{}, len(reasons))
	out := reasons[:0]
	for _, r := range reasons {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
