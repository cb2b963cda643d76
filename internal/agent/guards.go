package agent

import (
	"encoding/json"

	"github.com/SamuelSchlesinger/generalist/internal/provider"
)

// loopDetector tracks repeated identical tool calls to detect stuck turns.
type loopDetector struct {
	threshold int
	counts    map[string]int
}

func newLoopDetector(threshold int) *loopDetector {
	return &loopDetector{
		threshold: threshold,
		counts:    make(map[string]int),
	}
}

// normalizeInput returns a canonical JSON representation so semantically
// identical payloads with different key ordering produce the same string.
func normalizeInput(input json.RawMessage) string {
	var m any
	if err := json.Unmarshal(input, &m); err != nil {
		return string(input)
	}
	normalized, err := json.Marshal(m)
	if err != nil {
		return string(input)
	}
	return string(normalized)
}

// record registers a tool call and reports whether the loop threshold has
// been reached for this exact call signature.
func (d *loopDetector) record(name string, input json.RawMessage) bool {
	key := name + ":" + normalizeInput(input)
	d.counts[key]++
	return d.counts[key] >= d.threshold
}

// tokenTracker accumulates token usage and checks against a budget.
// Not concurrent-safe: each instance is owned by a single turn.
type tokenTracker struct {
	budget int
	usage  provider.TokenUsage
}

func newTokenTracker(budget int) *tokenTracker {
	return &tokenTracker{budget: budget}
}

func (t *tokenTracker) add(usage provider.TokenUsage) {
	t.usage.Add(usage)
}

// exceeded reports whether cumulative usage has reached the budget.
// A zero budget means unlimited and never exceeds.
func (t *tokenTracker) exceeded() bool {
	return t.budget > 0 && t.usage.Total() >= t.budget
}

func (t *tokenTracker) total() provider.TokenUsage {
	return t.usage
}
