package workflow

import (
	"fmt"
	"sort"
)

// Rule describes one edge of the table for inspection and listing.
type Rule struct {
	From    Stage  `json:"from"`
	Action  Action `json:"action"`
	To      Stage  `json:"to"`
	Guarded bool   `json:"guarded"`
}

// Table is an immutable stage/action transition table. It is safe for
// concurrent use once built.
type Table struct {
	stages map[Stage]*stageConfig
}

// Next resolves the target stage for action taken at from, given the mission facts.
func (t *Table) Next(from Stage, action Action, facts Facts) (Stage, error) {
	if !from.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidStage, from)
	}
	if from.IsTerminal() {
		return "", fmt.Errorf("%w: stage %s is terminal", ErrInvalidTransition, from)
	}

	config, exists := t.stages[from]
	if !exists {
		return "", fmt.Errorf("%w: cannot apply %s from stage %s (no configuration)", ErrInvalidTransition, action, from)
	}

	rules, exists := config.rules[action]
	if !exists || len(rules) == 0 {
		return "", fmt.Errorf("%w: cannot apply %s from stage %s", ErrInvalidTransition, action, from)
	}

	for _, r := range rules {
		if r.guard == nil || r.guard(facts) {
			return r.toStage, nil
		}
	}

	return "", fmt.Errorf("%w: %w: %s from stage %s", ErrInvalidTransition, ErrGuardFailed, action, from)
}

// CanFire returns true if at least one rule exists for action at from.
// Guards are not evaluated.
func (t *Table) CanFire(from Stage, action Action) bool {
	config, exists := t.stages[from]
	if !exists {
		return false
	}
	return len(config.rules[action]) > 0
}

// Actions returns the actions defined at from, in registration order
func (t *Table) Actions(from Stage) []Action {
	config, exists := t.stages[from]
	if !exists {
		return []Action{}
	}
	return append([]Action{}, config.order...)
}

// Rules returns every edge leaving from, in registration order
func (t *Table) Rules(from Stage) []Rule {
	config, exists := t.stages[from]
	if !exists {
		return nil
	}

	var out []Rule
	for _, action := range config.order {
		for _, r := range config.rules[action] {
			out = append(out, Rule{From: from, Action: action, To: r.toStage, Guarded: r.guard != nil})
		}
	}
	return out
}

// HasRules reports whether any rule leaves from
func (t *Table) HasRules(from Stage) bool {
	config, exists := t.stages[from]
	return exists && len(config.order) > 0
}

// ReferencedStages returns every stage appearing as a source or target, sorted by name
func (t *Table) ReferencedStages() []Stage {
	seen := make(map[Stage]bool)
	for from, config := range t.stages {
		seen[from] = true
		for _, rules := range config.rules {
			for _, r := range rules {
				seen[r.toStage] = true
			}
		}
	}

	out := make([]Stage, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
