package workflow

import (
	"fmt"
)

// GuardFunc evaluates whether a rule applies to the given mission facts
type GuardFunc func(f Facts) bool

// TableBuilder builds an immutable transition table
type TableBuilder interface {
	// Configure returns the rule configuration for the given source stage
	Configure(stage Stage) StageConfiguration

	// Build freezes the configured rules into a Table
	Build() *Table
}

// StageConfiguration configures the rules leaving a specific stage
type StageConfiguration interface {
	// Permit allows an action to move the mission to the target stage
	Permit(action Action, toStage Stage) StageConfiguration

	// PermitIf allows an action to move the mission to the target stage when the guard passes.
	// Guarded rules for the same action are evaluated in registration order.
	PermitIf(action Action, toStage Stage, guard GuardFunc) StageConfiguration
}

// rule is a single guarded edge
type rule struct {
	toStage Stage
	guard   GuardFunc
}

// stageConfig implements StageConfiguration
type stageConfig struct {
	fromStage Stage
	rules     map[Action][]rule
	order     []Action
}

// tableBuilder implements TableBuilder
type tableBuilder struct {
	configurations map[Stage]*stageConfig
}

// NewBuilder creates a new transition table builder
func NewBuilder() TableBuilder {
	return &tableBuilder{
		configurations: make(map[Stage]*stageConfig),
	}
}

// Configure returns the rule configuration for the given source stage
func (b *tableBuilder) Configure(stage Stage) StageConfiguration {
	if !stage.IsValid() {
		panic(fmt.Sprintf("invalid stage: %s", stage))
	}
	if stage.IsTerminal() {
		panic(fmt.Sprintf("terminal stage cannot have rules: %s", stage))
	}

	config, exists := b.configurations[stage]
	if !exists {
		config = &stageConfig{
			fromStage: stage,
			rules:     make(map[Action][]rule),
		}
		b.configurations[stage] = config
	}

	return config
}

// Build freezes the configured rules into a Table
func (b *tableBuilder) Build() *Table {
	// Deep copy so later Configure calls cannot mutate a built table
	stages := make(map[Stage]*stageConfig, len(b.configurations))
	for stage, config := range b.configurations {
		rulesCopy := make(map[Action][]rule, len(config.rules))
		for action, rules := range config.rules {
			rulesCopy[action] = append([]rule{}, rules...)
		}
		stages[stage] = &stageConfig{
			fromStage: stage,
			rules:     rulesCopy,
			order:     append([]Action{}, config.order...),
		}
	}

	return &Table{stages: stages}
}

// Permit allows an action to move the mission to the target stage
func (c *stageConfig) Permit(action Action, toStage Stage) StageConfiguration {
	return c.PermitIf(action, toStage, nil)
}

// PermitIf allows an action to move the mission to the target stage when the guard passes
func (c *stageConfig) PermitIf(action Action, toStage Stage, guard GuardFunc) StageConfiguration {
	if !action.IsValid() {
		panic(fmt.Sprintf("invalid action: %s", action))
	}
	if !toStage.IsValid() {
		panic(fmt.Sprintf("invalid target stage: %s", toStage))
	}

	if _, seen := c.rules[action]; !seen {
		c.order = append(c.order, action)
	}
	c.rules[action] = append(c.rules[action], rule{
		toStage: toStage,
		guard:   guard,
	})

	return c
}
