package entity

import "github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"

// Stage is an immutable catalog entry for a flow state
type Stage struct {
	ID             int            `json:"id" yaml:"id"`
	Name           workflow.Stage `json:"name" yaml:"name"`
	Description    string         `json:"description" yaml:"description"`
	Terminal       bool           `json:"terminal" yaml:"terminal"`
	AppliesTo      FlowType       `json:"applies_to" yaml:"applies_to"`
	Order          int            `json:"order" yaml:"order"`
	Requires       []string       `json:"requires,omitempty" yaml:"requires"`
	SupervisorGate bool           `json:"supervisor_gate,omitempty" yaml:"supervisor_gate"`
	Slot           ApproverSlot   `json:"slot,omitempty" yaml:"slot"`
}

// AppliesToKind reports whether missions of kind may visit the stage
func (s *Stage) AppliesToKind(kind workflow.RequestKind) bool {
	switch s.AppliesTo {
	case FlowBoth:
		return true
	case FlowFullExpense:
		return kind == workflow.KindFullExpense
	case FlowPettyCash:
		return kind == workflow.KindPettyCash
	default:
		return false
	}
}
