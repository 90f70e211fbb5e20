// Package permission decides whether an actor may take an action at a stage.
// It performs no I/O.
package permission

import (
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

// Resolver evaluates stage gates against actor capabilities
type Resolver struct {
	table *workflow.Table
}

// NewResolver creates a resolver over the transition table. The table is
// consulted by ActionsFor to list only defined actions.
func NewResolver(table *workflow.Table) *Resolver {
	return &Resolver{table: table}
}

// Capable reports whether the actor holds the permission code
func (r *Resolver) Capable(actor entity.Actor, code string) bool {
	return actor != nil && actor.HasPermission(code)
}

// IsLineSupervisor reports whether the actor may act as a line supervisor:
// the approve capability plus department-head standing. Desk accounts always
// have that standing.
func (r *Resolver) IsLineSupervisor(actor entity.Actor) bool {
	return r.Capable(actor, entity.PermMissionApprove) && actor.ActsAsDepartmentHead()
}

// CanAct reports whether the actor passes the stage gate for action.
// Rejection outside the supervisor stage also requires MISSION_REJECT.
func (r *Resolver) CanAct(actor entity.Actor, stage *entity.Stage, action workflow.Action) bool {
	if actor == nil || stage == nil || stage.Terminal {
		return false
	}

	if stage.SupervisorGate {
		return r.IsLineSupervisor(actor)
	}

	for _, code := range stage.Requires {
		if !actor.HasPermission(code) {
			return false
		}
	}
	if len(stage.Requires) == 0 {
		return false
	}

	if action == workflow.ActionReject && !actor.HasPermission(entity.PermMissionReject) {
		return false
	}
	return true
}

// ActionsFor lists the actions defined at stage that the actor may take
func (r *Resolver) ActionsFor(actor entity.Actor, stage *entity.Stage) []workflow.Action {
	if stage == nil {
		return nil
	}
	var out []workflow.Action
	for _, action := range r.table.Actions(stage.Name) {
		if r.CanAct(actor, stage, action) {
			out = append(out, action)
		}
	}
	return out
}
