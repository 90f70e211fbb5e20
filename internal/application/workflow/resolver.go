package workflow

import (
	"context"
	"fmt"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/permission"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/registry"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	domainwf "github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

// TransitionRequest is the input to TransitionResolver
type TransitionRequest struct {
	Mission *entity.Mission
	Actor   entity.Actor
	Action  domainwf.Action

	// PaymentMethod is the raw metodo_pago value; only read for PROCESAR_PAGO
	PaymentMethod string
}

// Resolution is a resolved, authorized transition
type Resolution struct {
	From             *entity.Stage
	To               *entity.Stage
	ThresholdCents   int64
	AccountingReview bool
	PaymentMethod    domainwf.PaymentMethod
	AsLineSupervisor bool
}

// TransitionResolver decides whether an action is allowed and where it leads
type TransitionResolver struct {
	registry    *registry.Registry
	permissions *permission.Resolver
	payments    *PaymentRouter
	config      port.ConfigStore
}

// NewTransitionResolver creates a resolver
func NewTransitionResolver(reg *registry.Registry, perms *permission.Resolver, payments *PaymentRouter, config port.ConfigStore) *TransitionResolver {
	return &TransitionResolver{
		registry:    reg,
		permissions: perms,
		payments:    payments,
		config:      config,
	}
}

// NextStage returns the target stage for the request
func (r *TransitionResolver) NextStage(ctx context.Context, req TransitionRequest) (*entity.Stage, error) {
	res, err := r.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.To, nil
}

// Resolve checks, in order: current stage, terminal state, action defined at
// the stage, authorization, payment method, tunables, and finally evaluates
// the transition table. Tunables are read on every call that branches on them.
func (r *TransitionResolver) Resolve(ctx context.Context, req TransitionRequest) (*Resolution, error) {
	if req.Mission == nil {
		return nil, fmt.Errorf("%w: mission is required", domainwf.ErrNotFound)
	}

	from, err := r.registry.StageByID(req.Mission.StageID)
	if err != nil {
		return nil, err
	}

	if from.Terminal {
		return nil, fmt.Errorf("%w: mission %d is in terminal stage %s", domainwf.ErrInvalidTransition, req.Mission.ID, from.Name)
	}

	table := r.registry.Table()
	if !req.Action.IsValid() || !table.CanFire(from.Name, req.Action) {
		return nil, fmt.Errorf("%w: %s is not defined at stage %s", domainwf.ErrInvalidTransition, req.Action, from.Name)
	}

	if !r.permissions.CanAct(req.Actor, from, req.Action) {
		return nil, fmt.Errorf("%w: actor %s cannot %s at stage %s", domainwf.ErrPermissionDenied, actorID(req.Actor), req.Action, from.Name)
	}

	res := &Resolution{
		From:             from,
		AsLineSupervisor: from.SupervisorGate && r.permissions.IsLineSupervisor(req.Actor),
	}

	if req.Action == domainwf.ActionProcessPayment {
		method, err := domainwf.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			return nil, err
		}
		if _, err := r.payments.Route(method); err != nil {
			return nil, err
		}
		res.PaymentMethod = method
	}

	if branchesOnTunables(from.Name, req.Action) {
		res.ThresholdCents, err = r.config.Decimal(ctx, entity.ConfigCountersignThreshold)
		if err != nil {
			return nil, err
		}
		res.AccountingReview, err = port.BoolWithDefault(ctx, r.config, entity.ConfigAccountingReview, false)
		if err != nil {
			return nil, err
		}
	}

	facts := domainwf.Facts{
		Kind:             req.Mission.Kind,
		TotalCents:       req.Mission.Total.Cents(),
		ThresholdCents:   res.ThresholdCents,
		PaymentMethod:    res.PaymentMethod,
		AccountingReview: res.AccountingReview,
	}

	next, err := table.Next(from.Name, req.Action, facts)
	if err != nil {
		return nil, err
	}

	res.To, err = r.registry.StageByName(next)
	if err != nil {
		return nil, fmt.Errorf("%w: target stage %s missing from catalog", domainwf.ErrConfiguration, next)
	}
	return res, nil
}

// branchesOnTunables reports whether the rules for (from, action) are guarded
// by the countersignature threshold or the accounting-review switch
func branchesOnTunables(from domainwf.Stage, action domainwf.Action) bool {
	if action != domainwf.ActionApprove {
		return false
	}
	return from == domainwf.StagePendingBudget || from == domainwf.StagePendingAccounting
}

func actorID(a entity.Actor) string {
	if a == nil {
		return "<nil>"
	}
	return a.ID()
}
