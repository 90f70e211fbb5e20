package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/dispatcher"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/permission"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/registry"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/event"
	domainwf "github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

const tracerName = "github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/workflow"

// Deps are the collaborators the engine requires
type Deps struct {
	Registry    *registry.Registry
	Missions    port.MissionRepository
	History     port.HistoryRepository
	Allocations port.AllocationRepository
	Approvals   port.ApprovalRepository
	TxManager   port.TransactionManager
	Directory   port.Directory
	Budget      port.BudgetCatalog
	Config      port.ConfigStore
}

// engineImpl is the concrete implementation of Engine
type engineImpl struct {
	registry    *registry.Registry
	missions    port.MissionRepository
	history     port.HistoryRepository
	txManager   port.TransactionManager
	permissions *permission.Resolver
	resolver    *TransitionResolver
	processor   *ActionProcessor
	audit       *AuditWriter

	dispatcher      dispatcher.Dispatcher
	locker          port.MissionLocker
	metrics         Metrics
	tracer          trace.Tracer
	logger          Logger
	clock           func() time.Time
	policy          AllocationPolicy
	optimisticCheck bool
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for committed transitions
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLocker serializes Execute per mission
func WithLocker(l port.MissionLocker) EngineOption {
	return func(e *engineImpl) {
		e.locker = l
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m Metrics) EngineOption {
	return func(e *engineImpl) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithTracer overrides the tracer taken from the global provider
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *engineImpl) {
		e.tracer = t
	}
}

// WithLogger sets a logger for the engine
func WithLogger(l Logger) EngineOption {
	return func(e *engineImpl) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the time source used for timestamps
func WithClock(clock func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.clock = clock
	}
}

// WithAllocationPolicy sets how budget allocations are reconciled with the total
func WithAllocationPolicy(p AllocationPolicy) EngineOption {
	return func(e *engineImpl) {
		e.policy = p
	}
}

// WithOptimisticStageCheck makes the stage write conditional on the stage
// read at the start of the unit
func WithOptimisticStageCheck(enabled bool) EngineOption {
	return func(e *engineImpl) {
		e.optimisticCheck = enabled
	}
}

// NewEngine creates a new workflow engine
func NewEngine(deps Deps, opts ...EngineOption) Engine {
	e := &engineImpl{
		registry:  deps.Registry,
		missions:  deps.Missions,
		history:   deps.History,
		txManager: deps.TxManager,
		metrics:   nopMetrics{},
		logger:    nopLogger{},
		tracer:    otel.Tracer(tracerName),
		clock:     time.Now,
		policy:    AllowDivergence,
	}

	for _, opt := range opts {
		opt(e)
	}

	table := deps.Registry.Table()
	e.permissions = permission.NewResolver(table)
	e.resolver = NewTransitionResolver(deps.Registry, e.permissions, NewPaymentRouter(deps.Registry), deps.Config)
	e.processor = NewActionProcessor(deps.Allocations, deps.Approvals, deps.Directory, deps.Budget, deps.Config, e.policy, e.clock)
	e.audit = NewAuditWriter(deps.History, e.clock)

	return e
}

// Execute runs re-read, resolution, validation, effects and audit in one
// transaction; events are dispatched only after commit
func (e *engineImpl) Execute(ctx context.Context, cmd Command) (out *Outcome, err error) {
	ctx, span := e.tracer.Start(ctx, "workflow.Execute", trace.WithAttributes(
		attribute.Int64("mission.id", cmd.MissionID),
		attribute.String("workflow.action", cmd.Action.String()),
	))
	start := e.clock()
	defer func() {
		class := domainwf.Classify(err)
		e.metrics.ObserveAction(cmd.Action.String(), class, e.clock().Sub(start))
		span.SetAttributes(attribute.String("workflow.result", class))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, class)
		}
		span.End()
	}()

	if cmd.Actor == nil {
		return nil, fmt.Errorf("%w: actor is required", domainwf.ErrPermissionDenied)
	}
	if !cmd.Action.IsValid() {
		return nil, fmt.Errorf("%w: unknown action %q", domainwf.ErrInvalidTransition, cmd.Action)
	}

	if e.locker != nil {
		unlock, lockErr := e.locker.Lock(ctx, cmd.MissionID)
		if lockErr != nil {
			return nil, fmt.Errorf("%w: lock mission %d: %w", domainwf.ErrInfrastructure, cmd.MissionID, lockErr)
		}
		defer unlock()
	}

	var (
		mission *entity.Mission
		res     *Resolution
		plan    *Plan
		entry   *entity.HistoryEntry
	)

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		mission, err = e.missions.GetByID(txCtx, cmd.MissionID)
		if err != nil {
			return err
		}

		res, err = e.resolver.Resolve(txCtx, TransitionRequest{
			Mission:       mission,
			Actor:         cmd.Actor,
			Action:        cmd.Action,
			PaymentMethod: rawString(cmd.Payload, KeyPaymentMethod),
		})
		if err != nil {
			return err
		}

		payload, err := DecodePayload(cmd.Payload)
		if err != nil {
			return err
		}

		comment := cmd.Comment
		if comment == "" {
			comment = payload.Comments
		}

		plan, err = e.processor.Validate(txCtx, ProcessInput{
			Mission:    mission,
			Actor:      cmd.Actor,
			Action:     cmd.Action,
			Resolution: res,
			Payload:    payload,
			Comment:    comment,
		})
		if err != nil {
			return err
		}

		previousStageID := mission.StageID
		if err := e.processor.Apply(txCtx, mission, plan); err != nil {
			return err
		}

		expected := 0
		if e.optimisticCheck {
			expected = previousStageID
		}
		if err := e.missions.Update(txCtx, mission, expected); err != nil {
			return err
		}

		entry, err = e.audit.Record(txCtx, AuditInput{
			MissionID:        mission.ID,
			Actor:            cmd.Actor,
			AsLineSupervisor: res.AsLineSupervisor,
			From:             res.From,
			To:               res.To,
			Action:           cmd.Action,
			Comment:          comment,
			ExtraData:        plan.ExtraData,
			ActorIP:          cmd.ClientIP,
		})
		return err
	})
	if err != nil {
		return nil, classifyFailure(err)
	}

	for _, w := range plan.Warnings {
		e.logger.Info("Transition committed with warning", "mission_id", mission.ID, "warning", w)
	}

	out = &Outcome{
		MissionID:      mission.ID,
		Action:         cmd.Action.String(),
		PreviousStage:  res.From.Name,
		NewStage:       res.To.Name,
		AllocatedTotal: plan.AllocatedTotal,
		Warnings:       plan.Warnings,
		ActorName:      cmd.Actor.DisplayName(),
		Summary:        mission.Summary(),
		HistoryID:      entry.ID,
	}

	e.metrics.ObserveTransition(res.From.Name.String(), res.To.Name.String())
	e.logger.Info("Transition committed",
		"mission_id", mission.ID,
		"action", cmd.Action,
		"from", res.From.Name,
		"to", res.To.Name,
		"actor_id", cmd.Actor.ID(),
	)
	e.emit(ctx, out, cmd.Actor)

	return out, nil
}

// emit publishes the committed transition. Delivery is asynchronous and its
// failures never reach the caller.
func (e *engineImpl) emit(ctx context.Context, out *Outcome, actor entity.Actor) {
	if e.dispatcher == nil {
		return
	}

	payload := map[string]interface{}{
		event.KeyPreviousStage: out.PreviousStage.String(),
		event.KeyNewStage:      out.NewStage.String(),
		event.KeyAction:        out.Action,
		event.KeyActorID:       actor.ID(),
		event.KeyActorName:     out.ActorName,
		event.KeySummary:       out.Summary,
	}
	committed := event.NewEvent(event.TypeTransitionCommitted, out.MissionID, payload)
	e.dispatcher.DispatchAsync(ctx, committed)

	var follow event.Type
	switch {
	case out.NewStage == domainwf.StagePaid:
		follow = event.TypeMissionPaid
	case out.NewStage == domainwf.StageRejected:
		follow = event.TypeMissionRejected
	case out.Action == domainwf.ActionReturn.String():
		follow = event.TypeMissionReturned
	}
	if follow != "" {
		e.dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(follow, out.MissionID, payload, committed.ID))
	}
}

// History returns the audit trail of an existing mission
func (e *engineImpl) History(ctx context.Context, missionID int64) ([]*entity.HistoryEntry, error) {
	if _, err := e.missions.GetByID(ctx, missionID); err != nil {
		return nil, classifyFailure(err)
	}
	entries, err := e.history.ListByMission(ctx, missionID)
	if err != nil {
		return nil, classifyFailure(err)
	}
	return entries, nil
}

// AvailableActions lists the actions the actor passes the gate for at the
// mission's current stage
func (e *engineImpl) AvailableActions(ctx context.Context, missionID int64, actor entity.Actor) ([]domainwf.Action, error) {
	mission, err := e.missions.GetByID(ctx, missionID)
	if err != nil {
		return nil, classifyFailure(err)
	}
	stage, err := e.registry.StageByID(mission.StageID)
	if err != nil {
		return nil, err
	}
	if stage.SupervisorGate {
		if err := e.processor.verifySupervisor(ctx, mission, actor); err != nil {
			if errors.Is(err, domainwf.ErrPermissionDenied) {
				return []domainwf.Action{}, nil
			}
			return nil, classifyFailure(err)
		}
	}
	return e.permissions.ActionsFor(actor, stage), nil
}

// Inbox lists missions in the stages the actor can act on. Supervisor-stage
// missions are filtered to the actor's reporting line, so a page may hold
// fewer than limit entries.
func (e *engineImpl) Inbox(ctx context.Context, actor entity.Actor, limit, offset int) ([]*entity.Mission, error) {
	if actor == nil {
		return nil, fmt.Errorf("%w: actor is required", domainwf.ErrPermissionDenied)
	}

	supervisorIDs := map[int]bool{}
	var stageIDs []int
	for _, s := range e.registry.Stages() {
		if len(e.permissions.ActionsFor(actor, s)) == 0 {
			continue
		}
		stageIDs = append(stageIDs, s.ID)
		if s.SupervisorGate {
			supervisorIDs[s.ID] = true
		}
	}
	if len(stageIDs) == 0 {
		return []*entity.Mission{}, nil
	}

	missions, err := e.missions.ListByStages(ctx, stageIDs, limit, offset)
	if err != nil {
		return nil, classifyFailure(err)
	}

	out := make([]*entity.Mission, 0, len(missions))
	for _, m := range missions {
		if supervisorIDs[m.StageID] {
			if err := e.processor.verifySupervisor(ctx, m, actor); err != nil {
				if errors.Is(err, domainwf.ErrPermissionDenied) {
					continue
				}
				return nil, classifyFailure(err)
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// classifyFailure wraps anything outside the business taxonomy as an
// infrastructure failure
func classifyFailure(err error) error {
	if err == nil || domainwf.IsBusiness(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domainwf.ErrInfrastructure, err)
}
