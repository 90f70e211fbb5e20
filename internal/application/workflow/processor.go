package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	domainwf "github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

// AllocationPolicy decides what happens when budget lines do not add up to
// the mission total
type AllocationPolicy string

const (
	// AllowDivergence records the difference and proceeds
	AllowDivergence AllocationPolicy = "allow_divergence"
	// RequireMatch rejects allocations whose sum differs from the total
	RequireMatch AllocationPolicy = "require_match"
)

// ParseAllocationPolicy validates a configured policy name
func ParseAllocationPolicy(s string) (AllocationPolicy, error) {
	switch AllocationPolicy(s) {
	case "", AllowDivergence:
		return AllowDivergence, nil
	case RequireMatch:
		return RequireMatch, nil
	default:
		return "", fmt.Errorf("%w: unknown allocation policy %q", domainwf.ErrConfiguration, s)
	}
}

// Extra-data keys written to history
const (
	ExtraAllocatedTotal = "partidas_total"
	ExtraAllocationDiff = "diferencia_partidas"
	ExtraApprovedAmount = KeyApprovedAmount
	ExtraPaymentMethod  = KeyPaymentMethod
	ExtraTransaction    = KeyTransactionNumber
	ExtraVoucher        = KeyVoucherNumber
	ExtraCountersign    = KeyCountersignNumber
)

// ProcessInput is what the processor sees of a resolved command
type ProcessInput struct {
	Mission    *entity.Mission
	Actor      entity.Actor
	Action     domainwf.Action
	Resolution *Resolution
	Payload    *ActionPayload
	Comment    string
}

// Plan is the validated set of effects for one transition. Validate builds
// it without side effects; Apply carries it out.
type Plan struct {
	stageID        int
	slot           entity.ApproverSlot
	approverID     string
	approvedAmount *entity.Money
	countersign    *bool
	allocations    []*entity.BudgetAllocation
	paymentMethod  string
	paymentRef     string
	paymentBank    string
	voucher        string
	countersignNo  string
	paidAt         *time.Time

	// AllocatedTotal is set when the budget stage replaced allocations
	AllocatedTotal *entity.Money
	// Warnings are non-fatal findings such as allocation divergence
	Warnings []string
	// ExtraData is written to the history entry
	ExtraData map[string]interface{}
}

// ActionProcessor validates and applies the stage-specific effects of an action
type ActionProcessor struct {
	allocations port.AllocationRepository
	approvals   port.ApprovalRepository
	directory   port.Directory
	budget      port.BudgetCatalog
	config      port.ConfigStore
	policy      AllocationPolicy
	clock       func() time.Time
}

// NewActionProcessor creates a processor
func NewActionProcessor(
	allocations port.AllocationRepository,
	approvals port.ApprovalRepository,
	directory port.Directory,
	budget port.BudgetCatalog,
	config port.ConfigStore,
	policy AllocationPolicy,
	clock func() time.Time,
) *ActionProcessor {
	if clock == nil {
		clock = time.Now
	}
	if policy == "" {
		policy = AllowDivergence
	}
	return &ActionProcessor{
		allocations: allocations,
		approvals:   approvals,
		directory:   directory,
		budget:      budget,
		config:      config,
		policy:      policy,
		clock:       clock,
	}
}

// Validate checks the payload and identity rules for the transition and
// returns the plan of effects. It never mutates the mission.
func (p *ActionProcessor) Validate(ctx context.Context, in ProcessInput) (*Plan, error) {
	res := in.Resolution
	plan := &Plan{
		stageID:   res.To.ID,
		ExtraData: map[string]interface{}{},
	}

	switch in.Action {
	case domainwf.ActionReject, domainwf.ActionReturn:
		if strings.TrimSpace(in.Comment) == "" && strings.TrimSpace(in.Payload.Comments) == "" {
			return nil, fmt.Errorf("%w: a comment is required to %s", domainwf.ErrValidation, in.Action)
		}
	}

	if res.From.SupervisorGate {
		if err := p.verifySupervisor(ctx, in.Mission, in.Actor); err != nil {
			return nil, err
		}
	}

	if in.Action == domainwf.ActionApprove && res.From.Slot != entity.SlotNone {
		plan.slot = res.From.Slot
		plan.approverID = in.Actor.ID()
	}

	var err error
	switch {
	case in.Action == domainwf.ActionApprove && res.From.Name == domainwf.StagePendingFinance:
		err = p.planFinance(in, plan)
	case in.Action == domainwf.ActionApprove && res.From.Name == domainwf.StagePendingBudget:
		err = p.planBudget(ctx, in, plan)
	case in.Action == domainwf.ActionApprove && res.From.Name == domainwf.StagePendingAccounting:
		p.planAccounting(in, plan)
	case in.Action == domainwf.ActionApprove && res.From.Name == domainwf.StagePendingCountersign:
		if n := strings.TrimSpace(in.Payload.CountersignNumber); n != "" {
			plan.countersignNo = n
			plan.ExtraData[ExtraCountersign] = n
		}
	case in.Action == domainwf.ActionProcessPayment:
		err = p.planPayment(ctx, in, plan)
	case in.Action == domainwf.ActionConfirmPayment:
		plan.paidAt = p.paymentDate(in.Payload)
		if n := in.Payload.TransactionNumber; n != "" {
			plan.paymentRef = n
			plan.ExtraData[ExtraTransaction] = n
		}
	}
	if err != nil {
		return nil, err
	}

	return plan, nil
}

// Apply writes allocations and approval records, then updates the mission in
// memory. The caller persists the mission in the same transaction.
func (p *ActionProcessor) Apply(ctx context.Context, mission *entity.Mission, plan *Plan) error {
	if plan.allocations != nil {
		if err := p.allocations.ReplaceForMission(ctx, mission.ID, plan.allocations); err != nil {
			return fmt.Errorf("replace allocations: %w", err)
		}
	}

	if plan.slot != entity.SlotNone {
		record := &entity.ApprovalRecord{
			MissionID:  mission.ID,
			StageID:    mission.StageID,
			Slot:       plan.slot,
			ApproverID: plan.approverID,
			Action:     domainwf.ActionApprove.String(),
			CreatedAt:  p.clock(),
		}
		if err := p.approvals.Append(ctx, record); err != nil {
			return fmt.Errorf("append approval record: %w", err)
		}
		mission.Approvers.Set(plan.slot, plan.approverID)
	}

	if plan.approvedAmount != nil {
		amount := *plan.approvedAmount
		mission.ApprovedAmount = &amount
	}
	if plan.countersign != nil {
		mission.RequiresCountersignature = *plan.countersign
	}
	if plan.paymentMethod != "" {
		mission.PaymentMethod = plan.paymentMethod
	}
	if plan.paymentRef != "" {
		mission.PaymentReference = plan.paymentRef
	}
	if plan.paymentBank != "" {
		mission.PaymentBank = plan.paymentBank
	}
	if plan.voucher != "" {
		mission.AccountingVoucher = plan.voucher
	}
	if plan.countersignNo != "" {
		mission.CountersignNumber = plan.countersignNo
	}
	if plan.paidAt != nil {
		t := *plan.paidAt
		mission.PaidAt = &t
	}

	mission.StageID = plan.stageID
	mission.UpdatedAt = p.clock()
	return nil
}

// verifySupervisor checks that a directory-listed actor is the rank-1
// approver of the beneficiary's department. Desk accounts are not listed and
// pass on their gate alone.
func (p *ActionProcessor) verifySupervisor(ctx context.Context, mission *entity.Mission, actor entity.Actor) error {
	personID, ok := actor.PersonID()
	if !ok {
		return nil
	}

	dept, err := p.directory.DepartmentOf(ctx, mission.BeneficiaryID)
	if err != nil {
		if errors.Is(err, domainwf.ErrNotFound) {
			return fmt.Errorf("%w: beneficiary %s has no department", domainwf.ErrPermissionDenied, mission.BeneficiaryID)
		}
		return fmt.Errorf("lookup department: %w", err)
	}

	chain, err := p.directory.ApproverChain(ctx, dept)
	if err != nil {
		if errors.Is(err, domainwf.ErrNotFound) {
			return fmt.Errorf("%w: department %d has no approver chain", domainwf.ErrPermissionDenied, dept)
		}
		return fmt.Errorf("lookup approver chain: %w", err)
	}

	for _, a := range chain {
		if a.Rank == 1 {
			if a.PersonID == personID {
				return nil
			}
			break
		}
	}
	return fmt.Errorf("%w: %s is not the line supervisor of department %d", domainwf.ErrPermissionDenied, personID, dept)
}

func (p *ActionProcessor) planFinance(in ProcessInput, plan *Plan) error {
	amount := in.Mission.Total
	if in.Payload.ApprovedAmount != nil {
		amount = *in.Payload.ApprovedAmount
		if amount <= 0 {
			return fmt.Errorf("%w: %s must be positive", domainwf.ErrValidation, KeyApprovedAmount)
		}
	}
	plan.approvedAmount = &amount
	plan.ExtraData[ExtraApprovedAmount] = amount.String()
	return nil
}

func (p *ActionProcessor) planBudget(ctx context.Context, in ProcessInput, plan *Plan) error {
	lines := in.Payload.Allocations
	if len(lines) == 0 {
		return fmt.Errorf("%w: %s is required", domainwf.ErrValidation, KeyAllocations)
	}

	codes := make([]string, 0, len(lines))
	var sum entity.Money
	for i, l := range lines {
		code := strings.TrimSpace(l.Code)
		if code == "" {
			return fmt.Errorf("%w: %s[%d] has no codigo_partida", domainwf.ErrValidation, KeyAllocations, i)
		}
		if l.Amount <= 0 {
			return fmt.Errorf("%w: %s[%d] amount must be positive", domainwf.ErrValidation, KeyAllocations, i)
		}
		codes = append(codes, code)
		sum += l.Amount
	}

	valid, err := p.budget.ValidCodes(ctx, codes)
	if err != nil {
		return fmt.Errorf("validate budget codes: %w", err)
	}
	for _, code := range codes {
		if !valid[code] {
			return fmt.Errorf("%w: unknown budget code %s", domainwf.ErrValidation, code)
		}
	}

	if sum != in.Mission.Total {
		if p.policy == RequireMatch {
			return fmt.Errorf("%w: allocations sum %s differs from total %s", domainwf.ErrValidation, sum, in.Mission.Total)
		}
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("allocations sum %s differs from total %s", sum, in.Mission.Total))
		plan.ExtraData[ExtraAllocationDiff] = (sum - in.Mission.Total).String()
	}

	plan.allocations = make([]*entity.BudgetAllocation, len(lines))
	for i, l := range lines {
		plan.allocations[i] = &entity.BudgetAllocation{
			MissionID:   in.Mission.ID,
			Code:        codes[i],
			Amount:      l.Amount,
			Description: l.Description,
		}
	}
	plan.AllocatedTotal = &sum
	plan.ExtraData[ExtraAllocatedTotal] = sum.String()

	p.planCountersign(in, plan)
	return nil
}

func (p *ActionProcessor) planAccounting(in ProcessInput, plan *Plan) {
	if v := strings.TrimSpace(in.Payload.VoucherNumber); v != "" {
		plan.voucher = v
		plan.ExtraData[ExtraVoucher] = v
	}
	p.planCountersign(in, plan)
}

// planCountersign flags the mission against the stored total, never the
// allocation sum
func (p *ActionProcessor) planCountersign(in ProcessInput, plan *Plan) {
	required := in.Mission.Total.Cents() >= in.Resolution.ThresholdCents
	plan.countersign = &required
}

func (p *ActionProcessor) planPayment(ctx context.Context, in ProcessInput, plan *Plan) error {
	method := in.Resolution.PaymentMethod

	if method.IsElectronic() {
		if in.Payload.TransactionNumber == "" {
			return fmt.Errorf("%w: %s is required for %s", domainwf.ErrValidation, KeyTransactionNumber, method)
		}
	} else {
		ceiling, err := p.config.Decimal(ctx, entity.ConfigCashCeiling)
		if err != nil {
			return err
		}
		amount := in.Mission.Total
		if in.Mission.ApprovedAmount != nil {
			amount = *in.Mission.ApprovedAmount
		}
		if ceiling > 0 && amount.Cents() > ceiling {
			return fmt.Errorf("%w: cash payment of %s exceeds the limit of %s", domainwf.ErrValidation, amount, entity.Money(ceiling))
		}
		plan.paidAt = p.paymentDate(in.Payload)
	}

	plan.paymentMethod = string(method)
	plan.paymentRef = in.Payload.TransactionNumber
	plan.paymentBank = strings.TrimSpace(in.Payload.SourceBank)
	plan.ExtraData[ExtraPaymentMethod] = string(method)
	if plan.paymentRef != "" {
		plan.ExtraData[ExtraTransaction] = plan.paymentRef
	}
	return nil
}

func (p *ActionProcessor) paymentDate(payload *ActionPayload) *time.Time {
	t := p.clock()
	if payload.PaymentDate != nil {
		t = *payload.PaymentDate
	}
	return &t
}
