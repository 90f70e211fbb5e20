package workflow

// Guards used by the mission flow.
var (
	isPettyCash   GuardFunc = func(f Facts) bool { return f.Kind == KindPettyCash }
	isFullExpense GuardFunc = func(f Facts) bool { return f.Kind == KindFullExpense }

	needsAccounting GuardFunc = func(f Facts) bool { return f.AccountingReview }

	needsCountersign GuardFunc = func(f Facts) bool { return f.RequiresCountersignature() }
	skipsCountersign GuardFunc = func(f Facts) bool { return !f.RequiresCountersignature() }

	settlesInCash GuardFunc = func(f Facts) bool {
		to, err := RoutePayment(f.PaymentMethod)
		return err == nil && to == StagePaid
	}
	settlesElectronically GuardFunc = func(f Facts) bool {
		to, err := RoutePayment(f.PaymentMethod)
		return err == nil && to == StagePendingSignature
	}
)

// ReturnTargets maps each stage to where DEVOLVER sends the mission. The
// targets are fixed per stage and are not derived from pipeline order.
var ReturnTargets = map[Stage]Stage{
	StagePendingSupervisor:  StageReturnedForCorrection,
	StagePendingFinance:     StagePendingSupervisor,
	StagePendingTreasury:    StagePendingSupervisor,
	StagePendingBudget:      StagePendingTreasury,
	StagePendingAccounting:  StagePendingBudget,
	StagePendingCountersign: StagePendingSupervisor,
	StagePendingSignature:   StageApprovedForPayment,
}

// MissionFlow builds the transition table for mission approvals
func MissionFlow() *Table {
	builder := NewBuilder()

	builder.Configure(StagePendingSupervisor).
		Permit(ActionApprove, StagePendingFinance)

	// Kind branch: petty cash skips the treasury, budget, accounting and comptroller desks
	builder.Configure(StagePendingFinance).
		PermitIf(ActionApprove, StageApprovedForPayment, isPettyCash).
		PermitIf(ActionApprove, StagePendingTreasury, isFullExpense)

	builder.Configure(StagePendingTreasury).
		Permit(ActionApprove, StagePendingBudget)

	// Threshold branch, optionally preceded by the accounting desk
	builder.Configure(StagePendingBudget).
		PermitIf(ActionApprove, StagePendingAccounting, needsAccounting).
		PermitIf(ActionApprove, StagePendingCountersign, needsCountersign).
		PermitIf(ActionApprove, StageApprovedForPayment, skipsCountersign)

	builder.Configure(StagePendingAccounting).
		PermitIf(ActionApprove, StagePendingCountersign, needsCountersign).
		PermitIf(ActionApprove, StageApprovedForPayment, skipsCountersign)

	builder.Configure(StagePendingCountersign).
		Permit(ActionApprove, StageApprovedForPayment).
		Permit(ActionRemediate, StagePendingSupervisor)

	builder.Configure(StageApprovedForPayment).
		PermitIf(ActionProcessPayment, StagePaid, settlesInCash).
		PermitIf(ActionProcessPayment, StagePendingSignature, settlesElectronically)

	builder.Configure(StagePendingSignature).
		Permit(ActionConfirmPayment, StagePaid)

	builder.Configure(StageReturnedForCorrection).
		Permit(ActionRemediate, StagePendingSupervisor)

	for from, to := range ReturnTargets {
		builder.Configure(from).Permit(ActionReturn, to)
	}

	// Rejection is available from every non-terminal stage
	for _, s := range AllStages() {
		if !s.IsTerminal() {
			builder.Configure(s).Permit(ActionReject, StageRejected)
		}
	}

	// PAGADO and RECHAZADO are terminal - no outgoing rules

	return builder.Build()
}
