package workflow

// Stage is the name of a flow state in the mission approval pipeline.
type Stage string

const (
	StagePendingSupervisor     Stage = "PENDIENTE_JEFE"
	StagePendingFinance        Stage = "PENDIENTE_APROBACION_FINANZAS"
	StagePendingTreasury       Stage = "PENDIENTE_REVISION_TESORERIA"
	StagePendingBudget         Stage = "PENDIENTE_ASIGNACION_PRESUPUESTO"
	StagePendingAccounting     Stage = "PENDIENTE_CONTABILIDAD"
	StagePendingCountersign    Stage = "PENDIENTE_REFRENDO_CGR"
	StageApprovedForPayment    Stage = "APROBADO_PARA_PAGO"
	StagePendingSignature      Stage = "PENDIENTE_FIRMA_ELECTRONICA"
	StageReturnedForCorrection Stage = "DEVUELTO_CORRECCION"
	StagePaid                  Stage = "PAGADO"
	StageRejected              Stage = "RECHAZADO"
)

var validStages = map[Stage]bool{
	StagePendingSupervisor:     true,
	StagePendingFinance:        true,
	StagePendingTreasury:       true,
	StagePendingBudget:         true,
	StagePendingAccounting:     true,
	StagePendingCountersign:    true,
	StageApprovedForPayment:    true,
	StagePendingSignature:      true,
	StageReturnedForCorrection: true,
	StagePaid:                  true,
	StageRejected:              true,
}

var terminalStages = map[Stage]bool{
	StagePaid:     true,
	StageRejected: true,
}

// InitialStage is where the creation collaborator places a new mission.
const InitialStage = StagePendingSupervisor

// IsTerminal returns true if no further transition is permitted from the stage
func (s Stage) IsTerminal() bool {
	return terminalStages[s]
}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// IsValid returns true if the stage is a known pipeline stage
func (s Stage) IsValid() bool {
	return validStages[s]
}

// AllStages lists every known stage in pipeline order.
func AllStages() []Stage {
	return []Stage{
		StagePendingSupervisor,
		StagePendingFinance,
		StagePendingTreasury,
		StagePendingBudget,
		StagePendingAccounting,
		StagePendingCountersign,
		StageApprovedForPayment,
		StagePendingSignature,
		StageReturnedForCorrection,
		StagePaid,
		StageRejected,
	}
}
