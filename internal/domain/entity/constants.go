package entity

// Permission codes carried by employees and roles
const (
	PermMissionApprove         = "MISSION_APPROVE"
	PermMissionReject          = "MISSION_REJECT"
	PermMissionTreasuryApprove = "MISSION_TESORERIA_APPROVE"
	PermMissionPayment         = "MISSION_PAYMMENT" // spelling matches deployed role data
	PermMissionCreate          = "MISSION_CREATE"
	PermMissionEdit            = "MISSION_EDIT"
	PermMissionView            = "MISSION_VIEW"
	PermBudgetView             = "PRESUPUESTO_VIEW"
	PermAccountingView         = "CONTABILIDAD_VIEW"
	PermOversightView          = "FISCALIZACION_VIEW"
	PermPaymentsView           = "PAGOS_VIEW"
	PermRequestsView           = "GESTION_SOLICITUDES_VIEW"
)

// FlowType says which request kinds a stage applies to
type FlowType string

const (
	FlowFullExpense FlowType = "VIATICOS"
	FlowPettyCash   FlowType = "CAJA_MENUDA"
	FlowBoth        FlowType = "AMBOS"
)

// ApproverSlot names a per-department approver column on a mission
type ApproverSlot string

const (
	SlotNone        ApproverSlot = ""
	SlotSupervisor  ApproverSlot = "supervisor"
	SlotTreasury    ApproverSlot = "treasury"
	SlotBudget      ApproverSlot = "budget"
	SlotAccounting  ApproverSlot = "accounting"
	SlotFinance     ApproverSlot = "finance"
	SlotComptroller ApproverSlot = "comptroller"
)

// ActorKind tags the two actor variants
type ActorKind string

const (
	ActorEmployee       ActorKind = "employee"
	ActorBackOfficeUser ActorKind = "user"
)

// Configuration keys read by the workflow
const (
	ConfigCountersignThreshold = "MONTO_REFRENDO_CGR"
	ConfigCashCeiling          = "LIMITE_EFECTIVO_VIATICOS"
	ConfigAccountingReview     = "FLUJO_CONTABILIDAD_HABILITADO"
	ConfigSubmissionDays       = "DIAS_LIMITE_PRESENTACION"
)

// Config value types stored alongside tunables
const (
	ConfigTypeDecimal = "DECIMAL"
	ConfigTypeInteger = "INTEGER"
	ConfigTypeBoolean = "BOOLEAN"
	ConfigTypeString  = "STRING"
)
