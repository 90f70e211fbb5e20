package workflow

// Action is a caller-issued command that may advance a mission's stage.
type Action string

const (
	ActionApprove        Action = "APROBAR"
	ActionReject         Action = "RECHAZAR"
	ActionReturn         Action = "DEVOLVER"
	ActionRemediate      Action = "SUBSANAR"
	ActionProcessPayment Action = "PROCESAR_PAGO"
	ActionConfirmPayment Action = "CONFIRMAR_PAGO"
)

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// IsValid returns true if the action is one of the defined constants
func (a Action) IsValid() bool {
	switch a {
	case ActionApprove,
		ActionReject,
		ActionReturn,
		ActionRemediate,
		ActionProcessPayment,
		ActionConfirmPayment:
		return true
	default:
		return false
	}
}

// IsForward reports whether the action moves a mission along the approval path.
// Approver slots are only filled by forward actions.
func (a Action) IsForward() bool {
	return a == ActionApprove
}
