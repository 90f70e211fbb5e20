package event

// Type identifies the type of domain event
type Type string

const (
	// TypeTransitionCommitted fires after every committed stage change
	TypeTransitionCommitted Type = "mission.transition_committed"
	TypeMissionPaid         Type = "mission.paid"
	TypeMissionRejected     Type = "mission.rejected"
	TypeMissionReturned     Type = "mission.returned"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeTransitionCommitted,
		TypeMissionPaid,
		TypeMissionRejected,
		TypeMissionReturned:
		return true
	default:
		return false
	}
}
