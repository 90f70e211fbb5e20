package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when the action is not defined for the
	// current stage, or the mission is already in a terminal stage
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrInvalidStage is returned when a stage name is not a known pipeline stage
	ErrInvalidStage = errors.New("invalid stage")

	// ErrGuardFailed is returned when no guarded rule matched the mission facts
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrPermissionDenied is returned when the actor lacks the stage-required capability
	ErrPermissionDenied = errors.New("permission denied")

	// ErrValidation is returned for missing or malformed action payload
	ErrValidation = errors.New("validation failed")

	// ErrConfiguration is returned when a required tunable or catalog entry is missing or malformed
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound is returned when the mission or a referenced stage is absent
	ErrNotFound = errors.New("not found")

	// ErrInfrastructure wraps persistence failures inside the atomic unit
	ErrInfrastructure = errors.New("infrastructure failure")
)

// Error classes returned by Classify.
const (
	ClassPermissionDenied  = "permission_denied"
	ClassInvalidTransition = "invalid_transition"
	ClassValidation        = "validation"
	ClassConfiguration     = "configuration"
	ClassNotFound          = "not_found"
	ClassInfrastructure    = "infrastructure"
	ClassNone              = "ok"
)

// Classify maps an error onto its taxonomy class. Unknown errors are treated
// as infrastructure failures so callers can retry them.
func Classify(err error) string {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrPermissionDenied):
		return ClassPermissionDenied
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrGuardFailed):
		return ClassInvalidTransition
	case errors.Is(err, ErrValidation):
		return ClassValidation
	case errors.Is(err, ErrConfiguration):
		return ClassConfiguration
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidStage):
		return ClassNotFound
	default:
		return ClassInfrastructure
	}
}

// IsBusiness reports whether err belongs to the business taxonomy, meaning the
// request itself was invalid and retrying it unchanged cannot succeed.
func IsBusiness(err error) bool {
	switch Classify(err) {
	case ClassPermissionDenied, ClassInvalidTransition, ClassValidation, ClassConfiguration, ClassNotFound:
		return true
	default:
		return false
	}
}
