package entity

import "strconv"

// Actor is whoever issues a workflow action. The two implementations model a
// reporting-line employee and a back-office desk account.
type Actor interface {
	// ID returns the actor identifier (person id or account id)
	ID() string

	// Kind tags the variant
	Kind() ActorKind

	// DisplayName is relayed to notification collaborators
	DisplayName() string

	// HasPermission reports whether the actor holds the permission code
	HasPermission(code string) bool

	// ActsAsDepartmentHead reports whether the actor may stand in as a line
	// supervisor once it holds the approve capability
	ActsAsDepartmentHead() bool

	// PersonID returns the person id when the actor sits in the org directory
	PersonID() (string, bool)

	// AttributionID is the id written to the audit trail
	AttributionID(asLineSupervisor bool) string
}

// Employee is a hierarchical actor identified by a person id
type Employee struct {
	PersonIDNumber   string   `json:"person_id"`
	Name             string   `json:"name"`
	DepartmentID     int64    `json:"department_id"`
	IsDepartmentHead bool     `json:"is_department_head"`
	Permissions      []string `json:"permissions"`
}

// ID returns the person id
func (e *Employee) ID() string { return e.PersonIDNumber }

// Kind returns ActorEmployee
func (e *Employee) Kind() ActorKind { return ActorEmployee }

// DisplayName returns the employee name, falling back to the person id
func (e *Employee) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.PersonIDNumber
}

// HasPermission reports whether the capability list holds code
func (e *Employee) HasPermission(code string) bool {
	for _, p := range e.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// ActsAsDepartmentHead requires the department-head flag
func (e *Employee) ActsAsDepartmentHead() bool { return e.IsDepartmentHead }

// PersonID returns the person id
func (e *Employee) PersonID() (string, bool) { return e.PersonIDNumber, true }

// AttributionID returns the person id only when acting as line supervisor.
// Elsewhere the employee is an out-of-system party.
func (e *Employee) AttributionID(asLineSupervisor bool) string {
	if asLineSupervisor {
		return e.PersonIDNumber
	}
	return ""
}

// Role is a back-office role with its permission codes
type Role struct {
	ID          int      `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Permissions []string `json:"permissions" yaml:"permissions"`
}

// BackOfficeUser is a system-role actor identified by an account id
type BackOfficeUser struct {
	AccountID int64  `json:"account_id"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
}

// ID returns the account id
func (u *BackOfficeUser) ID() string { return strconv.FormatInt(u.AccountID, 10) }

// Kind returns ActorBackOfficeUser
func (u *BackOfficeUser) Kind() ActorKind { return ActorBackOfficeUser }

// DisplayName returns the username
func (u *BackOfficeUser) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.ID()
}

// HasPermission reports whether the role grants code
func (u *BackOfficeUser) HasPermission(code string) bool {
	for _, p := range u.Role.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// ActsAsDepartmentHead is always true: desks have no department-head concept
func (u *BackOfficeUser) ActsAsDepartmentHead() bool { return true }

// PersonID is not available for desk accounts
func (u *BackOfficeUser) PersonID() (string, bool) { return "", false }

// AttributionID always returns the account id
func (u *BackOfficeUser) AttributionID(bool) string { return u.ID() }

var (
	_ Actor = (*Employee)(nil)
	_ Actor = (*BackOfficeUser)(nil)
)
