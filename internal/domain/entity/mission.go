package entity

import (
	"time"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

// Approvers holds the per-department approver identifiers. A slot is filled
// only when the mission passes its stage in the forward direction.
type Approvers struct {
	Supervisor  string `json:"supervisor,omitempty"`
	Treasury    string `json:"treasury,omitempty"`
	Budget      string `json:"budget,omitempty"`
	Accounting  string `json:"accounting,omitempty"`
	Finance     string `json:"finance,omitempty"`
	Comptroller string `json:"comptroller,omitempty"`
}

// Set fills the named slot. SlotNone is ignored.
func (a *Approvers) Set(slot ApproverSlot, id string) {
	switch slot {
	case SlotSupervisor:
		a.Supervisor = id
	case SlotTreasury:
		a.Treasury = id
	case SlotBudget:
		a.Budget = id
	case SlotAccounting:
		a.Accounting = id
	case SlotFinance:
		a.Finance = id
	case SlotComptroller:
		a.Comptroller = id
	}
}

// Get returns the identifier in the named slot
func (a Approvers) Get(slot ApproverSlot) string {
	switch slot {
	case SlotSupervisor:
		return a.Supervisor
	case SlotTreasury:
		return a.Treasury
	case SlotBudget:
		return a.Budget
	case SlotAccounting:
		return a.Accounting
	case SlotFinance:
		return a.Finance
	case SlotComptroller:
		return a.Comptroller
	default:
		return ""
	}
}

// Mission represents a reimbursement case routed through approval
type Mission struct {
	ID                       int64                `json:"id"`
	Kind                     workflow.RequestKind `json:"kind"`
	BeneficiaryID            string               `json:"beneficiary_id"`
	Objective                string               `json:"objective"`
	Total                    Money                `json:"total"`
	ApprovedAmount           *Money               `json:"approved_amount,omitempty"`
	StageID                  int                  `json:"stage_id"`
	RequiresCountersignature bool                 `json:"requires_countersignature"`
	Approvers                Approvers            `json:"approvers"`
	PaymentMethod            string               `json:"payment_method,omitempty"`
	PaymentReference         string               `json:"payment_reference,omitempty"`
	PaymentBank              string               `json:"payment_bank,omitempty"`
	AccountingVoucher        string               `json:"accounting_voucher,omitempty"`
	CountersignNumber        string               `json:"countersign_number,omitempty"`
	PaidAt                   *time.Time           `json:"paid_at,omitempty"`
	Version                  int64                `json:"version"`
	CreatedAt                time.Time            `json:"created_at"`
	UpdatedAt                time.Time            `json:"updated_at"`
}

// Summary is a one-line description relayed to notification collaborators
func (m *Mission) Summary() string {
	return string(m.Kind) + " " + m.Total.String() + " - " + m.Objective
}
