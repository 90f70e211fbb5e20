package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/dispatcher"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/registry"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/event"
	domainwf "github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

const (
	beneficiaryID = "8-100-1"
	supervisorID  = "8-200-2"
	budgetCode    = "0.01.1.2.001"
)

type fixture struct {
	store      *memStore
	tx         *mockTxManager
	config     *mockConfig
	directory  *mockDirectory
	dispatcher *mockDispatcher
	registry   *registry.Registry
	engine     Engine
	now        time.Time

	supervisor  *entity.Employee
	finance     *entity.BackOfficeUser
	treasury    *entity.BackOfficeUser
	budget      *entity.BackOfficeUser
	accounting  *entity.BackOfficeUser
	comptroller *entity.BackOfficeUser
	payer       *entity.BackOfficeUser
}

func newFixture(t *testing.T, opts ...EngineOption) *fixture {
	t.Helper()

	reg := registry.MustDefault()
	store := newMemStore()
	f := &fixture{
		store:    store,
		tx:       &mockTxManager{s: store},
		registry: reg,
		now:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		config: &mockConfig{values: map[string]string{
			entity.ConfigCountersignThreshold: "5000.00",
			entity.ConfigCashCeiling:          "0.00",
		}},
		directory: &mockDirectory{
			departments: map[string]int64{beneficiaryID: 10},
			chains: map[int64][]port.Approver{
				10: {{PersonID: supervisorID, Name: "Ana Jefe", Rank: 1}, {PersonID: "8-900-9", Rank: 2}},
			},
		},
		dispatcher: &mockDispatcher{},
		supervisor: &entity.Employee{
			PersonIDNumber:   supervisorID,
			Name:             "Ana Jefe",
			DepartmentID:     10,
			IsDepartmentHead: true,
			Permissions:      []string{entity.PermMissionApprove},
		},
	}

	desk := func(id int64, role string) *entity.BackOfficeUser {
		r, err := reg.RoleByName(role)
		if err != nil {
			t.Fatalf("role %s: %v", role, err)
		}
		return &entity.BackOfficeUser{AccountID: id, Username: role, Role: *r}
	}
	f.finance = desk(21, "FINANZAS")
	f.treasury = desk(22, "TESORERIA")
	f.budget = desk(23, "PRESUPUESTO")
	f.accounting = desk(24, "CONTABILIDAD")
	f.comptroller = desk(25, "FISCALIZACION_CGR")
	f.payer = desk(26, "PAGOS")

	deps := Deps{
		Registry:    reg,
		Missions:    &mockMissionRepo{s: store},
		History:     &mockHistoryRepo{s: store},
		Allocations: &mockAllocationRepo{s: store},
		Approvals:   &mockApprovalRepo{s: store},
		TxManager:   f.tx,
		Directory:   f.directory,
		Budget:      &mockBudget{codes: map[string]bool{budgetCode: true, "0.01.1.2.002": true}},
		Config:      f.config,
	}

	base := []EngineOption{
		WithDispatcher(f.dispatcher),
		WithClock(func() time.Time { return f.now }),
	}
	f.engine = NewEngine(deps, append(base, opts...)...)
	return f
}

func (f *fixture) stageID(t *testing.T, name domainwf.Stage) int {
	t.Helper()
	s, err := f.registry.StageByName(name)
	if err != nil {
		t.Fatalf("stage %s: %v", name, err)
	}
	return s.ID
}

func (f *fixture) newMission(t *testing.T, kind domainwf.RequestKind, total float64) int64 {
	t.Helper()
	m := &entity.Mission{
		Kind:          kind,
		BeneficiaryID: beneficiaryID,
		Objective:     "Gira de inspección a Chiriquí",
		Total:         entity.MoneyFromFloat(total),
		StageID:       f.stageID(t, domainwf.InitialStage),
	}
	if err := (&mockMissionRepo{s: f.store}).Create(context.Background(), m); err != nil {
		t.Fatalf("create mission: %v", err)
	}
	return m.ID
}

func (f *fixture) exec(t *testing.T, id int64, actor entity.Actor, action domainwf.Action, payload map[string]interface{}) *Outcome {
	t.Helper()
	out, err := f.engine.Execute(context.Background(), Command{
		MissionID: id,
		Actor:     actor,
		Action:    action,
		Comment:   "ok",
		Payload:   payload,
		ClientIP:  "10.0.0.7",
	})
	if err != nil {
		t.Fatalf("%s by %s: %v", action, actor.ID(), err)
	}
	return out
}

func (f *fixture) stageOf(t *testing.T, id int64) domainwf.Stage {
	t.Helper()
	s, err := f.registry.StageByID(f.store.mission(id).StageID)
	if err != nil {
		t.Fatalf("stage of mission %d: %v", id, err)
	}
	return s.Name
}

func allocation(amount float64) map[string]interface{} {
	return map[string]interface{}{
		KeyAllocations: []interface{}{
			map[string]interface{}{"codigo_partida": budgetCode, "monto": amount, "descripcion": "Viáticos"},
		},
	}
}

// toBudget drives a full-expense mission through supervisor, finance and treasury
func (f *fixture) toBudget(t *testing.T, id int64) {
	f.exec(t, id, f.supervisor, domainwf.ActionApprove, nil)
	f.exec(t, id, f.finance, domainwf.ActionApprove, nil)
	f.exec(t, id, f.treasury, domainwf.ActionApprove, nil)
}

func TestExecute_FullExpenseBelowThreshold(t *testing.T) {
	f := newFixture(t)
	id := f.newMission(t, domainwf.KindFullExpense, 4000)

	f.toBudget(t, id)
	out := f.exec(t, id, f.budget, domainwf.ActionApprove, allocation(4000))

	if out.NewStage != domainwf.StageApprovedForPayment {
		t.Fatalf("expected %s, got %s", domainwf.StageApprovedForPayment, out.NewStage)
	}
	if out.AllocatedTotal == nil || *out.AllocatedTotal != entity.MoneyFromFloat(4000) {
		t.Errorf("expected allocated total 4000.00, got %v", out.AllocatedTotal)
	}

	m := f.store.mission(id)
	if m.RequiresCountersignature {
		t.Error("expected no countersignature below threshold")
	}
	if m.Approvers.Supervisor != supervisorID || m.Approvers.Finance != "21" || m.Approvers.Treasury != "22" || m.Approvers.Budget != "23" {
		t.Errorf("unexpected approver slots: %+v", m.Approvers)
	}
	if m.ApprovedAmount == nil || *m.ApprovedAmount != m.Total {
		t.Errorf("expected approved amount to default to total, got %v", m.ApprovedAmount)
	}

	history := f.store.historyFor(id)
	if len(history) != 4 {
		t.Fatalf("expected 4 history entries, got %d", len(history))
	}
	// trajectory is reconstructible from history
	for i := 1; i < len(history); i++ {
		if history[i].PreviousStageID != history[i-1].NewStageID {
			t.Errorf("history gap between entries %d and %d", i-1, i)
		}
	}
	if history[0].ActorID != supervisorID {
		t.Errorf("expected supervisor person id on first entry, got %q", history[0].ActorID)
	}
	if history[1].ActorID != "21" || history[1].ActorKind != entity.ActorBackOfficeUser {
		t.Errorf("expected desk account id on second entry, got %q/%s", history[1].ActorID, history[1].ActorKind)
	}
	if history[0].ActorIP != "10.0.0.7" {
		t.Errorf("expected actor ip to be recorded, got %q", history[0].ActorIP)
	}
	if len(f.store.approvals) != 4 {
		t.Errorf("expected 4 approval records, got %d", len(f.store.approvals))
	}
}

func TestExecute_FullExpenseAboveThreshold(t *testing.T) {
	f := newFixture(t)
	id := f.newMission(t, domainwf.KindFullExpense, 6000)

	f.toBudget(t, id)
	out := f.exec(t, id, f.budget, domainwf.ActionApprove, allocation(6000))

	if out.NewStage != domainwf.StagePendingCountersign {
		t.Fatalf("expected %s, got %s", domainwf.StagePendingCountersign, out.NewStage)
	}
	if !f.store.mission(id).RequiresCountersignature {
		t.Error("expected countersignature flag")
	}

	out = f.exec(t, id, f.comptroller, domainwf.ActionApprove, map[string]interface{}{KeyCountersignNumber: "R-2026-118"})
	if out.NewStage != domainwf.StageApprovedForPayment {
		t.Errorf("expected %s, got %s", domainwf.StageApprovedForPayment, out.NewStage)
	}
	m := f.store.mission(id)
	if m.CountersignNumber != "R-2026-118" || m.Approvers.Comptroller != "25" {
		t.Errorf("expected countersign number and slot, got %q / %q", m.CountersignNumber, m.Approvers.Comptroller)
	}
}

func TestExecute_ThresholdReadOnEveryCall(t *testing.T) {
	f := newFixture(t)
	id := f.newMission(t, domainwf.KindFullExpense, 4000)
	f.toBudget(t, id)

	f.config.set(entity.ConfigCountersignThreshold, "3000")
	out := f.exec(t, id, f.budget, domainwf.ActionApprove, allocation(4000))

	if out.NewStage != domainwf.StagePendingCountersign {
		t.Errorf("expected lowered threshold to route to countersign, got %s", out.NewStage)
	}
}

func TestExecute_PettyCash(t *testing.T) {
	f := newFixture(t)
	id := f.newMission(t, domainwf.KindPettyCash, 90000)

	f.exec(t, id, f.supervisor, domainwf.ActionApprove, nil)
	out := f.exec(t, id, f.finance, domainwf.ActionApprove, nil)

	if out.NewStage != domainwf.StageApprovedForPayment {
		t.Errorf("expected petty cash to skip the back office, got %s", out.NewStage)
	}
}

func TestExecute_ReturnFromTreasury(t *testing.T) {
	f := newFixture(t)
	id := f.newMission(t, domainwf.KindFullExpense, 4000)

	f.exec(t, id, f.supervisor, domainwf.ActionApprove, nil)
	f.exec(t, id, f.finance, domainwf.ActionApprove, nil)
	out := f.exec(t, id, f.treasury, domainwf.ActionReturn, nil)

	if out.NewStage != domainwf.StagePendingSupervisor {
		t.Fatalf("expected return to supervisor stage, got %s", out.NewStage)
	}
	if got := f.dispatcher.types(); len(got) == 0 || got[len(got)-1] != event.TypeMissionReturned {
		t.Errorf("expected a returned event, got %v", got)
	}

	f.toBudget(t, id)
	if got := f.stageOf(t, id); got != domainwf.StagePendingBudget {
		t.Errorf("expected mission to re-enter the forward path, got %s", got)
	}
}

func TestExecute_ReturnRequiresComment(t *testing.T) {
	f := newFixture(t)
	id := f.newMission(t, domainwf.KindFullExpense, 4000)

	_, err := f.engine.Execute(context.Background(), Command{
		MissionID: id,
		Actor:     f.supervisor,
		Action:    domainwf.ActionReturn,
	})
	if !errors.Is(err, domainwf.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestExecute_CorrectionLoop(t *testing.T) {
	f := newFixture(t)
	id := f.newMission(t, domainwf.KindFullExpense, 4000)

	out := f.exec(t, id, f.supervisor, domainwf.ActionReturn, nil)
	if out.NewStage != domainwf.StageReturnedForCorrection {
		t.Fatalf("expected %s, got %s", domainwf.StageReturnedForCorrection, out.NewStage)
	}

	requester := &entity.Employee{PersonIDNumber: beneficiaryID, Permissions: []string{entity.PermMissionEdit}}
	out = f.exec(t, id, requester, domainwf.ActionRemediate, nil)
	if out.NewStage != domainwf.StagePendingSupervisor {
		t.Errorf("expected resubmission to supervisor stage, got %s", out.NewStage)
	}

	history := f.store.historyFor(id)
	if last := history[len(history)-1]; last.ActorID != "" {
		t.Errorf("expected null actor id for a non-supervisor employee, got %q", last.ActorID)
	}
}

func TestExecute_Payment(t *testing.T) {
	approved := func(t *testing.T, f *fixture) int64 {
		id := f.newMission(t, domainwf.KindPettyCash, 150)
		f.exec(t, id, f.supervisor, domainwf.ActionApprove, nil)
		f.exec(t, id, f.finance, domainwf.ActionApprove, nil)
		return id
	}

	t.Run("cash settles in one step", func(t *testing.T) {
		f := newFixture(t)
		id := approved(t, f)

		out := f.exec(t, id, f.payer, domainwf.ActionProcessPayment, map[string]interface{}{KeyPaymentMethod: "efectivo"})
		if out.NewStage != domainwf.StagePaid {
			t.Fatalf("expected %s, got %s", domainwf.StagePaid, out.NewStage)
		}
		m := f.store.mission(id)
		if m.PaidAt == nil || !m.PaidAt.Equal(f.now) {
			t.Errorf("expected paid-at to be stamped, got %v", m.PaidAt)
		}
		if m.PaymentMethod != string(domainwf.PaymentCash) {
			t.Errorf("expected EFECTIVO, got %q", m.PaymentMethod)
		}
		if got := f.dispatcher.types(); got[len(got)-1] != event.TypeMissionPaid {
			t.Errorf("expected paid event, got %v", got)
		}

		_, err := f.engine.Execute(context.Background(), Command{MissionID: id, Actor: f.payer, Action: domainwf.ActionConfirmPayment})
		if !errors.Is(err, domainwf.ErrInvalidTransition) {
			t.Errorf("expected terminal stage to refuse actions, got %v", err)
		}
	})

	t.Run("transfer waits for signature", func(t *testing.T) {
		f := newFixture(t)
		id := approved(t, f)

		out := f.exec(t, id, f.payer, domainwf.ActionProcessPayment, map[string]interface{}{
			KeyPaymentMethod:     "TRANSFERENCIA",
			KeyTransactionNumber: 778812,
			KeySourceBank:        "Banco Nacional",
		})
		if out.NewStage != domainwf.StagePendingSignature {
			t.Fatalf("expected %s, got %s", domainwf.StagePendingSignature, out.NewStage)
		}
		m := f.store.mission(id)
		if m.PaidAt != nil {
			t.Error("expected paid-at to stay empty until confirmation")
		}
		if m.PaymentReference != "778812" || m.PaymentBank != "Banco Nacional" {
			t.Errorf("unexpected payment details %q / %q", m.PaymentReference, m.PaymentBank)
		}

		out = f.exec(t, id, f.payer, domainwf.ActionConfirmPayment, map[string]interface{}{KeyPaymentDate: "2026-03-05"})
		if out.NewStage != domainwf.StagePaid {
			t.Errorf("expected %s, got %s", domainwf.StagePaid, out.NewStage)
		}
		if paid := f.store.mission(id).PaidAt; paid == nil || paid.Day() != 5 {
			t.Errorf("expected paid-at from payload, got %v", paid)
		}
	})

	tests := []struct {
		name    string
		payload map[string]interface{}
		ceiling string
	}{
		{"missing method", map[string]interface{}{}, ""},
		{"unknown method", map[string]interface{}{KeyPaymentMethod: "CHEQUE"}, ""},
		{"transfer without reference", map[string]interface{}{KeyPaymentMethod: "ACH"}, ""},
		{"cash above ceiling", map[string]interface{}{KeyPaymentMethod: "EFECTIVO"}, "100.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := approved(t, f)
			if tt.ceiling != "" {
				f.config.set(entity.ConfigCashCeiling, tt.ceiling)
			}
			before := f.store.mission(id)

			_, err := f.engine.Execute(context.Background(), Command{
				MissionID: id, Actor: f.payer, Action: domainwf.ActionProcessPayment, Payload: tt.payload,
			})
			if !errors.Is(err, domainwf.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if after := f.store.mission(id); after.StageID != before.StageID || after.PaymentMethod != "" {
				t.Error("expected no mutation on validation failure")
			}
		})
	}

	t.Run("cash without ceiling configured", func(t *testing.T) {
		f := newFixture(t)
		id := approved(t, f)
		f.config.unset(entity.ConfigCashCeiling)
		before := f.store.mission(id)

		_, err := f.engine.Execute(context.Background(), Command{
			MissionID: id, Actor: f.payer, Action: domainwf.ActionProcessPayment,
			Payload: map[string]interface{}{KeyPaymentMethod: "EFECTIVO"},
		})
		if !errors.Is(err, domainwf.ErrConfiguration) {
			t.Fatalf("expected ErrConfiguration, got %v", err)
		}
		if after := f.store.mission(id); after.StageID != before.StageID || after.PaidAt != nil {
			t.Error("expected no mutation on configuration failure")
		}
	})

	t.Run("transfer ignores missing ceiling", func(t *testing.T) {
		f := newFixture(t)
		id := approved(t, f)
		f.config.unset(entity.ConfigCashCeiling)

		out := f.exec(t, id, f.payer, domainwf.ActionProcessPayment, map[string]interface{}{
			KeyPaymentMethod:     "ACH",
			KeyTransactionNumber: "ACH-5521",
		})
		if out.NewStage != domainwf.StagePendingSignature {
			t.Errorf("expected %s, got %s", domainwf.StagePendingSignature, out.NewStage)
		}
	})
}

func TestExecute_PermissionDenied(t *testing.T) {
	f := newFixture(t)
	id := f.newMission(t, domainwf.KindFullExpense, 4000)
	f.toBudget(t, id)
	historyBefore := len(f.store.historyFor(id))

	_, err := f.engine.Execute(context.Background(), Command{
		MissionID: id, Actor: f.treasury, Action: domainwf.ActionApprove, Payload: allocation(4000),
	})
	if !errors.Is(err, domainwf.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if f.stageOf(t, id) != domainwf.StagePendingBudget {
		t.Error("expected stage unchanged")
	}
	if len(f.store.historyFor(id)) != historyBefore {
		t.Error("expected no history entry for a denied action")
	}
}

func TestExecute_SupervisorMustLeadBeneficiaryDepartment(t *testing.T) {
	f := newFixture(t)
	id := f.newMission(t, domainwf.KindFullExpense, 4000)

	otherHead := &entity.Employee{
		PersonIDNumber:   "8-300-3",
		DepartmentID:     20,
		IsDepartmentHead: true,
		Permissions:      []string{entity.PermMissionApprove},
	}
	_, err := f.engine.Execute(context.Background(), Command{MissionID: id, Actor: otherHead, Action: domainwf.ActionApprove})
	if !errors.Is(err, domainwf.ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}

	notHead := &entity.Employee{PersonIDNumber: supervisorID, Permissions: []string{entity.PermMissionApprove}}
	_, err = f.engine.Execute(context.Background(), Command{MissionID: id, Actor: notHead, Action: domainwf.ActionApprove})
	if !errors.Is(err, domainwf.ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied without department-head flag, got %v", err)
	}

	// desk accounts pass the supervisor gate on capability alone
	out := f.exec(t, id, f.finance, domainwf.ActionApprove, nil)
	if out.NewStage != domainwf.StagePendingFinance {
		t.Errorf("expected desk approval at supervisor stage, got %s", out.NewStage)
	}
	if f.store.mission(id).Approvers.Supervisor != "21" {
		t.Error("expected desk account id in supervisor slot")
	}
}

func TestExecute_BudgetValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
	}{
		{"missing allocations", nil},
		{"empty allocations", map[string]interface{}{KeyAllocations: []interface{}{}}},
		{"unknown code", map[string]interface{}{KeyAllocations: []interface{}{
			map[string]interface{}{"codigo_partida": "9.99", "monto": 4000},
		}}},
		{"non-positive amount", map[string]interface{}{KeyAllocations: []interface{}{
			map[string]interface{}{"codigo_partida": budgetCode, "monto": 0},
		}}},
		{"malformed amount", map[string]interface{}{KeyAllocations: []interface{}{
			map[string]interface{}{"codigo_partida": budgetCode, "monto": "cuatro mil"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.newMission(t, domainwf.KindFullExpense, 4000)
			f.toBudget(t, id)

			_, err := f.engine.Execute(context.Background(), Command{
				MissionID: id, Actor: f.budget, Action: domainwf.ActionApprove, Payload: tt.payload,
			})
			if !errors.Is(err, domainwf.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if len(f.store.allocations[id]) != 0 {
				t.Error("expected no allocation rows")
			}
		})
	}
}

func TestExecute_AllocationPolicy(t *testing.T) {
	t.Run("allow divergence records a warning", func(t *testing.T) {
		f := newFixture(t)
		id := f.newMission(t, domainwf.KindFullExpense, 4000)
		f.toBudget(t, id)

		out := f.exec(t, id, f.budget, domainwf.ActionApprove, allocation(3500))
		if len(out.Warnings) != 1 {
			t.Errorf("expected one warning, got %v", out.Warnings)
		}
		if f.store.mission(id).Total != entity.MoneyFromFloat(4000) {
			t.Error("expected stored total to be unchanged")
		}
		history := f.store.historyFor(id)
		if history[len(history)-1].ExtraData[ExtraAllocationDiff] != "-500.00" {
			t.Errorf("expected divergence in extra data, got %v", history[len(history)-1].ExtraData)
		}
	})

	t.Run("require match rejects divergence", func(t *testing.T) {
		f := newFixture(t, WithAllocationPolicy(RequireMatch))
		id := f.newMission(t, domainwf.KindFullExpense, 4000)
		f.toBudget(t, id)

		_, err := f.engine.Execute(context.Background(), Command{
			MissionID: id, Actor: f.budget, Action: domainwf.ActionApprove, Payload: allocation(3500),
		})
		if !errors.Is(err, domainwf.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("reallocation replaces rows", func(t *testing.T) {
		f := newFixture(t)
		id := f.newMission(t, domainwf.KindFullExpense, 6000)
		f.toBudget(t, id)
		f.exec(t, id, f.budget, domainwf.ActionApprove, allocation(6000))
		f.exec(t, id, f.comptroller, domainwf.ActionRemediate, nil)
		f.toBudget(t, id)

		f.exec(t, id, f.budget, domainwf.ActionApprove, map[string]interface{}{KeyAllocations: []interface{}{
			map[string]interface{}{"codigo_partida": budgetCode, "monto": "2500.00"},
			map[string]interface{}{"codigo_partida": "0.01.1.2.002", "monto": 3500},
		}})
		if n := len(f.store.allocations[id]); n != 2 {
			t.Errorf("expected 2 allocation rows after replacement, got %d", n)
		}
	})
}

func TestExecute_AccountingReview(t *testing.T) {
	f := newFixture(t)
	f.config.set(entity.ConfigAccountingReview, "true")
	id := f.newMission(t, domainwf.KindFullExpense, 4000)
	f.toBudget(t, id)

	out := f.exec(t, id, f.budget, domainwf.ActionApprove, allocation(4000))
	if out.NewStage != domainwf.StagePendingAccounting {
		t.Fatalf("expected %s, got %s", domainwf.StagePendingAccounting, out.NewStage)
	}

	out = f.exec(t, id, f.accounting, domainwf.ActionApprove, map[string]interface{}{KeyVoucherNumber: "CMP-77"})
	if out.NewStage != domainwf.StageApprovedForPayment {
		t.Errorf("expected %s, got %s", domainwf.StageApprovedForPayment, out.NewStage)
	}
	if m := f.store.mission(id); m.AccountingVoucher != "CMP-77" || m.Approvers.Accounting != "24" {
		t.Errorf("unexpected accounting effects: %q / %q", m.AccountingVoucher, m.Approvers.Accounting)
	}
}

func TestExecute_ConfigMissing(t *testing.T) {
	f := newFixture(t)
	f.config.unset(entity.ConfigCountersignThreshold)
	id := f.newMission(t, domainwf.KindFullExpense, 4000)

	// approvals before the budget desk never branch on the threshold
	f.toBudget(t, id)
	before := f.store.mission(id)

	_, err := f.engine.Execute(context.Background(), Command{
		MissionID: id, Actor: f.budget, Action: domainwf.ActionApprove, Payload: allocation(4000),
	})
	if !errors.Is(err, domainwf.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if after := f.store.mission(id); after.StageID != before.StageID || after.Approvers.Budget != "" {
		t.Error("expected stage unchanged")
	}
	if n := len(f.store.allocations[id]); n != 0 {
		t.Errorf("expected no allocations written, got %d", n)
	}

	f.config.set(entity.ConfigCountersignThreshold, "cinco mil")
	_, err = f.engine.Execute(context.Background(), Command{
		MissionID: id, Actor: f.budget, Action: domainwf.ActionApprove, Payload: allocation(4000),
	})
	if !errors.Is(err, domainwf.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for malformed threshold, got %v", err)
	}

	f.config.unset(entity.ConfigCountersignThreshold)
	out := f.exec(t, id, f.budget, domainwf.ActionReject, map[string]interface{}{KeyComments: "sin disponibilidad"})
	if out.NewStage != domainwf.StageRejected {
		t.Errorf("expected rejection without the threshold, got %s", out.NewStage)
	}
}

func TestExecute_RollbackOnHistoryFailure(t *testing.T) {
	f := newFixture(t)
	id := f.newMission(t, domainwf.KindFullExpense, 4000)
	f.toBudget(t, id)
	before := f.store.mission(id)

	f.store.historyErr = errDiskFull
	_, err := f.engine.Execute(context.Background(), Command{
		MissionID: id, Actor: f.budget, Action: domainwf.ActionApprove, Payload: allocation(4000),
	})
	if !errors.Is(err, domainwf.ErrInfrastructure) || !errors.Is(err, errDiskFull) {
		t.Fatalf("expected infrastructure error wrapping the cause, got %v", err)
	}

	after := f.store.mission(id)
	if after.StageID != before.StageID || after.Approvers.Budget != "" {
		t.Error("expected stage and slots unchanged after rollback")
	}
	if len(f.store.allocations[id]) != 0 {
		t.Error("expected allocations rolled back")
	}
	if len(f.store.historyFor(id)) != 3 {
		t.Error("expected no new history entry")
	}
}

func TestExecute_NotificationFailureDoesNotFailTransition(t *testing.T) {
	d := dispatcher.NewDispatcher()
	d.Subscribe(event.TypeTransitionCommitted, func(ctx context.Context, evt *event.Event) error {
		return errors.New("smtp unavailable")
	})
	d.Subscribe(event.TypeTransitionCommitted, func(ctx context.Context, evt *event.Event) error {
		panic("broken sink")
	})

	f := newFixture(t, WithDispatcher(d))
	id := f.newMission(t, domainwf.KindFullExpense, 4000)

	out := f.exec(t, id, f.supervisor, domainwf.ActionApprove, nil)
	if err := d.Close(); err != nil {
		t.Fatalf("close dispatcher: %v", err)
	}
	if out.NewStage != domainwf.StagePendingFinance || f.stageOf(t, id) != domainwf.StagePendingFinance {
		t.Errorf("expected committed transition despite sink failure, got %s", out.NewStage)
	}
}

func TestExecute_InvalidTransitions(t *testing.T) {
	f := newFixture(t)
	id := f.newMission(t, domainwf.KindFullExpense, 4000)

	tests := []struct {
		name   string
		action domainwf.Action
	}{
		{"undefined at stage", domainwf.ActionConfirmPayment},
		{"remediate at supervisor", domainwf.ActionRemediate},
		{"unknown action", domainwf.Action("ANULAR")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Execute(context.Background(), Command{MissionID: id, Actor: f.supervisor, Action: tt.action})
			if !errors.Is(err, domainwf.ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}

	_, err := f.engine.Execute(context.Background(), Command{MissionID: 999, Actor: f.supervisor, Action: domainwf.ActionApprove})
	if !errors.Is(err, domainwf.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing mission, got %v", err)
	}
}

func TestExecute_RejectFromBackOffice(t *testing.T) {
	f := newFixture(t)
	id := f.newMission(t, domainwf.KindFullExpense, 4000)
	f.exec(t, id, f.supervisor, domainwf.ActionApprove, nil)

	out := f.exec(t, id, f.finance, domainwf.ActionReject, nil)
	if out.NewStage != domainwf.StageRejected {
		t.Fatalf("expected %s, got %s", domainwf.StageRejected, out.NewStage)
	}
	if f.store.mission(id).Approvers.Finance != "" {
		t.Error("expected rejection not to fill the finance slot")
	}
	if got := f.dispatcher.types(); got[len(got)-1] != event.TypeMissionRejected {
		t.Errorf("expected rejected event, got %v", got)
	}
}

func TestExecute_OptimisticStageCheck(t *testing.T) {
	f := newFixture(t, WithOptimisticStageCheck(true))
	id := f.newMission(t, domainwf.KindFullExpense, 4000)
	rejected := f.stageID(t, domainwf.StageRejected)

	// a concurrent writer moves the mission between re-read and write
	f.store.beforeUpdate = func(m map[int64]entity.Mission) {
		mm := m[id]
		mm.StageID = rejected
		m[id] = mm
	}

	_, err := f.engine.Execute(context.Background(), Command{MissionID: id, Actor: f.supervisor, Action: domainwf.ActionApprove})
	if !errors.Is(err, domainwf.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on stage conflict, got %v", err)
	}
}

func TestExecute_LockerAndMetrics(t *testing.T) {
	locker := &mockLocker{}
	metrics := &mockMetrics{}
	f := newFixture(t, WithLocker(locker), WithMetrics(metrics))
	id := f.newMission(t, domainwf.KindFullExpense, 4000)

	f.exec(t, id, f.supervisor, domainwf.ActionApprove, nil)
	_, _ = f.engine.Execute(context.Background(), Command{MissionID: id, Actor: f.payer, Action: domainwf.ActionApprove})

	if locker.locked != 2 || locker.unlocked != 2 {
		t.Errorf("expected 2 lock/unlock pairs, got %d/%d", locker.locked, locker.unlocked)
	}
	if metrics.transitions != 1 {
		t.Errorf("expected 1 committed transition, got %d", metrics.transitions)
	}
	if metrics.actions["APROBAR/ok"] != 1 || metrics.actions["APROBAR/permission_denied"] != 1 {
		t.Errorf("unexpected action metrics: %v", metrics.actions)
	}

	locker.err = errors.New("redis unreachable")
	_, err := f.engine.Execute(context.Background(), Command{MissionID: id, Actor: f.finance, Action: domainwf.ActionApprove})
	if !errors.Is(err, domainwf.ErrInfrastructure) {
		t.Errorf("expected ErrInfrastructure when the lock fails, got %v", err)
	}
}

func TestHistoryAndAvailableActions(t *testing.T) {
	f := newFixture(t)
	id := f.newMission(t, domainwf.KindFullExpense, 4000)
	f.exec(t, id, f.supervisor, domainwf.ActionApprove, nil)

	entries, err := f.engine.History(context.Background(), id)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d (%v)", len(entries), err)
	}

	if _, err := f.engine.History(context.Background(), 999); !errors.Is(err, domainwf.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	actions, err := f.engine.AvailableActions(context.Background(), id, f.finance)
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 3 {
		t.Errorf("expected approve, return and reject for finance, got %v", actions)
	}

	actions, err = f.engine.AvailableActions(context.Background(), id, f.payer)
	if err != nil || len(actions) != 0 {
		t.Errorf("expected no actions for payer at finance stage, got %v (%v)", actions, err)
	}
}

func TestInbox(t *testing.T) {
	f := newFixture(t)
	atSupervisor := f.newMission(t, domainwf.KindFullExpense, 4000)
	atFinance := f.newMission(t, domainwf.KindFullExpense, 4000)
	f.exec(t, atFinance, f.supervisor, domainwf.ActionApprove, nil)

	f.directory.departments["8-555-5"] = 30
	f.directory.chains[30] = []port.Approver{{PersonID: "8-300-3", Rank: 1}}
	other := &entity.Mission{Kind: domainwf.KindFullExpense, BeneficiaryID: "8-555-5", Total: 100, StageID: f.stageID(t, domainwf.StagePendingSupervisor)}
	if err := (&mockMissionRepo{s: f.store}).Create(context.Background(), other); err != nil {
		t.Fatal(err)
	}

	inbox, err := f.engine.Inbox(context.Background(), f.supervisor, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	got := inboxIDs(inbox)
	if !got[atSupervisor] || got[other.ID] {
		t.Errorf("expected the supervisor's own department only, got %v", got)
	}

	inbox, err = f.engine.Inbox(context.Background(), f.treasury, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	// desk accounts with MISSION_APPROVE pass the supervisor gate for every department
	got = inboxIDs(inbox)
	if !got[atSupervisor] || !got[other.ID] || !got[atFinance] {
		t.Errorf("expected supervisor and finance stage missions for the treasury desk, got %v", got)
	}

	inbox, err = f.engine.Inbox(context.Background(), f.payer, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(inbox) != 0 {
		t.Errorf("expected empty payer inbox, got %d missions", len(inbox))
	}
}

func inboxIDs(missions []*entity.Mission) map[int64]bool {
	out := make(map[int64]bool, len(missions))
	for _, m := range missions {
		out[m.ID] = true
	}
	return out
}
