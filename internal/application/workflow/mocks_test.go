package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/dispatcher"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/event"
	domainwf "github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

// memStore backs every repository mock so the tx manager can snapshot and
// restore it as a unit
type memStore struct {
	mu          sync.Mutex
	missions    map[int64]entity.Mission
	history     []*entity.HistoryEntry
	allocations map[int64][]*entity.BudgetAllocation
	approvals   []*entity.ApprovalRecord
	nextID      int64

	historyErr   error
	updateErr    error
	beforeUpdate func(m map[int64]entity.Mission)
}

func newMemStore() *memStore {
	return &memStore{
		missions:    make(map[int64]entity.Mission),
		allocations: make(map[int64][]*entity.BudgetAllocation),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) mission(id int64) entity.Mission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missions[id]
}

func (s *memStore) historyFor(id int64) []*entity.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.HistoryEntry
	for _, h := range s.history {
		if h.MissionID == id {
			out = append(out, h)
		}
	}
	return out
}

type snapshot struct {
	missions    map[int64]entity.Mission
	history     []*entity.HistoryEntry
	allocations map[int64][]*entity.BudgetAllocation
	approvals   []*entity.ApprovalRecord
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		missions:    make(map[int64]entity.Mission, len(s.missions)),
		history:     append([]*entity.HistoryEntry(nil), s.history...),
		allocations: make(map[int64][]*entity.BudgetAllocation, len(s.allocations)),
		approvals:   append([]*entity.ApprovalRecord(nil), s.approvals...),
	}
	for k, v := range s.missions {
		snap.missions[k] = v
	}
	for k, v := range s.allocations {
		snap.allocations[k] = v
	}
	return snap
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missions = snap.missions
	s.history = snap.history
	s.allocations = snap.allocations
	s.approvals = snap.approvals
}

type mockMissionRepo struct{ s *memStore }

func (m *mockMissionRepo) Create(ctx context.Context, mission *entity.Mission) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if mission.ID == 0 {
		mission.ID = m.s.id()
	}
	m.s.missions[mission.ID] = *mission
	return nil
}

func (m *mockMissionRepo) GetByID(ctx context.Context, id int64) (*entity.Mission, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	mission, ok := m.s.missions[id]
	if !ok {
		return nil, fmt.Errorf("%w: mission %d", domainwf.ErrNotFound, id)
	}
	return &mission, nil
}

func (m *mockMissionRepo) Update(ctx context.Context, mission *entity.Mission, expectedStageID int) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.beforeUpdate != nil {
		m.s.beforeUpdate(m.s.missions)
	}
	if m.s.updateErr != nil {
		return m.s.updateErr
	}
	stored, ok := m.s.missions[mission.ID]
	if !ok {
		return fmt.Errorf("%w: mission %d", domainwf.ErrNotFound, mission.ID)
	}
	if expectedStageID != 0 && stored.StageID != expectedStageID {
		return fmt.Errorf("%w: mission %d changed stage concurrently", domainwf.ErrInvalidTransition, mission.ID)
	}
	mission.Version = stored.Version + 1
	m.s.missions[mission.ID] = *mission
	return nil
}

func (m *mockMissionRepo) ListByStages(ctx context.Context, stageIDs []int, limit, offset int) ([]*entity.Mission, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	want := map[int]bool{}
	for _, id := range stageIDs {
		want[id] = true
	}
	var out []*entity.Mission
	for _, mission := range m.s.missions {
		if want[mission.StageID] {
			mm := mission
			out = append(out, &mm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type mockHistoryRepo struct{ s *memStore }

func (m *mockHistoryRepo) Append(ctx context.Context, entry *entity.HistoryEntry) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.historyErr != nil {
		return m.s.historyErr
	}
	entry.ID = m.s.id()
	m.s.history = append(m.s.history, entry)
	return nil
}

func (m *mockHistoryRepo) ListByMission(ctx context.Context, missionID int64) ([]*entity.HistoryEntry, error) {
	return m.s.historyFor(missionID), nil
}

type mockAllocationRepo struct{ s *memStore }

func (m *mockAllocationRepo) ReplaceForMission(ctx context.Context, missionID int64, allocations []*entity.BudgetAllocation) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.allocations[missionID] = allocations
	return nil
}

func (m *mockAllocationRepo) ListByMission(ctx context.Context, missionID int64) ([]*entity.BudgetAllocation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.allocations[missionID], nil
}

type mockApprovalRepo struct{ s *memStore }

func (m *mockApprovalRepo) Append(ctx context.Context, record *entity.ApprovalRecord) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	record.ID = m.s.id()
	m.s.approvals = append(m.s.approvals, record)
	return nil
}

func (m *mockApprovalRepo) ListByMission(ctx context.Context, missionID int64) ([]*entity.ApprovalRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*entity.ApprovalRecord
	for _, r := range m.s.approvals {
		if r.MissionID == missionID {
			out = append(out, r)
		}
	}
	return out, nil
}

// mockTxManager restores the store when fn fails
type mockTxManager struct {
	s     *memStore
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	snap := m.s.snapshot()
	if err := fn(ctx); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

type mockDirectory struct {
	departments map[string]int64
	chains      map[int64][]port.Approver
	err         error
}

func (m *mockDirectory) DepartmentOf(ctx context.Context, personID string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	d, ok := m.departments[personID]
	if !ok {
		return 0, fmt.Errorf("%w: person %s", domainwf.ErrNotFound, personID)
	}
	return d, nil
}

func (m *mockDirectory) ApproverChain(ctx context.Context, departmentID int64) ([]port.Approver, error) {
	return m.chains[departmentID], nil
}

type mockBudget struct {
	codes map[string]bool
}

func (m *mockBudget) ValidCodes(ctx context.Context, codes []string) (map[string]bool, error) {
	out := make(map[string]bool, len(codes))
	for _, c := range codes {
		out[c] = m.codes[c]
	}
	return out, nil
}

type mockConfig struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *mockConfig) set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *mockConfig) unset(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

func (m *mockConfig) lookup(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %w: %s", domainwf.ErrConfiguration, port.ErrConfigMissing, key)
	}
	return v, nil
}

func (m *mockConfig) Decimal(ctx context.Context, key string) (int64, error) {
	v, err := m.lookup(key)
	if err != nil {
		return 0, err
	}
	money, err := entity.ParseMoney(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domainwf.ErrConfiguration, key, err)
	}
	return money.Cents(), nil
}

func (m *mockConfig) Int(ctx context.Context, key string) (int64, error) {
	v, err := m.lookup(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domainwf.ErrConfiguration, key, err)
	}
	return n, nil
}

func (m *mockConfig) Bool(ctx context.Context, key string) (bool, error) {
	v, err := m.lookup(key)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", domainwf.ErrConfiguration, key, err)
	}
	return b, nil
}

func (m *mockConfig) String(ctx context.Context, key string) (string, error) {
	return m.lookup(key)
}

type mockDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockDispatcher) Subscribe(eventType event.Type, handler dispatcher.Handler) {}

func (m *mockDispatcher) SubscribeNamed(eventType event.Type, name string, handler dispatcher.Handler) {
}

func (m *mockDispatcher) Unsubscribe(eventType event.Type, name string) {}

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	_ = m.Dispatch(ctx, evt)
}

func (m *mockDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo { return nil }

func (m *mockDispatcher) Close() error { return nil }

func (m *mockDispatcher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Type, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

type mockLocker struct {
	locked   int
	unlocked int
	err      error
}

func (m *mockLocker) Lock(ctx context.Context, missionID int64) (func(), error) {
	if m.err != nil {
		return nil, m.err
	}
	m.locked++
	return func() { m.unlocked++ }, nil
}

type mockMetrics struct {
	mu          sync.Mutex
	actions     map[string]int
	transitions int
}

func (m *mockMetrics) ObserveAction(action, class string, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.actions == nil {
		m.actions = map[string]int{}
	}
	m.actions[action+"/"+class]++
}

func (m *mockMetrics) ObserveTransition(from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions++
}

var errDiskFull = errors.New("disk full")
