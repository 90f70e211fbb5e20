package registry

import (
	"fmt"
	"sort"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

// Registry is the read-only index of stages and roles. It is never mutated
// after New and is safe for concurrent readers.
type Registry struct {
	table *workflow.Table

	stagesByName map[workflow.Stage]*entity.Stage
	stagesByID   map[int]*entity.Stage
	ordered      []*entity.Stage

	rolesByName map[string]*entity.Role
	rolesByID   map[int]*entity.Role
}

// New validates the catalog against the transition table and builds the indices
func New(catalog *Catalog, table *workflow.Table) (*Registry, error) {
	if catalog == nil || table == nil {
		return nil, fmt.Errorf("%w: catalog and table are required", workflow.ErrConfiguration)
	}

	r := &Registry{
		table:        table,
		stagesByName: make(map[workflow.Stage]*entity.Stage, len(catalog.Stages)),
		stagesByID:   make(map[int]*entity.Stage, len(catalog.Stages)),
		rolesByName:  make(map[string]*entity.Role, len(catalog.Roles)),
		rolesByID:    make(map[int]*entity.Role, len(catalog.Roles)),
	}

	for i := range catalog.Stages {
		s := copyStage(catalog.Stages[i])
		if s.ID <= 0 {
			return nil, fmt.Errorf("%w: stage %s has no id", workflow.ErrConfiguration, s.Name)
		}
		if !s.Name.IsValid() {
			return nil, fmt.Errorf("%w: unknown stage name %q", workflow.ErrConfiguration, s.Name)
		}
		if _, dup := r.stagesByID[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate stage id %d", workflow.ErrConfiguration, s.ID)
		}
		if _, dup := r.stagesByName[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate stage name %s", workflow.ErrConfiguration, s.Name)
		}
		if s.Terminal != s.Name.IsTerminal() || (s.Terminal && table.HasRules(s.Name)) {
			return nil, fmt.Errorf("%w: terminal flag of %s disagrees with the transition table", workflow.ErrConfiguration, s.Name)
		}
		r.stagesByID[s.ID] = s
		r.stagesByName[s.Name] = s
		r.ordered = append(r.ordered, s)
	}

	for _, name := range table.ReferencedStages() {
		if _, ok := r.stagesByName[name]; !ok {
			return nil, fmt.Errorf("%w: stage %s referenced by the transition table is missing", workflow.ErrConfiguration, name)
		}
	}

	sort.SliceStable(r.ordered, func(i, j int) bool { return r.ordered[i].Order < r.ordered[j].Order })

	for i := range catalog.Roles {
		role := catalog.Roles[i]
		role.Permissions = append([]string(nil), role.Permissions...)
		if _, dup := r.rolesByID[role.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate role id %d", workflow.ErrConfiguration, role.ID)
		}
		if _, dup := r.rolesByName[role.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate role name %s", workflow.ErrConfiguration, role.Name)
		}
		r.rolesByID[role.ID] = &role
		r.rolesByName[role.Name] = &role
	}

	return r, nil
}

// MustDefault builds the registry from the embedded catalog and the mission flow
func MustDefault() *Registry {
	r, err := New(DefaultCatalog(), workflow.MissionFlow())
	if err != nil {
		panic(err)
	}
	return r
}

// Table returns the transition table the registry was validated against
func (r *Registry) Table() *workflow.Table { return r.table }

// StageByName looks up a stage, returning ErrNotFound when absent
func (r *Registry) StageByName(name workflow.Stage) (*entity.Stage, error) {
	s, ok := r.stagesByName[name]
	if !ok {
		return nil, fmt.Errorf("%w: stage %s", workflow.ErrNotFound, name)
	}
	return s, nil
}

// StageByID looks up a stage, returning ErrNotFound when absent
func (r *Registry) StageByID(id int) (*entity.Stage, error) {
	s, ok := r.stagesByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: stage id %d", workflow.ErrNotFound, id)
	}
	return s, nil
}

// Stages returns all stages sorted by display order
func (r *Registry) Stages() []*entity.Stage {
	return append([]*entity.Stage(nil), r.ordered...)
}

// RoleByName looks up a role
func (r *Registry) RoleByName(name string) (*entity.Role, error) {
	role, ok := r.rolesByName[name]
	if !ok {
		return nil, fmt.Errorf("%w: role %s", workflow.ErrNotFound, name)
	}
	return role, nil
}

// RoleByID looks up a role
func (r *Registry) RoleByID(id int) (*entity.Role, error) {
	role, ok := r.rolesByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: role id %d", workflow.ErrNotFound, id)
	}
	return role, nil
}

func copyStage(s entity.Stage) *entity.Stage {
	s.Requires = append([]string(nil), s.Requires...)
	return &s
}
