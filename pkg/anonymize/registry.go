package anonymize

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/dbsmedya/goanonymize/internal/sqlutil"
)

// DefaultPrimaryKey is used when a model does not implement KeyedModel.
const DefaultPrimaryKey = "id"

// Type is the resolved declaration of one anonymizable model.
type Type struct {
	Name               string
	Table              string
	PrimaryKey         string
	Condition          *Condition
	SoftDeleteColumn   string
	IncludeSoftDeleted bool
	Relations          map[string]Relation
	Model              Model
}

// NewType resolves m's optional capabilities into a Type.
func NewType(m Model) (*Type, error) {
	if isNil(m) {
		return nil, &ContractError{Model: fmt.Sprintf("%T", m), Reason: "nil model"}
	}
	t := &Type{
		Name:               m.Name(),
		Table:              m.Table(),
		PrimaryKey:         DefaultPrimaryKey,
		IncludeSoftDeleted: true,
		Model:              m,
	}
	if t.Name == "" {
		return nil, &ContractError{Model: fmt.Sprintf("%T", m), Reason: "empty model name"}
	}
	if t.Table == "" {
		return nil, &ContractError{Model: t.Name, Reason: "empty table name"}
	}

	if km, ok := m.(KeyedModel); ok && km.PrimaryKey() != "" {
		t.PrimaryKey = km.PrimaryKey()
	}
	if sm, ok := m.(ScopedModel); ok {
		cond := sm.AnonymizeCondition()
		if cond.Where != "" {
			t.Condition = &cond
		}
	}
	if sd, ok := m.(SoftDeletable); ok {
		t.SoftDeleteColumn = sd.SoftDeleteColumn()
		t.IncludeSoftDeleted = sd.AnonymizeTrashed()
	}
	if rm, ok := m.(RelatedModel); ok {
		t.Relations = rm.Relations()
	}
	return t, nil
}

// Validate checks that every identifier the engine will interpolate into
// SQL is well formed.
func (t *Type) Validate() error {
	check := func(what, name string) error {
		if !sqlutil.IsValidIdentifier(name) {
			return &ContractError{Model: t.Name, Reason: fmt.Sprintf("invalid %s %q", what, name)}
		}
		return nil
	}

	if err := check("table", t.Table); err != nil {
		return err
	}
	if err := check("primary key", t.PrimaryKey); err != nil {
		return err
	}
	if t.SoftDeleteColumn != "" {
		if err := check("soft delete column", t.SoftDeleteColumn); err != nil {
			return err
		}
	}
	for name, rel := range t.Relations {
		switch rel.Kind {
		case HasMany, HasOne, BelongsTo:
		default:
			return &ContractError{Model: t.Name, Reason: fmt.Sprintf("relation %q has unknown kind %q", name, rel.Kind)}
		}
		if err := check("relation table", rel.Table); err != nil {
			return err
		}
		if err := check("relation foreign key", rel.ForeignKey); err != nil {
			return err
		}
		if rel.OwnerKey != "" {
			if err := check("relation owner key", rel.OwnerKey); err != nil {
				return err
			}
		}
	}
	return nil
}

// Registry holds models in registration order.
type Registry struct {
	mu    sync.RWMutex
	types []*Type
	index map[string]*Type
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]*Type)}
}

// Register adds m. Names must be unique within a registry.
func (r *Registry) Register(m Model) error {
	t, err := NewType(m)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[t.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, t.Name)
	}
	r.types = append(r.types, t)
	r.index[t.Name] = t
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(models ...Model) {
	for _, m := range models {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.index[name]
	return t, ok
}

// Discover returns every registered type in registration order.
func (r *Registry) Discover() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Type, len(r.types))
	copy(out, r.types)
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by Register.
func Default() *Registry { return defaultRegistry }

// Register adds m to the default registry and panics on a bad or duplicate
// declaration. It is meant to be called from init.
func Register(m Model) {
	defaultRegistry.MustRegister(m)
}

// Discover returns a Type for every candidate that implements Model and
// declares a name and table. Everything else is skipped. Later duplicates
// of a name are dropped.
func Discover(candidates ...any) []*Type {
	seen := make(map[string]bool, len(candidates))
	var out []*Type
	for _, c := range candidates {
		m, ok := c.(Model)
		if !ok {
			continue
		}
		t, err := discoverType(m)
		if err != nil || seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		out = append(out, t)
	}
	return out
}

// discoverType is NewType with panics from the model's own methods turned
// into errors.
func discoverType(m Model) (t *Type, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, &ContractError{Model: fmt.Sprintf("%T", m), Reason: fmt.Sprintf("declaration panicked: %v", r)}
		}
	}()
	return NewType(m)
}

func isNil(m Model) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
