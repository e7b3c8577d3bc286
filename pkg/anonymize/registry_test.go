package anonymize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goanonymize/pkg/faker"
)

type plainModel struct{ name, table string }

func (m plainModel) Name() string  { return m.name }
func (m plainModel) Table() string { return m.table }
func (m plainModel) ToAnonymize(faker.Faker, Record) (RewriteSpec, error) {
	return RewriteSpec{}, ErrNotImplemented
}

type richModel struct{ plainModel }

// ptrModel has pointer receivers that read fields, so a nil *ptrModel
// satisfies Model but cannot be called.
type ptrModel struct{ name, table string }

func (m *ptrModel) Name() string  { return m.name }
func (m *ptrModel) Table() string { return m.table }
func (m *ptrModel) ToAnonymize(faker.Faker, Record) (RewriteSpec, error) {
	return RewriteSpec{}, nil
}

type panickyModel struct{ plainModel }

func (panickyModel) Relations() map[string]Relation { panic("relations not ready") }

func (richModel) PrimaryKey() string { return "user_id" }
func (richModel) AnonymizeCondition() Condition {
	return Condition{Where: "`active` = ?", Args: []any{1}}
}
func (richModel) SoftDeleteColumn() string { return "deleted_at" }
func (richModel) AnonymizeTrashed() bool   { return false }
func (richModel) Relations() map[string]Relation {
	return map[string]Relation{
		"orders": {Kind: HasMany, Table: "orders", ForeignKey: "user_id"},
	}
}

func TestNewType_Defaults(t *testing.T) {
	typ, err := NewType(plainModel{"User", "users"})
	require.NoError(t, err)

	assert.Equal(t, "User", typ.Name)
	assert.Equal(t, "users", typ.Table)
	assert.Equal(t, "id", typ.PrimaryKey)
	assert.Nil(t, typ.Condition)
	assert.True(t, typ.IncludeSoftDeleted)
	assert.Empty(t, typ.Relations)
}

func TestNewType_Capabilities(t *testing.T) {
	typ, err := NewType(richModel{plainModel{"User", "users"}})
	require.NoError(t, err)

	assert.Equal(t, "user_id", typ.PrimaryKey)
	require.NotNil(t, typ.Condition)
	assert.Equal(t, "`active` = ?", typ.Condition.Where)
	assert.Equal(t, "deleted_at", typ.SoftDeleteColumn)
	assert.False(t, typ.IncludeSoftDeleted)
	assert.Contains(t, typ.Relations, "orders")
	assert.NoError(t, typ.Validate())
}

func TestNewType_Unusable(t *testing.T) {
	_, err := NewType(plainModel{"", "users"})
	var ce *ContractError
	assert.True(t, errors.As(err, &ce))

	_, err = NewType(plainModel{"User", ""})
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "User", ce.Model)
}

func TestType_Validate(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
	}{
		{"bad table", Type{Name: "X", Table: "users; drop", PrimaryKey: "id"}},
		{"bad pk", Type{Name: "X", Table: "users", PrimaryKey: "pk id"}},
		{"bad soft delete", Type{Name: "X", Table: "users", PrimaryKey: "id", SoftDeleteColumn: "a b"}},
		{"unknown relation kind", Type{Name: "X", Table: "users", PrimaryKey: "id",
			Relations: map[string]Relation{"r": {Kind: "many_to_many", Table: "t", ForeignKey: "f"}}}},
		{"bad relation table", Type{Name: "X", Table: "users", PrimaryKey: "id",
			Relations: map[string]Relation{"r": {Kind: HasMany, Table: "", ForeignKey: "f"}}}},
		{"bad owner key", Type{Name: "X", Table: "users", PrimaryKey: "id",
			Relations: map[string]Relation{"r": {Kind: BelongsTo, Table: "t", ForeignKey: "f", OwnerKey: "o-k"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.typ.Validate()
			var ce *ContractError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, "X", ce.Model)
		})
	}
}

func TestRegistry_RegisterAndDiscover(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(plainModel{"User", "users"}))
	require.NoError(t, r.Register(plainModel{"Order", "orders"}))
	require.NoError(t, r.Register(plainModel{"Address", "addresses"}))

	types := r.Discover()
	require.Len(t, types, 3)
	assert.Equal(t, "User", types[0].Name)
	assert.Equal(t, "Order", types[1].Name)
	assert.Equal(t, "Address", types[2].Name)
	assert.Equal(t, 3, r.Len())

	typ, ok := r.Lookup("Order")
	require.True(t, ok)
	assert.Equal(t, "orders", typ.Table)

	_, ok = r.Lookup("Missing")
	assert.False(t, ok)
}

func TestRegistry_Duplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(plainModel{"User", "users"}))

	err := r.Register(plainModel{"User", "people"})
	assert.ErrorIs(t, err, ErrDuplicateModel)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_MustRegisterPanics(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() {
		r.MustRegister(plainModel{"User", "users"}, plainModel{"User", "users"})
	})
}

func TestRegistry_DiscoverReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(plainModel{"User", "users"})

	types := r.Discover()
	types[0] = nil
	assert.NotNil(t, r.Discover()[0])
}

func TestDiscover_SkipsNonModels(t *testing.T) {
	types := Discover(
		plainModel{"User", "users"},
		"not a model",
		42,
		plainModel{"", "nameless"},
		plainModel{"Tableless", ""},
		plainModel{"User", "users_again"},
		richModel{plainModel{"Order", "orders"}},
		nil,
		(*ptrModel)(nil),
		panickyModel{plainModel{"Broken", "broken"}},
		&ptrModel{"Invoice", "invoices"},
	)

	require.Len(t, types, 3)
	assert.Equal(t, "User", types[0].Name)
	assert.Equal(t, "users", types[0].Table)
	assert.Equal(t, "Order", types[1].Name)
	assert.Equal(t, "Invoice", types[2].Name)
}

func TestNewType_NilModel(t *testing.T) {
	_, err := NewType((*ptrModel)(nil))

	var ce *ContractError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "nil model", ce.Reason)

	r := NewRegistry()
	assert.Error(t, r.Register((*ptrModel)(nil)))
	assert.Equal(t, 0, r.Len())
}

func TestDiscover_Empty(t *testing.T) {
	assert.Empty(t, Discover())
}
