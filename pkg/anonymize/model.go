// Package anonymize defines the contract a record type implements to be
// anonymized, and the registry the engine discovers those types from.
//
// An application declares its models in Go and registers them, usually from
// an init function:
//
//	func init() {
//	    anonymize.Register(User{})
//	}
//
// Only Model is required. KeyedModel, ScopedModel, SoftDeletable and
// RelatedModel are optional capabilities detected at registration.
package anonymize

import (
	"github.com/dbsmedya/goanonymize/pkg/faker"
)

// Model is an anonymizable record type.
type Model interface {
	// Name is the unique type identifier used in priority_models and the
	// --model/--exclude-model selectors.
	Name() string
	// Table is the table the records live in.
	Table() string
	// ToAnonymize returns the new values for one record.
	ToAnonymize(f faker.Faker, rec Record) (RewriteSpec, error)
}

// KeyedModel overrides the default "id" primary key column.
type KeyedModel interface {
	PrimaryKey() string
}

// ScopedModel narrows the records eligible for anonymization.
type ScopedModel interface {
	AnonymizeCondition() Condition
}

// SoftDeletable marks a model whose rows carry a deletion timestamp.
// Soft-deleted rows are anonymized unless AnonymizeTrashed returns false.
type SoftDeletable interface {
	SoftDeleteColumn() string
	AnonymizeTrashed() bool
}

// RelatedModel declares the relations a RewriteSpec may address by name.
type RelatedModel interface {
	Relations() map[string]Relation
}

// Condition is a WHERE fragment with positional arguments.
type Condition struct {
	Where string
	Args  []any
}

// RelationKind says which side of a relation holds the foreign key.
type RelationKind string

const (
	// HasMany: related.ForeignKey references parent.OwnerKey.
	HasMany RelationKind = "has_many"
	// HasOne behaves like HasMany for bulk updates.
	HasOne RelationKind = "has_one"
	// BelongsTo: parent.ForeignKey references related.OwnerKey.
	BelongsTo RelationKind = "belongs_to"
)

// Relation describes how related rows are found from a parent record.
type Relation struct {
	Kind       RelationKind
	Table      string
	ForeignKey string
	// OwnerKey defaults to the parent primary key for HasMany/HasOne and to
	// "id" for BelongsTo.
	OwnerKey string
}

// Record is one row keyed by column name. Text and blob columns are
// delivered as strings.
type Record map[string]any

// Get returns the raw column value.
func (r Record) Get(column string) any {
	return r[column]
}

// String returns the column as a string, or "" when absent or NULL.
func (r Record) String(column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return toString(v)
	}
}

// Has reports whether the column is present in the row.
func (r Record) Has(column string) bool {
	_, ok := r[column]
	return ok
}
