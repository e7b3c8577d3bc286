package anonymize

import (
	"fmt"
	"sort"
)

// RelationsKey is the Fields entry that Normalize lifts into Relations.
// It lets a model return one flat map when that is more convenient.
const RelationsKey = "relations"

// RewriteSpec is the answer to "how should this record be anonymized".
type RewriteSpec struct {
	// Fields maps column name to the new scalar value.
	Fields map[string]any
	// Relations maps a declared relation name to the column values applied
	// to every related row.
	Relations map[string]map[string]any
}

// Set adds a field value and returns the spec for chaining.
func (s RewriteSpec) Set(column string, value any) RewriteSpec {
	if s.Fields == nil {
		s.Fields = make(map[string]any)
	}
	s.Fields[column] = value
	return s
}

// SetRelation adds values for all rows of a relation and returns the spec.
func (s RewriteSpec) SetRelation(relation string, values map[string]any) RewriteSpec {
	if s.Relations == nil {
		s.Relations = make(map[string]map[string]any)
	}
	s.Relations[relation] = values
	return s
}

// Normalize returns a copy where a RelationsKey entry in Fields has been
// moved into Relations. The returned Fields never contain RelationsKey.
func (s RewriteSpec) Normalize() (RewriteSpec, error) {
	out := RewriteSpec{
		Fields:    make(map[string]any, len(s.Fields)),
		Relations: make(map[string]map[string]any, len(s.Relations)),
	}
	for rel, values := range s.Relations {
		out.Relations[rel] = values
	}

	for col, v := range s.Fields {
		if col != RelationsKey {
			out.Fields[col] = v
			continue
		}
		nested, err := asRelationMap(v)
		if err != nil {
			return RewriteSpec{}, err
		}
		for rel, values := range nested {
			if _, dup := out.Relations[rel]; dup {
				return RewriteSpec{}, fmt.Errorf("relation %q given twice", rel)
			}
			out.Relations[rel] = values
		}
	}
	return out, nil
}

// Columns returns the field names in sorted order.
func (s RewriteSpec) Columns() []string {
	cols := make([]string, 0, len(s.Fields))
	for col := range s.Fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// RelationNames returns the relation names in sorted order.
func (s RewriteSpec) RelationNames() []string {
	names := make([]string, 0, len(s.Relations))
	for name := range s.Relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsEmpty reports whether the spec changes nothing.
func (s RewriteSpec) IsEmpty() bool {
	return len(s.Fields) == 0 && len(s.Relations) == 0
}

func asRelationMap(v any) (map[string]map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return nil, nil
	case map[string]map[string]any:
		return m, nil
	case map[string]any:
		out := make(map[string]map[string]any, len(m))
		for rel, raw := range m {
			values, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("relation %q: expected map[string]any, got %T", rel, raw)
			}
			out[rel] = values
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%q field must be a relation map, got %T", RelationsKey, v)
	}
}

func toString(v any) string {
	return fmt.Sprint(v)
}
