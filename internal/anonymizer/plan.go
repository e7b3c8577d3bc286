package anonymizer

import (
	"fmt"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/samber/lo"

	"github.com/dbsmedya/goanonymize/pkg/anonymize"
)

// RunPlan is the order types are processed in: the configured priority
// types first, then everything else in registration order. A type appears
// at most once and excluded types appear nowhere.
type RunPlan struct {
	Priority  []*anonymize.Type
	Remainder []*anonymize.Type
}

// Types returns Priority followed by Remainder.
func (p *RunPlan) Types() []*anonymize.Type {
	out := make([]*anonymize.Type, 0, len(p.Priority)+len(p.Remainder))
	out = append(out, p.Priority...)
	return append(out, p.Remainder...)
}

// Names returns the type names in run order.
func (p *RunPlan) Names() []string {
	return lo.Map(p.Types(), func(t *anonymize.Type, _ int) string { return t.Name })
}

// Len returns the number of planned types.
func (p *RunPlan) Len() int {
	return len(p.Priority) + len(p.Remainder)
}

// BuildPlan orders types. include, when non-empty, limits the plan to the
// named types; exclude removes types. Names in priority, include or exclude
// that match no type are an error.
func BuildPlan(types []*anonymize.Type, priority, include, exclude []string) (*RunPlan, error) {
	known := orderedmap.NewOrderedMap[string, *anonymize.Type]()
	for _, t := range types {
		known.Set(t.Name, t)
	}

	for _, group := range []struct {
		what  string
		names []string
	}{
		{"priority_models", priority},
		{"--model", include},
		{"--exclude-model", exclude},
	} {
		unknown := lo.Filter(lo.Uniq(group.names), func(name string, _ int) bool {
			_, ok := known.Get(name)
			return !ok
		})
		if len(unknown) > 0 {
			return nil, fmt.Errorf("%s names unregistered models: %s", group.what, strings.Join(unknown, ", "))
		}
	}

	selected := func(name string) bool {
		if len(include) > 0 && !lo.Contains(include, name) {
			return false
		}
		return !lo.Contains(exclude, name)
	}

	planned := orderedmap.NewOrderedMap[string, *anonymize.Type]()
	plan := &RunPlan{}

	for _, name := range priority {
		t, _ := known.Get(name)
		if !selected(name) {
			continue
		}
		if planned.Set(name, t) {
			plan.Priority = append(plan.Priority, t)
		}
	}
	for el := known.Front(); el != nil; el = el.Next() {
		if !selected(el.Key) {
			continue
		}
		if planned.Set(el.Key, el.Value) {
			plan.Remainder = append(plan.Remainder, el.Value)
		}
	}
	return plan, nil
}

// PlanRegistry builds the plan over every type in reg and validates each
// planned declaration.
func PlanRegistry(reg *anonymize.Registry, priority, include, exclude []string) (*RunPlan, error) {
	plan, err := BuildPlan(reg.Discover(), priority, include, exclude)
	if err != nil {
		return nil, err
	}
	for _, t := range plan.Types() {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return plan, nil
}
