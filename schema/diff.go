package schema

import (
	"fmt"
	"strings"

	"github.com/teranos/facet/errors"
)

// Diff compares an installed schema against a newly synthesized one.
type Diff struct {
	// Added holds attributes present only in the new schema; installing
	// them is always compatible.
	Added []AttrSchema

	// Conflicts holds attributes whose definition changed incompatibly
	// (type, cardinality or uniqueness).
	Conflicts []Conflict
}

// Conflict is one incompatible attribute change.
type Conflict struct {
	Key string
	Old AttrSchema
	New AttrSchema
}

func (c Conflict) String() string {
	var parts []string
	if c.Old.ValueType != c.New.ValueType {
		parts = append(parts, fmt.Sprintf("type %s -> %s", c.Old.ValueType, c.New.ValueType))
	}
	if c.Old.Many != c.New.Many {
		parts = append(parts, fmt.Sprintf("cardinality %s -> %s", card(c.Old.Many), card(c.New.Many)))
	}
	if c.Old.Unique != c.New.Unique {
		parts = append(parts, fmt.Sprintf("uniqueness %s -> %s", c.Old.Unique, c.New.Unique))
	}
	return c.Key + ": " + strings.Join(parts, ", ")
}

func card(many bool) string {
	if many {
		return "many"
	}
	return "one"
}

// Empty reports a no-op diff: reapplying the identical schema.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Conflicts) == 0
}

// Err returns an ErrSchemaConflict carrying the conflict diff, or nil when
// the diff is compatible.
func (d Diff) Err() error {
	if len(d.Conflicts) == 0 {
		return nil
	}
	lines := make([]string, len(d.Conflicts))
	for i, c := range d.Conflicts {
		lines[i] = c.String()
	}
	return errors.Wrap(errors.ErrSchemaConflict, strings.Join(lines, "; "))
}

// Compare builds the diff between the installed and the new schema.
func Compare(installed, next *Schema) Diff {
	var d Diff

	byKey := make(map[string]AttrSchema, len(installed.Attrs))
	for _, a := range installed.Attrs {
		byKey[a.Key] = a
	}

	for _, a := range next.Attrs {
		old, ok := byKey[a.Key]
		if !ok {
			d.Added = append(d.Added, a)
			continue
		}
		if old != a {
			d.Conflicts = append(d.Conflicts, Conflict{Key: a.Key, Old: old, New: a})
		}
	}

	return d
}
