package txn

// EntityRef addresses one entity in a delta: an identity attribute key paired
// with an identifier value (raw, boxed or placeholder).
type EntityRef struct {
	Attr  string
	Ident any
}

// Change records one attribute edit. A nil After with a non-nil Before is a
// removal; writing a null value is not a thing the backend supports.
type Change struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// entityChanges holds one entity's edits in insertion order.
type entityChanges struct {
	ref     EntityRef
	ident   Ident
	keys    []string
	changes map[string]Change
}

// Delta is the per-request change-set driving a save. Entities and their
// attribute changes preserve insertion order so compilation output is
// deterministic.
type Delta struct {
	entities []*entityChanges
	index    map[string]int
}

// NewDelta returns an empty delta.
func NewDelta() *Delta {
	return &Delta{index: make(map[string]int)}
}

// Set records a change for one attribute of the entity addressed by ref.
// Setting the same (entity, attribute) twice keeps the latest change but the
// original position. Returns the delta for chaining.
func (d *Delta) Set(ref EntityRef, attr string, before, after any) *Delta {
	ident := NormalizeIdent(ref.Ident)
	key := ref.Attr + "|" + ident.key()

	i, ok := d.index[key]
	if !ok {
		i = len(d.entities)
		d.index[key] = i
		d.entities = append(d.entities, &entityChanges{
			ref:     ref,
			ident:   ident,
			changes: make(map[string]Change),
		})
	}

	ec := d.entities[i]
	if _, seen := ec.changes[attr]; !seen {
		ec.keys = append(ec.keys, attr)
	}
	ec.changes[attr] = Change{Before: before, After: after}
	return d
}

// Len returns the number of entities in the delta.
func (d *Delta) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entities)
}

// Placeholders returns the distinct placeholder tokens in insertion order.
func (d *Delta) Placeholders() []string {
	if d == nil {
		return nil
	}
	var out []string
	for _, ec := range d.entities {
		if ec.ident.IsPlaceholder() {
			out = append(out, ec.ident.Token())
		}
	}
	return out
}
