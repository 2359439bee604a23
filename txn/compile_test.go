package txn

import (
	"testing"

	"github.com/teranos/facet/catalog"
	"github.com/teranos/facet/errors"
)

func compileCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	return catalog.MustNew(
		catalog.Attribute{Key: "user/id", Type: catalog.KindUUID, Partition: "main", Identity: true},
		catalog.Attribute{Key: "user/name", Type: catalog.KindString, Partition: "main", Identities: []string{"user/id"}},
		catalog.Attribute{Key: "user/email", Type: catalog.KindString, Partition: "main", Identities: []string{"user/id"}, Unique: catalog.UniqueValue},
		catalog.Attribute{Key: "user/role", Type: catalog.KindEnum, Partition: "main", Identities: []string{"user/id"}, EnumValues: []string{"admin", "member"}},
		catalog.Attribute{Key: "org/name", Type: catalog.KindString, Partition: "orgs", Identity: true},
		catalog.Attribute{Key: "org/size", Type: catalog.KindLong, Partition: "orgs", Identities: []string{"org/name"}},
	)
}

func TestCompileNilDelta(t *testing.T) {
	c, err := Compile(nil, compileCatalog(t), NewReconciler())
	if err != nil {
		t.Fatalf("Compile(nil) error: %v", err)
	}
	if len(c.Ops) != 0 {
		t.Errorf("Ops = %v, want empty", c.Ops)
	}
	if c.Resolved == nil || c.TempIDs == nil {
		t.Error("Resolved/TempIDs maps must be non-nil even for a nil delta")
	}
}

func TestCompileNoopDelta(t *testing.T) {
	d := NewDelta()
	d.Set(EntityRef{Attr: "user/id", Ident: "U1"}, "user/name", "Alice", "Alice")
	d.Set(EntityRef{Attr: "user/id", Ident: "U1"}, "user/email", nil, nil)

	c, err := Compile(d, compileCatalog(t), NewReconciler())
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if len(c.Ops) != 0 {
		t.Errorf("before==after compiled to %d ops, want 0", len(c.Ops))
	}
}

// Scenario: existing entity addressed by lookup, two field updates collapse
// into a single upsert.
func TestCompileLookupUpsert(t *testing.T) {
	d := NewDelta()
	ref := EntityRef{Attr: "user/id", Ident: "U1"}
	d.Set(ref, "user/name", nil, "Alice")
	d.Set(ref, "user/email", nil, "a@x.com")

	c, err := Compile(d, compileCatalog(t), NewReconciler())
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if len(c.Ops) != 1 {
		t.Fatalf("got %d ops, want 1", len(c.Ops))
	}

	up, ok := c.Ops[0].(Upsert)
	if !ok {
		t.Fatalf("op = %T, want Upsert", c.Ops[0])
	}
	lookup, ok := up.ID.(LookupRef)
	if !ok || lookup.Attr != "user/id" || lookup.Value != "U1" {
		t.Errorf("ID = %v, want lookup(user/id=U1)", up.ID)
	}
	if up.Partition != "main" {
		t.Errorf("Partition = %q, want main", up.Partition)
	}
	if len(up.Attrs) != 2 || up.Attrs[0].Attr != "user/name" || up.Attrs[1].Attr != "user/email" {
		t.Errorf("Attrs = %v, want name then email in insertion order", up.Attrs)
	}
	if len(c.Resolved) != 0 {
		t.Errorf("Resolved = %v, want empty for lookup-only delta", c.Resolved)
	}
}

// Scenario: new entity via placeholder gets a fresh negative id, and the
// final mapping carries the identity attribute's after value, never the
// token.
func TestCompilePlaceholder(t *testing.T) {
	d := NewDelta()
	ref := EntityRef{Attr: "user/id", Ident: PlaceholderToken("P1")}
	d.Set(ref, "user/id", nil, "U2")
	d.Set(ref, "user/name", nil, "Bob")

	c, err := Compile(d, compileCatalog(t), NewReconciler())
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if len(c.Ops) != 1 {
		t.Fatalf("got %d ops, want 1", len(c.Ops))
	}

	up := c.Ops[0].(Upsert)
	tid, ok := up.ID.(TempID)
	if !ok {
		t.Fatalf("ID = %T, want TempID", up.ID)
	}
	if int64(tid) >= 0 {
		t.Errorf("TempID = %d, want negative", tid)
	}
	if len(up.Attrs) != 2 || up.Attrs[0].Attr != "user/id" || up.Attrs[0].Value != "U2" {
		t.Errorf("Attrs = %v, want identity value first", up.Attrs)
	}

	if got := c.Resolved["P1"]; got != "U2" {
		t.Errorf("Resolved[P1] = %v, want U2 (the after value, not the token)", got)
	}
	if c.TempIDs["P1"] != int64(tid) {
		t.Errorf("TempIDs[P1] = %d, want %d", c.TempIDs["P1"], tid)
	}
	if c.IdentityAttrs["P1"] != "user/id" {
		t.Errorf("IdentityAttrs[P1] = %q, want user/id", c.IdentityAttrs["P1"])
	}
}

// Scenario: clearing a field is exactly one retraction and zero upserts.
func TestCompileRetraction(t *testing.T) {
	d := NewDelta()
	d.Set(EntityRef{Attr: "user/id", Ident: "U3"}, "user/email", "old@x.com", nil)

	c, err := Compile(d, compileCatalog(t), NewReconciler())
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if len(c.Ops) != 1 {
		t.Fatalf("got %d ops, want 1", len(c.Ops))
	}

	r, ok := c.Ops[0].(Retract)
	if !ok {
		t.Fatalf("op = %T, want Retract", c.Ops[0])
	}
	if r.Attr != "user/email" {
		t.Errorf("Attr = %q, want user/email", r.Attr)
	}
	lookup := r.ID.(LookupRef)
	if lookup.Value != "U3" {
		t.Errorf("ID = %v, want lookup(user/id=U3)", r.ID)
	}
}

// Scenario: three placeholders yield three upserts with three distinct
// negative ids.
func TestCompileDistinctPlaceholders(t *testing.T) {
	d := NewDelta()
	for i, token := range []string{"P1", "P2", "P3"} {
		ref := EntityRef{Attr: "user/id", Ident: PlaceholderToken(token)}
		d.Set(ref, "user/id", nil, []string{"U1", "U2", "U3"}[i])
	}

	c, err := Compile(d, compileCatalog(t), NewReconciler())
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if len(c.Ops) != 3 {
		t.Fatalf("got %d ops, want 3", len(c.Ops))
	}

	seen := make(map[TempID]bool)
	for _, op := range c.Ops {
		tid := op.(Upsert).ID.(TempID)
		if int64(tid) >= 0 {
			t.Errorf("TempID = %d, want negative", tid)
		}
		if seen[tid] {
			t.Fatalf("TempID %d assigned to two placeholders", tid)
		}
		seen[tid] = true
	}
	if len(c.TempIDs) != 3 {
		t.Errorf("TempIDs = %v, want 3 entries", c.TempIDs)
	}
}

func TestCompileSamePlaceholderSharesTempID(t *testing.T) {
	// The same token across two entries of one delta must resolve to one id.
	d := NewDelta()
	ref := EntityRef{Attr: "user/id", Ident: PlaceholderToken("P1")}
	d.Set(ref, "user/id", nil, "U9")
	d.Set(ref, "user/name", nil, "Niv")

	c, err := Compile(d, compileCatalog(t), NewReconciler())
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if len(c.TempIDs) != 1 {
		t.Errorf("TempIDs = %v, want a single entry", c.TempIDs)
	}
}

func TestCompileDeterministicContent(t *testing.T) {
	build := func() *Delta {
		d := NewDelta()
		ref := EntityRef{Attr: "user/id", Ident: PlaceholderToken("P1")}
		d.Set(ref, "user/id", nil, "U5")
		d.Set(ref, "user/name", nil, "Eve")
		d.Set(EntityRef{Attr: "user/id", Ident: "U1"}, "user/email", "a@x.com", nil)
		return d
	}

	a, err := Compile(build(), compileCatalog(t), NewReconciler())
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	b, err := Compile(build(), compileCatalog(t), NewReconciler())
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	if len(a.Ops) != len(b.Ops) {
		t.Fatalf("op counts differ: %d vs %d", len(a.Ops), len(b.Ops))
	}
	// Identical attribute content op by op; synthesized ids may differ.
	for i := range a.Ops {
		ua, aIsUp := a.Ops[i].(Upsert)
		ub, bIsUp := b.Ops[i].(Upsert)
		if aIsUp != bIsUp {
			t.Fatalf("op %d kinds differ", i)
		}
		if !aIsUp {
			continue
		}
		if len(ua.Attrs) != len(ub.Attrs) {
			t.Fatalf("op %d attr counts differ", i)
		}
		for j := range ua.Attrs {
			if ua.Attrs[j] != ub.Attrs[j] {
				t.Errorf("op %d attr %d differ: %v vs %v", i, j, ua.Attrs[j], ub.Attrs[j])
			}
		}
	}
}

func TestCompileIdentityOnlyEntity(t *testing.T) {
	// New entity with no other fields still yields a minimal upsert.
	d := NewDelta()
	d.Set(EntityRef{Attr: "user/id", Ident: PlaceholderToken("P1")}, "user/id", nil, "U7")

	c, err := Compile(d, compileCatalog(t), NewReconciler())
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if len(c.Ops) != 1 {
		t.Fatalf("got %d ops, want minimal upsert", len(c.Ops))
	}
	up := c.Ops[0].(Upsert)
	if len(up.Attrs) != 1 || up.Attrs[0].Attr != "user/id" {
		t.Errorf("Attrs = %v, want only the identity attribute", up.Attrs)
	}
}

func TestCompileNilIdentityAfterFails(t *testing.T) {
	d := NewDelta()
	ref := EntityRef{Attr: "user/id", Ident: PlaceholderToken("P1")}
	d.Set(ref, "user/id", nil, nil)
	d.Set(ref, "user/name", nil, "Ghost")

	_, err := Compile(d, compileCatalog(t), NewReconciler())
	if !errors.IsInvalidDelta(err) {
		t.Fatalf("Compile() error = %v, want ErrInvalidDelta", err)
	}
}

func TestCompileMissingIdentityAfterFails(t *testing.T) {
	// A placeholder whose delta never sets the identity attribute has no
	// value to resolve the token to; committing it would persist an entity
	// with no identifier and leave the token unmapped.
	d := NewDelta()
	ref := EntityRef{Attr: "user/id", Ident: PlaceholderToken("P1")}
	d.Set(ref, "user/name", nil, "Ghost")

	_, err := Compile(d, compileCatalog(t), NewReconciler())
	if !errors.IsInvalidDelta(err) {
		t.Fatalf("Compile() error = %v, want ErrInvalidDelta", err)
	}
}

func TestCompileNativePlaceholderWithoutIDChange(t *testing.T) {
	// Native-id entities never carry an identity change; the backend assigns
	// the id, so the compiler must not demand one.
	cat := catalog.MustNew(
		catalog.Attribute{Key: "note/dbid", Type: catalog.KindLong, Partition: "main", NativeID: true},
		catalog.Attribute{Key: "note/text", Type: catalog.KindString, Partition: "main", Identities: []string{"note/dbid"}},
	)

	d := NewDelta()
	d.Set(EntityRef{Attr: "note/dbid", Ident: PlaceholderToken("N1")}, "note/text", nil, "hello")

	c, err := Compile(d, cat, NewReconciler())
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if len(c.Ops) != 1 {
		t.Fatalf("got %d ops, want 1", len(c.Ops))
	}
	if _, ok := c.TempIDs["N1"]; !ok {
		t.Error("TempIDs missing N1")
	}
}

func TestCompileRetractingIdentityFails(t *testing.T) {
	d := NewDelta()
	d.Set(EntityRef{Attr: "user/id", Ident: "U1"}, "user/id", "U1", nil)

	_, err := Compile(d, compileCatalog(t), NewReconciler())
	if !errors.IsInvalidDelta(err) {
		t.Fatalf("Compile() error = %v, want ErrInvalidDelta", err)
	}
}

func TestCompileUnknownAttributeFails(t *testing.T) {
	d := NewDelta()
	d.Set(EntityRef{Attr: "user/id", Ident: "U1"}, "user/nothere", nil, "x")

	_, err := Compile(d, compileCatalog(t), NewReconciler())
	if !errors.IsInvalidDelta(err) {
		t.Fatalf("Compile() error = %v, want ErrInvalidDelta", err)
	}
}

func TestCompileNonIdentityRefFails(t *testing.T) {
	d := NewDelta()
	d.Set(EntityRef{Attr: "user/name", Ident: "Alice"}, "user/email", nil, "a@x.com")

	_, err := Compile(d, compileCatalog(t), NewReconciler())
	if !errors.IsInvalidDelta(err) {
		t.Fatalf("Compile() error = %v, want ErrInvalidDelta", err)
	}
}

func TestCompileWrappedIdent(t *testing.T) {
	d := NewDelta()
	d.Set(EntityRef{Attr: "user/id", Ident: Box{Value: "U1"}}, "user/name", nil, "Alice")

	c, err := Compile(d, compileCatalog(t), NewReconciler())
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	lookup := c.Ops[0].(Upsert).ID.(LookupRef)
	if lookup.Value != "U1" {
		t.Errorf("wrapped value not unwrapped: ID = %v", lookup)
	}
}

func TestCompileByPartition(t *testing.T) {
	d := NewDelta()
	d.Set(EntityRef{Attr: "user/id", Ident: "U1"}, "user/name", nil, "Alice")
	d.Set(EntityRef{Attr: "org/name", Ident: "acme"}, "org/size", nil, int64(10))

	c, err := Compile(d, compileCatalog(t), NewReconciler())
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	split := c.ByPartition()
	if len(split["main"]) != 1 || len(split["orgs"]) != 1 {
		t.Errorf("ByPartition() = %v, want one op per partition", split)
	}

	parts := c.Partitions()
	if len(parts) != 2 || parts[0] != "main" || parts[1] != "orgs" {
		t.Errorf("Partitions() = %v, want [main orgs]", parts)
	}
}
