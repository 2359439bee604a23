package persist

import (
	"context"
	"strings"
	"testing"

	"github.com/teranos/facet/catalog"
	"github.com/teranos/facet/errors"
	"github.com/teranos/facet/schema"
	"github.com/teranos/facet/store"
	"github.com/teranos/facet/store/testutil"
	"github.com/teranos/facet/txn"
)

const (
	u1 = "11111111-1111-1111-1111-111111111111"
	u2 = "22222222-2222-2222-2222-222222222222"
)

func persistCatalog() *catalog.Catalog {
	return catalog.MustNew(
		catalog.Attribute{Key: "user/id", Type: catalog.KindUUID, Partition: "main", Identity: true},
		catalog.Attribute{Key: "user/name", Type: catalog.KindString, Partition: "main", Identities: []string{"user/id"}},
		catalog.Attribute{Key: "user/email", Type: catalog.KindString, Partition: "main", Identities: []string{"user/id"}},
		catalog.Attribute{Key: "note/dbid", Type: catalog.KindLong, Partition: "main", Identity: true, NativeID: true},
		catalog.Attribute{Key: "note/text", Type: catalog.KindString, Partition: "main", Identities: []string{"note/dbid"}},
	)
}

func setupSaver(t *testing.T) (*Saver, store.Connection) {
	t.Helper()

	cat := persistCatalog()
	conn := store.Wrap(testutil.SetupTestDB(t), "main", cat, nil)
	if err := conn.ApplySchema(context.Background(), schema.Synthesize("main", cat)); err != nil {
		t.Fatalf("ApplySchema() error: %v", err)
	}
	routes := map[string]store.Connection{"main": conn}
	return NewSaver(cat, routes, txn.NewReconciler(), nil), conn
}

func tempids(t *testing.T, result map[string]any) map[string]any {
	t.Helper()
	v, present := result[TempIDsKey]
	if !present {
		t.Fatalf("result %v has no %q key", result, TempIDsKey)
	}
	mapping, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("result[%q] = %T, want map", TempIDsKey, v)
	}
	return mapping
}

func TestSaveNilDelta(t *testing.T) {
	saver, _ := setupSaver(t)

	result, err := saver.Save(context.Background(), nil, map[string]any{"ok": true})
	if err != nil {
		t.Fatalf("Save(nil) error: %v", err)
	}
	if result["ok"] != true {
		t.Errorf("base result not merged: %v", result)
	}
	if mapping := tempids(t, result); len(mapping) != 0 {
		t.Errorf("tempids = %v, want empty for nil delta", mapping)
	}
}

func TestSaveEmptyDelta(t *testing.T) {
	saver, _ := setupSaver(t)

	result, err := saver.Save(context.Background(), txn.NewDelta(), nil)
	if err != nil {
		t.Fatalf("Save(empty) error: %v", err)
	}
	if mapping := tempids(t, result); len(mapping) != 0 {
		t.Errorf("tempids = %v, want empty for empty delta", mapping)
	}
}

func TestSaveWithoutPlaceholders(t *testing.T) {
	saver, conn := setupSaver(t)
	ctx := context.Background()

	delta := txn.NewDelta()
	ref := txn.EntityRef{Attr: "user/id", Ident: u1}
	delta.Set(ref, "user/name", nil, "Alice")
	delta.Set(ref, "user/email", nil, "a@x.com")

	result, err := saver.Save(ctx, delta, nil)
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if mapping := tempids(t, result); len(mapping) != 0 {
		t.Errorf("tempids = %v, want empty without placeholders", mapping)
	}

	snap, _ := conn.ReadSnapshot(ctx)
	defer snap.Close()
	e, found, err := snap.EntityID("user/id", u1)
	if err != nil || !found {
		t.Fatalf("EntityID() = %v, %v, %v", e, found, err)
	}
	got, err := snap.Pull(e, []any{"user/name", "user/email"})
	if err != nil {
		t.Fatalf("Pull() error: %v", err)
	}
	if got["user/name"] != "Alice" || got["user/email"] != "a@x.com" {
		t.Errorf("persisted record = %v", got)
	}
}

func TestSavePlaceholderMapsToIdentityValue(t *testing.T) {
	saver, _ := setupSaver(t)

	delta := txn.NewDelta()
	ref := txn.EntityRef{Attr: "user/id", Ident: txn.PlaceholderToken("P1")}
	delta.Set(ref, "user/id", nil, u2)
	delta.Set(ref, "user/name", nil, "Bob")

	result, err := saver.Save(context.Background(), delta, nil)
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	mapping := tempids(t, result)
	if mapping["P1"] != u2 {
		t.Errorf("tempids[P1] = %v, want persisted identity value %s", mapping["P1"], u2)
	}
}

func TestSaveNativePlaceholderMapsToEntityID(t *testing.T) {
	saver, conn := setupSaver(t)
	ctx := context.Background()

	delta := txn.NewDelta()
	ref := txn.EntityRef{Attr: "note/dbid", Ident: txn.PlaceholderToken("N1")}
	delta.Set(ref, "note/text", nil, "hello")

	result, err := saver.Save(ctx, delta, nil)
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	mapping := tempids(t, result)
	e, ok := mapping["N1"].(int64)
	if !ok || e <= 0 {
		t.Fatalf("tempids[N1] = %v, want assigned entity id", mapping["N1"])
	}

	snap, _ := conn.ReadSnapshot(ctx)
	defer snap.Close()
	got, err := snap.Pull(e, []any{"note/text"})
	if err != nil {
		t.Fatalf("Pull() error: %v", err)
	}
	if got["note/text"] != "hello" {
		t.Errorf("note/text = %v, want hello", got["note/text"])
	}
}

func TestSaveRetractionReadsBackAbsent(t *testing.T) {
	saver, conn := setupSaver(t)
	ctx := context.Background()
	ref := txn.EntityRef{Attr: "user/id", Ident: u1}

	setup := txn.NewDelta()
	setup.Set(ref, "user/email", nil, "old@x.com")
	if _, err := saver.Save(ctx, setup, nil); err != nil {
		t.Fatalf("Save(setup) error: %v", err)
	}

	retract := txn.NewDelta()
	retract.Set(ref, "user/email", "old@x.com", nil)
	if _, err := saver.Save(ctx, retract, nil); err != nil {
		t.Fatalf("Save(retract) error: %v", err)
	}

	snap, _ := conn.ReadSnapshot(ctx)
	defer snap.Close()
	e, _, _ := snap.EntityID("user/id", u1)
	got, err := snap.Pull(e, []any{"user/email"})
	if err != nil {
		t.Fatalf("Pull() error: %v", err)
	}
	if _, present := got["user/email"]; present {
		t.Errorf("user/email = %v, want absent after retraction", got["user/email"])
	}
}

func TestSaveMissingConnection(t *testing.T) {
	cat := persistCatalog()
	saver := NewSaver(cat, map[string]store.Connection{}, txn.NewReconciler(), nil)

	delta := txn.NewDelta()
	delta.Set(txn.EntityRef{Attr: "user/id", Ident: u1}, "user/name", nil, "Alice")

	_, err := saver.Save(context.Background(), delta, nil)
	if !errors.Is(err, errors.ErrMissingConnection) {
		t.Fatalf("Save() error = %v, want ErrMissingConnection", err)
	}
	if !strings.Contains(err.Error(), `"main"`) {
		t.Errorf("error %q does not name the missing partition", err)
	}
}

func TestSaveTransactFailureWrapped(t *testing.T) {
	cat := persistCatalog()
	failing := &failingConn{partition: "main"}
	saver := NewSaver(cat, map[string]store.Connection{"main": failing}, txn.NewReconciler(), nil)

	delta := txn.NewDelta()
	ref := txn.EntityRef{Attr: "user/id", Ident: u1}
	delta.Set(ref, "user/name", nil, "Alice")

	_, err := saver.Save(context.Background(), delta, nil)
	if err == nil {
		t.Fatal("Save() over failing connection did not fail")
	}
	if !strings.Contains(err.Error(), `partition "main"`) || !strings.Contains(err.Error(), "1 operations") {
		t.Errorf("error %q missing partition or op count context", err)
	}
	if !strings.Contains(err.Error(), "disk I/O error") {
		t.Errorf("error %q swallowed the cause", err)
	}
}

func TestDelete(t *testing.T) {
	saver, conn := setupSaver(t)
	ctx := context.Background()
	ref := txn.EntityRef{Attr: "user/id", Ident: u1}

	delta := txn.NewDelta()
	delta.Set(ref, "user/name", nil, "Alice")
	if _, err := saver.Save(ctx, delta, nil); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	result, err := saver.Delete(ctx, ref, map[string]any{"ok": true})
	if err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if result["ok"] != true {
		t.Errorf("base result not merged: %v", result)
	}

	snap, _ := conn.ReadSnapshot(ctx)
	defer snap.Close()
	if _, found, _ := snap.EntityID("user/id", u1); found {
		t.Error("entity still resolvable after Delete")
	}
}

func TestDeleteMissingIsNoop(t *testing.T) {
	saver, _ := setupSaver(t)

	if _, err := saver.Delete(context.Background(), txn.EntityRef{Attr: "user/id", Ident: u2}, nil); err != nil {
		t.Fatalf("Delete() of missing entity = %v, want silent no-op", err)
	}
}

func TestDeleteByPlaceholderRejected(t *testing.T) {
	saver, _ := setupSaver(t)

	ref := txn.EntityRef{Attr: "user/id", Ident: txn.PlaceholderToken("P1")}
	_, err := saver.Delete(context.Background(), ref, nil)
	if !errors.IsInvalidDelta(err) {
		t.Fatalf("Delete(placeholder) error = %v, want ErrInvalidDelta", err)
	}
}

// failingConn satisfies store.Connection and fails every transact.
type failingConn struct {
	partition string
}

func (f *failingConn) Partition() string { return f.partition }

func (f *failingConn) ApplySchema(ctx context.Context, s *schema.Schema) error { return nil }

func (f *failingConn) Transact(ctx context.Context, ops []txn.Op) (*store.TxReport, error) {
	return nil, errors.New("disk I/O error")
}

func (f *failingConn) RetractEntity(ctx context.Context, id txn.OpID) error { return nil }

func (f *failingConn) ReadSnapshot(ctx context.Context) (*store.Snapshot, error) {
	return nil, errors.New("no snapshot")
}

func (f *failingConn) Close() error { return nil }
