package txn

import (
	"fmt"
)

// OpID addresses the entity a transaction operation applies to: either a
// synthesized negative TempID or a lookup by identity attribute.
type OpID interface {
	fmt.Stringer
	opID()
}

// TempID is a synthesized negative id referencing a not-yet-persisted entity
// within one transaction.
type TempID int64

func (t TempID) opID() {}

func (t TempID) String() string {
	return fmt.Sprintf("tempid(%d)", int64(t))
}

// LookupRef addresses an existing (or about-to-exist unique) entity by an
// identity attribute and its value.
type LookupRef struct {
	Attr  string
	Value any
}

func (l LookupRef) opID() {}

func (l LookupRef) String() string {
	return fmt.Sprintf("lookup(%s=%v)", l.Attr, l.Value)
}

// Op is one transaction operation: an entity upsert or a retraction.
type Op interface {
	OpPartition() string
	op()
}

// AttrValue is one attribute assertion inside an upsert.
type AttrValue struct {
	Attr  string
	Value any
}

// Upsert asserts a set of attribute values against one entity.
type Upsert struct {
	ID        OpID
	Partition string
	Attrs     []AttrValue
}

func (u Upsert) op() {}

// OpPartition returns the schema partition the operation belongs to.
func (u Upsert) OpPartition() string { return u.Partition }

// Retract removes the fact for one attribute of one entity. This is the only
// way to remove a stored value; writing null is disallowed.
type Retract struct {
	ID        OpID
	Partition string
	Attr      string
}

func (r Retract) op() {}

// OpPartition returns the schema partition the operation belongs to.
func (r Retract) OpPartition() string { return r.Partition }
