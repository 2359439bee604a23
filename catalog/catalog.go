// Package catalog defines the declarative attribute model that drives schema
// synthesis, delta compilation and resolver generation.
//
// A Catalog is defined once at startup and immutable thereafter. Attributes
// are identified by a qualified key ("user/email") whose namespace is the
// owning entity type.
package catalog

import (
	"strings"

	"github.com/teranos/facet/errors"
)

// Kind is the closed set of attribute value types.
type Kind int

const (
	KindString Kind = iota
	KindUUID
	KindLong
	KindDouble
	KindBoolean
	KindInstant
	KindRef
	KindEnum
)

var kindNames = map[Kind]string{
	KindString:  "string",
	KindUUID:    "uuid",
	KindLong:    "long",
	KindDouble:  "double",
	KindBoolean: "boolean",
	KindInstant: "instant",
	KindRef:     "ref",
	KindEnum:    "enum",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind parses the textual form used in catalog definition files.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, errors.Newf("unknown attribute type %q", s)
}

// Cardinality distinguishes single-valued from multi-valued attributes.
type Cardinality int

const (
	One Cardinality = iota
	Many
)

func (c Cardinality) String() string {
	if c == Many {
		return "many"
	}
	return "one"
}

// Uniqueness constrains attribute values across entities.
type Uniqueness int

const (
	UniqueNone Uniqueness = iota
	UniqueValue
	UniqueIdentity
)

func (u Uniqueness) String() string {
	switch u {
	case UniqueValue:
		return "value"
	case UniqueIdentity:
		return "identity"
	default:
		return "none"
	}
}

// Attribute describes one attribute of the entity model.
type Attribute struct {
	// Key is the globally unique qualified key, e.g. "user/email".
	Key string

	// Type is the value kind.
	Type Kind

	// Cardinality is One or Many.
	Cardinality Cardinality

	// Partition names the schema partition this attribute belongs to.
	// Attributes without a partition are not synthesized into any schema.
	Partition string

	// Identity marks an entity-defining attribute, used to address entities
	// in deltas and to generate resolvers.
	Identity bool

	// Identities lists the identity attribute keys this attribute belongs to.
	Identities []string

	// Unique is an explicit uniqueness override for non-identity attributes.
	// Identity attributes always get identity uniqueness.
	Unique Uniqueness

	// Target names the related identity attribute (ref) or enum set (enum).
	Target string

	// NativeID marks an entity type that rides the backend's built-in
	// identity instead of a domain attribute.
	NativeID bool

	// EnumValues enumerates the allowed symbolic values for enum attributes.
	EnumValues []string

	// EnumLabels optionally maps enum values to display labels.
	EnumLabels map[string]string
}

// Namespace returns the entity-type part of the qualified key
// ("user" for "user/email").
func (a Attribute) Namespace() string {
	if i := strings.IndexByte(a.Key, '/'); i >= 0 {
		return a.Key[:i]
	}
	return ""
}

// Name returns the local part of the qualified key
// ("email" for "user/email").
func (a Attribute) Name() string {
	if i := strings.IndexByte(a.Key, '/'); i >= 0 {
		return a.Key[i+1:]
	}
	return a.Key
}

// QualifyEnumValue namespaces a bare enum value with the owning entity and
// attribute name: ("user/role", "admin") -> "user.role/admin". Values that
// already carry a namespace are returned unchanged.
func (a Attribute) QualifyEnumValue(v string) string {
	if strings.ContainsRune(v, '/') {
		return v
	}
	return a.Namespace() + "." + a.Name() + "/" + v
}

// Catalog is an insertion-ordered, immutable collection of attributes.
type Catalog struct {
	attrs []Attribute
	index map[string]int
}

// New builds a catalog from the given attributes, validating them.
func New(attrs ...Attribute) (*Catalog, error) {
	c := &Catalog{
		attrs: make([]Attribute, 0, len(attrs)),
		index: make(map[string]int, len(attrs)),
	}
	for _, a := range attrs {
		if a.Key == "" {
			return nil, errors.New("attribute with empty key")
		}
		if _, dup := c.index[a.Key]; dup {
			return nil, errors.Newf("duplicate attribute key %q", a.Key)
		}
		if a.Type == KindEnum && len(a.EnumValues) == 0 {
			return nil, errors.Newf("enum attribute %q has no enumerated values", a.Key)
		}
		if a.Type == KindRef && a.Target == "" {
			return nil, errors.Newf("ref attribute %q has no target", a.Key)
		}
		c.index[a.Key] = len(c.attrs)
		c.attrs = append(c.attrs, a)
	}
	return c, nil
}

// MustNew is New that panics on invalid input, for static catalogs and tests.
func MustNew(attrs ...Attribute) *Catalog {
	c, err := New(attrs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Get looks up an attribute by qualified key.
func (c *Catalog) Get(key string) (Attribute, bool) {
	i, ok := c.index[key]
	if !ok {
		return Attribute{}, false
	}
	return c.attrs[i], true
}

// Len returns the number of attributes.
func (c *Catalog) Len() int {
	return len(c.attrs)
}

// Attributes returns all attributes in definition order.
func (c *Catalog) Attributes() []Attribute {
	out := make([]Attribute, len(c.attrs))
	copy(out, c.attrs)
	return out
}

// ByPartition returns the attributes belonging to the named partition,
// in definition order.
func (c *Catalog) ByPartition(partition string) []Attribute {
	var out []Attribute
	for _, a := range c.attrs {
		if a.Partition == partition {
			out = append(out, a)
		}
	}
	return out
}

// IdentityAttrs returns the identity attributes of the named partition,
// in definition order.
func (c *Catalog) IdentityAttrs(partition string) []Attribute {
	var out []Attribute
	for _, a := range c.attrs {
		if a.Identity && a.Partition == partition {
			out = append(out, a)
		}
	}
	return out
}

// OfIdentity returns the non-identity attributes that belong to the given
// identity attribute, in definition order.
func (c *Catalog) OfIdentity(identityKey string) []Attribute {
	var out []Attribute
	for _, a := range c.attrs {
		if a.Identity {
			continue
		}
		for _, id := range a.Identities {
			if id == identityKey {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// Partitions returns the distinct partition names referenced by the catalog,
// in first-seen order.
func (c *Catalog) Partitions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range c.attrs {
		if a.Partition == "" || seen[a.Partition] {
			continue
		}
		seen[a.Partition] = true
		out = append(out, a.Partition)
	}
	return out
}
