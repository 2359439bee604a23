// Package schema synthesizes backend storage schemas from the attribute
// catalog. Synthesis is pure: the same catalog always produces the same
// schema, with no side effects, so it can run on every startup.
package schema

import (
	"github.com/teranos/facet/catalog"
)

// valueTypes is the fixed catalog-kind to backend-type table. Enums map to
// ref: enum values are modeled as referenced symbolic-ident entities.
var valueTypes = map[catalog.Kind]string{
	catalog.KindString:  "string",
	catalog.KindUUID:    "uuid",
	catalog.KindLong:    "long",
	catalog.KindDouble:  "double",
	catalog.KindBoolean: "boolean",
	catalog.KindInstant: "instant",
	catalog.KindRef:     "ref",
	catalog.KindEnum:    "ref",
}

// AttrSchema is one synthesized attribute definition.
type AttrSchema struct {
	Key       string
	ValueType string
	Many      bool
	Unique    catalog.Uniqueness
}

// SeedFact is one enum seed: a symbolic-ident entity installed alongside the
// schema so enum values can be referenced.
type SeedFact struct {
	Ident string
	Label string
}

// Schema is the synthesized storage schema for one partition.
type Schema struct {
	Partition string
	Attrs     []AttrSchema
	Seeds     []SeedFact
}

// Synthesize builds the storage schema for one partition from the catalog.
//
// Attributes with no partition, or a different one, are skipped. Native-id
// attributes are skipped entirely: they ride the backend's built-in
// identity. Identity attributes get identity uniqueness; others carry their
// explicit override. Enum attributes additionally seed one symbolic-ident
// entity per enumerated value, auto-qualified with the owning entity and
// attribute name when the value is not already namespaced.
func Synthesize(partition string, cat *catalog.Catalog) *Schema {
	s := &Schema{Partition: partition}

	for _, a := range cat.ByPartition(partition) {
		if a.NativeID {
			continue
		}

		as := AttrSchema{
			Key:       a.Key,
			ValueType: valueTypes[a.Type],
			Many:      a.Cardinality == catalog.Many,
			Unique:    a.Unique,
		}
		if a.Identity {
			as.Unique = catalog.UniqueIdentity
		}
		s.Attrs = append(s.Attrs, as)

		if a.Type == catalog.KindEnum {
			for _, v := range a.EnumValues {
				ident := a.QualifyEnumValue(v)
				s.Seeds = append(s.Seeds, SeedFact{
					Ident: ident,
					Label: a.EnumLabels[v],
				})
			}
		}
	}

	return s
}

// Attr looks up a synthesized attribute by key.
func (s *Schema) Attr(key string) (AttrSchema, bool) {
	for _, a := range s.Attrs {
		if a.Key == key {
			return a, true
		}
	}
	return AttrSchema{}, false
}
