package catalog

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/teranos/facet/errors"
)

// fileCatalog mirrors the on-disk catalog definition format.
type fileCatalog struct {
	Attributes []fileAttr `toml:"attribute" yaml:"attributes"`
}

type fileAttr struct {
	Key         string            `toml:"key" yaml:"key"`
	Type        string            `toml:"type" yaml:"type"`
	Cardinality string            `toml:"cardinality" yaml:"cardinality"`
	Partition   string            `toml:"partition" yaml:"partition"`
	Identity    bool              `toml:"identity" yaml:"identity"`
	Identities  []string          `toml:"identities" yaml:"identities"`
	Unique      string            `toml:"unique" yaml:"unique"`
	Target      string            `toml:"target" yaml:"target"`
	NativeID    bool              `toml:"native_id" yaml:"native_id"`
	EnumValues  []string          `toml:"enum_values" yaml:"enum_values"`
	EnumLabels  map[string]string `toml:"enum_labels" yaml:"enum_labels"`
}

// LoadFile reads a catalog definition from a TOML (.toml) or YAML
// (.yaml/.yml) file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog file %s", path)
	}

	var fc fileCatalog
	switch filepath.Ext(path) {
	case ".toml":
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, errors.Wrapf(err, "failed to parse catalog file %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, errors.Wrapf(err, "failed to parse catalog file %s", path)
		}
	default:
		return nil, errors.Newf("unsupported catalog file extension %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}

	attrs := make([]Attribute, 0, len(fc.Attributes))
	for _, fa := range fc.Attributes {
		a, err := fa.toAttribute()
		if err != nil {
			return nil, errors.Wrapf(err, "catalog file %s", path)
		}
		attrs = append(attrs, a)
	}
	return New(attrs...)
}

func (fa fileAttr) toAttribute() (Attribute, error) {
	kind, err := ParseKind(fa.Type)
	if err != nil {
		return Attribute{}, errors.Wrapf(err, "attribute %q", fa.Key)
	}

	card := One
	switch fa.Cardinality {
	case "", "one":
	case "many":
		card = Many
	default:
		return Attribute{}, errors.Newf("attribute %q: unknown cardinality %q", fa.Key, fa.Cardinality)
	}

	unique := UniqueNone
	switch fa.Unique {
	case "", "none":
	case "value":
		unique = UniqueValue
	case "identity":
		unique = UniqueIdentity
	default:
		return Attribute{}, errors.Newf("attribute %q: unknown uniqueness %q", fa.Key, fa.Unique)
	}

	return Attribute{
		Key:         fa.Key,
		Type:        kind,
		Cardinality: card,
		Partition:   fa.Partition,
		Identity:    fa.Identity,
		Identities:  fa.Identities,
		Unique:      unique,
		Target:      fa.Target,
		NativeID:    fa.NativeID,
		EnumValues:  fa.EnumValues,
		EnumLabels:  fa.EnumLabels,
	}, nil
}
