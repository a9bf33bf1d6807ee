package options

import (
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
)

// ToTree returns o as a Tree keyed by the yaml tags of domain.Options.
//
// Leaves keep their Go kinds (int, float64, bool, string). A YAML round trip
// would not: integral floats such as -100 decode as ints, and merging a
// fractional value into them would then be rejected.
func ToTree(o domain.Options) Tree {
	return structTree(reflect.ValueOf(o))
}

func structTree(v reflect.Value) Tree {
	t := v.Type()
	out := make(Tree, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		key := yamlKey(t.Field(i))
		if key == "" {
			continue
		}
		f := v.Field(i)
		switch f.Kind() {
		case reflect.Struct:
			out[key] = structTree(f)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out[key] = int(f.Int())
		case reflect.Float32, reflect.Float64:
			out[key] = f.Float()
		case reflect.Bool:
			out[key] = f.Bool()
		case reflect.String:
			out[key] = f.String()
		}
	}
	return out
}

// yamlKey returns the key yaml.v3 uses for a field, or "" when the field is
// not encoded.
func yamlKey(f reflect.StructField) string {
	if !f.IsExported() {
		return ""
	}
	name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return strings.ToLower(f.Name)
	}
	return name
}

// fromTree decodes a tree produced by ToTree, and possibly merged into, on
// top of base. Keys missing from t keep base's values.
func fromTree(base domain.Options, t Tree) (domain.Options, error) {
	data, err := yaml.Marshal(t)
	if err != nil {
		return base, fmt.Errorf("encode options: %w", err)
	}
	o := base
	if err := yaml.Unmarshal(data, &o); err != nil {
		return base, fmt.Errorf("decode options: %w", err)
	}
	return o, nil
}

// Apply merges src into dst along the schema. Unknown keys and mismatched
// kinds in src are dropped silently. dst is only replaced when the merged
// result validates; otherwise the validation error is returned and dst is
// left untouched.
func Apply(dst *domain.Options, src Tree) error {
	merged, err := Merged(*dst, src)
	if err != nil {
		return err
	}
	if err := merged.Validate(); err != nil {
		return err
	}
	*dst = merged
	return nil
}

// Merged returns base with src merged in, without validating the result.
func Merged(base domain.Options, src Tree) (domain.Options, error) {
	t := ToTree(base)
	Merge(t, src)
	return fromTree(base, t)
}
