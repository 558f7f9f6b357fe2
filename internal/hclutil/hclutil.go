// Package hclutil holds small helpers shared by the HCL decoders.
package hclutil

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// FindUniqueBlock searches a slice of blocks for a block of the given type.
// It returns a diagnostic error if more than one is found, and nil if none
// is found.
func FindUniqueBlock(blocks hcl.Blocks, name string) (*hcl.Block, hcl.Diagnostics) {
	var found *hcl.Block
	var diags hcl.Diagnostics

	for _, block := range blocks {
		if block.Type != name {
			continue
		}
		if found != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate \"" + name + "\" block",
				Detail:   "Only one \"" + name + "\" block is allowed.",
				Subject:  &block.DefRange,
			})
			continue
		}
		found = block
	}

	return found, diags
}

// StringMap flattens an object or map value of primitives into strings.
// Whole numbers are rendered without a fractional part, so `ccd = 1` and
// `ccd = "1"` produce the same entry. A null value yields an empty map.
func StringMap(val cty.Value) (map[string]string, error) {
	out := make(map[string]string)
	if val.IsNull() {
		return out, nil
	}
	if !val.IsKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("expected an object, got %s", ty.FriendlyName())
	}

	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		key := k.AsString()
		s, err := primitiveString(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", key, err)
		}
		out[key] = s
	}
	return out, nil
}

func primitiveString(v cty.Value) (string, error) {
	if v.IsNull() || !v.IsKnown() {
		return "", fmt.Errorf("value must be known and not null")
	}
	if !v.Type().IsPrimitiveType() {
		return "", fmt.Errorf("unsupported type %s", v.Type().FriendlyName())
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	return s.AsString(), nil
}
