package hclutil

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestStringMap(t *testing.T) {
	t.Parallel()

	got, err := StringMap(cty.ObjectVal(map[string]cty.Value{
		"visit":  cty.NumberIntVal(12345),
		"ccd":    cty.StringVal("1"),
		"airmas": cty.NumberFloatVal(1.5),
		"dome":   cty.True,
	}))
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"visit":  "12345",
		"ccd":    "1",
		"airmas": "1.5",
		"dome":   "true",
	}, got)

	empty, err := StringMap(cty.NullVal(cty.DynamicPseudoType))
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = StringMap(cty.StringVal("visit=1"))
	require.ErrorContains(t, err, "expected an object")

	_, err = StringMap(cty.ObjectVal(map[string]cty.Value{
		"ccds": cty.ListVal([]cty.Value{cty.NumberIntVal(1)}),
	}))
	require.ErrorContains(t, err, `attribute "ccds"`)
}

func TestFindUniqueBlock(t *testing.T) {
	t.Parallel()

	src := `
exposure {}
catalog {}
catalog {}
`
	file, diags := hclsyntax.ParseConfig([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())

	content, diags := file.Body.Content(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{{Type: "exposure"}, {Type: "catalog"}, {Type: "background"}},
	})
	require.False(t, diags.HasErrors(), diags.Error())

	block, diags := FindUniqueBlock(content.Blocks, "exposure")
	require.False(t, diags.HasErrors())
	require.NotNil(t, block)

	block, diags = FindUniqueBlock(content.Blocks, "background")
	require.False(t, diags.HasErrors())
	require.Nil(t, block)

	_, diags = FindUniqueBlock(content.Blocks, "catalog")
	require.True(t, diags.HasErrors())
	require.Contains(t, diags.Error(), `Duplicate "catalog" block`)
}
