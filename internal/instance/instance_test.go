package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catmig/internal/finset"
	"catmig/internal/schema"
)

func graphSchema() *schema.Schema {
	return schema.MustFreeDiagram(schema.Presentation{
		Name: "Graph",
		Obs:  []string{"V", "E"},
		Homs: []schema.HomDecl{
			{Name: "src", Dom: "E", Cod: "V"},
			{Name: "tgt", Dom: "E", Cod: "V"},
		},
		Attrs: []schema.AttrDecl{{Name: "weight", Dom: "E", Type: "int"}},
	})
}

func TestInstanceBuild(t *testing.T) {
	s := graphSchema()
	x := New(s)
	v, _ := s.Ob("V")
	e, _ := s.Ob("E")
	src, _ := s.Hom("src")
	tgt, _ := s.Hom("tgt")
	w, _ := s.Attr("weight")

	assert.Equal(t, 0, x.AddParts(v, 3))
	assert.Equal(t, 0, x.AddParts(e, 2))
	assert.Error(t, x.Validate(), "morphisms are unset")

	require.NoError(t, x.SetHom(src, []int{0, 1}))
	require.NoError(t, x.SetHom(tgt, []int{1, 2}))
	require.NoError(t, x.SetAttr(w, []any{5, 7}))
	require.NoError(t, x.Validate())

	assert.Equal(t, []int{0, 1, 2}, x.Parts(v))
	assert.Equal(t, 2, x.Subpart(tgt, 1))
	assert.Equal(t, 7, x.AttrValue(w, 1))
	assert.Equal(t, "Graph{V:3, E:2}", x.String())

	assert.Error(t, x.SetHom(src, []int{0}))
	assert.Error(t, x.SetHom(src, []int{0, 3}))
	assert.Error(t, x.SetAttr(w, []any{1}))
}

func TestInstanceAddPartsExtends(t *testing.T) {
	s := graphSchema()
	x := New(s)
	v, _ := s.Ob("V")
	e, _ := s.Ob("E")
	src, _ := s.Hom("src")

	x.AddParts(v, 1)
	x.AddParts(e, 1)
	require.NoError(t, x.SetSubpart(src, 0, 0))
	assert.Equal(t, 1, x.AddParts(e, 2))
	assert.Equal(t, -1, x.Subpart(src, 2))
	assert.Error(t, x.SetSubpart(src, 3, 0))
}

func TestPathFunction(t *testing.T) {
	s := schema.MustFreeDiagram(schema.Presentation{
		Name: "Chain",
		Obs:  []string{"A", "B", "C"},
		Homs: []schema.HomDecl{
			{Name: "f", Dom: "A", Cod: "B"},
			{Name: "g", Dom: "B", Cod: "C"},
		},
	})
	x := New(s)
	x.AddParts(0, 3)
	x.AddParts(1, 2)
	x.AddParts(2, 2)
	require.NoError(t, x.SetHom(0, []int{1, 0, 1}))
	require.NoError(t, x.SetHom(1, []int{1, 0}))

	fg, err := s.ParsePath("f.g")
	require.NoError(t, err)
	assert.Equal(t, finset.NewFunction([]int{0, 1, 0}, 2), x.PathFunction(fg))
	assert.Equal(t, finset.Identity(2), x.PathFunction(schema.Id(1)))
}

func TestInstanceEqual(t *testing.T) {
	build := func(name string, w any) *Instance {
		s := graphSchema()
		s.Name = name
		x := New(s)
		x.AddParts(0, 1)
		x.AddParts(1, 1)
		require.NoError(t, x.SetHom(0, []int{0}))
		require.NoError(t, x.SetHom(1, []int{0}))
		require.NoError(t, x.SetAttr(0, []any{w}))
		return x
	}
	assert.True(t, build("Graph", 1).Equal(build("Other", 1)))
	assert.False(t, build("Graph", 1).Equal(build("Graph", 2)))
}
