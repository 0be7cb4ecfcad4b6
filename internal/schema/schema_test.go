package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphPresentation() Presentation {
	return Presentation{
		Name: "Graph",
		Obs:  []string{"V", "E"},
		Homs: []HomDecl{
			{Name: "src", Dom: "E", Cod: "V"},
			{Name: "tgt", Dom: "E", Cod: "V"},
		},
		Attrs: []AttrDecl{{Name: "label", Dom: "V", Type: "string"}},
	}
}

func TestFreeDiagram(t *testing.T) {
	s, err := FreeDiagram(graphPresentation())
	require.NoError(t, err)

	assert.Equal(t, 2, s.NObs())
	assert.Equal(t, 2, s.NHoms())
	assert.Equal(t, 1, s.NAttrs())

	e, ok := s.Ob("E")
	require.True(t, ok)
	v, _ := s.Ob("V")
	src, _ := s.Hom("src")
	assert.Equal(t, e, s.Homs[src].Dom)
	assert.Equal(t, v, s.Homs[src].Cod)
	assert.Len(t, s.Out(e), 2)
	assert.Len(t, s.In(v), 2)
	assert.Empty(t, s.In(e))
	assert.Equal(t, []int{0}, s.AttrsOf(v))
	assert.Equal(t, "Graph{V,E; src:E->V,tgt:E->V}", s.String())
}

func TestFreeDiagramErrors(t *testing.T) {
	t.Run("dangling codomain", func(t *testing.T) {
		p := graphPresentation()
		p.Homs = append(p.Homs, HomDecl{Name: "loop", Dom: "E", Cod: "W"})
		_, err := FreeDiagram(p)
		var serr *SchemaError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, "loop", serr.Name)
		assert.Contains(t, err.Error(), "unknown codomain W")
	})

	t.Run("dangling domain", func(t *testing.T) {
		p := graphPresentation()
		p.Homs[0].Dom = "X"
		_, err := FreeDiagram(p)
		var serr *SchemaError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, "src", serr.Name)
	})

	t.Run("duplicate generator", func(t *testing.T) {
		p := graphPresentation()
		p.Attrs = append(p.Attrs, AttrDecl{Name: "src", Dom: "V", Type: "int"})
		_, err := FreeDiagram(p)
		var serr *SchemaError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, "duplicate generator", serr.Reason)
	})
}

func TestPresentationRoundTrip(t *testing.T) {
	s := MustFreeDiagram(graphPresentation())
	again := MustFreeDiagram(s.Presentation())
	assert.True(t, Equivalent(s, again))
	assert.Equal(t, graphPresentation(), s.Presentation())
}

func TestEquivalent(t *testing.T) {
	a := MustFreeDiagram(graphPresentation())
	p := graphPresentation()
	p.Name = "Other"
	b := MustFreeDiagram(p)
	assert.True(t, Equivalent(a, b), "names of schemas are not compared")

	p.Homs[1].Cod = "E"
	c := MustFreeDiagram(p)
	assert.False(t, Equivalent(a, c))
	assert.False(t, Equivalent(a, nil))
}

func TestPaths(t *testing.T) {
	s := MustFreeDiagram(Presentation{
		Name:  "Chain",
		Obs:   []string{"A", "B", "C"},
		Homs:  []HomDecl{{Name: "f", Dom: "A", Cod: "B"}, {Name: "g", Dom: "B", Cod: "C"}},
		Attrs: []AttrDecl{{Name: "w", Dom: "C", Type: "int"}},
	})

	fg, err := s.ParsePath("f.g")
	require.NoError(t, err)
	assert.Equal(t, Path{Dom: 0, Cod: 2, Homs: []int{0, 1}}, fg)
	assert.Equal(t, "f.g", s.FormatPath(fg))
	assert.True(t, fg.Equal(s.Generator(0).Then(s.Generator(1))))
	assert.NoError(t, s.Check(fg))

	id, err := s.ParsePath("id(B)")
	require.NoError(t, err)
	assert.True(t, id.IsIdentity())
	assert.Equal(t, "id(B)", s.FormatPath(id))

	_, err = s.ParsePath("g.f")
	assert.Error(t, err)
	_, err = s.ParsePath("h")
	assert.Error(t, err)
	_, err = s.ParsePath("id(Z)")
	assert.Error(t, err)

	ap, err := s.ParseAttrPath("f.g.w")
	require.NoError(t, err)
	assert.Equal(t, 0, ap.Path.Dom)
	assert.Equal(t, "f.g.w", s.FormatAttrPath(ap))

	bare, err := s.ParseAttrPath("w")
	require.NoError(t, err)
	assert.True(t, bare.Path.IsIdentity())
	assert.Equal(t, 2, bare.Path.Dom)

	_, err = s.ParseAttrPath("f.w")
	assert.Error(t, err, "w does not start at B")

	assert.NotEqual(t, fg.Key(), s.Generator(0).Key())
	assert.NotEqual(t, Id(0).Key(), Id(1).Key())
}

func TestTopologicalOrder(t *testing.T) {
	s := MustFreeDiagram(Presentation{
		Name: "Diamond",
		Obs:  []string{"D", "B", "C", "A"},
		Homs: []HomDecl{
			{Name: "ab", Dom: "A", Cod: "B"},
			{Name: "ac", Dom: "A", Cod: "C"},
			{Name: "bd", Dom: "B", Cod: "D"},
			{Name: "cd", Dom: "C", Cod: "D"},
		},
	})
	order, err := s.TopologicalOrder()
	require.NoError(t, err)
	require.Len(t, order, 4)

	pos := make(map[int]int)
	for i, ob := range order {
		pos[ob] = i
	}
	for _, h := range s.Homs {
		assert.Less(t, pos[h.Dom], pos[h.Cod], h.Name)
	}
	assert.True(t, s.IsAcyclic())
}

func TestTopologicalOrderCycle(t *testing.T) {
	t.Run("two cycle", func(t *testing.T) {
		s := MustFreeDiagram(Presentation{
			Name: "Loop",
			Obs:  []string{"A", "B", "C"},
			Homs: []HomDecl{
				{Name: "f", Dom: "A", Cod: "B"},
				{Name: "g", Dom: "B", Cod: "A"},
				{Name: "h", Dom: "B", Cod: "C"},
			},
		})
		order, err := s.TopologicalOrder()
		assert.Nil(t, order)
		var cerr *CycleError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, []string{"A", "B", "C"}, cerr.Obs)
	})

	t.Run("self loop", func(t *testing.T) {
		s := MustFreeDiagram(Presentation{
			Name: "Self",
			Obs:  []string{"A"},
			Homs: []HomDecl{{Name: "next", Dom: "A", Cod: "A"}},
		})
		assert.False(t, s.IsAcyclic())
	})
}

func TestFunctor(t *testing.T) {
	graph := MustFreeDiagram(graphPresentation())
	point := MustFreeDiagram(Presentation{
		Name:  "Point",
		Obs:   []string{"P"},
		Attrs: []AttrDecl{{Name: "name", Dom: "P", Type: "string"}},
	})

	collapse := &Functor{
		Dom:  graph,
		Cod:  point,
		Ob:   []int{0, 0},
		Hom:  []Path{Id(0), Id(0)},
		Attr: []AttrPath{{Path: Id(0), Attr: 0}},
	}
	require.NoError(t, collapse.Validate())

	t.Run("identity", func(t *testing.T) {
		id := IdentityFunctor(graph)
		require.NoError(t, id.Validate())
		composite, err := collapse.Compose(id)
		require.NoError(t, err)
		assert.Equal(t, collapse.Ob, composite.Ob)
		assert.Equal(t, collapse.Hom, composite.Hom)
	})

	t.Run("bad hom image", func(t *testing.T) {
		bad := *collapse
		bad.Hom = []Path{Id(0), {Dom: 0, Cod: 0, Homs: []int{3}}}
		var serr *SchemaError
		require.True(t, errors.As(bad.Validate(), &serr))
		assert.Equal(t, "tgt", serr.Name)
	})

	t.Run("attribute type change", func(t *testing.T) {
		p := point.Presentation()
		p.Attrs[0].Type = "int"
		intPoint := MustFreeDiagram(p)
		bad := *collapse
		bad.Cod = intPoint
		assert.Error(t, bad.Validate())
	})

	t.Run("missing images", func(t *testing.T) {
		bad := *collapse
		bad.Ob = []int{0}
		assert.Error(t, bad.Validate())
	})
}

func TestFunctorMapPath(t *testing.T) {
	chain := MustFreeDiagram(Presentation{
		Name: "Chain",
		Obs:  []string{"A", "B", "C"},
		Homs: []HomDecl{{Name: "f", Dom: "A", Cod: "B"}, {Name: "g", Dom: "B", Cod: "C"}},
	})
	arrow := MustFreeDiagram(Presentation{
		Name: "Arrow",
		Obs:  []string{"X", "Y"},
		Homs: []HomDecl{{Name: "u", Dom: "X", Cod: "Y"}},
	})
	// u goes to f.g
	fg, _ := chain.ParsePath("f.g")
	F := &Functor{Dom: arrow, Cod: chain, Ob: []int{0, 2}, Hom: []Path{fg}}
	require.NoError(t, F.Validate())

	// picks out Y
	pt := MustFreeDiagram(Presentation{Name: "Pt", Obs: []string{"*"}})
	G := &Functor{Dom: pt, Cod: arrow, Ob: []int{1}}
	FG, err := F.Compose(G)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, FG.Ob)

	u := arrow.Generator(0)
	assert.Equal(t, fg, F.MapPath(u))
	assert.Equal(t, Id(0), F.MapPath(Id(0)))

	_, err = G.Compose(F)
	assert.Error(t, err)
}
