package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catmig/internal/instance"
	"catmig/internal/migrate"
	"catmig/internal/schema"
)

const graphSchema = `
  name: Graph
  obs: [V, E]
  homs:
    - {name: src, dom: E, cod: V}
    - {name: tgt, dom: E, cod: V}
  attrs:
    - {name: label, dom: V, type: string}
`

const graphDoc = `
schema:` + graphSchema + `
parts: {V: 3, E: 2}
homs:
  src: [0, 1]
  tgt: [1, 2]
attrs:
  label: [a, b, c]
`

// run migrates the instance document along the migration document and checks
// the result survives a trip through YAML.
func run(t *testing.T, inst, doc string) string {
	t.Helper()
	x, err := ParseInstance([]byte(inst))
	require.NoError(t, err)
	m, err := ParseMigration([]byte(doc))
	require.NoError(t, err)
	y, err := migrate.NewEngine(migrate.Config{}).Migrate(context.Background(), x, m)
	require.NoError(t, err)
	data, err := MarshalInstance(y)
	require.NoError(t, err)
	back, err := ParseInstance(data)
	require.NoError(t, err)
	require.True(t, y.Equal(back), "marshalled output does not round trip:\n%s", data)
	return y.String()
}

func mustInstance(t *testing.T, doc string) *instance.Instance {
	t.Helper()
	x, err := ParseInstance([]byte(doc))
	require.NoError(t, err)
	return x
}

func mustMigration(t *testing.T, doc string) migrate.Migration {
	t.Helper()
	m, err := ParseMigration([]byte(doc))
	require.NoError(t, err)
	return m
}

func TestParseSchema(t *testing.T) {
	s, err := ParseSchema([]byte(graphSchema))
	require.NoError(t, err)
	assert.Equal(t, "Graph", s.Name)
	assert.Equal(t, 2, s.NHoms())

	_, err = ParseSchema([]byte("name: Bad\nobs: [A]\nhoms: [{name: f, dom: A, cod: B}]\n"))
	var se *schema.SchemaError
	assert.ErrorAs(t, err, &se)
}

func TestParseInstance(t *testing.T) {
	x, err := ParseInstance([]byte(graphDoc))
	require.NoError(t, err)
	assert.Equal(t, "Graph{V:3, E:2}", x.String())
	assert.Equal(t, []int{1, 2}, x.HomFunction(1).Map)
	assert.Equal(t, "c", x.AttrValue(0, 2))
}

func TestInstanceFileRoundTrip(t *testing.T) {
	x, err := ParseInstance([]byte(graphDoc))
	require.NoError(t, err)
	require.NoError(t, x.SetAttr(0, []any{"a", nil, 3}))

	path := filepath.Join(t.TempDir(), "out", "graph.yaml")
	require.NoError(t, WriteInstance(path, x))
	y, err := LoadInstance(path)
	require.NoError(t, err)
	assert.True(t, x.Equal(y))
}

func TestParseInstanceErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		bad  string
	}{
		{"unknown object", "schema:" + graphSchema + "parts: {W: 1}\n", "W"},
		{"unknown hom", "schema:" + graphSchema + "parts: {V: 1}\nhoms: {dst: []}\n", "dst"},
		{"unknown attr", "schema:" + graphSchema + "parts: {V: 1}\nattrs: {name: [x]}\n", "name"},
		{"negative", "schema:" + graphSchema + "parts: {V: -1}\n", "V"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInstance([]byte(tt.doc))
			var se *schema.SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.bad, se.Name)
		})
	}

	_, err := ParseInstance([]byte("schema:" + graphSchema + "parts: {V: 2, E: 1}\nhoms: {src: [0], tgt: [5]}\n"))
	assert.Error(t, err, "out of range")
	_, err = ParseInstance([]byte("schema:" + graphSchema + "parts: {V: 2, E: 1}\nhoms: {src: [0]}\n"))
	assert.Error(t, err, "tgt unset")
}

func TestParseDelta(t *testing.T) {
	doc := `
kind: delta
dom:` + graphSchema + `
cod:` + graphSchema + `
functor:
  obs: {V: V, E: E}
  homs: {src: tgt, tgt: src}
  attrs: {label: label}
`
	m, err := ParseMigration([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, migrate.Delta, m.Kind())
	assert.Equal(t, "Graph{V:3, E:2}", run(t, graphDoc, doc))
}

func TestParseSigma(t *testing.T) {
	doc := `
kind: sigma
dom:` + graphSchema + `
cod:
  name: Components
  obs: [P]
  attrs:
    - {name: label, dom: P, type: string}
functor:
  obs: {V: P, E: P}
  homs: {src: id(P), tgt: ""}
  attrs: {label: label}
`
	// one component, so every label must agree
	inst := strings.Replace(graphDoc, "label: [a, b, c]", "label: [a, a, a]", 1)
	assert.Equal(t, "Components{P:1}", run(t, inst, doc))
	_, err := migrate.NewEngine(migrate.Config{}).Migrate(context.Background(), mustInstance(t, graphDoc), mustMigration(t, doc))
	assert.ErrorIs(t, err, migrate.ErrAttributeConflict)
}

const pathsDoc = `
kind: conjunctive
from:` + graphSchema + `
to:
  name: Paths
  obs: [P2, V]
  homs:
    - {name: start, dom: P2, cod: V}
    - {name: end, dom: P2, cod: V}
  attrs:
    - {name: label, dom: V, type: string}
obs:
  P2:
    shape:
      obs: [e1, e2, v]
      homs:
        - {name: t, dom: e1, cod: v}
        - {name: s, dom: e2, cod: v}
    obs: {e1: E, e2: E, v: V}
    homs: {t: tgt, s: src}
  V:
    shape: {obs: [x]}
    obs: {x: V}
homs:
  start:
    shape_map: {x: e1}
    components: {x: src}
  end:
    shape_map: {x: e2}
    components: {x: tgt}
attrs:
  label: {vertex: x, path: label}
`

func TestParseConjunctive(t *testing.T) {
	cm, ok := mustMigration(t, pathsDoc).(migrate.ConjunctiveMigration)
	require.True(t, ok)
	assert.Equal(t, "P2", cm.Ob[0].Shape.Name, "shape named after its object")
	assert.Equal(t, []int{0}, cm.Hom[0].ShapeMap)

	assert.Equal(t, "Paths{P2:1, V:3}", run(t, graphDoc, pathsDoc))
}

func TestParseGluing(t *testing.T) {
	doc := `
kind: gluing
from:` + graphSchema + `
to:
  name: Things
  obs: [Node, Thing]
  homs:
    - {name: h, dom: Node, cod: Thing}
  attrs:
    - {name: name, dom: Node, type: string}
obs:
  Node:
    shape: {obs: [x]}
    obs: {x: V}
  Thing:
    shape: {obs: [a, b]}
    obs: {a: V, b: E}
homs:
  h:
    shape_map: {x: a}
attrs:
  name: {x: label}
`
	assert.Equal(t, "Things{Node:3, Thing:5}", run(t, graphDoc, doc))
}

func TestParseGluc(t *testing.T) {
	doc := `
kind: gluc
from:` + graphSchema + `
to:
  name: Segments
  obs: [Seg, Vx]
  homs:
    - {name: from, dom: Seg, cod: Vx}
  attrs:
    - {name: first, dom: Seg, type: string}
obs:
  Seg:
    shape:
      obs: [p, e]
      homs:
        - {name: at, dom: p, cod: e}
    obs:
      p:
        shape:
          obs: [e1, e2, v]
          homs:
            - {name: t, dom: e1, cod: v}
            - {name: s, dom: e2, cod: v}
        obs: {e1: E, e2: E, v: V}
        homs: {t: tgt, s: src}
      e:
        shape: {obs: [x]}
        obs: {x: E}
    homs:
      at:
        shape_map: {x: e1}
  Vx:
    shape: {obs: [v]}
    obs:
      v:
        shape: {obs: [x]}
        obs: {x: V}
homs:
  from:
    shape_map: {p: v, e: v}
    components:
      p:
        shape_map: {x: e1}
        components: {x: src}
      e:
        shape_map: {x: x}
        components: {x: src}
attrs:
  first:
    p: {vertex: e1, path: src.label}
    e: {vertex: x, path: src.label}
`
	assert.Equal(t, "Segments{Seg:2, Vx:3}", run(t, graphDoc, doc))
}

func TestParseMigrationErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		bad  string
	}{
		{
			name: "missing object image",
			doc:  "kind: delta\ndom:" + graphSchema + "cod:" + graphSchema + "functor: {obs: {V: V}}\n",
			bad:  "E",
		},
		{
			name: "unknown target object",
			doc:  "kind: delta\ndom:" + graphSchema + "cod:" + graphSchema + "functor: {obs: {V: V, E: W}}\n",
			bad:  "W",
		},
		{
			name: "extra image",
			doc: "kind: delta\ndom:" + graphSchema + "cod:" + graphSchema +
				"functor:\n  obs: {V: V, E: E, F: E}\n  homs: {src: src, tgt: tgt}\n  attrs: {label: label}\n",
			bad: "F",
		},
		{
			name: "unknown path",
			doc: "kind: delta\ndom:" + graphSchema + "cod:" + graphSchema +
				"functor:\n  obs: {V: V, E: E}\n  homs: {src: dst, tgt: tgt}\n  attrs: {label: label}\n",
			bad: "src",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMigration([]byte(tt.doc))
			var se *schema.SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.bad, se.Name)
		})
	}

	_, err := ParseMigration([]byte("kind: pushout\n"))
	assert.ErrorContains(t, err, "unknown migration kind")

	_, err = ParseMigration([]byte("kind: gluing\nfrom:" + graphSchema))
	assert.ErrorContains(t, err, "needs both from and to")

	// label reads from a vertex the V diagram does not have
	bad := []byte(pathsDoc[:len(pathsDoc)-len("attrs:\n  label: {vertex: x, path: label}\n")])
	_, err = ParseMigration(append(bad, []byte("attrs:\n  label: {vertex: y, path: label}\n")...))
	var se *schema.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "label", se.Name)
}

func TestLoadMigrationFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paths.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pathsDoc), 0644))
	m, err := LoadMigration(path)
	require.NoError(t, err)
	assert.Equal(t, migrate.Conjunctive, m.Kind())

	_, err = LoadMigration(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
