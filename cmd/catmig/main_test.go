package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catmig/internal/loader"
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

const reverseDoc = `
kind: delta
dom:` + graphSchema + `
cod:` + graphSchema + `
functor:
  obs: {V: V, E: E}
  homs: {src: tgt, tgt: src}
  attrs: {label: label}
`

const componentsDoc = `
kind: sigma
dom:` + graphSchema + `
cod:
  name: Components
  obs: [P]
  attrs:
    - {name: label, dom: P, type: string}
functor:
  obs: {V: P, E: P}
  homs: {src: "", tgt: ""}
  attrs: {label: label}
`

const setDoc = `
schema:
  name: Set
  obs: [X]
parts: {X: 2}
`

// workspace holds the fixture files of one test.
type workspace struct {
	dir string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CATMIG_DB", filepath.Join(dir, "catmig.db"))
	return &workspace{dir: dir}
}

func (w *workspace) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(w.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (w *workspace) path(name string) string { return filepath.Join(w.dir, name) }

// resetFlags restores every flag to its default so rootCmd can run again.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(ctx context.Context, w *workspace, args ...string) (stdout, stderr string, err error) {
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"-c", w.path("catmig.yaml")}, args...))
	err = rootCmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestMigrateToStdout(t *testing.T) {
	w := newWorkspace(t)
	mig := w.write(t, "reverse.yaml", reverseDoc)
	inst := w.write(t, "graph.yaml", graphDoc)

	out, _, err := execute(context.Background(), w, "migrate", "-m", mig, "-i", inst)
	require.NoError(t, err)

	y, err := loader.ParseInstance([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "Graph{V:3, E:2}", y.String())
	assert.Equal(t, []int{1, 2}, y.HomFunction(0).Map, "src is the old tgt")
}

func TestMigrateToFile(t *testing.T) {
	w := newWorkspace(t)
	mig := w.write(t, "reverse.yaml", reverseDoc)
	inst := w.write(t, "graph.yaml", graphDoc)
	dst := w.path("out/reversed.yaml")

	out, errOut, err := execute(context.Background(), w, "migrate", "-m", mig, "-i", inst, "-o", dst)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "delta migration wrote Graph{V:3, E:2}")

	y, err := loader.LoadInstance(dst)
	require.NoError(t, err)
	assert.Equal(t, "Graph{V:3, E:2}", y.String())
}

func TestMigrateRequiresFlags(t *testing.T) {
	w := newWorkspace(t)
	_, _, err := execute(context.Background(), w, "migrate", "-m", w.path("missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instance")
}

func TestShowFile(t *testing.T) {
	w := newWorkspace(t)
	inst := w.write(t, "graph.yaml", graphDoc)

	out, _, err := execute(context.Background(), w, "show", "-i", inst)
	require.NoError(t, err)
	assert.Contains(t, out, "Graph{V:3, E:2}")
	for _, want := range []string{"label", "src", "tgt", "a", "b", "c"} {
		assert.Contains(t, out, want)
	}
}

func TestSaveAndShowStored(t *testing.T) {
	w := newWorkspace(t)
	mig := w.write(t, "reverse.yaml", reverseDoc)
	inst := w.write(t, "graph.yaml", graphDoc)

	_, errOut, err := execute(context.Background(), w, "migrate", "-m", mig, "-i", inst, "-o", w.path("out.yaml"), "--save")
	require.NoError(t, err)
	m := regexp.MustCompile(`saved as (\S+)`).FindStringSubmatch(errOut)
	require.Len(t, m, 2, errOut)

	out, _, err := execute(context.Background(), w, "show", "--stored", m[1])
	require.NoError(t, err)
	assert.Contains(t, out, "Graph{V:3, E:2}")

	_, _, err = execute(context.Background(), w, "show", "--stored", "nope")
	assert.Error(t, err)
}

func TestRunsListsSuccessAndFailure(t *testing.T) {
	w := newWorkspace(t)
	mig := w.write(t, "reverse.yaml", reverseDoc)
	inst := w.write(t, "graph.yaml", graphDoc)
	set := w.write(t, "set.yaml", setDoc)

	out, _, err := execute(context.Background(), w, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded")

	_, _, err = execute(context.Background(), w, "migrate", "-m", mig, "-i", inst)
	require.NoError(t, err)
	_, _, err = execute(context.Background(), w, "migrate", "-m", mig, "-i", set)
	require.Error(t, err)

	out, _, err = execute(context.Background(), w, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "delta")
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "failed")

	out, _, err = execute(context.Background(), w, "runs", "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "delta"))
}

func TestComma(t *testing.T) {
	w := newWorkspace(t)
	mig := w.write(t, "components.yaml", componentsDoc)

	out, _, err := execute(context.Background(), w, "comma", "-m", mig)
	require.NoError(t, err)
	assert.Contains(t, out, "(F ↓ P)")
	assert.Contains(t, out, "src: 1 -> 0")
	assert.Contains(t, out, "tgt: 1 -> 0")

	_, _, err = execute(context.Background(), w, "comma", "-m", w.write(t, "reverse.yaml", reverseDoc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sigma")
}

func TestWatchRerunsOnChange(t *testing.T) {
	w := newWorkspace(t)
	mig := w.write(t, "reverse.yaml", reverseDoc)
	inst := w.write(t, "graph.yaml", graphDoc)
	dst := w.path("reversed.yaml")
	w.write(t, "catmig.yaml", "watch:\n  debounce: 50ms\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := execute(ctx, w, "watch", "-m", mig, "-i", inst, "-o", dst)
		done <- err
	}()

	outputIs := func(want string) func() bool {
		return func() bool {
			y, err := loader.LoadInstance(dst)
			return err == nil && y.String() == want
		}
	}
	require.Eventually(t, outputIs("Graph{V:3, E:2}"), 5*time.Second, 20*time.Millisecond)

	grown := strings.Replace(graphDoc, "parts: {V: 3, E: 2}", "parts: {V: 4, E: 2}", 1)
	grown = strings.Replace(grown, "label: [a, b, c]", "label: [a, b, c, d]", 1)
	w.write(t, "graph.yaml", grown)
	require.Eventually(t, outputIs("Graph{V:4, E:2}"), 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
