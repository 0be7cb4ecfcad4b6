package mangle

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catmig/internal/finset"
)

func TestLimitProgram(t *testing.T) {
	d := finset.Diagram{
		Sets: []int{2, 2},
		Edges: []finset.Edge{
			{Src: 0, Tgt: 1, Fn: finset.NewFunction([]int{1, 0}, 2)},
			{Src: 1, Tgt: 1, Fn: finset.Identity(2)},
		},
	}
	program := limitProgram(d)
	assert.Contains(t, program, "Decl v0(X).")
	assert.Contains(t, program, "Decl e1(X, Y).")
	assert.True(t, strings.HasSuffix(program, "lim(X0, X1) :- v0(X0), v1(X1), e0(X0, X1), e1(X1, X1).\n"))
}

func TestLimitMatchesNative(t *testing.T) {
	tests := []struct {
		name string
		d    finset.Diagram
	}{
		{
			name: "pullback",
			d: finset.Diagram{
				Sets: []int{3, 2, 2},
				Edges: []finset.Edge{
					{Src: 0, Tgt: 2, Fn: finset.NewFunction([]int{0, 1, 1}, 2)},
					{Src: 1, Tgt: 2, Fn: finset.NewFunction([]int{1, 0}, 2)},
				},
			},
		},
		{
			name: "equalizer",
			d: finset.Diagram{
				Sets: []int{4, 3},
				Edges: []finset.Edge{
					{Src: 0, Tgt: 1, Fn: finset.NewFunction([]int{0, 1, 2, 0}, 3)},
					{Src: 0, Tgt: 1, Fn: finset.NewFunction([]int{0, 2, 2, 1}, 3)},
				},
			},
		},
		{
			name: "fixed points",
			d: finset.Diagram{
				Sets:  []int{4},
				Edges: []finset.Edge{{Src: 0, Tgt: 0, Fn: finset.NewFunction([]int{0, 2, 2, 1}, 4)}},
			},
		},
		{name: "product", d: finset.Diagram{Sets: []int{2, 3}}},
		{name: "terminal", d: finset.Diagram{}},
		{name: "empty vertex", d: finset.Diagram{Sets: []int{3, 0}}},
	}

	ctx := context.Background()
	solver := NewSolver(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := finset.NativeSolver{}.Limit(ctx, tt.d)
			require.NoError(t, err)
			got, err := solver.Limit(ctx, tt.d)
			require.NoError(t, err)

			require.Equal(t, want.Apex, got.Apex)
			for i := 0; i < want.Apex; i++ {
				if diff := cmp.Diff(want.Tuple(i), got.Tuple(i)); diff != "" {
					t.Errorf("tuple %d mismatch (-native +datalog):\n%s", i, diff)
				}
			}
			assert.Equal(t, want.Legs, got.Legs)
		})
	}
}

func TestFactLimit(t *testing.T) {
	solver := NewSolver(Config{FactLimit: 3})
	_, err := solver.Limit(context.Background(), finset.Diagram{Sets: []int{2, 2}})
	assert.ErrorIs(t, err, ErrFactLimit)
}

func TestLimitStopsOnDoneContext(t *testing.T) {
	d := finset.Diagram{
		Sets:  []int{2, 2},
		Edges: []finset.Edge{{Src: 0, Tgt: 1, Fn: finset.Identity(2)}},
	}
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancelExpired := context.WithTimeout(context.Background(), 0)
	defer cancelExpired()

	tests := []struct {
		name string
		ctx  context.Context
		want error
	}{
		{"cancelled", cancelled, context.Canceled},
		{"deadline passed", expired, context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lim, err := NewSolver(DefaultConfig()).Limit(tt.ctx, d)
			assert.Nil(t, lim)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMalformedDiagram(t *testing.T) {
	d := finset.Diagram{
		Sets:  []int{1, 1},
		Edges: []finset.Edge{{Src: 0, Tgt: 1, Fn: finset.NewFunction([]int{0, 0}, 1)}},
	}
	_, err := NewSolver(DefaultConfig()).Limit(context.Background(), d)
	assert.ErrorIs(t, err, finset.ErrMalformedDiagram)
}

func TestColimitDelegates(t *testing.T) {
	d := finset.Diagram{
		Sets:  []int{1, 2},
		Edges: []finset.Edge{{Src: 0, Tgt: 1, Fn: finset.NewFunction([]int{1}, 2)}},
	}
	colim, err := NewSolver(DefaultConfig()).Colimit(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 2, colim.Apex)
}
