package cuegraph_test

import (
	"testing"

	"github.com/aretw0/cueline/internal/cuegraph"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cue(id string, idx int, kind domain.PolicyKind, target string) domain.CueNode {
	return domain.CueNode{
		ID:     id,
		Index:  idx,
		Entry:  float64(idx * 8),
		Exit:   float64(idx*8 + 8),
		Policy: domain.ExitPolicy{Kind: kind, Target: target},
	}
}

func loopGraph(t *testing.T) *cuegraph.Graph {
	t.Helper()
	g, err := cuegraph.New([]domain.CueNode{
		cue("B", 1, domain.PolicyVamp, "A"),
		cue("A", 0, domain.PolicyFallThrough, "B"),
		cue("C", 2, domain.PolicyJump, "A"),
		cue("D", 3, domain.PolicyFallThrough, ""),
	}, "")
	require.NoError(t, err)
	return g
}

func TestNew_ShowOrderAndStart(t *testing.T) {
	g := loopGraph(t)

	assert.Equal(t, "A", g.Start())
	assert.Equal(t, 4, g.Len())

	var ids []string
	for _, c := range g.Nodes() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, ids)

	next, ok := g.Next("B")
	assert.True(t, ok)
	assert.Equal(t, "C", next)

	_, ok = g.Next("D")
	assert.False(t, ok)

	prev, ok := g.Prev("B")
	assert.True(t, ok)
	assert.Equal(t, "A", prev)

	_, ok = g.Prev("A")
	assert.False(t, ok)

	c, ok := g.ByIndex(2)
	assert.True(t, ok)
	assert.Equal(t, "C", c.ID)
}

func TestNew_ReferentialIntegrity(t *testing.T) {
	_, err := cuegraph.New([]domain.CueNode{cue("A", 0, domain.PolicyFallThrough, "ghost")}, "")
	require.ErrorIs(t, err, domain.ErrInconsistentGraph)

	var ig *domain.InconsistentGraphError
	require.ErrorAs(t, err, &ig)
	assert.Equal(t, "A", ig.CueID)
	assert.Equal(t, "ghost", ig.Missing)

	_, err = cuegraph.New([]domain.CueNode{cue("A", 0, domain.PolicyFallThrough, "")}, "nope")
	assert.ErrorIs(t, err, domain.ErrInconsistentGraph)

	_, err = cuegraph.New([]domain.CueNode{cue("A", 0, "", ""), cue("A", 1, "", "")}, "")
	var dup *cuegraph.DuplicateCueError
	assert.ErrorAs(t, err, &dup)
}

func TestNew_CyclesAreValid(t *testing.T) {
	_, err := cuegraph.New([]domain.CueNode{
		cue("A", 0, domain.PolicyFallThrough, "A"),
	}, "")
	assert.NoError(t, err)
}

func TestNode_Unknown(t *testing.T) {
	g := loopGraph(t)

	_, err := g.Node("Z")
	require.ErrorIs(t, err, domain.ErrUnknownCue)

	_, err = g.ResolveNext("Z", domain.TriggerNone)
	assert.ErrorIs(t, err, domain.ErrUnknownCue)
}

func TestResolveNext(t *testing.T) {
	g := loopGraph(t)

	tests := []struct {
		name    string
		cue     string
		trigger domain.Trigger
		want    domain.NextAction
	}{
		{"FallThrough At Exit", "A", domain.TriggerNone, domain.NextAction{Kind: domain.ActionAdvance, CueID: "B"}},
		{"FallThrough Go", "A", domain.TriggerGo, domain.NextAction{Kind: domain.ActionJump, CueID: "B"}},
		{"FallThrough Release", "A", domain.TriggerRelease, domain.NextAction{Kind: domain.ActionHold}},
		{"Open FallThrough At Exit", "D", domain.TriggerNone, domain.NextAction{Kind: domain.ActionHold}},
		{"Open FallThrough Go At End", "D", domain.TriggerGo, domain.NextAction{Kind: domain.ActionHold}},
		{"Vamp At Exit", "B", domain.TriggerNone, domain.NextAction{Kind: domain.ActionHold}},
		{"Vamp Release", "B", domain.TriggerRelease, domain.NextAction{Kind: domain.ActionAdvance, CueID: "A"}},
		{"Vamp Go", "B", domain.TriggerGo, domain.NextAction{Kind: domain.ActionAdvance, CueID: "A"}},
		{"Jump Go", "C", domain.TriggerGo, domain.NextAction{Kind: domain.ActionJump, CueID: "A"}},
		{"Jump At Exit", "C", domain.TriggerNone, domain.NextAction{Kind: domain.ActionHold}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.ResolveNext(tt.cue, tt.trigger)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveNext_OpenFallThroughGoUsesShowOrder(t *testing.T) {
	g, err := cuegraph.New([]domain.CueNode{
		cue("A", 0, domain.PolicyFallThrough, ""),
		cue("B", 1, domain.PolicyFallThrough, ""),
	}, "")
	require.NoError(t, err)

	got, err := g.ResolveNext("A", domain.TriggerGo)
	require.NoError(t, err)
	assert.Equal(t, domain.NextAction{Kind: domain.ActionJump, CueID: "B"}, got)
}

func TestResolveNext_DanglingEdgeIsFatal(t *testing.T) {
	g := cuegraph.NewUnchecked([]domain.CueNode{cue("A", 0, domain.PolicyFallThrough, "gone")}, "")

	_, err := g.ResolveNext("A", domain.TriggerNone)
	require.ErrorIs(t, err, domain.ErrInconsistentGraph)
	assert.True(t, domain.IsFatal(err))
}
