// Package cuegraph stores the cues of a show in an arena keyed by id.
//
// Edges are cue ids resolved by lookup, so loops and vamps back to earlier cues need no
// special handling. A Graph is immutable once built and may be shared between goroutines.
package cuegraph

import (
	"sort"

	"github.com/aretw0/cueline/pkg/domain"
)

// Graph is an immutable cue graph.
type Graph struct {
	nodes map[string]domain.CueNode
	order []string
	start string
}

// New validates referential integrity and builds the graph. Cues are kept in show order
// (Index, then declaration order). start defaults to the first cue.
func New(cues []domain.CueNode, start string) (*Graph, error) {
	g, err := build(cues, start)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// NewUnchecked builds the graph without validating edges. Resolution reports dangling
// edges as InconsistentGraphError instead.
func NewUnchecked(cues []domain.CueNode, start string) *Graph {
	g, _ := build(cues, start)
	return g
}

func build(cues []domain.CueNode, start string) (*Graph, error) {
	g := &Graph{
		nodes: make(map[string]domain.CueNode, len(cues)),
		order: make([]string, 0, len(cues)),
	}

	sorted := append([]domain.CueNode(nil), cues...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	var dup error
	for _, c := range sorted {
		if _, exists := g.nodes[c.ID]; exists {
			if dup == nil {
				dup = &DuplicateCueError{CueID: c.ID}
			}
			continue
		}
		g.nodes[c.ID] = c
		g.order = append(g.order, c.ID)
	}

	g.start = start
	if g.start == "" && len(g.order) > 0 {
		g.start = g.order[0]
	}
	return g, dup
}

// Validate checks that the start cue and every edge target exist.
func (g *Graph) Validate() error {
	if g.start != "" {
		if _, ok := g.nodes[g.start]; !ok {
			return &domain.InconsistentGraphError{Missing: g.start}
		}
	}
	for _, id := range g.order {
		c := g.nodes[id]
		if c.Policy.Target == "" {
			continue
		}
		if _, ok := g.nodes[c.Policy.Target]; !ok {
			return &domain.InconsistentGraphError{CueID: id, Missing: c.Policy.Target}
		}
	}
	return nil
}

// Node returns the cue with id.
func (g *Graph) Node(id string) (domain.CueNode, error) {
	c, ok := g.nodes[id]
	if !ok {
		return domain.CueNode{}, &domain.UnknownCueError{CueID: id}
	}
	return c, nil
}

// Has reports whether id is a cue of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Start returns the id playback begins with, or "" for an empty graph.
func (g *Graph) Start() string { return g.start }

// Len returns the number of cues.
func (g *Graph) Len() int { return len(g.order) }

// Nodes returns the cues in show order.
func (g *Graph) Nodes() []domain.CueNode {
	out := make([]domain.CueNode, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// ByIndex returns the i-th cue in show order.
func (g *Graph) ByIndex(i int) (domain.CueNode, bool) {
	if i < 0 || i >= len(g.order) {
		return domain.CueNode{}, false
	}
	return g.nodes[g.order[i]], true
}

func (g *Graph) position(id string) int {
	for i, o := range g.order {
		if o == id {
			return i
		}
	}
	return -1
}

// Next returns the cue after id in show order.
func (g *Graph) Next(id string) (string, bool) {
	i := g.position(id)
	if i < 0 || i+1 >= len(g.order) {
		return "", false
	}
	return g.order[i+1], true
}

// Prev returns the cue before id in show order.
func (g *Graph) Prev(id string) (string, bool) {
	i := g.position(id)
	if i <= 0 {
		return "", false
	}
	return g.order[i-1], true
}

// ResolveNext decides what happens when the current cue meets trigger.
//
//	policy        exit boundary     release           go
//	fall_through  Advance(target)   Hold              Jump(target or next)
//	vamp          Hold              Advance(target)   Advance(target)
//	jump          Hold              Hold              Jump(target)
//
// A missing target yields Hold. An edge to a missing cue is an InconsistentGraphError.
func (g *Graph) ResolveNext(currentID string, trigger domain.Trigger) (domain.NextAction, error) {
	cur, err := g.Node(currentID)
	if err != nil {
		return domain.NextAction{}, err
	}

	target := cur.Policy.Target
	if target != "" && !g.Has(target) {
		return domain.NextAction{}, &domain.InconsistentGraphError{CueID: currentID, Missing: target}
	}
	hold := domain.NextAction{Kind: domain.ActionHold}

	switch cur.Policy.Kind {
	case domain.PolicyVamp:
		if trigger == domain.TriggerNone || target == "" {
			return hold, nil
		}
		return domain.NextAction{Kind: domain.ActionAdvance, CueID: target}, nil

	case domain.PolicyJump:
		if trigger != domain.TriggerGo || target == "" {
			return hold, nil
		}
		return domain.NextAction{Kind: domain.ActionJump, CueID: target}, nil

	default:
		switch trigger {
		case domain.TriggerNone:
			if target == "" {
				return hold, nil
			}
			return domain.NextAction{Kind: domain.ActionAdvance, CueID: target}, nil
		case domain.TriggerGo:
			if target == "" {
				next, ok := g.Next(currentID)
				if !ok {
					return hold, nil
				}
				target = next
			}
			return domain.NextAction{Kind: domain.ActionJump, CueID: target}, nil
		}
		return hold, nil
	}
}
