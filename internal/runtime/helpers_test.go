package runtime_test

import (
	"testing"

	"github.com/aretw0/cueline/internal/compiler"
	"github.com/aretw0/cueline/internal/runtime"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/stretchr/testify/require"
)

const (
	sampleRate = 48000
	block      = 256
	beat       = 24000 // samples per beat at 120 bpm
)

func cue(id string, entry, exit float64, policy domain.PolicyKind, target string) domain.CueNode {
	return domain.CueNode{
		ID:     id,
		Name:   "Cue " + id,
		Entry:  entry,
		Exit:   exit,
		Policy: domain.ExitPolicy{Kind: policy, Target: target},
	}
}

func compile(t *testing.T, tempo []domain.TempoMark, cues ...domain.CueNode) *compiler.Program {
	t.Helper()
	for i := range cues {
		cues[i].Index = i
	}
	p, err := compiler.Compile(&domain.Show{
		Name:        "test",
		SampleRate:  sampleRate,
		BeatsPerBar: 4,
		Timecode:    domain.TimecodeSettings{FPS: 25},
		Tempo:       tempo,
		Cues:        cues,
	})
	require.NoError(t, err)
	return p
}

// tickN runs n ticks, applying cmds on the first one, and returns every timeline.
func tickN(s runtime.State, n int, cmds ...domain.Command) (runtime.State, []domain.Timeline) {
	var out []domain.Timeline
	for i := 0; i < n; i++ {
		var tl domain.Timeline
		if i == 0 {
			s, tl, _ = runtime.Tick(s, cmds, block)
		} else {
			s, tl, _ = runtime.Tick(s, nil, block)
		}
		out = append(out, tl)
	}
	return s, out
}

// tickUntil runs ticks until done reports true, or fails after limit ticks.
func tickUntil(t *testing.T, s runtime.State, limit int, done func(runtime.State) bool) runtime.State {
	t.Helper()
	for i := 0; i < limit; i++ {
		if done(s) {
			return s
		}
		s, _, _ = runtime.Tick(s, nil, block)
	}
	require.True(t, done(s), "condition not reached after %d ticks", limit)
	return s
}

func eventsOf(tls []domain.Timeline, kind domain.EventKind) []domain.Event {
	var out []domain.Event
	for _, tl := range tls {
		for _, ev := range tl.Events {
			if ev.Kind == kind {
				out = append(out, ev)
			}
		}
	}
	return out
}
