package runtime

import (
	"github.com/aretw0/cueline/internal/clock"
	"github.com/aretw0/cueline/internal/compiler"
	"github.com/aretw0/cueline/internal/cuegraph"
	"github.com/aretw0/cueline/internal/tempomap"
	"github.com/aretw0/cueline/pkg/domain"
)

// State is the complete execution state of one show session.
//
// It is a value: Tick works on a copy and never writes to storage reachable from the
// caller's State. The tempo map shares segment storage between copies but never mutates
// it, and per-cue schedules are rebuilt on activation instead of edited in place.
type State struct {
	Status   domain.TransportState
	CueID    string
	Position domain.SamplePosition
	Map      tempomap.Map
	Graph    *cuegraph.Graph

	Armed      bool
	Halted     bool
	Diagnostic string
	Tick       uint64
	Rejected   uint64
	Gains      [domain.Channels]float64
	Muted      [domain.Channels]bool
	// Playrate is the playback rate in percent; zero reads as 100.
	Playrate int

	// PulsesPerBeat enables pulse events (24 for a MIDI clock); zero disables them.
	PulsesPerBeat int
	// TimecodeStart is the label of show zero; its Rate is the LTC frame rate.
	TimecodeStart domain.Timecode

	exit    domain.SamplePosition
	clips   []scheduledClip
	boundTo uint64
	stale   bool

	vampCue     bool
	vampRelease string

	hold holdState
	ltc  ltcState
	disc bool
}

type scheduledClip struct {
	at domain.SamplePosition
	domain.ClipCue
}

// holdState keeps beats and pulses running while the position is frozen in a vamp.
type holdState struct {
	beats     float64
	nextBeat  int64
	nextPulse int64
	bar       int
}

// ltcState tracks timecode framing in the output sample domain. out counts output
// samples since the last resync and frames counts frame starts since then.
type ltcState struct {
	synced bool
	out    int64
	frames int64
}

// NewState returns an idle state positioned at the entry of the program's start cue.
func NewState(p *compiler.Program) State {
	s := State{
		Status:        domain.StateIdle,
		Map:           p.Map,
		Graph:         p.Graph,
		TimecodeStart: p.Timecode,
		exit:          -1,
		stale:         true,
	}
	if s.TimecodeStart.Rate == 0 {
		s.TimecodeStart.Rate = domain.DefaultTimecodeRate
	}
	if p.Graph != nil && p.Graph.Start() != "" {
		if node, err := p.Graph.Node(p.Graph.Start()); err == nil {
			s.CueID = node.ID
			s.Position = s.Map.SampleAt(node.Entry)
		}
	}
	s.Map = s.Map.WithPlayhead(s.Position)
	return s
}

// Snapshot copies out the read-only status view.
func (s *State) Snapshot() domain.Snapshot {
	snap := domain.Snapshot{
		Tick:       s.Tick,
		State:      s.Status,
		CueID:      s.CueID,
		Sample:     s.Position,
		Armed:      s.Armed,
		Halted:     s.Halted,
		Diagnostic: s.Diagnostic,
		Rejected:   s.Rejected,
	}
	if s.Graph != nil {
		if node, err := s.Graph.Node(s.CueID); err == nil {
			snap.CueName = node.Name
		}
	}
	if !s.Map.IsZero() {
		snap.Musical = clock.ToMusical(s.Position, s.Map)
		snap.TempoBPM = s.Map.TempoAt(s.Position)
		snap.Playrate = s.rate()
		snap.Timecode = s.timecode(s.Position)
	}
	return snap
}

func (s *State) sampleRate() int { return s.Map.SampleRate() }

func (s *State) rate() int {
	if s.Playrate == 0 {
		return 100
	}
	return s.Playrate
}

func (s *State) timecode(pos domain.SamplePosition) domain.Timecode {
	return clock.ToTimecode(pos, s.sampleRate(), s.TimecodeStart)
}

// relocate moves the playhead discontinuously.
func (s *State) relocate(pos domain.SamplePosition) {
	s.Position = pos
	s.Map = s.Map.WithPlayhead(pos)
	s.disc = true
}

// resolveBoundaries turns the musical exit and clip cues of the current cue into samples
// through the current tempo map.
func (s *State) resolveBoundaries() {
	s.exit = -1
	s.clips = nil
	s.boundTo = s.Map.Version()
	s.stale = false

	if s.Graph == nil {
		return
	}
	node, err := s.Graph.Node(s.CueID)
	if err != nil {
		return
	}
	if node.HasExit() {
		s.exit = s.Map.SampleAt(node.Exit)
	}
	if len(node.Clips) > 0 {
		clips := make([]scheduledClip, 0, len(node.Clips))
		for _, c := range node.Clips {
			clips = append(clips, scheduledClip{at: s.Map.SampleAt(node.Entry + c.AtBeat), ClipCue: c})
		}
		s.clips = clips
	}
}

func (s *State) boundariesCurrent() bool {
	return !s.stale && s.boundTo == s.Map.Version()
}
