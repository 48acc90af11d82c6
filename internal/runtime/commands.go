package runtime

import (
	"fmt"
	"math"

	"github.com/aretw0/cueline/internal/compiler"
	"github.com/aretw0/cueline/pkg/domain"
)

// apply runs one command at the tick boundary. Events it produces sit at offset 0.
func (s *State) apply(c domain.Command, tl *domain.Timeline) error {
	switch c.Kind {
	case domain.CommandPlay:
		return s.play(tl)
	case domain.CommandStop:
		s.Armed = false
		s.setStatus(domain.StateStopped, 0, tl)
		return nil
	case domain.CommandReset:
		return s.reset(tl)
	case domain.CommandJumpTo:
		return s.jump(c.CueID, tl)
	case domain.CommandTempoNudge:
		return s.nudge(c.DeltaBPM)
	case domain.CommandVampRelease:
		return s.release(tl)
	case domain.CommandGo:
		return s.fire(tl)
	case domain.CommandHold:
		return s.holdAtBar()
	case domain.CommandNext:
		return s.stepCue(1, tl)
	case domain.CommandPrev:
		return s.stepCue(-1, tl)
	case domain.CommandChannelGain:
		return s.setGain(c.Channel, c.GainDB, tl)
	case domain.CommandChannelMute:
		return s.setMute(c.Channel, c.Mute, tl)
	case domain.CommandSeekBeat:
		return s.seek(domain.CommandSeekBeat, c.Beat, tl)
	case domain.CommandJumpBeat:
		return s.seek(domain.CommandJumpBeat, c.Beat, tl)
	case domain.CommandLoadCue:
		return s.loadCue(c.Index, tl)
	case domain.CommandPlayrate:
		return s.setPlayrate(c.Percent, tl)
	case domain.CommandReload:
		return s.reload(c.Payload, tl)
	default:
		return &UnknownCommandError{Kind: c.Kind}
	}
}

func (s *State) invalid(kind domain.CommandKind) error {
	return &domain.InvalidTransitionError{From: s.Status, Command: kind}
}

// play starts the selected cue from Idle. It is a no-op while running.
func (s *State) play(tl *domain.Timeline) error {
	switch s.Status {
	case domain.StatePlaying, domain.StateVamping:
		return nil
	case domain.StateStopped:
		return s.invalid(domain.CommandPlay)
	}

	id := s.CueID
	if id == "" && s.Graph != nil {
		id = s.Graph.Start()
	}
	if s.Graph == nil || id == "" {
		return &domain.InconsistentGraphError{Missing: "start cue"}
	}
	if !s.Graph.Has(id) {
		return &domain.InconsistentGraphError{Missing: id}
	}

	s.setStatus(domain.StatePlaying, 0, tl)
	s.disc = true
	if err := s.activate(id, 0, false, tl); err != nil {
		return err
	}
	s.holdIfVamp(0, tl)
	return nil
}

// activate makes id the current cue. The playhead moves to its entry when that differs
// from the current position, or always when jump is set.
func (s *State) activate(id string, off int, jump bool, tl *domain.Timeline) error {
	node, err := s.Graph.Node(id)
	if err != nil {
		return err
	}

	prev := s.CueID
	entry := s.Map.SampleAt(node.Entry)
	moved := jump || entry != s.Position
	if moved {
		s.relocate(entry)
	}
	s.CueID = id
	s.vampCue = false

	s.applyOverrides(node)
	s.resolveBoundaries()

	tl.Events = append(tl.Events, domain.Event{
		Kind:          domain.EventCueChanged,
		Offset:        off,
		Position:      s.Position,
		Discontinuity: s.disc,
		CueID:         id,
		PrevCueID:     prev,
	})
	if moved {
		s.holdIfVamp(off, tl)
	}
	return nil
}

// holdIfVamp enters a hold when the playhead sits on a tempo-map vamp point. Advancing
// only looks past the position.
func (s *State) holdIfVamp(off int, tl *domain.Timeline) {
	if s.Status != domain.StatePlaying {
		return
	}
	if v, ok := s.Map.IsVamp(s.Position); ok {
		s.enterVamp(off, v.Release, false, tl)
	}
}

// applyOverrides installs a cue's tempo marks. Each governs until the next tempo mark of
// the show, so later marks and vamp points survive. A mark that resolves to the playhead
// or earlier starts one sample after it instead.
func (s *State) applyOverrides(node domain.CueNode) {
	for _, o := range node.Tempo {
		at := s.Map.SampleAt(node.Entry + o.AtBeat)
		if at <= s.Position {
			at = s.Position + 1
		}
		seg := domain.Constant(at, o.BPM)
		if o.RampTo > 0 && o.RampBeats > 0 {
			seg = domain.Ramp(at, o.BPM, o.RampTo, s.Map.RampLength(o.BPM, o.RampTo, o.RampBeats))
		}
		m, err := s.Map.Override(seg)
		if err != nil {
			s.Diagnostic = fmt.Sprintf("cue %q tempo: %v", node.ID, err)
			continue
		}
		s.Map = m
	}
}

func (s *State) reset(tl *domain.Timeline) error {
	if s.Status.Running() {
		return s.invalid(domain.CommandReset)
	}
	if s.Graph == nil || s.Graph.Start() == "" {
		return &domain.InconsistentGraphError{Missing: "start cue"}
	}

	s.Halted = false
	s.Armed = false
	s.Diagnostic = ""
	s.setStatus(domain.StateIdle, 0, tl)
	return s.selectCue(s.Graph.Start(), tl)
}

// selectCue positions an idle transport at a cue without starting it.
func (s *State) selectCue(id string, tl *domain.Timeline) error {
	node, err := s.Graph.Node(id)
	if err != nil {
		return err
	}
	prev := s.CueID
	s.CueID = id
	s.relocate(s.Map.SampleAt(node.Entry))
	s.resolveBoundaries()

	tl.Events = append(tl.Events, domain.Event{
		Kind:          domain.EventCueChanged,
		Position:      s.Position,
		Discontinuity: true,
		CueID:         id,
		PrevCueID:     prev,
	})
	return nil
}

func (s *State) jump(id string, tl *domain.Timeline) error {
	if s.Status == domain.StateStopped {
		return s.invalid(domain.CommandJumpTo)
	}
	if s.Graph == nil {
		return &domain.UnknownCueError{CueID: id}
	}
	if _, err := s.Graph.Node(id); err != nil {
		return err
	}
	if s.Status == domain.StateIdle {
		return s.selectCue(id, tl)
	}

	s.Armed = false
	s.setStatus(domain.StatePlaying, 0, tl)
	return s.activate(id, 0, true, tl)
}

// loadCue jumps to the cue at index in show order, or selects it while idle.
func (s *State) loadCue(index int, tl *domain.Timeline) error {
	if s.Status == domain.StateStopped {
		return s.invalid(domain.CommandLoadCue)
	}
	if s.Graph == nil {
		return &CueIndexError{Index: index}
	}
	node, ok := s.Graph.ByIndex(index)
	if !ok {
		return &CueIndexError{Index: index, Len: s.Graph.Len()}
	}
	return s.jump(node.ID, tl)
}

// seek relocates inside the current cue to beat, counted from its entry. A jump_beat
// lands on the beat at once. A seek keeps the click phase: the target beat plays where
// the next beat of the old position would have.
func (s *State) seek(kind domain.CommandKind, beat float64, tl *domain.Timeline) error {
	if !s.Status.Running() {
		return s.invalid(kind)
	}
	node, err := s.Graph.Node(s.CueID)
	if err != nil {
		return err
	}
	if beat < 0 || (node.HasExit() && node.Entry+beat >= node.Exit) {
		return &BeatRangeError{CueID: node.ID, Beat: beat}
	}

	target := node.Entry + beat
	if kind == domain.CommandSeekBeat {
		b := s.Map.BeatsAt(s.Position)
		if frac := b - math.Floor(b); frac > 0 {
			target = math.Max(0, target-(1-frac))
		}
	}

	s.Armed = false
	s.vampCue = false
	s.setStatus(domain.StatePlaying, 0, tl)
	s.relocate(s.Map.SampleAt(target))
	s.resolveBoundaries()

	tl.Events = append(tl.Events, domain.Event{
		Kind:          domain.EventCueChanged,
		Position:      s.Position,
		Discontinuity: true,
		CueID:         node.ID,
		PrevCueID:     node.ID,
	})
	s.resumeClips(0, tl)
	s.holdIfVamp(0, tl)
	return nil
}

// resumeClips restarts, part way in, the clip each channel would be playing at the
// playhead. Clips starting exactly at the playhead are left to advance.
func (s *State) resumeClips(off int, tl *domain.Timeline) {
	var last [domain.Channels]int
	for i, c := range s.clips {
		if c.at >= s.Position || c.Channel < 0 || c.Channel >= domain.Channels {
			continue
		}
		if j := last[c.Channel]; j == 0 || s.clips[j-1].at <= c.at {
			last[c.Channel] = i + 1
		}
	}
	for _, j := range last {
		if j == 0 || s.clips[j-1].Stop {
			continue
		}
		c := s.clips[j-1]
		tl.Events = append(tl.Events, domain.Event{
			Kind:       domain.EventClipStart,
			Offset:     off,
			Position:   s.Position,
			CueID:      s.CueID,
			Channel:    c.Channel,
			Clip:       c.Clip,
			ClipOffset: int(s.Position - c.at),
		})
	}
}

func (s *State) stepCue(dir int, tl *domain.Timeline) error {
	kind := domain.CommandNext
	if dir < 0 {
		kind = domain.CommandPrev
	}
	if s.Status == domain.StateStopped {
		return s.invalid(kind)
	}
	if s.Graph == nil {
		return ErrNoAdjacentCue
	}

	var id string
	var ok bool
	if dir < 0 {
		id, ok = s.Graph.Prev(s.CueID)
	} else {
		id, ok = s.Graph.Next(s.CueID)
	}
	if !ok {
		return fmt.Errorf("%w: %s from %q", ErrNoAdjacentCue, kind, s.CueID)
	}
	return s.jump(id, tl)
}

func (s *State) nudge(delta float64) error {
	m, limited := s.Map.WithPlayhead(s.Position).Nudge(delta)
	s.Map = m
	if limited {
		s.Diagnostic = fmt.Sprintf("tempo nudge %+g bpm limited to %g..%g bpm", delta, domain.MinBPM, domain.MaxBPM)
	}
	return nil
}

// release ends a vamp hold. A cue vamp follows its release edge; a tempo-map vamp
// resumes in place.
func (s *State) release(tl *domain.Timeline) error {
	if s.Status != domain.StateVamping {
		return s.invalid(domain.CommandVampRelease)
	}

	s.Armed = false
	tl.Events = append(tl.Events, domain.Event{
		Kind:     domain.EventVampReleased,
		Position: s.Position,
		CueID:    s.CueID,
		Detail:   s.vampRelease,
	})
	s.setStatus(domain.StatePlaying, 0, tl)

	if !s.vampCue {
		return nil
	}
	s.vampCue = false
	action, err := s.Graph.ResolveNext(s.CueID, domain.TriggerRelease)
	if err != nil {
		return err
	}
	return s.follow(action, tl)
}

func (s *State) follow(action domain.NextAction, tl *domain.Timeline) error {
	switch action.Kind {
	case domain.ActionAdvance:
		return s.activate(action.CueID, 0, false, tl)
	case domain.ActionJump:
		return s.activate(action.CueID, 0, true, tl)
	}
	return nil
}

// fire handles Go: it releases a hold, or triggers the current cue's edge.
func (s *State) fire(tl *domain.Timeline) error {
	switch s.Status {
	case domain.StateVamping:
		return s.release(tl)
	case domain.StatePlaying:
		action, err := s.Graph.ResolveNext(s.CueID, domain.TriggerGo)
		if err != nil {
			return err
		}
		return s.follow(action, tl)
	}
	return s.invalid(domain.CommandGo)
}

// holdAtBar inserts a vamp at the next bar line after the playhead.
func (s *State) holdAtBar() error {
	if s.Status != domain.StatePlaying {
		return s.invalid(domain.CommandHold)
	}
	bpb := float64(s.Map.BeatsPerBar())
	bar := (math.Floor(s.Map.BeatsAt(s.Position)/bpb) + 1) * bpb
	at := s.Map.SampleAt(bar)
	if at <= s.Position {
		at = s.Map.SampleAt(bar + bpb)
	}
	m, err := s.Map.WithPlayhead(s.Position).InsertVamp(at, "hold")
	if err != nil {
		return err
	}
	s.Map = m
	return nil
}

func (s *State) setGain(ch int, db float64, tl *domain.Timeline) error {
	if ch < 0 || ch >= domain.Channels {
		return &ChannelRangeError{Channel: ch}
	}
	s.Gains[ch] = db
	tl.Events = append(tl.Events, domain.Event{
		Kind:    domain.EventChannelGain,
		Channel: ch,
		GainDB:  db,
	})
	return nil
}

// reload swaps in a new program. While running, the live tempo map is kept and only the
// graph changes; losing the current cue then is fatal.
func (s *State) setMute(ch int, mute bool, tl *domain.Timeline) error {
	if ch < 0 || ch >= domain.Channels {
		return &ChannelRangeError{Channel: ch}
	}
	s.Muted[ch] = mute
	tl.Events = append(tl.Events, domain.Event{
		Kind:    domain.EventChannelMute,
		Channel: ch,
		Mute:    mute,
	})
	return nil
}

// setPlayrate rescales the tempo ahead of the playhead to percent of the authored tempo.
func (s *State) setPlayrate(percent int, tl *domain.Timeline) error {
	if percent < domain.MinPlayrate || percent > domain.MaxPlayrate {
		return &PlayrateRangeError{Percent: percent}
	}
	cur := s.rate()
	if percent == cur {
		return nil
	}
	m, limited := s.Map.WithPlayhead(s.Position).Scale(float64(percent) / float64(cur))
	s.Map = m
	s.Playrate = percent
	if limited {
		s.Diagnostic = fmt.Sprintf("playrate %d%% limited to %g..%g bpm", percent, domain.MinBPM, domain.MaxBPM)
	}
	tl.Events = append(tl.Events, domain.Event{
		Kind:     domain.EventPlayrate,
		Position: s.Position,
		Percent:  percent,
	})
	return nil
}

func (s *State) reload(payload any, tl *domain.Timeline) error {
	p, ok := payload.(*compiler.Program)
	if !ok || p == nil || p.Graph == nil {
		return fmt.Errorf("%w: %T", ErrBadReloadPayload, payload)
	}

	s.Graph = p.Graph
	s.stale = true
	if !s.Status.Running() {
		s.Map = p.Map.WithPlayhead(s.Position)
		if r := s.rate(); r != 100 {
			s.Map, _ = s.Map.Scale(float64(r) / 100)
		}
		s.TimecodeStart = p.Timecode
		if s.TimecodeStart.Rate == 0 {
			s.TimecodeStart.Rate = domain.DefaultTimecodeRate
		}
		if !s.Graph.Has(s.CueID) && s.Graph.Start() != "" {
			return s.selectCue(s.Graph.Start(), tl)
		}
		return nil
	}

	if !s.Graph.Has(s.CueID) {
		return &domain.InconsistentGraphError{Missing: s.CueID}
	}
	return nil
}
