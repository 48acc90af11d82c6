/*
Package cueline is a sample-accurate tempo and cue engine for live theatre.

A show is a tempo map (tempo marks, ramps and vamp points placed on beats) plus a cue
graph (cues with entry and exit beats joined by fall-through, vamp and jump policies).
The engine advances the show in audio blocks: every tick applies queued operator
commands at the block boundary, then emits a timeline of beats, MIDI pulses, timecode
frames, cue changes and clip triggers with their exact sample offsets. The timeline is
rendered into 30 output channels (click, LTC, playback clips) and published as a status
snapshot for control surfaces.

# Architecture

The real-time core (internal/runtime) never blocks, locks or logs. Control surfaces
(HTTP, MCP, TUI, stdin) reach it through Controllers, each bound to its own bounded
command queue, and read it through snapshots swapped atomically at tick boundaries.
Storage (show files, markdown cue sheets, snapshot stores) lives behind the ports in
pkg/ports.

# Usage

	ctx := context.Background()
	eng, err := cueline.New(ctx, "./storm.yaml", cueline.WithMediaDir("./media"))
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	// Drive the audio host from the sound card.
	go audio.NewEbitenDriver(eng.SampleRate()).Run(ctx, eng.Host())

	ctl := eng.Controller("console")
	seq, _ := ctl.Submit(domain.Play())
	if res, err := ctl.Await(ctx, seq); err == nil && res.Err == nil {
		log.Println("playing", ctl.Status().CueID)
	}
*/
package cueline
