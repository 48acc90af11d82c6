/*
Package runner reads control commands line by line, typically from stdin, and feeds them
to the engine through a ports.Controller.

Two codecs are provided. JSONCodec speaks JSON lines, for scripts and show-control
bridges:

	{"type": "jump", "cue_id": "storm"}
	{"type": "status"}

TextCodec accepts short words for an operator at a terminal:

	jump storm
	nudge -2
	status

Every line is answered with one reply line.

# Usage

	r := runner.New(ctl, runner.WithCodec(runner.TextCodec{}))
	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
