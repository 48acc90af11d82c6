/*
Package dsl provides a Go DSL for programmatically constructing cueline shows.

It defines shows with a fluent builder instead of YAML or JSON files. This is useful for
generated shows, unit tests and embedding the engine in another program.

Example usage:

	b := dsl.New("Opening Night").Timecode(25, "01:00:00:00")
	b.Tempo(0, 120).Ramp(64, 120, 96, 8)

	b.Cue("overture").Bars(1, 16).Next("storm")

	b.Cue("storm").
		Bars(17, 4).
		Vamp("overture").
		Clip(3, 1, 0).
		Notes("Hold until the thunder sheet.")

	show, err := b.Show()

The result can also be served as a ports.ShowLoader through Build.
*/
package dsl
