package cueline_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/cueline"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/aretw0/cueline/pkg/dsl"
)

// ExampleNew builds a show in Go and drives the engine by hand, the way an audio
// driver would.
func ExampleNew() {
	loader, err := dsl.New("demo").
		Tempo(0, 120).
		Cue("intro").At(0).
		Cue("verse").At(8).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	engine, err := cueline.New(context.Background(), "demo", cueline.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	ctl := engine.Controller("example")
	if _, err := ctl.Submit(domain.Play()); err != nil {
		log.Fatal(err)
	}

	// One block of interleaved stereo; commands apply at the start of the next tick.
	engine.Host().Process(make([]float32, 2*cueline.DefaultBlockSize))

	st := ctl.Status()
	fmt.Println(st.State, st.CueID)
	// Output: playing intro
}
