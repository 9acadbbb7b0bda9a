// Package sand simulates the grains of an hourglass.
//
// A [Simulation] owns a contiguous slice of [Grain] values and advances them
// one fixed step at a time:
//
//   - release: grains leave the top pile through the neck at the rate the
//     countdown progress asks for, one at a time through an entrance gate
//   - integrate: Verlet-style update from position history, gravity, jitter
//   - solve: chamber envelope clamps interleaved with pairwise collisions
//   - settle: slow grains below the neck are damped or frozen
//
// [Geometry] is a pure function of the container size and radius scale and is
// rebuilt every step. A change of size, grain count or radius scale repacks
// the whole population.
//
// # Example
//
//	s := sand.New(config.DefaultPhysics())
//	for running {
//	    s.Step(sand.Input{Width: w, Height: h, Progress: t.Progress(), Running: t.Running()}, dt)
//	    draw(s.Geometry(), s.Grains())
//	}
//
// # Thread Safety
//
// A Simulation is not safe for concurrent use. Copy [Simulation.Grains] before
// handing it to another goroutine.
package sand
