// Package linefollow implements the three periodic loops of the
// line-following pipeline and the algorithms they run.
//
//	hal.AnalogReader -> Sensing   -> bus[Reading]
//	bus[Reading]     -> Estimator -> bus[LineState]
//	bus[LineState]   -> Steering  -> hal.Steerer
//
// Each loop runs on its own cadence and talks to its neighbours only through
// a bus.Bus, so a loop always works on the freshest value and never waits for
// another loop. Cancellation is cooperative: the context is checked once per
// iteration, before the work, and the per-iteration sleep is never cut short.
package linefollow
