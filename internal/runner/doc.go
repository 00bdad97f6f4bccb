// Package runner executes scenarios step by step.
//
// A Case owns the ordered Steps of one scenario instance. Running it publishes
// lifecycle events to an event.Bus and returns the aggregated outcome.
//
// EXECUTION MODEL:
//
// Steps run strictly in order on the caller's goroutine. Each Step publishes
// StepStarted, invokes its Action, classifies the result and publishes
// StepFinished with the Outcome it returns. Every started event has exactly
// one finished event, whatever the Action does (returns, fails or panics).
//
// Skip-after-failure:
// A Case carries one boolean, skipRemaining. It starts false (true in dry-run
// mode) and becomes true after the first step whose outcome is not passed.
// It never resets. Steps run while it is set invoke Action.DryRun instead of
// Action.Run, so they still validate but perform no real effects.
//
// Classification:
//
//	nil error, real run  -> passed
//	nil error, dry run   -> skipped
//	pending marker       -> pending
//	undefined marker     -> undefined
//	anything else        -> failed (panics included)
//
// CONCURRENCY:
//
// A Case performs no internal concurrency. Many Cases may run at once against
// one shared Bus; they share nothing else. The Bus is responsible for its own
// thread-safety (see event.Dispatcher).
//
// Engine invariant violations (running a Case twice, building one with a nil
// step) are programming errors and panic with *InvariantError.
package runner
