// Package operations runs one tabkit invocation as a fixed sequence of steps.
//
// Core Components:
//
// Manager: runs the steps validate-inputs, ingest, join, analyse and emit in
// order on the calling goroutine. Each step gets a span and a duration
// measurement; the first failure stops the run and the remaining steps are
// marked skipped.
//
// Step: one unit of work that reads and writes the shared RunState.
//
// Registry: the analytical operations selectable with --op. The analyse step
// looks the requested operation up by name.
//
// RunState: everything a run produces, from resolved file specs to the result
// table, plus the StepState of every step.
//
// Example usage:
//
//	manager, err := operations.NewManager(operations.Dependencies{
//		Logger: logger,
//		Stdout: os.Stdout,
//	})
//	if err != nil {
//		return err
//	}
//	state, err := manager.Run(ctx, opts)
package operations
