// Package options carries the small configuration records threaded
// through expression execution and compilation: which queue to enqueue
// on, whether to autotune, and whether to force recompilation.
package options

import (
	"symcore/internal/driver"
	"symcore/internal/expr"
)

// Execution carries the command-queue binding and event bookkeeping for
// one dispatch, the Go shape of execution_options_type. Exactly one of
// Queue or QueueID should be meaningful: a pre-bound Queue takes
// precedence over resolving QueueID through a Backend.
type Execution struct {
	Queue        driver.Queue
	QueueID      int
	Events       []driver.Event
	Dependencies []driver.Event
}

// ResolveQueue returns the bound queue, resolving QueueID via backend if
// no queue was bound directly — the Go shape of
// execution_options_type::queue(context), generalized to take the
// backend explicitly instead of reaching for a process-wide singleton
// (SPEC_FULL.md design note on backend::queues::get). The caller that
// pre-binds Queue is responsible for supplying a real driver.Queue
// implementation; there is no adapter shim here to fall back on.
func (e *Execution) ResolveQueue(ctx driver.Context, backend driver.Backend) (driver.Queue, error) {
	if e.Queue != nil {
		return e.Queue, nil
	}
	return backend.GetQueue(ctx, e.QueueID)
}

// Enqueue dispatches kernel against global/local ranges on the resolved
// queue, appending the resulting event to Events.
func (e *Execution) Enqueue(ctx driver.Context, backend driver.Backend, kernel driver.Kernel, global, local driver.NDRange) error {
	q, err := e.ResolveQueue(ctx, backend)
	if err != nil {
		return err
	}
	ev, err := q.Enqueue(kernel, global, local, e.Dependencies)
	if err != nil {
		return err
	}
	e.Events = append(e.Events, ev)
	return nil
}

// Dispatcher carries autotuning controls, the Go shape of
// dispatcher_options_type.
type Dispatcher struct {
	Tune  bool
	Label int
}

// NewDispatcher mirrors dispatcher_options_type's defaults (tune=false,
// label=-1).
func NewDispatcher() Dispatcher {
	return Dispatcher{Tune: false, Label: -1}
}

// Compilation carries the program-cache naming and force-recompile flag,
// the Go shape of compilation_options_type.
type Compilation struct {
	ProgramName string
	Recompile   bool
}

// Handler bundles one expression with the three option records governing
// how it executes, the Go shape of execution_handler.
type Handler struct {
	Expr        *expr.Expression
	Execution   Execution
	Dispatcher  Dispatcher
	Compilation Compilation
}
