// Package driver declares the opaque handle types and interfaces consumed
// from the GPU driver layer. The driver layer itself — buffer allocation,
// queue/event/kernel enqueue — lives outside this module; this package
// only names the shapes the core needs to hold onto and pass through.
package driver

// Context is an opaque, equality-comparable handle to a device context.
type Context struct{ id uint64 }

// NewContext wraps a driver-assigned identifier as an opaque Context.
func NewContext(id uint64) Context { return Context{id: id} }

func (c Context) Equal(o Context) bool { return c.id == o.id }
func (c Context) Less(o Context) bool  { return c.id < o.id }
func (c Context) ID() uint64           { return c.id }

// CommandQueue is an opaque handle to a device command queue.
type CommandQueue struct{ id uint64 }

func NewCommandQueue(id uint64) CommandQueue { return CommandQueue{id: id} }

func (q CommandQueue) Equal(o CommandQueue) bool { return q.id == o.id }
func (q CommandQueue) Less(o CommandQueue) bool  { return q.id < o.id }
func (q CommandQueue) ID() uint64                { return q.id }

// Buffer is an opaque, reference-counted handle to a device memory
// allocation. The core never dereferences it; it only threads it through
// array handles and mapped objects. Go's garbage collector subsumes the
// original's manual reference counting: a Buffer value is only ever held
// by copy or by the array that owns it, so it lives exactly as long as
// something reachable still needs it.
type Buffer struct {
	id   uint64
	Size int64
}

func NewBuffer(id uint64, size int64) Buffer { return Buffer{id: id, Size: size} }

func (b Buffer) Equal(o Buffer) bool { return b.id == o.id }
func (b Buffer) Less(o Buffer) bool  { return b.id < o.id }
func (b Buffer) ID() uint64          { return b.id }

// Event is an opaque handle to a completion event produced by enqueuing
// work on a CommandQueue.
type Event struct{ id uint64 }

func NewEvent(id uint64) Event { return Event{id: id} }

func (e Event) Equal(o Event) bool { return e.id == o.id }

// Kernel is an opaque handle to a compiled device kernel.
type Kernel struct{ id uint64 }

func NewKernel(id uint64) Kernel { return Kernel{id: id} }

// NDRange describes a 1-, 2-, or 3-dimensional iteration space for kernel
// dispatch.
type NDRange struct {
	Dims []uint64
}

// Queue is the narrow interface the core needs from a command queue: the
// ability to enqueue a kernel against global/local ranges with
// dependencies, producing a completion event.
type Queue interface {
	Enqueue(kernel Kernel, global, local NDRange, deps []Event) (Event, error)
}

// Backend is the external driver-layer collaborator that resolves a
// Context to a Queue and imports a native context handle. Per design note
// in SPEC_FULL.md (the original's backend::queues::get / backend::contexts::import
// singletons), this is threaded explicitly through call sites that need
// it rather than reached for as a package-level global.
type Backend interface {
	GetQueue(ctx Context, id int) (Queue, error)
	ImportContext(native uintptr) (Context, error)
}
