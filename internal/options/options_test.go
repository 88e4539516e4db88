package options

import (
	"testing"

	"symcore/internal/driver"
)

type fakeQueue struct {
	enqueued bool
}

func (q *fakeQueue) Enqueue(kernel driver.Kernel, global, local driver.NDRange, deps []driver.Event) (driver.Event, error) {
	q.enqueued = true
	return driver.NewEvent(1), nil
}

type fakeBackend struct {
	queue    driver.Queue
	queueErr error
	gotCtx   driver.Context
	gotID    int
}

func (b *fakeBackend) GetQueue(ctx driver.Context, id int) (driver.Queue, error) {
	b.gotCtx = ctx
	b.gotID = id
	if b.queueErr != nil {
		return nil, b.queueErr
	}
	return b.queue, nil
}

func (b *fakeBackend) ImportContext(native uintptr) (driver.Context, error) {
	return driver.NewContext(uint64(native)), nil
}

func TestResolveQueuePrefersPreBoundQueue(t *testing.T) {
	bound := &fakeQueue{}
	e := Execution{Queue: bound, QueueID: 7}
	backend := &fakeBackend{queue: &fakeQueue{}}

	q, err := e.ResolveQueue(driver.NewContext(1), backend)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q != bound {
		t.Error("ResolveQueue did not return the pre-bound Queue")
	}
	if backend.gotCtx != (driver.Context{}) || backend.gotID != 0 {
		t.Error("ResolveQueue should not consult the backend when Queue is pre-bound")
	}
}

func TestResolveQueueFallsBackToBackend(t *testing.T) {
	e := Execution{QueueID: 3}
	want := &fakeQueue{}
	backend := &fakeBackend{queue: want}

	ctx := driver.NewContext(5)
	q, err := e.ResolveQueue(ctx, backend)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q != want {
		t.Error("ResolveQueue did not return the backend-resolved Queue")
	}
	if backend.gotID != 3 {
		t.Errorf("backend.GetQueue called with id %d, want 3", backend.gotID)
	}
}

func TestExecutionEnqueueAppendsEventUsingPreBoundQueue(t *testing.T) {
	bound := &fakeQueue{}
	e := &Execution{Queue: bound}
	backend := &fakeBackend{}

	err := e.Enqueue(driver.NewContext(1), backend, driver.NewKernel(1), driver.NDRange{Dims: []uint64{4}}, driver.NDRange{Dims: []uint64{1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bound.enqueued {
		t.Error("Enqueue did not dispatch through the pre-bound Queue")
	}
	if len(e.Events) != 1 {
		t.Errorf("len(e.Events) = %d, want 1", len(e.Events))
	}
}

func TestNewDispatcherDefaults(t *testing.T) {
	d := NewDispatcher()
	if d.Tune {
		t.Error("NewDispatcher().Tune should default to false")
	}
	if d.Label != -1 {
		t.Errorf("NewDispatcher().Label = %d, want -1", d.Label)
	}
}
