package async

import (
	"context"
	"sync/atomic"
)

// JobHandle is a unit of work running in its own goroutine.
type JobHandle[T any] struct {
	cancel func()
	done   chan struct{}
	result atomic.Pointer[Result[T]]
}

// Job starts job in the background. The job's context is derived from ctx
// without its cancellation, so the job outlives the caller unless stopped.
func Job[T any](ctx context.Context, job func(ctx context.Context) (T, error)) *JobHandle[T] {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	handle := &JobHandle[T]{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer cancel()
		defer close(handle.done)

		res := NewResult(job(ctx))
		handle.result.Store(&res)
	}()

	return handle
}

func (j *JobHandle[T]) Stop() {
	j.cancel()
}

// Done is closed when the job returns.
func (j *JobHandle[T]) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job returns. It can be called any number of times.
func (j *JobHandle[T]) Wait() (T, error) {
	<-j.done
	return j.result.Load().Unpack()
}

// Error returns the job's error, or nil while it is still running.
func (j *JobHandle[T]) Error() error {
	res := j.result.Load()
	if res == nil {
		return nil
	}
	return res.Err
}

// WaitAll waits for every job and returns the first error.
func WaitAll[T any](jobs ...*JobHandle[T]) error {
	var first error
	for _, j := range jobs {
		if _, err := j.Wait(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
