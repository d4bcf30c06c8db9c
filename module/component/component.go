package component

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"github.com/onflow/evm-p2p-fetch/module"
	"github.com/onflow/evm-p2p-fetch/module/irrecoverable"
	"github.com/onflow/evm-p2p-fetch/module/util"
)

// Component represents a component which can be started and stopped, and exposes
// channels that close when startup and shutdown have completed.
// Once Start has been called, the channel returned by Done must close eventually,
// whether that be because of a graceful shutdown or an irrecoverable error.
type Component interface {
	module.Startable
	module.ReadyDoneAware
}

// ReadyFunc is called within a ComponentWorker function to indicate that the worker is ready.
type ReadyFunc func()

// ComponentWorker is a routine of a component. Irrecoverable errors are thrown through ctx;
// ready must be called once the worker serves.
type ComponentWorker func(ctx irrecoverable.SignalerContext, ready ReadyFunc)

var _ Component = (*ComponentManager)(nil)

// ComponentManager runs the workers of a component. Ready closes once every worker called its
// ReadyFunc and Done once every worker returned. Cancelling the context passed to Start shuts
// the workers down. An error thrown by a worker cancels the other workers and is rethrown to
// the parent context before Done closes.
type ComponentManager struct {
	started        *atomic.Bool
	ready          chan struct{}
	done           chan struct{}
	shutdownSignal chan struct{}
	workers        []ComponentWorker
}

// NewComponentManager returns a manager running the given workers in parallel.
func NewComponentManager(workers ...ComponentWorker) *ComponentManager {
	return &ComponentManager{
		started:        atomic.NewBool(false),
		ready:          make(chan struct{}),
		done:           make(chan struct{}),
		shutdownSignal: make(chan struct{}),
		workers:        workers,
	}
}

// Start launches all workers. It panics with module.ErrMultipleStartup if called twice.
func (c *ComponentManager) Start(parent irrecoverable.SignalerContext) {
	if !c.started.CompareAndSwap(false, true) {
		panic(module.ErrMultipleStartup)
	}

	ctx, cancel := context.WithCancel(parent)
	signalerCtx, errChan := irrecoverable.WithSignaler(ctx)

	var workersReady, workersDone sync.WaitGroup
	workersReady.Add(len(c.workers))
	workersDone.Add(len(c.workers))
	for _, worker := range c.workers {
		worker := worker
		go func() {
			defer workersDone.Done()
			var readyOnce sync.Once
			worker(signalerCtx, func() {
				readyOnce.Do(workersReady.Done)
			})
		}()
	}

	finished := make(chan struct{})
	go func() {
		workersReady.Wait()
		close(c.ready)
	}()
	go func() {
		workersDone.Wait()
		close(finished)
	}()
	go func() {
		<-ctx.Done()
		close(c.shutdownSignal)
	}()

	go func() {
		// runs after a rethrow as well, Throw exits the goroutine
		defer func() {
			<-finished
			cancel()
			close(c.done)
		}()

		if err := util.WaitError(errChan, finished); err != nil {
			cancel()
			parent.Throw(err)
		}
	}()
}

// Ready returns a channel closed once every worker is ready. It never closes if a worker
// returns before calling its ReadyFunc.
func (c *ComponentManager) Ready() <-chan struct{} {
	return c.ready
}

// Done returns a channel closed once every worker returned.
func (c *ComponentManager) Done() <-chan struct{} {
	return c.done
}

// ShutdownSignal returns a channel closed when shutdown has commenced, either because the
// parent context was cancelled or a worker threw an error.
func (c *ComponentManager) ShutdownSignal() <-chan struct{} {
	return c.shutdownSignal
}
