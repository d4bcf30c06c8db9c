package component_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onflow/evm-p2p-fetch/module"
	"github.com/onflow/evm-p2p-fetch/module/component"
	"github.com/onflow/evm-p2p-fetch/module/irrecoverable"
	"github.com/onflow/evm-p2p-fetch/module/util"
	"github.com/onflow/evm-p2p-fetch/utils/unittest"
)

// blockingWorker signals ready once start is closed and returns when the context is done.
func blockingWorker(start <-chan struct{}) component.ComponentWorker {
	return func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
		<-start
		ready()
		<-ctx.Done()
	}
}

func TestComponentManager_Lifecycle(t *testing.T) {
	first, second := make(chan struct{}), make(chan struct{})
	cm := component.NewComponentManager(blockingWorker(first), blockingWorker(second))

	ctx, cancel := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
	cm.Start(ctx)

	close(first)
	assert.False(t, util.CheckClosed(cm.Ready()), "ready before every worker is ready")

	close(second)
	unittest.RequireCloseBefore(t, cm.Ready(), time.Second, "workers did not become ready")
	assert.False(t, util.CheckClosed(cm.ShutdownSignal()))
	assert.False(t, util.CheckClosed(cm.Done()))

	cancel()
	unittest.RequireCloseBefore(t, cm.ShutdownSignal(), time.Second, "shutdown was not signalled")
	unittest.RequireCloseBefore(t, cm.Done(), time.Second, "workers did not shut down")
}

func TestComponentManager_ThrownErrorReachesParent(t *testing.T) {
	expected := errors.New("worker failed")
	otherDone := make(chan struct{})

	cm := component.NewComponentManager(
		func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ctx.Throw(expected)
		},
		func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			<-ctx.Done()
			close(otherDone)
		},
	)

	ctx, errChan := irrecoverable.WithSignaler(context.Background())
	cm.Start(ctx)

	select {
	case err := <-errChan:
		require.ErrorIs(t, err, expected)
	case <-time.After(time.Second):
		require.Fail(t, "error was not rethrown")
	}

	// the remaining worker is cancelled and the manager terminates
	unittest.RequireCloseBefore(t, otherDone, time.Second, "other worker was not cancelled")
	unittest.RequireCloseBefore(t, cm.ShutdownSignal(), time.Second, "shutdown was not signalled")
	unittest.RequireCloseBefore(t, cm.Done(), time.Second, "manager did not terminate")
	assert.False(t, util.CheckClosed(cm.Ready()))
}

func TestComponentManager_WorkersReturning(t *testing.T) {
	cm := component.NewComponentManager(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
		ready()
	})

	ctx, _ := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
	cm.Start(ctx)

	unittest.RequireCloseBefore(t, cm.Done(), time.Second, "manager did not terminate")
	unittest.RequireCloseBefore(t, cm.ShutdownSignal(), time.Second, "shutdown was not signalled after the workers returned")
}

func TestComponentManager_StartTwicePanics(t *testing.T) {
	cm := component.NewComponentManager()

	ctx, _ := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
	cm.Start(ctx)

	assert.PanicsWithValue(t, module.ErrMultipleStartup, func() {
		cm.Start(ctx)
	})
	unittest.RequireCloseBefore(t, cm.Done(), time.Second, "manager without workers did not terminate")
}
