package irrecoverable

import (
	"context"
	"testing"
)

// MockSignalerContext is a cancellable SignalerContext for tests of components which are not
// expected to fail. Any thrown error fails the test.
type MockSignalerContext struct {
	context.Context
	t testing.TB
}

var _ SignalerContext = (*MockSignalerContext)(nil)

func (m *MockSignalerContext) sealed() {}

func (m *MockSignalerContext) Throw(err error) {
	m.t.Fatalf("unexpected irrecoverable error: %v", err)
}

// NewMockSignalerContextWithCancel derives a MockSignalerContext from parent. The context is
// cancelled at the end of the test at the latest.
func NewMockSignalerContextWithCancel(t testing.TB, parent context.Context) (*MockSignalerContext, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	t.Cleanup(cancel)
	return &MockSignalerContext{Context: ctx, t: t}, cancel
}
