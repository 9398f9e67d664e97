package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtlprog/fuelprice/internal/record"
)

type mockVerifier struct {
	callCount atomic.Int32
	lastLimit atomic.Int32
	err       error
}

func (m *mockVerifier) VerifyAll(_ context.Context, limit int) (int, []record.Drift, error) {
	m.callCount.Add(1)
	m.lastLimit.Store(int32(limit))
	if m.err != nil {
		return 0, nil, m.err
	}
	return 2, []record.Drift{{ID: 1, Kind: "mining-buildup"}}, nil
}

func TestAuditWorkerRunsAndShutdown(t *testing.T) {
	mock := &mockVerifier{}
	w := NewAuditWorker(mock, 50*time.Millisecond, 25)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := mock.callCount.Load(); got < 1 {
		t.Errorf("call count = %d, want >= 1", got)
	}
	if got := mock.lastLimit.Load(); got != 25 {
		t.Errorf("limit = %d, want 25", got)
	}
}

func TestAuditWorkerKeepsRunningOnError(t *testing.T) {
	mock := &mockVerifier{err: errors.New("database unavailable")}
	w := NewAuditWorker(mock, 20*time.Millisecond, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := mock.callCount.Load(); got < 2 {
		t.Errorf("call count = %d, want >= 2 (worker must survive errors)", got)
	}
}
