// Copyright 2025 James Ross
package queue

import (
	"testing"

	"github.com/google/uuid"

	"github.com/jamesross/wasm-job-sandbox/internal/domain"
)

func newJob() domain.Job {
	return domain.Job{ID: uuid.New(), TenantID: "tenant-a", Status: domain.Queued()}
}

func TestTrySendAndRecv(t *testing.T) {
	q := New(1)
	j := newJob()
	if err := q.TrySend(j); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := q.Recv()
	if !ok {
		t.Fatal("expected ok")
	}
	if got.ID != j.ID {
		t.Fatal("expected same job back")
	}
}

func TestTrySendFullReturnsErrFull(t *testing.T) {
	q := New(1)
	_ = q.TrySend(newJob())
	if err := q.TrySend(newJob()); err != ErrFull {
		t.Fatalf("expected ErrFull, got %v", err)
	}
}

func TestTrySendAfterCloseReturnsErrClosed(t *testing.T) {
	q := New(1)
	q.Close()
	if err := q.TrySend(newJob()); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestRecvDrainsAfterClose(t *testing.T) {
	q := New(2)
	_ = q.TrySend(newJob())
	q.Close()
	if _, ok := q.Recv(); !ok {
		t.Fatal("expected to drain the buffered job after close")
	}
	if _, ok := q.Recv(); ok {
		t.Fatal("expected Recv to report closed once drained")
	}
}
