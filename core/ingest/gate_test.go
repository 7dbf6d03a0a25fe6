package ingest

import (
	"context"
	"errors"
	"testing"

	"osprey-cad/core/utils"
)

// The gate's writes run detached from the message context: a message that
// failed on its own deadline still gets archived and recorded.
func TestGateWritesSurviveCancelledContext(t *testing.T) {
	_, _, archive, _ := setupPipeline(t)
	gate := NewGate(archive, utils.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handle := gate.BeforeProcessing(ctx, []byte("payload"), "smtp")
	if !handle.Stored {
		t.Fatalf("handle = %+v, payload not archived", handle)
	}
	raw, err := archive.GetRawMessage(context.Background(), handle.ID)
	if err != nil || raw == nil {
		t.Fatalf("archived payload missing: %v", err)
	}

	gate.OnFailure(ctx, handle, FailureContext{IncidentNumber: "F25066673", Stage: "reconcile"}, errors.New("context deadline exceeded"))

	failures, err := archive.ListFailures(context.Background(), false, 10)
	if err != nil {
		t.Fatalf("list failures: %v", err)
	}
	if len(failures) != 1 || failures[0].ArtifactID != handle.ID {
		t.Fatalf("failures = %+v", failures)
	}
}
