package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/fr0stylo/txcommit/internal/app/domain"
)

func TestAcceptRecordsAndEnqueuesOnce(t *testing.T) {
	q := newMemQueue(nil)
	statuses := newMemStatuses()
	intake := NewIntake(q, statuses, nil, time.Second, nil)

	req := handleRequest("req-1")
	if err := intake.Accept(context.Background(), req); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := intake.Accept(context.Background(), req); err != nil {
		t.Fatalf("accept duplicate: %v", err)
	}
	if got := len(q.snapshot(domain.QueueRequestIn)); got != 1 {
		t.Fatalf("expected one request-in item, got %d", got)
	}
	if statuses.state("req-1") != domain.RequestAccepted {
		t.Fatalf("expected accepted status, got %s", statuses.state("req-1"))
	}
}

func TestAcceptRejectsMalformedRequest(t *testing.T) {
	intake := NewIntake(newMemQueue(nil), newMemStatuses(), nil, time.Second, nil)
	err := intake.Accept(context.Background(), domain.WriteRequest{ID: "x", PayloadType: "NOPE", Payload: json.RawMessage(`{}`)})
	if !errors.Is(err, domain.ErrMalformedCall) {
		t.Fatalf("expected ErrMalformedCall, got %v", err)
	}
}

func TestRouteSendsUnbatchedRequestToSubmit(t *testing.T) {
	q := newMemQueue(nil)
	intake := NewIntake(q, newMemStatuses(), nil, time.Second, nil)
	worker := NewStageWorker(q, domain.QueueRequestIn, intake.Route, StageOptions{})

	_ = intake.Accept(context.Background(), handleRequest("req-2"))
	if _, err := worker.ProcessNext(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if _, ok := q.find(domain.QueueSubmitReady, "req-2"); !ok {
		t.Fatal("expected request on submit-ready")
	}
	if item, _ := q.find(domain.QueueRequestIn, "req-2"); item.state != "done" {
		t.Fatalf("expected request-in item acked, got %s", item.state)
	}
}

func TestRouteHoldsBatchedRequestsUntilSealed(t *testing.T) {
	clk := clock.NewMock()
	q := newMemQueue(clk)
	statuses := newMemStatuses()
	assembler := NewBatchAssembler(AssemblerConfig{MaxItems: 2, Interval: time.Minute, Clock: clk}, QueueHandoff(q), nil, nil)
	intake := NewIntake(q, statuses, assembler, time.Second, nil)
	worker := NewStageWorker(q, domain.QueueRequestIn, intake.Route, StageOptions{Lease: 2 * time.Minute, Clock: clk})

	_ = intake.Accept(context.Background(), batchedRequest("broadcast", 1))
	_ = intake.Accept(context.Background(), batchedRequest("broadcast", 2))

	_, _ = worker.ProcessNext(context.Background())
	if item, _ := q.find(domain.QueueRequestIn, "broadcast-1"); item.state != "leased" {
		t.Fatalf("expected first batched item held under lease, got %s", item.state)
	}
	if len(q.snapshot(domain.QueueBatchSealed)) != 0 {
		t.Fatal("batch sealed early")
	}

	_, _ = worker.ProcessNext(context.Background())
	sealed := q.snapshot(domain.QueueBatchSealed)
	if len(sealed) != 1 {
		t.Fatalf("expected one sealed batch, got %d", len(sealed))
	}
	var batch domain.Batch
	if err := json.Unmarshal(sealed[0].item.Payload, &batch); err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(batch.Items) != 2 || batch.Items[0].ID != "broadcast-1" {
		t.Fatalf("unexpected batch items %v", batch.ItemIDs())
	}
	for _, id := range []string{"broadcast-1", "broadcast-2"} {
		if item, _ := q.find(domain.QueueRequestIn, id); item.state != "done" {
			t.Fatalf("expected %s acked after seal, got %s", id, item.state)
		}
	}
}

func TestRouteRetriesBatchedRequestWhenHandoffFails(t *testing.T) {
	clk := clock.NewMock()
	q := newMemQueue(clk)
	q.failOn = map[string]error{domain.QueueBatchSealed: errors.New("disk full")}
	assembler := NewBatchAssembler(AssemblerConfig{MaxItems: 1, Interval: time.Minute, Clock: clk}, QueueHandoff(q), nil, nil)
	intake := NewIntake(q, newMemStatuses(), assembler, time.Second, nil)
	worker := NewStageWorker(q, domain.QueueRequestIn, intake.Route, StageOptions{Clock: clk})

	_ = intake.Accept(context.Background(), batchedRequest("reaction", 1))
	_, _ = worker.ProcessNext(context.Background())

	item, _ := q.find(domain.QueueRequestIn, "reaction-1")
	if item.state != "pending" || item.item.Attempt != 1 {
		t.Fatalf("expected item requeued after failed handoff, got state=%s attempt=%d", item.state, item.item.Attempt)
	}
}
