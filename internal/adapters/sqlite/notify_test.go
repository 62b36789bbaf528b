package sqlite

import (
	"context"
	"testing"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/services"
)

func TestFailedOutcomeAfterSubmitNotifiesOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newTestStore(t)
	if _, err := store.UpsertRegistration(ctx, domain.WebhookRegistration{URL: "http://hooks.test/all"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := store.RecordAccepted(ctx, "req-1"); err != nil {
		t.Fatalf("record accepted: %v", err)
	}
	// A redelivered submit item already moved the request to submitted.
	if _, err := store.Transition(ctx, "req-1", domain.RequestSubmitted, "0xaaa", ""); err != nil {
		t.Fatalf("submitted: %v", err)
	}

	notifier := services.NewNotifier(store, store, store, nil, nil)
	failed := domain.NewFailedOutcome(domain.TxAddKey, domain.OutcomeCommon{ReferenceID: "req-1", ProviderID: "1"}, "rejected")
	if err := notifier.Publish(ctx, failed); err != nil {
		t.Fatalf("publish failed outcome: %v", err)
	}

	status, err := store.GetStatus(ctx, "req-1")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if status.State != domain.RequestFailed {
		t.Fatalf("expected failed, got %+v", status)
	}
	if depth := mustDepth(t, store, domain.QueueDelivery); depth != 1 {
		t.Fatalf("expected one delivery for the failed outcome, got %d", depth)
	}

	// Redelivery of the same outcome completes fan-out without duplicating it.
	if err := notifier.Publish(ctx, failed); err != nil {
		t.Fatalf("republish failed outcome: %v", err)
	}
	if depth := mustDepth(t, store, domain.QueueDelivery); depth != 1 {
		t.Fatalf("redelivered outcome duplicated deliveries: %d", depth)
	}

	late := domain.NewFinalizedOutcome(domain.TxAddKey, domain.OutcomeCommon{ReferenceID: "req-1", TxHash: "0xaaa"},
		domain.PublicKeyAdded{NewPublicKey: "0xkey"})
	if err := notifier.Publish(ctx, late); err != nil {
		t.Fatalf("publish late outcome: %v", err)
	}
	if depth := mustDepth(t, store, domain.QueueDelivery); depth != 1 {
		t.Fatalf("late outcome after terminal state must not notify, got %d deliveries", depth)
	}
}

func TestTransitionReportsWhetherItWrote(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newTestStore(t)

	first, err := store.Transition(ctx, "req-2", domain.RequestExpired, "0xbb", "")
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if !first.Changed {
		t.Fatalf("first terminal transition must report a write")
	}
	again, err := store.Transition(ctx, "req-2", domain.RequestExpired, "0xbb", "")
	if err != nil {
		t.Fatalf("expire again: %v", err)
	}
	if again.Changed || again.State != domain.RequestExpired {
		t.Fatalf("repeat transition must not write, got %+v", again)
	}
}

func mustDepth(t *testing.T, store *Store, queue string) int {
	t.Helper()
	depth, err := store.Depth(context.Background(), queue)
	if err != nil {
		t.Fatalf("depth %s: %v", queue, err)
	}
	return depth
}
