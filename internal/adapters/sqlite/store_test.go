package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/fr0stylo/txcommit/internal/app/domain"
)

func newTestStore(t *testing.T) (*Store, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	store, err := Open(filepath.Join(t.TempDir(), "pipeline"), WithClock(mock))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store, mock
}

func TestQueueLeaseRetryAndAck(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mock := newTestStore(t)

	if err := store.Enqueue(ctx, domain.QueueSubmitReady, "req-1", []byte(`{"id":"req-1"}`)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := store.Enqueue(ctx, domain.QueueSubmitReady, "req-1", []byte(`{"id":"other"}`)); err != nil {
		t.Fatalf("enqueue duplicate: %v", err)
	}
	if depth, err := store.Depth(ctx, domain.QueueSubmitReady); err != nil || depth != 1 {
		t.Fatalf("expected depth 1 after duplicate enqueue, got %d err=%v", depth, err)
	}

	item, ok, err := store.Dequeue(ctx, domain.QueueSubmitReady, 30*time.Second)
	if err != nil || !ok {
		t.Fatalf("dequeue: ok=%v err=%v", ok, err)
	}
	if item.ID != "req-1" || string(item.Payload) != `{"id":"req-1"}` || item.Attempt != 0 || item.Token == "" {
		t.Fatalf("unexpected item: %+v", item)
	}
	if _, ok, _ := store.Dequeue(ctx, domain.QueueSubmitReady, 30*time.Second); ok {
		t.Fatal("leased item must not be handed out twice")
	}

	if err := store.Retry(ctx, item, 5*time.Second, "sequence conflict"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if _, ok, _ := store.Dequeue(ctx, domain.QueueSubmitReady, 30*time.Second); ok {
		t.Fatal("deferred item must stay hidden until its delay passes")
	}

	mock.Add(5 * time.Second)
	again, ok, err := store.Dequeue(ctx, domain.QueueSubmitReady, 30*time.Second)
	if err != nil || !ok {
		t.Fatalf("dequeue after delay: ok=%v err=%v", ok, err)
	}
	if again.Attempt != 1 || again.Token == item.Token {
		t.Fatalf("expected attempt 1 with a fresh token, got %+v", again)
	}

	if err := store.Ack(ctx, item); !errors.Is(err, ErrLeaseLost) {
		t.Fatalf("ack with stale token should lose the lease, got %v", err)
	}
	if err := store.Ack(ctx, again); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if depth, _ := store.Depth(ctx, domain.QueueSubmitReady); depth != 0 {
		t.Fatalf("expected empty queue, got depth %d", depth)
	}

	if err := store.Enqueue(ctx, domain.QueueSubmitReady, "req-1", []byte(`{}`)); err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}
	state, attempt, err := store.ItemState(ctx, domain.QueueSubmitReady, "req-1")
	if err != nil || state != "done" || attempt != 1 {
		t.Fatalf("finished item must absorb re-enqueue, got state=%s attempt=%d err=%v", state, attempt, err)
	}
}

func TestQueueExpiredLeaseIsReclaimed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mock := newTestStore(t)

	if err := store.Enqueue(ctx, domain.QueueNotifyReady, "out-1", []byte(`{}`)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	first, _, err := store.Dequeue(ctx, domain.QueueNotifyReady, 10*time.Second)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	mock.Add(10 * time.Second)
	second, ok, err := store.Dequeue(ctx, domain.QueueNotifyReady, 10*time.Second)
	if err != nil || !ok {
		t.Fatalf("expired lease should be reclaimable: ok=%v err=%v", ok, err)
	}
	if second.ID != first.ID || second.Token == first.Token {
		t.Fatalf("unexpected reclaimed item: %+v", second)
	}
	if err := store.Fail(ctx, first, "late"); !errors.Is(err, ErrLeaseLost) {
		t.Fatalf("fail with expired token should lose the lease, got %v", err)
	}
	if err := store.Fail(ctx, second, "bad payload"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	state, _, _ := store.ItemState(ctx, domain.QueueNotifyReady, "out-1")
	if state != "failed" {
		t.Fatalf("expected failed state, got %s", state)
	}
}

func TestQueuePurgeFinished(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mock := newTestStore(t)

	for _, id := range []string{"a", "b"} {
		if err := store.Enqueue(ctx, domain.QueueRequestIn, id, []byte(`{}`)); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	item, _, _ := store.Dequeue(ctx, domain.QueueRequestIn, time.Minute)
	if err := store.Ack(ctx, item); err != nil {
		t.Fatalf("ack: %v", err)
	}

	mock.Add(2 * time.Hour)
	purged, err := store.PurgeFinished(ctx, time.Hour)
	if err != nil || purged != 1 {
		t.Fatalf("expected one purged item, got %d err=%v", purged, err)
	}
	if depth, _ := store.Depth(ctx, domain.QueueRequestIn); depth != 1 {
		t.Fatalf("pending item must survive purge, got depth %d", depth)
	}
}

func TestWatchCheckpointAndCursor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newTestStore(t)

	tx := domain.SubmittedTransaction{
		TxHash:           "0xabc",
		SequenceNumber:   101,
		ReferenceID:      "batch-1",
		TxType:           domain.TxBatchAnnouncement,
		ProviderID:       "1",
		BirthBlock:       1000,
		DeathBlock:       1064,
		ContentID:        "bafk",
		ItemReferenceIDs: []string{"req-1", "req-2"},
	}
	if err := store.Watch(ctx, tx); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := store.Watch(ctx, tx); err != nil {
		t.Fatalf("watch twice: %v", err)
	}
	if err := store.Checkpoint(ctx, "0xabc", 1010); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if err := store.Checkpoint(ctx, "0xabc", 1005); err != nil {
		t.Fatalf("checkpoint backwards: %v", err)
	}

	watched, err := store.ListWatched(ctx)
	if err != nil || len(watched) != 1 {
		t.Fatalf("expected one watched transaction, got %d err=%v", len(watched), err)
	}
	got := watched[0]
	if got.CheckedThrough != 1010 || got.NextBlock() != 1011 {
		t.Fatalf("checkpoint must only move forward, got %+v", got)
	}
	if got.SequenceNumber != 101 || got.DeathBlock != 1064 || len(got.ItemReferenceIDs) != 2 || got.ItemReferenceIDs[1] != "req-2" {
		t.Fatalf("unexpected watched mapping: %+v", got)
	}

	if err := store.Unwatch(ctx, "0xabc"); err != nil {
		t.Fatalf("unwatch: %v", err)
	}
	if watched, _ := store.ListWatched(ctx); len(watched) != 0 {
		t.Fatalf("expected empty watch set, got %d", len(watched))
	}

	if _, ok, err := store.LoadCursor(ctx, "finality"); ok || err != nil {
		t.Fatalf("expected no cursor, ok=%v err=%v", ok, err)
	}
	if err := store.SaveCursor(ctx, "finality", 1064); err != nil {
		t.Fatalf("save cursor: %v", err)
	}
	if block, ok, err := store.LoadCursor(ctx, "finality"); !ok || err != nil || block != 1064 {
		t.Fatalf("expected cursor 1064, got %d ok=%v err=%v", block, ok, err)
	}
}

func TestRequestStatusTerminalStateIsWriteOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newTestStore(t)

	if _, err := store.GetStatus(ctx, "req-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.RecordAccepted(ctx, "req-1"); err != nil {
		t.Fatalf("record accepted: %v", err)
	}
	if _, err := store.Transition(ctx, "req-1", domain.RequestSubmitted, "0xabc", ""); err != nil {
		t.Fatalf("submitted: %v", err)
	}
	if err := store.RecordAccepted(ctx, "req-1"); err != nil {
		t.Fatalf("record accepted again: %v", err)
	}

	final, err := store.Transition(ctx, "req-1", domain.RequestFinalized, "", "")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if final.State != domain.RequestFinalized || final.TxHash != "0xabc" {
		t.Fatalf("expected finalized with kept hash, got %+v", final)
	}

	after, err := store.Transition(ctx, "req-1", domain.RequestExpired, "0xdef", "late")
	if err != nil {
		t.Fatalf("transition after terminal: %v", err)
	}
	if after.State != domain.RequestFinalized || after.TxHash != "0xabc" || after.Detail != "" {
		t.Fatalf("terminal state must be write-once, got %+v", after)
	}
}

func TestRegistrationsAndDeliveryLog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newTestStore(t)

	all, err := store.UpsertRegistration(ctx, domain.WebhookRegistration{URL: "http://a.example/hook", Token: "tok"})
	if err != nil {
		t.Fatalf("upsert all: %v", err)
	}
	handles, err := store.UpsertRegistration(ctx, domain.WebhookRegistration{URL: "http://b.example/hook", EventTypes: []string{" handle.changed ", ""}})
	if err != nil {
		t.Fatalf("upsert filtered: %v", err)
	}
	updated, err := store.UpsertRegistration(ctx, domain.WebhookRegistration{URL: "http://a.example/hook", Token: "tok-2"})
	if err != nil || updated.ID != all.ID || updated.Token != "tok-2" {
		t.Fatalf("upsert must replace by url, got %+v err=%v", updated, err)
	}
	if _, err := store.UpsertRegistration(ctx, domain.WebhookRegistration{URL: " "}); err == nil {
		t.Fatal("expected empty url to be rejected")
	}

	matched, err := store.ListRegistrations(ctx, "handle.changed")
	if err != nil || len(matched) != 2 {
		t.Fatalf("expected both registrations for handle.changed, got %d err=%v", len(matched), err)
	}
	matched, _ = store.ListRegistrations(ctx, "msa.retired")
	if len(matched) != 1 || matched[0].ID != all.ID {
		t.Fatalf("expected only the unfiltered registration, got %+v", matched)
	}

	got, err := store.GetRegistration(ctx, handles.ID)
	if err != nil || len(got.EventTypes) != 1 || got.EventTypes[0] != "handle.changed" {
		t.Fatalf("unexpected registration: %+v err=%v", got, err)
	}
	if err := store.DeleteRegistration(ctx, handles.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetRegistration(ctx, handles.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	for i, state := range []domain.DeliveryState{domain.DeliveryRetrying, domain.DeliveryDelivered} {
		if err := store.RecordDelivery(ctx, domain.DeliveryRecord{
			DeliveryID:      "ref:req-1|1",
			RegistrationURL: "http://a.example/hook",
			ReferenceID:     "req-1",
			TxHash:          "0xabc",
			Attempt:         i + 1,
			State:           state,
			StatusCode:      []int{500, 200}[i],
		}); err != nil {
			t.Fatalf("record delivery %d: %v", i, err)
		}
	}
	log, err := store.ListDeliveries(ctx, "req-1")
	if err != nil || len(log) != 2 {
		t.Fatalf("expected two delivery records, got %d err=%v", len(log), err)
	}
	if log[0].StatusCode != 500 || log[1].State != domain.DeliveryDelivered || log[1].Attempt != 2 {
		t.Fatalf("unexpected delivery log: %+v", log)
	}
}

func TestContentStoreIsContentAddressed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newTestStore(t)

	data := []byte("{\"id\":\"req-1\"}\n")
	first, err := store.Put(ctx, data)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := store.Put(ctx, data)
	if err != nil || second != first {
		t.Fatalf("same bytes must map to the same id, got %s and %s err=%v", first, second, err)
	}
	other, _ := store.Put(ctx, []byte("other"))
	if other == first {
		t.Fatal("different bytes must map to different ids")
	}

	got, err := store.Get(ctx, first)
	if err != nil || string(got) != string(data) {
		t.Fatalf("unexpected blob %q err=%v", got, err)
	}
	if _, err := store.Get(ctx, "bafkmissing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
