package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports"
	"github.com/fr0stylo/txcommit/internal/app/ports/mocks"
)

func finalizedHandle(ref, hash string) domain.TxOutcome {
	return domain.NewFinalizedOutcome(domain.TxCreateHandle, domain.OutcomeCommon{
		ReferenceID: ref,
		ProviderID:  "1",
		MsaID:       "42",
		TxHash:      hash,
		Block:       domain.BlockRef{Number: 12},
	}, domain.HandleClaimed{Handle: "alice.1"})
}

func TestPublishFansOutToMatchingRegistrations(t *testing.T) {
	q := newMemQueue(nil)
	statuses := newMemStatuses()
	regs := mocks.NewMockRegistrationStore(t)
	regs.EXPECT().ListRegistrations(mock.Anything, "CREATE_HANDLE").Return([]domain.WebhookRegistration{
		{ID: 1, URL: "http://a.test/hook"},
		{ID: 2, URL: "http://b.test/hook", EventTypes: []string{"create_handle"}},
		{ID: 3, URL: "http://c.test/hook", EventTypes: []string{"ADD_KEY"}},
	}, nil)
	sink := &recordingSink{}

	n := NewNotifier(q, statuses, regs, []ports.OutcomeSink{sink}, nil)
	require.NoError(t, n.Publish(context.Background(), finalizedHandle("req-1", "0xaa")))

	deliveries := q.snapshot(domain.QueueDelivery)
	require.Len(t, deliveries, 2)
	require.Equal(t, "0xaa|1", deliveries[0].item.ID)
	require.Equal(t, "0xaa|2", deliveries[1].item.ID)

	var attempt domain.DeliveryAttempt
	require.NoError(t, json.Unmarshal(deliveries[1].item.Payload, &attempt))
	require.Equal(t, "http://b.test/hook", attempt.RegistrationURL)
	require.Equal(t, domain.OutcomeFinalized, attempt.Outcome.Status())

	require.Equal(t, domain.RequestFinalized, statuses.state("req-1"))
	require.Len(t, sink.outcomes, 1)
}

func TestPublishDropsStaleOutcome(t *testing.T) {
	q := newMemQueue(nil)
	statuses := newMemStatuses()
	_, _ = statuses.Transition(context.Background(), "req-2", domain.RequestFinalized, "0xgood", "")
	regs := mocks.NewMockRegistrationStore(t)

	n := NewNotifier(q, statuses, regs, nil, nil)
	late := domain.NewExpiredOutcome(domain.TxCreateHandle, domain.OutcomeCommon{ReferenceID: "req-2", TxHash: "0xold"})
	require.NoError(t, n.Publish(context.Background(), late))

	require.Empty(t, q.snapshot(domain.QueueDelivery))
	require.Equal(t, domain.RequestFinalized, statuses.state("req-2"))
}

func TestPublishIsIdempotentForTheSameOutcome(t *testing.T) {
	q := newMemQueue(nil)
	statuses := newMemStatuses()
	regs := mocks.NewMockRegistrationStore(t)
	regs.EXPECT().ListRegistrations(mock.Anything, mock.Anything).Return([]domain.WebhookRegistration{{ID: 9, URL: "http://a.test"}}, nil)

	n := NewNotifier(q, statuses, regs, nil, nil)
	outcome := finalizedHandle("req-3", "0xbb")
	require.NoError(t, n.Publish(context.Background(), outcome))
	require.NoError(t, n.Publish(context.Background(), outcome))
	require.Len(t, q.snapshot(domain.QueueDelivery), 1)
}

func TestPublishMarksBatchItems(t *testing.T) {
	q := newMemQueue(nil)
	statuses := newMemStatuses()
	regs := mocks.NewMockRegistrationStore(t)
	regs.EXPECT().ListRegistrations(mock.Anything, "BATCH_ANNOUNCEMENT").Return(nil, nil)

	outcome := domain.NewExpiredOutcome(domain.TxBatchAnnouncement, domain.OutcomeCommon{ReferenceID: "batch-1", TxHash: "0xcc"}).
		WithItems([]string{"item-1", "item-2"})
	n := NewNotifier(q, statuses, regs, nil, nil)
	require.NoError(t, n.Publish(context.Background(), outcome))

	require.Equal(t, domain.RequestExpired, statuses.state("batch-1"))
	require.Equal(t, domain.RequestExpired, statuses.state("item-1"))
	require.Equal(t, domain.RequestExpired, statuses.state("item-2"))
}

func TestPublishFailedOutcomeWithoutHashAfterSubmit(t *testing.T) {
	q := newMemQueue(nil)
	statuses := newMemStatuses()
	_, _ = statuses.Transition(context.Background(), "req-4", domain.RequestSubmitted, "0xaaa", "")
	regs := mocks.NewMockRegistrationStore(t)
	regs.EXPECT().ListRegistrations(mock.Anything, mock.Anything).Return([]domain.WebhookRegistration{{ID: 3, URL: "http://a.test"}}, nil)

	n := NewNotifier(q, statuses, regs, nil, nil)
	failed := domain.NewFailedOutcome(domain.TxAddKey, domain.OutcomeCommon{ReferenceID: "req-4"}, "budget exhausted")
	require.NoError(t, n.Publish(context.Background(), failed))
	require.NoError(t, n.Publish(context.Background(), failed))

	deliveries := q.snapshot(domain.QueueDelivery)
	require.Len(t, deliveries, 1)
	require.Equal(t, "ref:req-4|3", deliveries[0].item.ID)
	require.Equal(t, domain.RequestFailed, statuses.state("req-4"))
}
