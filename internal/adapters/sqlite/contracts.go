package sqlite

import (
	"context"

	"github.com/fr0stylo/txcommit/internal/db/queries"
)

type pipelineDatabase interface {
	EnqueueItem(ctx context.Context, arg queries.EnqueueItemParams) (int64, error)
	ClaimQueueItem(ctx context.Context, arg queries.ClaimQueueItemParams) (queries.ClaimQueueItemRow, error)
	AckQueueItem(ctx context.Context, arg queries.AckQueueItemParams) (int64, error)
	RetryQueueItem(ctx context.Context, arg queries.RetryQueueItemParams) (int64, error)
	FailQueueItem(ctx context.Context, arg queries.FailQueueItemParams) (int64, error)
	GetQueueItem(ctx context.Context, arg queries.GetQueueItemParams) (queries.QueueItem, error)
	CountPendingQueueItems(ctx context.Context, queue string) (int64, error)
	PurgeFinishedQueueItems(ctx context.Context, updatedAtMs int64) (int64, error)

	InsertWatchedTransaction(ctx context.Context, arg queries.InsertWatchedTransactionParams) error
	ListWatchedTransactions(ctx context.Context) ([]queries.WatchedTransaction, error)
	UpdateWatchCheckpoint(ctx context.Context, arg queries.UpdateWatchCheckpointParams) error
	DeleteWatchedTransaction(ctx context.Context, txHash string) error
	GetScanCursor(ctx context.Context, name string) (queries.ScanCursor, error)
	UpsertScanCursor(ctx context.Context, arg queries.UpsertScanCursorParams) error

	InsertAcceptedRequest(ctx context.Context, arg queries.InsertAcceptedRequestParams) error
	GetRequestStatus(ctx context.Context, referenceID string) (queries.RequestStatus, error)

	PutBlob(ctx context.Context, arg queries.PutBlobParams) error
	GetBlob(ctx context.Context, contentID string) (queries.Blob, error)

	ListWebhookRegistrations(ctx context.Context) ([]queries.WebhookRegistration, error)
	GetWebhookRegistration(ctx context.Context, id int64) (queries.WebhookRegistration, error)
	UpsertWebhookRegistration(ctx context.Context, arg queries.UpsertWebhookRegistrationParams) (queries.WebhookRegistration, error)
	DeleteWebhookRegistration(ctx context.Context, id int64) error
	InsertDeliveryLog(ctx context.Context, arg queries.InsertDeliveryLogParams) error
	ListDeliveryLogByReference(ctx context.Context, referenceID string) ([]queries.DeliveryLog, error)

	InTx(ctx context.Context, fn func(*queries.Queries) error) error
	Ping(ctx context.Context) error
}
