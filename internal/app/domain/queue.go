package domain

// Durable stage queues between pipeline components.
const (
	QueueRequestIn     = "request-in"
	QueueBatchSealed   = "batch-sealed"
	QueueSubmitReady   = "submit-ready"
	QueueFinalityWatch = "finality-watch"
	QueueNotifyReady   = "notify-ready"
	QueueDelivery      = "callback-delivery"
)

// Queues lists every stage queue in pipeline order.
var Queues = []string{
	QueueRequestIn,
	QueueBatchSealed,
	QueueSubmitReady,
	QueueFinalityWatch,
	QueueNotifyReady,
	QueueDelivery,
}
