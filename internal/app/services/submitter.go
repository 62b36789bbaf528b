package services

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports"
	"github.com/fr0stylo/txcommit/internal/observability"
)

// SequenceSource hands out sequence numbers for an account.
type SequenceSource interface {
	Allocate(ctx context.Context, account string) (uint64, error)
}

// SubmitterConfig tunes submission and deferral.
type SubmitterConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	Mortality   uint64
}

// Submitter turns requests and sealed batches into signed, paid chain submissions.
type Submitter struct {
	chain    ports.ChainClient
	sequence SequenceSource
	signer   ports.Signer
	content  ports.ContentStore
	queue    ports.Queue
	statuses ports.RequestStatusStore
	cfg      SubmitterConfig
	metrics  *observability.PipelineMetrics
	log      *slog.Logger
}

// NewSubmitter constructs a submitter. signer is the only key the submitter signs with.
func NewSubmitter(
	chain ports.ChainClient,
	sequence SequenceSource,
	signer ports.Signer,
	content ports.ContentStore,
	queue ports.Queue,
	statuses ports.RequestStatusStore,
	cfg SubmitterConfig,
	metrics *observability.PipelineMetrics,
	log *slog.Logger,
) *Submitter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.BackoffMax < cfg.BackoffBase {
		cfg.BackoffMax = 30 * time.Second
	}
	if cfg.Mortality == 0 {
		cfg.Mortality = domain.MortalityPeriod
	}
	if log == nil {
		log = slog.Default()
	}
	return &Submitter{
		chain:    chain,
		sequence: sequence,
		signer:   signer,
		content:  content,
		queue:    queue,
		statuses: statuses,
		cfg:      cfg,
		metrics:  metrics,
		log:      log,
	}
}

// Submission identifies the request or batch a chain call settles.
type Submission struct {
	ReferenceID string
	TxType      domain.TxType
	ProviderID  string
	MsaID       string
	ContentID   string
	Items       []string
}

// SubmitRequest is the submit-ready handler.
func (s *Submitter) SubmitRequest(ctx context.Context, item ports.QueueItem) error {
	var req domain.WriteRequest
	if err := json.Unmarshal(item.Payload, &req); err != nil {
		return fmt.Errorf("%w: decode request %s: %v", domain.ErrMalformedCall, item.ID, err)
	}
	req.DependencyAttempt = item.Attempt
	ctx = withPipelineFields(ctx, req.ID, "", req.StreamKey)

	sub := Submission{
		ReferenceID: req.ID,
		TxType:      req.PayloadType,
		ProviderID:  req.ProviderID,
		MsaID:       req.MsaID,
	}
	call, err := domain.CallFor(req)
	if err != nil {
		return s.HandleFailure(ctx, item, sub, err)
	}
	return s.submitAndWatch(ctx, item, sub, call)
}

// SubmitBatch is the batch-sealed handler. The batch content is stored first
// and then announced on chain by content id.
func (s *Submitter) SubmitBatch(ctx context.Context, item ports.QueueItem) error {
	var batch domain.Batch
	if err := json.Unmarshal(item.Payload, &batch); err != nil {
		return fmt.Errorf("%w: decode batch %s: %v", domain.ErrMalformedCall, item.ID, err)
	}
	ctx = withPipelineFields(ctx, batch.ID, "", batch.StreamKey)

	sub := Submission{
		ReferenceID: batch.ID,
		TxType:      domain.TxBatchAnnouncement,
		ProviderID:  batch.ProviderID,
		Items:       batch.ItemIDs(),
	}
	if len(batch.Items) == 0 {
		return s.HandleFailure(ctx, item, sub, fmt.Errorf("%w: batch %s is empty", domain.ErrMalformedCall, batch.ID))
	}

	content, err := batch.EncodeContent()
	if err != nil {
		return s.HandleFailure(ctx, item, sub, fmt.Errorf("%w: %v", domain.ErrMalformedCall, err))
	}
	contentID, err := s.content.Put(ctx, content)
	if err != nil {
		return s.HandleFailure(ctx, item, sub, fmt.Errorf("%w: store batch %s: %v", domain.ErrStorageUnavailable, batch.ID, err))
	}
	sub.ContentID = contentID

	call := domain.BatchAnnouncementCall(batch.StreamKey, contentID, len(content))
	return s.submitAndWatch(ctx, item, sub, call)
}

func (s *Submitter) submitAndWatch(ctx context.Context, item ports.QueueItem, sub Submission, call domain.Call) error {
	tx, err := s.submit(ctx, sub, call)
	if err != nil {
		return s.HandleFailure(ctx, item, sub, err)
	}
	ctx = withPipelineFields(ctx, sub.ReferenceID, tx.TxHash, "")
	s.metrics.Submission(ctx, "accepted")

	payload, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode submitted transaction %s: %w", tx.TxHash, err)
	}
	// The chain already holds the transaction, so the watch handoff is retried
	// in place instead of resubmitting.
	backoff := retry.WithMaxRetries(4, retry.NewExponential(100*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.queue.Enqueue(ctx, domain.QueueFinalityWatch, tx.TxHash, payload); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		s.log.ErrorContext(ctx, "finality_watch_enqueue_failed", "error", err)
		return domain.Defer(fmt.Errorf("%w: enqueue finality watch: %v", domain.ErrStorageUnavailable, err), s.backoff(item.Attempt))
	}

	for _, ref := range append([]string{sub.ReferenceID}, sub.Items...) {
		if _, err := s.statuses.Transition(ctx, ref, domain.RequestSubmitted, tx.TxHash, ""); err != nil {
			s.log.WarnContext(ctx, "request_status_update_failed", "reference", ref, "error", err)
		}
	}

	s.log.InfoContext(ctx, "transaction_submitted",
		"tx_type", sub.TxType,
		"sequence", tx.SequenceNumber,
		"birth_block", tx.BirthBlock,
		"death_block", tx.DeathBlock,
		"items", len(sub.Items),
	)
	return nil
}

func (s *Submitter) submit(ctx context.Context, sub Submission, call domain.Call) (domain.SubmittedTransaction, error) {
	payer := s.signer.Account()

	signed, err := s.chain.MeterPayment(ctx, call, payer)
	if err != nil {
		return domain.SubmittedTransaction{}, fmt.Errorf("meter payment: %w", err)
	}
	nonce, err := s.sequence.Allocate(ctx, payer)
	if err != nil {
		return domain.SubmittedTransaction{}, err
	}
	head, err := s.chain.CurrentBlock(ctx)
	if err != nil {
		return domain.SubmittedTransaction{}, fmt.Errorf("current block: %w", err)
	}

	signed.Payer = payer
	signed.Nonce = nonce
	signed.Era = domain.Era{Birth: head.Number, Period: s.cfg.Mortality}
	signingPayload, err := signed.SigningPayload()
	if err != nil {
		return domain.SubmittedTransaction{}, fmt.Errorf("%w: signing payload: %v", domain.ErrMalformedCall, err)
	}
	signature, err := s.signer.Sign(signingPayload)
	if err != nil {
		return domain.SubmittedTransaction{}, fmt.Errorf("%w: sign: %v", domain.ErrMalformedCall, err)
	}
	signed.Signer = payer
	signed.Signature = "0x" + hex.EncodeToString(signature)

	hash, err := s.chain.Submit(ctx, signed)
	if err != nil {
		return domain.SubmittedTransaction{}, fmt.Errorf("submit sequence %d: %w", nonce, err)
	}

	return domain.SubmittedTransaction{
		TxHash:           strings.ToLower(strings.TrimSpace(hash)),
		SequenceNumber:   nonce,
		ReferenceID:      sub.ReferenceID,
		TxType:           sub.TxType,
		ProviderID:       sub.ProviderID,
		MsaID:            sub.MsaID,
		BirthBlock:       head.Number,
		DeathBlock:       head.Number + s.cfg.Mortality,
		ContentID:        sub.ContentID,
		ItemReferenceIDs: sub.Items,
	}, nil
}

// HandleFailure defers conflicts and transient errors and turns everything
// else, including exhausted deferrals, into a published failed outcome.
func (s *Submitter) HandleFailure(ctx context.Context, item ports.QueueItem, sub Submission, err error) error {
	kind := domain.ClassifyError(err)
	s.metrics.Submission(ctx, string(kind))

	switch kind {
	case domain.ErrorConflict, domain.ErrorRetryable:
		if item.Attempt+1 >= s.cfg.MaxAttempts {
			exhausted := fmt.Errorf("%w after %d attempts: %v", domain.ErrRetriesExhausted, item.Attempt+1, err)
			return s.fail(ctx, item, sub, exhausted)
		}
		delay := s.backoff(item.Attempt)
		s.log.InfoContext(ctx, "submission_deferred",
			"error_kind", kind,
			"attempt", item.Attempt,
			"delay", delay.String(),
			"error", err,
		)
		return domain.Defer(err, delay)
	default:
		return s.fail(ctx, item, sub, err)
	}
}

func (s *Submitter) fail(ctx context.Context, item ports.QueueItem, sub Submission, cause error) error {
	if !sub.TxType.Valid() {
		s.log.ErrorContext(ctx, "submission_failed_untyped", "tx_type", sub.TxType, "error", cause)
		return cause
	}
	outcome := domain.NewFailedOutcome(sub.TxType, domain.OutcomeCommon{
		ReferenceID: sub.ReferenceID,
		ProviderID:  sub.ProviderID,
		MsaID:       sub.MsaID,
	}, cause.Error()).WithItems(sub.Items)

	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode failed outcome %s: %w", sub.ReferenceID, err)
	}
	if err := s.queue.Enqueue(ctx, domain.QueueNotifyReady, outcome.Key(), payload); err != nil {
		return domain.Defer(fmt.Errorf("%w: publish failed outcome: %v", domain.ErrStorageUnavailable, err), s.backoff(item.Attempt))
	}
	s.log.ErrorContext(ctx, "submission_failed", "tx_type", sub.TxType, "error", cause)
	return cause
}

func (s *Submitter) backoff(attempt int) time.Duration {
	return BackoffDelay(s.cfg.BackoffBase, s.cfg.BackoffMax, attempt)
}
