package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports"
)

var errLeaseLost = errors.New("lease lost")

type memItem struct {
	item       ports.QueueItem
	state      string
	leaseUntil time.Time
	reason     string
}

// memQueue is an in-memory ports.Queue with lease and visibility semantics.
type memQueue struct {
	mu     sync.Mutex
	clock  clock.Clock
	items  map[string][]*memItem
	tokens int
	failOn map[string]error
}

func newMemQueue(clk clock.Clock) *memQueue {
	if clk == nil {
		clk = clock.New()
	}
	return &memQueue{clock: clk, items: make(map[string][]*memItem)}
}

func (q *memQueue) Enqueue(_ context.Context, queue, id string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.failOn[queue]; err != nil {
		return err
	}
	for _, existing := range q.items[queue] {
		if existing.item.ID == id {
			return nil
		}
	}
	q.items[queue] = append(q.items[queue], &memItem{
		item:  ports.QueueItem{Queue: queue, ID: id, Payload: append([]byte(nil), payload...), NotBefore: q.clock.Now()},
		state: "pending",
	})
	return nil
}

func (q *memQueue) Dequeue(_ context.Context, queue string, lease time.Duration) (ports.QueueItem, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.clock.Now()
	for _, it := range q.items[queue] {
		ready := it.state == "pending" && !it.item.NotBefore.After(now)
		expired := it.state == "leased" && now.After(it.leaseUntil)
		if !ready && !expired {
			continue
		}
		q.tokens++
		it.state = "leased"
		it.leaseUntil = now.Add(lease)
		it.item.Token = strconv.Itoa(q.tokens)
		return it.item, true, nil
	}
	return ports.QueueItem{}, false, nil
}

func (q *memQueue) settle(item ports.QueueItem, apply func(*memItem)) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.items[item.Queue] {
		if it.item.ID != item.ID {
			continue
		}
		if it.state != "leased" || it.item.Token != item.Token {
			return errLeaseLost
		}
		apply(it)
		return nil
	}
	return errLeaseLost
}

func (q *memQueue) Ack(_ context.Context, item ports.QueueItem) error {
	return q.settle(item, func(it *memItem) { it.state = "done" })
}

func (q *memQueue) Retry(_ context.Context, item ports.QueueItem, delay time.Duration, reason string) error {
	return q.settle(item, func(it *memItem) {
		it.state = "pending"
		it.item.Attempt++
		it.item.NotBefore = q.clock.Now().Add(delay)
		it.reason = reason
	})
}

func (q *memQueue) Fail(_ context.Context, item ports.QueueItem, reason string) error {
	return q.settle(item, func(it *memItem) {
		it.state = "failed"
		it.reason = reason
	})
}

func (q *memQueue) Depth(_ context.Context, queue string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, it := range q.items[queue] {
		if it.state == "pending" || it.state == "leased" {
			n++
		}
	}
	return n, nil
}

func (q *memQueue) snapshot(queue string) []memItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]memItem, 0, len(q.items[queue]))
	for _, it := range q.items[queue] {
		out = append(out, *it)
	}
	return out
}

func (q *memQueue) find(queue, id string) (memItem, bool) {
	for _, it := range q.snapshot(queue) {
		if it.item.ID == id {
			return it, true
		}
	}
	return memItem{}, false
}

// memCoordination leases keys atomically under one mutex.
type memCoordination struct {
	mu     sync.Mutex
	clock  clock.Clock
	leases map[string]time.Time
	err    error
}

func newMemCoordination(clk clock.Clock) *memCoordination {
	return &memCoordination{clock: clk, leases: make(map[string]time.Time)}
}

func (c *memCoordination) LeaseFirstUnleased(_ context.Context, keys []string, ttl time.Duration) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, false, c.err
	}
	now := c.clock.Now()
	for i, key := range keys {
		if until, ok := c.leases[key]; ok && now.Before(until) {
			continue
		}
		c.leases[key] = now.Add(ttl)
		return i, true, nil
	}
	return 0, false, nil
}

type memStatuses struct {
	mu       sync.Mutex
	statuses map[string]domain.RequestStatus
}

func newMemStatuses() *memStatuses {
	return &memStatuses{statuses: make(map[string]domain.RequestStatus)}
}

func (s *memStatuses) RecordAccepted(_ context.Context, referenceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.statuses[referenceID]; !ok {
		s.statuses[referenceID] = domain.RequestStatus{ReferenceID: referenceID, State: domain.RequestAccepted}
	}
	return nil
}

func (s *memStatuses) Transition(_ context.Context, referenceID string, state domain.RequestState, txHash, detail string) (domain.RequestStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.statuses[referenceID]
	if ok && current.State.Terminal() {
		return current, nil
	}
	if txHash == "" {
		txHash = current.TxHash
	}
	next := domain.RequestStatus{ReferenceID: referenceID, State: state, TxHash: txHash, Detail: detail}
	s.statuses[referenceID] = next
	next.Changed = true
	return next, nil
}

func (s *memStatuses) GetStatus(_ context.Context, referenceID string) (domain.RequestStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.statuses[referenceID]
	if !ok {
		return domain.RequestStatus{}, domain.ErrNotFound
	}
	return status, nil
}

func (s *memStatuses) state(referenceID string) domain.RequestState {
	status, _ := s.GetStatus(context.Background(), referenceID)
	return status.State
}

type memWatches struct {
	mu      sync.Mutex
	watched map[string]domain.SubmittedTransaction
}

func newMemWatches() *memWatches {
	return &memWatches{watched: make(map[string]domain.SubmittedTransaction)}
}

func (w *memWatches) Watch(_ context.Context, tx domain.SubmittedTransaction) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.watched[tx.TxHash]; !ok {
		w.watched[tx.TxHash] = tx
	}
	return nil
}

func (w *memWatches) ListWatched(context.Context) ([]domain.SubmittedTransaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.SubmittedTransaction, 0, len(w.watched))
	for _, tx := range w.watched {
		out = append(out, tx)
	}
	return out, nil
}

func (w *memWatches) Checkpoint(_ context.Context, txHash string, checkedThrough uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	tx, ok := w.watched[txHash]
	if !ok {
		return nil
	}
	tx.CheckedThrough = checkedThrough
	w.watched[txHash] = tx
	return nil
}

func (w *memWatches) Unwatch(_ context.Context, txHash string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.watched, txHash)
	return nil
}

type memCursors struct {
	mu      sync.Mutex
	cursors map[string]uint64
}

func (c *memCursors) LoadCursor(_ context.Context, name string) (uint64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cursors[name]
	return v, ok, nil
}

func (c *memCursors) SaveCursor(_ context.Context, name string, block uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cursors == nil {
		c.cursors = make(map[string]uint64)
	}
	c.cursors[name] = block
	return nil
}

type memContent struct {
	mu    sync.Mutex
	blobs map[string][]byte
	err   error
}

func (c *memContent) Put(_ context.Context, data []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	if c.blobs == nil {
		c.blobs = make(map[string][]byte)
	}
	id := fmt.Sprintf("blob-%d", len(c.blobs)+1)
	c.blobs[id] = append([]byte(nil), data...)
	return id, nil
}

func (c *memContent) Get(_ context.Context, id string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.blobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

type fixedSigner struct{}

func (fixedSigner) Account() string { return "0xpayer" }

func (fixedSigner) Sign(payload []byte) ([]byte, error) {
	return []byte("sig:" + strconv.Itoa(len(payload))), nil
}

type fixedSequence struct {
	mu   sync.Mutex
	next uint64
	err  error
}

func (s *fixedSequence) Allocate(context.Context, string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	n := s.next
	s.next++
	return n, nil
}

type recordingLog struct {
	mu      sync.Mutex
	records []domain.DeliveryRecord
}

func (l *recordingLog) RecordDelivery(_ context.Context, record domain.DeliveryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	return nil
}

type recordingSink struct {
	mu       sync.Mutex
	outcomes []domain.TxOutcome
}

func (s *recordingSink) PublishOutcome(_ context.Context, outcome domain.TxOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome)
	return nil
}
