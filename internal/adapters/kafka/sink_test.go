package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fr0stylo/txcommit/internal/app/domain"
)

type stubProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (s *stubProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		s.records = append(s.records, r)
		out = append(out, kgo.ProduceResult{Record: r, Err: s.err})
	}
	return out
}

func (s *stubProducer) Close() { s.closed = true }

func TestConfigValidate(t *testing.T) {
	if err := (Config{Topic: "outcomes"}).Validate(); err == nil {
		t.Fatal("expected brokers to be required")
	}
	if err := (Config{Brokers: []string{"127.0.0.1:9092"}}).Validate(); err == nil {
		t.Fatal("expected topic to be required")
	}
	if err := (Config{Brokers: []string{"127.0.0.1:9092"}, Topic: "outcomes"}).Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestPublishOutcomeKeysByReference(t *testing.T) {
	producer := &stubProducer{}
	sink := &Sink{topic: "outcomes", client: producer}

	outcome := domain.NewFinalizedOutcome(domain.TxRetireMsa, domain.OutcomeCommon{
		ReferenceID: "req-1",
		ProviderID:  "1",
		MsaID:       "42",
		TxHash:      "0xabc",
		Block:       domain.BlockRef{Number: 1003, Hash: "0xblock"},
	}, domain.MsaRetired{})

	if err := sink.PublishOutcome(context.Background(), outcome); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(producer.records) != 1 {
		t.Fatalf("expected one record, got %d", len(producer.records))
	}
	rec := producer.records[0]
	if rec.Topic != "outcomes" || string(rec.Key) != "req-1" {
		t.Fatalf("unexpected record routing: topic=%s key=%s", rec.Topic, rec.Key)
	}
	headers := map[string]string{}
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["status"] != string(domain.OutcomeFinalized) || headers["tx-hash"] != "0xabc" || headers["event-type"] != outcome.EventType() {
		t.Fatalf("unexpected headers: %+v", headers)
	}

	var decoded domain.TxOutcome
	if err := json.Unmarshal(rec.Value, &decoded); err != nil {
		t.Fatalf("decode record value: %v", err)
	}
	if decoded.Key() != "0xabc" || decoded.Status() != domain.OutcomeFinalized {
		t.Fatalf("unexpected decoded outcome: %+v", decoded)
	}

	sink.Close()
	if !producer.closed {
		t.Fatal("expected producer closed")
	}
}

func TestPublishOutcomeSurfacesProduceErrors(t *testing.T) {
	sink := &Sink{topic: "outcomes", client: &stubProducer{err: errors.New("not leader")}}
	outcome := domain.NewExpiredOutcome(domain.TxAddKey, domain.OutcomeCommon{ReferenceID: "req-2", TxHash: "0xdef"})
	if err := sink.PublishOutcome(context.Background(), outcome); err == nil {
		t.Fatal("expected produce error")
	}
}
