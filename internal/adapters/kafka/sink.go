package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports"
)

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Config selects the brokers and topic terminal outcomes are mirrored to.
type Config struct {
	Brokers  []string
	Topic    string
	ClientID string
}

func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required")
	}
	if strings.TrimSpace(c.Topic) == "" {
		return fmt.Errorf("kafka topic is required")
	}
	return nil
}

// Sink publishes every terminal outcome as one record keyed by reference id,
// so all outcomes of one request land on one partition.
type Sink struct {
	topic  string
	client producer
}

// NewSink connects a producer client.
func NewSink(cfg Config, opts ...kgo.Opt) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kopts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	if cfg.ClientID != "" {
		kopts = append(kopts, kgo.ClientID(cfg.ClientID))
	}
	cl, err := kgo.NewClient(append(kopts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Sink{topic: cfg.Topic, client: cl}, nil
}

func (s *Sink) PublishOutcome(ctx context.Context, outcome domain.TxOutcome) error {
	value, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode outcome %s: %w", outcome.Key(), err)
	}
	common := outcome.Common()
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(common.ReferenceID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event-type", Value: []byte(outcome.EventType())},
			{Key: "status", Value: []byte(outcome.Status())},
			{Key: "tx-hash", Value: []byte(common.TxHash)},
		},
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce outcome %s: %w", outcome.Key(), err)
	}
	return nil
}

func (s *Sink) Close() {
	s.client.Close()
}

var _ ports.OutcomeSink = (*Sink)(nil)
