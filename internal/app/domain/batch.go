package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Batch is a per-stream group of write requests. It is immutable once SealedAt is set.
type Batch struct {
	ID                 string         `json:"id"`
	StreamKey          string         `json:"streamKey"`
	Items              []WriteRequest `json:"items"`
	OpenedAt           time.Time      `json:"openedAt"`
	SealedAt           time.Time      `json:"sealedAt"`
	MaxItems           int            `json:"maxItems"`
	MaxIntervalSeconds int            `json:"maxIntervalSeconds"`
	ProviderID         string         `json:"providerId"`
}

// Sealed reports whether the batch has left the open state.
func (b Batch) Sealed() bool {
	return !b.SealedAt.IsZero()
}

// ItemIDs returns the ids of the batched requests in insertion order.
func (b Batch) ItemIDs() []string {
	ids := make([]string, 0, len(b.Items))
	for _, item := range b.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

type batchLine struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeContent serializes the batch items as JSON lines in insertion order.
func (b Batch) EncodeContent() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range b.Items {
		if err := enc.Encode(batchLine{ID: item.ID, Payload: item.Payload}); err != nil {
			return nil, fmt.Errorf("encode batch item %s: %w", item.ID, err)
		}
	}
	return buf.Bytes(), nil
}
