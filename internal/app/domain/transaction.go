package domain

import (
	"encoding/json"
	"strings"
)

// MortalityPeriod is the number of blocks after birth a signed transaction may still be included in.
const MortalityPeriod uint64 = 64

const (
	EventExtrinsicSuccess = "system.ExtrinsicSuccess"
	EventExtrinsicFailed  = "system.ExtrinsicFailed"
)

// BlockRef points at one block.
type BlockRef struct {
	Number uint64 `json:"number"`
	Hash   string `json:"hash"`
}

// ChainEvent is one event emitted in a block, attributed to the extrinsic that caused it.
type ChainEvent struct {
	Section string            `json:"section"`
	Method  string            `json:"method"`
	TxHash  string            `json:"txHash,omitempty"`
	Data    map[string]string `json:"data,omitempty"`
}

// Name returns the "section.Method" form used to match events.
func (e ChainEvent) Name() string {
	return e.Section + "." + e.Method
}

// Era is the mortality window a signature is valid for.
type Era struct {
	Birth  uint64 `json:"birth"`
	Period uint64 `json:"period"`
}

// SignedCall is a capacity-paid call ready for submission.
type SignedCall struct {
	Payer     string `json:"payer"`
	Call      Call   `json:"call"`
	Nonce     uint64 `json:"nonce"`
	Era       Era    `json:"era"`
	Signer    string `json:"signer,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// SigningPayload is the canonical byte form covered by the signature.
func (s SignedCall) SigningPayload() ([]byte, error) {
	unsigned := s
	unsigned.Signer = ""
	unsigned.Signature = ""
	return json.Marshal(unsigned)
}

// SubmittedTransaction is a transaction accepted by the chain client and awaiting a terminal state.
type SubmittedTransaction struct {
	TxHash           string   `json:"txHash"`
	SequenceNumber   uint64   `json:"sequenceNumber"`
	ReferenceID      string   `json:"referenceId"`
	TxType           TxType   `json:"txType"`
	ProviderID       string   `json:"providerId"`
	MsaID            string   `json:"msaId,omitempty"`
	BirthBlock       uint64   `json:"birthBlock"`
	DeathBlock       uint64   `json:"deathBlock"`
	ContentID        string   `json:"contentId,omitempty"`
	ItemReferenceIDs []string `json:"itemReferenceIds,omitempty"`
	CheckedThrough   uint64   `json:"checkedThrough"`
}

// Covers reports whether block falls inside the inclusive mortality window.
func (t SubmittedTransaction) Covers(block uint64) bool {
	return block >= t.BirthBlock && block <= t.DeathBlock
}

// NextBlock is the first block not yet checked for this transaction.
func (t SubmittedTransaction) NextBlock() uint64 {
	if t.CheckedThrough < t.BirthBlock {
		return t.BirthBlock
	}
	return t.CheckedThrough + 1
}

// EventsFor groups block events by the extrinsic hash they belong to.
func EventsFor(events []ChainEvent) map[string][]ChainEvent {
	out := make(map[string][]ChainEvent)
	for _, event := range events {
		hash := strings.ToLower(strings.TrimSpace(event.TxHash))
		if hash == "" {
			continue
		}
		out[hash] = append(out[hash], event)
	}
	return out
}
