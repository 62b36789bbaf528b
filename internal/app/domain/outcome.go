package domain

import (
	"encoding/json"
	"fmt"
)

// OutcomeStatus is the terminal state a transaction reached.
type OutcomeStatus string

const (
	OutcomeFinalized OutcomeStatus = "finalized"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeExpired   OutcomeStatus = "expired"
)

// OutcomeCommon carries the fields every outcome variant shares.
type OutcomeCommon struct {
	ReferenceID string
	ProviderID  string
	MsaID       string
	TxHash      string
	Block       BlockRef
}

// OutcomeVariant is the type specific part of a finalized outcome.
type OutcomeVariant interface {
	variantName() string
}

// HandleClaimed is the result of CREATE_HANDLE and CHANGE_HANDLE.
type HandleClaimed struct {
	Handle string `json:"handle"`
}

// SIWFSignedUp is the result of SIWF_SIGNUP.
type SIWFSignedUp struct {
	Handle    string `json:"handle"`
	AccountID string `json:"accountId"`
}

// PublicKeyAdded is the result of ADD_KEY.
type PublicKeyAdded struct {
	NewPublicKey string `json:"newPublicKey"`
}

// KeyAgreementAdded is the result of ADD_PUBLIC_KEY_AGREEMENT.
type KeyAgreementAdded struct {
	SchemaID uint16 `json:"schemaId"`
}

// MsaRetired is the result of RETIRE_MSA.
type MsaRetired struct{}

// DelegationRevoked is the result of REVOKE_DELEGATION.
type DelegationRevoked struct{}

// PageUpserted is the result of UPSERT_PAGE.
type PageUpserted struct {
	SchemaID uint16 `json:"schemaId"`
	PageID   uint16 `json:"pageId"`
}

// BatchAnnounced is the result of BATCH_ANNOUNCEMENT.
type BatchAnnounced struct {
	ContentID        string   `json:"contentId"`
	ItemCount        int      `json:"itemCount"`
	ItemReferenceIDs []string `json:"itemReferenceIds"`
}

func (HandleClaimed) variantName() string     { return "handle" }
func (SIWFSignedUp) variantName() string      { return "siwf" }
func (PublicKeyAdded) variantName() string    { return "publicKey" }
func (KeyAgreementAdded) variantName() string { return "keyAgreement" }
func (MsaRetired) variantName() string        { return "retire" }
func (DelegationRevoked) variantName() string { return "revokeDelegation" }
func (PageUpserted) variantName() string      { return "pageUpsert" }
func (BatchAnnounced) variantName() string    { return "batchAnnouncement" }

var variantByType = map[TxType]func() OutcomeVariant{
	TxCreateHandle:          func() OutcomeVariant { return &HandleClaimed{} },
	TxChangeHandle:          func() OutcomeVariant { return &HandleClaimed{} },
	TxSIWFSignup:            func() OutcomeVariant { return &SIWFSignedUp{} },
	TxAddKey:                func() OutcomeVariant { return &PublicKeyAdded{} },
	TxAddPublicKeyAgreement: func() OutcomeVariant { return &KeyAgreementAdded{} },
	TxRetireMsa:             func() OutcomeVariant { return &MsaRetired{} },
	TxRevokeDelegation:      func() OutcomeVariant { return &DelegationRevoked{} },
	TxUpsertPage:            func() OutcomeVariant { return &PageUpserted{} },
	TxBatchAnnouncement:     func() OutcomeVariant { return &BatchAnnounced{} },
}

// TxOutcome is the typed terminal result of one submitted transaction.
// Build it with NewFinalizedOutcome, NewFailedOutcome or NewExpiredOutcome.
type TxOutcome struct {
	txType  TxType
	status  OutcomeStatus
	common  OutcomeCommon
	variant OutcomeVariant
	reason  string
}

// NewFinalizedOutcome builds a finalized outcome. It panics when variant does
// not belong to txType.
func NewFinalizedOutcome(txType TxType, common OutcomeCommon, variant OutcomeVariant) TxOutcome {
	mustMatchVariant(txType, variant)
	return TxOutcome{txType: txType, status: OutcomeFinalized, common: common, variant: derefVariant(variant)}
}

// NewFailedOutcome builds an outcome for a transaction that will never apply.
func NewFailedOutcome(txType TxType, common OutcomeCommon, reason string) TxOutcome {
	mustKnowType(txType)
	return TxOutcome{txType: txType, status: OutcomeFailed, common: common, reason: reason}
}

// NewExpiredOutcome builds an outcome for a transaction whose mortality window passed unobserved.
func NewExpiredOutcome(txType TxType, common OutcomeCommon) TxOutcome {
	mustKnowType(txType)
	return TxOutcome{
		txType: txType,
		status: OutcomeExpired,
		common: common,
		reason: "transaction not observed before its mortality window closed",
	}
}

func mustKnowType(txType TxType) {
	if _, ok := variantByType[txType]; !ok {
		panic(fmt.Sprintf("domain: no outcome variant for transaction type %q", txType))
	}
}

func mustMatchVariant(txType TxType, variant OutcomeVariant) {
	mustKnowType(txType)
	if variant == nil {
		panic(fmt.Sprintf("domain: finalized %s outcome requires a variant", txType))
	}
	want := variantByType[txType]()
	if want.variantName() != variant.variantName() {
		panic(fmt.Sprintf("domain: %s outcome cannot carry %T", txType, variant))
	}
}

func derefVariant(v OutcomeVariant) OutcomeVariant {
	switch t := v.(type) {
	case *HandleClaimed:
		return *t
	case *SIWFSignedUp:
		return *t
	case *PublicKeyAdded:
		return *t
	case *KeyAgreementAdded:
		return *t
	case *MsaRetired:
		return *t
	case *DelegationRevoked:
		return *t
	case *PageUpserted:
		return *t
	case *BatchAnnounced:
		return *t
	default:
		return v
	}
}

func (o TxOutcome) TxType() TxType          { return o.txType }
func (o TxOutcome) Status() OutcomeStatus   { return o.status }
func (o TxOutcome) Common() OutcomeCommon   { return o.common }
func (o TxOutcome) Reason() string          { return o.reason }
func (o TxOutcome) Variant() OutcomeVariant { return o.variant }
func (o TxOutcome) EventType() string       { return o.txType.EventType() }

// Key identifies the outcome for queue de-duplication.
func (o TxOutcome) Key() string {
	if o.common.TxHash != "" {
		return o.common.TxHash
	}
	return "ref:" + o.common.ReferenceID
}

// ReferenceIDs lists every request this outcome terminates.
func (o TxOutcome) ReferenceIDs() []string {
	ids := []string{o.common.ReferenceID}
	if batch, ok := o.variant.(BatchAnnounced); ok {
		ids = append(ids, batch.ItemReferenceIDs...)
	}
	return ids
}

// WithItems attaches the batched request ids to a batch outcome.
func (o TxOutcome) WithItems(ids []string) TxOutcome {
	if o.txType != TxBatchAnnouncement || len(ids) == 0 {
		return o
	}
	batch, _ := o.variant.(BatchAnnounced)
	batch.ItemReferenceIDs = append([]string(nil), ids...)
	batch.ItemCount = len(ids)
	o.variant = batch
	return o
}

type outcomeEnvelope struct {
	TransactionType TxType        `json:"transactionType"`
	Status          OutcomeStatus `json:"status"`
	ReferenceID     string        `json:"referenceId"`
	ProviderID      string        `json:"providerId"`
	MsaID           string        `json:"msaId,omitempty"`
	TxHash          string        `json:"txHash,omitempty"`
	BlockNumber     uint64        `json:"blockNumber,omitempty"`
	BlockHash       string        `json:"blockHash,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// MarshalJSON renders the outcome as one flat object of common and variant fields.
func (o TxOutcome) MarshalJSON() ([]byte, error) {
	envelope, err := json.Marshal(outcomeEnvelope{
		TransactionType: o.txType,
		Status:          o.status,
		ReferenceID:     o.common.ReferenceID,
		ProviderID:      o.common.ProviderID,
		MsaID:           o.common.MsaID,
		TxHash:          o.common.TxHash,
		BlockNumber:     o.common.Block.Number,
		BlockHash:       o.common.Block.Hash,
		Error:           o.reason,
	})
	if err != nil {
		return nil, err
	}
	if o.variant == nil {
		return envelope, nil
	}
	fields, err := json.Marshal(o.variant)
	if err != nil {
		return nil, fmt.Errorf("marshal %s outcome fields: %w", o.txType, err)
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(envelope, &merged); err != nil {
		return nil, err
	}
	extra := map[string]json.RawMessage{}
	if err := json.Unmarshal(fields, &extra); err != nil {
		return nil, err
	}
	for k, v := range extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON restores an outcome, selecting the variant from transactionType.
func (o *TxOutcome) UnmarshalJSON(data []byte) error {
	var envelope outcomeEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	newVariant, ok := variantByType[envelope.TransactionType]
	if !ok {
		return fmt.Errorf("%w: unknown transaction type %q", ErrMalformedEvent, envelope.TransactionType)
	}
	out := TxOutcome{
		txType: envelope.TransactionType,
		status: envelope.Status,
		common: OutcomeCommon{
			ReferenceID: envelope.ReferenceID,
			ProviderID:  envelope.ProviderID,
			MsaID:       envelope.MsaID,
			TxHash:      envelope.TxHash,
			Block:       BlockRef{Number: envelope.BlockNumber, Hash: envelope.BlockHash},
		},
		reason: envelope.Error,
	}
	switch envelope.Status {
	case OutcomeFinalized:
		variant := newVariant()
		if err := json.Unmarshal(data, variant); err != nil {
			return fmt.Errorf("decode %s outcome fields: %w", envelope.TransactionType, err)
		}
		out.variant = derefVariant(variant)
	case OutcomeFailed, OutcomeExpired:
		if envelope.TransactionType == TxBatchAnnouncement {
			var batch BatchAnnounced
			if err := json.Unmarshal(data, &batch); err == nil && len(batch.ItemReferenceIDs) > 0 {
				out.variant = batch
			}
		}
	default:
		return fmt.Errorf("%w: unknown outcome status %q", ErrMalformedEvent, envelope.Status)
	}
	*o = out
	return nil
}
