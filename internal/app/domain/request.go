package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TxType identifies what an accepted write does on chain.
type TxType string

const (
	TxAddKey                TxType = "ADD_KEY"
	TxAddPublicKeyAgreement TxType = "ADD_PUBLIC_KEY_AGREEMENT"
	TxCreateHandle          TxType = "CREATE_HANDLE"
	TxChangeHandle          TxType = "CHANGE_HANDLE"
	TxRevokeDelegation      TxType = "REVOKE_DELEGATION"
	TxRetireMsa             TxType = "RETIRE_MSA"
	TxSIWFSignup            TxType = "SIWF_SIGNUP"
	TxUpsertPage            TxType = "UPSERT_PAGE"
	TxBatchAnnouncement     TxType = "BATCH_ANNOUNCEMENT"
)

type callSpec struct {
	pallet       string
	method       string
	successEvent string
}

var callSpecs = map[TxType]callSpec{
	TxAddKey:                {pallet: "msa", method: "addPublicKeyToMsa", successEvent: "msa.PublicKeyAdded"},
	TxAddPublicKeyAgreement: {pallet: "statefulStorage", method: "applyItemActionsWithSignature", successEvent: "statefulStorage.ItemizedPageUpdated"},
	TxCreateHandle:          {pallet: "handles", method: "claimHandle", successEvent: "handles.HandleClaimed"},
	TxChangeHandle:          {pallet: "handles", method: "changeHandle", successEvent: "handles.HandleClaimed"},
	TxRevokeDelegation:      {pallet: "msa", method: "revokeDelegationByDelegator", successEvent: "msa.DelegationRevoked"},
	TxRetireMsa:             {pallet: "msa", method: "retireMsa", successEvent: "msa.MsaRetired"},
	TxSIWFSignup:            {pallet: "utility", method: "batchAll", successEvent: "utility.BatchCompleted"},
	TxUpsertPage:            {pallet: "statefulStorage", method: "upsertPage", successEvent: "statefulStorage.PaginatedPageUpdated"},
	TxBatchAnnouncement:     {pallet: "messages", method: "addIpfsMessage", successEvent: "messages.MessagesInBlock"},
}

// ParseTxType normalizes and validates a transaction type name.
func ParseTxType(raw string) (TxType, error) {
	t := TxType(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := callSpecs[t]; !ok {
		return "", fmt.Errorf("%w: unknown transaction type %q", ErrMalformedCall, raw)
	}
	return t, nil
}

// Valid reports whether t is a known transaction type.
func (t TxType) Valid() bool {
	_, ok := callSpecs[t]
	return ok
}

// SuccessEvent is the chain event that proves a transaction of this type applied.
func (t TxType) SuccessEvent() string {
	return callSpecs[t].successEvent
}

// EventType is the webhook event type outcomes of this transaction type are published under.
func (t TxType) EventType() string {
	return string(t)
}

// WriteRequest is one accepted write entering the pipeline.
type WriteRequest struct {
	ID                string          `json:"id"`
	StreamKey         string          `json:"streamKey"`
	PayloadType       TxType          `json:"payloadType"`
	Payload           json.RawMessage `json:"payload"`
	ProviderID        string          `json:"providerId"`
	MsaID             string          `json:"msaId,omitempty"`
	DependencyAttempt int             `json:"dependencyAttempt"`
}

// Validate checks the request is well formed enough to enter the pipeline.
func (r WriteRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: request id is required", ErrMalformedCall)
	}
	if !r.PayloadType.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", ErrMalformedCall, r.PayloadType)
	}
	if r.PayloadType == TxBatchAnnouncement && strings.TrimSpace(r.StreamKey) == "" {
		return fmt.Errorf("%w: batched request %s has no stream key", ErrMalformedCall, r.ID)
	}
	if len(r.Payload) == 0 || !json.Valid(r.Payload) {
		return fmt.Errorf("%w: request %s payload is not valid json", ErrMalformedCall, r.ID)
	}
	return nil
}

// Batched reports whether the request is accumulated into a content batch.
func (r WriteRequest) Batched() bool {
	return r.PayloadType == TxBatchAnnouncement
}

// Call is an unsigned chain call.
type Call struct {
	Pallet string          `json:"pallet"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args"`
}

// CallFor builds the chain call for a single request.
func CallFor(req WriteRequest) (Call, error) {
	if err := req.Validate(); err != nil {
		return Call{}, err
	}
	if req.Batched() {
		return Call{}, fmt.Errorf("%w: request %s must be submitted as part of a batch", ErrMalformedCall, req.ID)
	}
	spec := callSpecs[req.PayloadType]
	return Call{Pallet: spec.pallet, Method: spec.method, Args: req.Payload}, nil
}

// BatchAnnouncementCall builds the call announcing a stored content batch.
func BatchAnnouncementCall(streamKey, contentID string, size int) Call {
	args, _ := json.Marshal(map[string]any{
		"stream":        streamKey,
		"cid":           contentID,
		"payloadLength": size,
	})
	spec := callSpecs[TxBatchAnnouncement]
	return Call{Pallet: spec.pallet, Method: spec.method, Args: args}
}
