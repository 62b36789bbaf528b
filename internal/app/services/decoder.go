package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fr0stylo/txcommit/internal/app/domain"
)

// OutcomeDecoder turns the events of an included transaction into a typed outcome.
type OutcomeDecoder struct{}

// Decode builds the outcome for tx from the events it emitted in block. An
// ostensibly successful transaction without its success event is an error.
func (OutcomeDecoder) Decode(tx domain.SubmittedTransaction, events []domain.ChainEvent, block domain.BlockRef) (domain.TxOutcome, error) {
	common := domain.OutcomeCommon{
		ReferenceID: tx.ReferenceID,
		ProviderID:  tx.ProviderID,
		MsaID:       tx.MsaID,
		TxHash:      tx.TxHash,
		Block:       block,
	}

	if failed, ok := findEvent(events, domain.EventExtrinsicFailed); ok {
		return domain.NewFailedOutcome(tx.TxType, common, dispatchError(failed)).WithItems(tx.ItemReferenceIDs), nil
	}

	success, ok := findEvent(events, tx.TxType.SuccessEvent())
	if !ok {
		return domain.TxOutcome{}, fmt.Errorf("%w: %s transaction %s has no %s event",
			domain.ErrMissingSuccessEvent, tx.TxType, tx.TxHash, tx.TxType.SuccessEvent())
	}

	var variant domain.OutcomeVariant
	switch tx.TxType {
	case domain.TxCreateHandle, domain.TxChangeHandle:
		overrideMsa(&common, success)
		variant = domain.HandleClaimed{Handle: success.Data["handle"]}
	case domain.TxSIWFSignup:
		signup := domain.SIWFSignedUp{}
		if claimed, ok := findEvent(events, "handles.HandleClaimed"); ok {
			signup.Handle = claimed.Data["handle"]
			overrideMsa(&common, claimed)
		}
		// An account that already had an msa emits no MsaCreated.
		if created, ok := findEvent(events, "msa.MsaCreated"); ok {
			signup.AccountID = created.Data["key"]
			overrideMsa(&common, created)
		}
		variant = signup
	case domain.TxAddKey:
		overrideMsa(&common, success)
		variant = domain.PublicKeyAdded{NewPublicKey: success.Data["key"]}
	case domain.TxAddPublicKeyAgreement:
		overrideMsa(&common, success)
		schemaID, err := eventUint16(success, "schemaId")
		if err != nil {
			return domain.TxOutcome{}, err
		}
		variant = domain.KeyAgreementAdded{SchemaID: schemaID}
	case domain.TxRetireMsa:
		overrideMsa(&common, success)
		variant = domain.MsaRetired{}
	case domain.TxRevokeDelegation:
		if provider := strings.TrimSpace(success.Data["providerId"]); provider != "" {
			common.ProviderID = provider
		}
		if delegator := strings.TrimSpace(success.Data["delegatorId"]); delegator != "" {
			common.MsaID = delegator
		}
		variant = domain.DelegationRevoked{}
	case domain.TxUpsertPage:
		overrideMsa(&common, success)
		schemaID, err := eventUint16(success, "schemaId")
		if err != nil {
			return domain.TxOutcome{}, err
		}
		pageID, err := eventUint16(success, "pageId")
		if err != nil {
			return domain.TxOutcome{}, err
		}
		variant = domain.PageUpserted{SchemaID: schemaID, PageID: pageID}
	case domain.TxBatchAnnouncement:
		variant = domain.BatchAnnounced{
			ContentID:        tx.ContentID,
			ItemCount:        len(tx.ItemReferenceIDs),
			ItemReferenceIDs: append([]string(nil), tx.ItemReferenceIDs...),
		}
	default:
		return domain.TxOutcome{}, fmt.Errorf("%w: unknown transaction type %q", domain.ErrMalformedEvent, tx.TxType)
	}

	return domain.NewFinalizedOutcome(tx.TxType, common, variant), nil
}

func findEvent(events []domain.ChainEvent, name string) (domain.ChainEvent, bool) {
	for _, event := range events {
		if event.Name() == name {
			return event, true
		}
	}
	return domain.ChainEvent{}, false
}

func overrideMsa(common *domain.OutcomeCommon, event domain.ChainEvent) {
	if msa := strings.TrimSpace(event.Data["msaId"]); msa != "" {
		common.MsaID = msa
	}
}

func eventUint16(event domain.ChainEvent, field string) (uint16, error) {
	raw := strings.TrimSpace(event.Data[field])
	value, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %s field %s=%q: %v", domain.ErrMalformedEvent, event.Name(), field, raw, err)
	}
	return uint16(value), nil
}

func dispatchError(event domain.ChainEvent) string {
	for _, key := range []string{"error", "dispatchError", "module"} {
		if v := strings.TrimSpace(event.Data[key]); v != "" {
			return "dispatch error: " + v
		}
	}
	return "dispatch error"
}
