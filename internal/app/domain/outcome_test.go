package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestOutcomeRoundTripPreservesVariantFields(t *testing.T) {
	common := OutcomeCommon{
		ReferenceID: "ref-1",
		ProviderID:  "1",
		MsaID:       "42",
		TxHash:      "0xabc",
		Block:       BlockRef{Number: 120, Hash: "0xblock"},
	}
	cases := []struct {
		txType  TxType
		variant OutcomeVariant
	}{
		{TxCreateHandle, HandleClaimed{Handle: "alice.12"}},
		{TxChangeHandle, HandleClaimed{Handle: "alice.13"}},
		{TxSIWFSignup, SIWFSignedUp{Handle: "bob.1", AccountID: "5Grw"}},
		{TxAddKey, PublicKeyAdded{NewPublicKey: "0xkey"}},
		{TxAddPublicKeyAgreement, KeyAgreementAdded{SchemaID: 7}},
		{TxRetireMsa, MsaRetired{}},
		{TxRevokeDelegation, DelegationRevoked{}},
		{TxUpsertPage, PageUpserted{SchemaID: 8, PageID: 3}},
		{TxBatchAnnouncement, BatchAnnounced{ContentID: "bafy", ItemCount: 2, ItemReferenceIDs: []string{"a", "b"}}},
	}

	for _, tc := range cases {
		t.Run(string(tc.txType), func(t *testing.T) {
			original := NewFinalizedOutcome(tc.txType, common, tc.variant)
			raw, err := json.Marshal(original)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var decoded TxOutcome
			if err := json.Unmarshal(raw, &decoded); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if decoded.TxType() != tc.txType || decoded.Status() != OutcomeFinalized {
				t.Fatalf("unexpected tag: type=%s status=%s", decoded.TxType(), decoded.Status())
			}
			if decoded.Common() != common {
				t.Fatalf("common fields changed: got=%+v want=%+v", decoded.Common(), common)
			}
			if !reflect.DeepEqual(decoded.Variant(), tc.variant) {
				t.Fatalf("variant changed: got=%#v want=%#v", decoded.Variant(), tc.variant)
			}
		})
	}
}

func TestOutcomeJSONIsFlat(t *testing.T) {
	outcome := NewFinalizedOutcome(TxCreateHandle, OutcomeCommon{ReferenceID: "r", ProviderID: "1", MsaID: "9"}, HandleClaimed{Handle: "carol.5"})
	raw, err := json.Marshal(outcome)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["handle"] != "carol.5" || payload["transactionType"] != "CREATE_HANDLE" || payload["msaId"] != "9" {
		t.Fatalf("unexpected payload: %s", raw)
	}
	if _, ok := payload["newPublicKey"]; ok {
		t.Fatalf("handle outcome leaked key field: %s", raw)
	}
}

func TestNewFinalizedOutcomePanicsOnMismatchedVariant(t *testing.T) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			t.Fatal("expected panic for mismatched variant")
		}
		if !strings.Contains(recovered.(string), "ADD_KEY") {
			t.Fatalf("unexpected panic message: %v", recovered)
		}
	}()
	NewFinalizedOutcome(TxAddKey, OutcomeCommon{}, HandleClaimed{Handle: "x"})
}

func TestNewFinalizedOutcomePanicsWithoutVariant(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil variant")
		}
	}()
	NewFinalizedOutcome(TxRetireMsa, OutcomeCommon{}, nil)
}

func TestFailedBatchOutcomeKeepsItems(t *testing.T) {
	outcome := NewFailedOutcome(TxBatchAnnouncement, OutcomeCommon{ReferenceID: "batch-1"}, "rejected").WithItems([]string{"i1", "i2"})
	raw, err := json.Marshal(outcome)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded TxOutcome
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ids := decoded.ReferenceIDs()
	if len(ids) != 3 || ids[0] != "batch-1" || ids[2] != "i2" {
		t.Fatalf("unexpected reference ids: %v", ids)
	}
	if decoded.Reason() != "rejected" || decoded.Status() != OutcomeFailed {
		t.Fatalf("unexpected decoded outcome: %+v", decoded)
	}
}

func TestExpiredOutcomeKeyFallsBackToReference(t *testing.T) {
	outcome := NewFailedOutcome(TxAddKey, OutcomeCommon{ReferenceID: "r-9"}, "malformed")
	if outcome.Key() != "ref:r-9" {
		t.Fatalf("unexpected key: %s", outcome.Key())
	}
	expired := NewExpiredOutcome(TxAddKey, OutcomeCommon{ReferenceID: "r-9", TxHash: "0x1"})
	if expired.Key() != "0x1" {
		t.Fatalf("unexpected key: %s", expired.Key())
	}
}
