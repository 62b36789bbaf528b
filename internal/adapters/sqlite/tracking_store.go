package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/db/queries"
)

func (s *Store) Watch(ctx context.Context, tx domain.SubmittedTransaction) error {
	items, err := json.Marshal(nonNil(tx.ItemReferenceIDs))
	if err != nil {
		return fmt.Errorf("encode item references for %s: %w", tx.TxHash, err)
	}
	err = s.database.InsertWatchedTransaction(ctx, queries.InsertWatchedTransactionParams{
		TxHash:           tx.TxHash,
		ReferenceID:      tx.ReferenceID,
		TxType:           string(tx.TxType),
		SequenceNumber:   int64(tx.SequenceNumber),
		ProviderID:       tx.ProviderID,
		MsaID:            tx.MsaID,
		BirthBlock:       int64(tx.BirthBlock),
		DeathBlock:       int64(tx.DeathBlock),
		CheckedThrough:   int64(tx.CheckedThrough),
		ContentID:        tx.ContentID,
		ItemReferenceIds: string(items),
		CreatedAtMs:      s.nowMs(),
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", tx.TxHash, err)
	}
	return nil
}

func (s *Store) ListWatched(ctx context.Context) ([]domain.SubmittedTransaction, error) {
	rows, err := s.database.ListWatchedTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list watched transactions: %w", err)
	}
	out := make([]domain.SubmittedTransaction, 0, len(rows))
	for _, row := range rows {
		var items []string
		if row.ItemReferenceIds != "" {
			if err := json.Unmarshal([]byte(row.ItemReferenceIds), &items); err != nil {
				return nil, fmt.Errorf("decode item references for %s: %w", row.TxHash, err)
			}
		}
		if len(items) == 0 {
			items = nil
		}
		out = append(out, domain.SubmittedTransaction{
			TxHash:           row.TxHash,
			SequenceNumber:   uint64(row.SequenceNumber),
			ReferenceID:      row.ReferenceID,
			TxType:           domain.TxType(row.TxType),
			ProviderID:       row.ProviderID,
			MsaID:            row.MsaID,
			BirthBlock:       uint64(row.BirthBlock),
			DeathBlock:       uint64(row.DeathBlock),
			ContentID:        row.ContentID,
			ItemReferenceIDs: items,
			CheckedThrough:   uint64(row.CheckedThrough),
		})
	}
	return out, nil
}

// Checkpoint only ever moves CheckedThrough forward.
func (s *Store) Checkpoint(ctx context.Context, txHash string, checkedThrough uint64) error {
	err := s.database.UpdateWatchCheckpoint(ctx, queries.UpdateWatchCheckpointParams{
		CheckedThrough:   int64(checkedThrough),
		TxHash:           txHash,
		CheckedThrough_2: int64(checkedThrough),
	})
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", txHash, err)
	}
	return nil
}

func (s *Store) Unwatch(ctx context.Context, txHash string) error {
	if err := s.database.DeleteWatchedTransaction(ctx, txHash); err != nil {
		return fmt.Errorf("unwatch %s: %w", txHash, err)
	}
	return nil
}

func (s *Store) LoadCursor(ctx context.Context, name string) (uint64, bool, error) {
	row, err := s.database.GetScanCursor(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load cursor %s: %w", name, err)
	}
	return uint64(row.BlockNumber), true, nil
}

func (s *Store) SaveCursor(ctx context.Context, name string, block uint64) error {
	err := s.database.UpsertScanCursor(ctx, queries.UpsertScanCursorParams{
		Name:        name,
		BlockNumber: int64(block),
		UpdatedAtMs: s.nowMs(),
	})
	if err != nil {
		return fmt.Errorf("save cursor %s: %w", name, err)
	}
	return nil
}

func (s *Store) RecordAccepted(ctx context.Context, referenceID string) error {
	err := s.database.InsertAcceptedRequest(ctx, queries.InsertAcceptedRequestParams{
		ReferenceID: referenceID,
		UpdatedAtMs: s.nowMs(),
	})
	if err != nil {
		return fmt.Errorf("record accepted %s: %w", referenceID, err)
	}
	return nil
}

// Transition writes the new state unless the stored one is terminal and
// returns whatever is stored afterwards. Changed reports whether this call wrote it.
func (s *Store) Transition(ctx context.Context, referenceID string, state domain.RequestState, txHash, detail string) (domain.RequestStatus, error) {
	var (
		stored  queries.RequestStatus
		written int64
	)
	err := s.database.InTx(ctx, func(q *queries.Queries) error {
		rows, err := q.TransitionRequestStatus(ctx, queries.TransitionRequestStatusParams{
			ReferenceID: referenceID,
			State:       string(state),
			TxHash:      txHash,
			Detail:      detail,
			UpdatedAtMs: s.nowMs(),
		})
		if err != nil {
			return err
		}
		written = rows
		row, err := q.GetRequestStatus(ctx, referenceID)
		if err != nil {
			return err
		}
		stored = row
		return nil
	})
	if err != nil {
		return domain.RequestStatus{}, fmt.Errorf("transition %s to %s: %w", referenceID, state, err)
	}
	status := mapRequestStatus(stored)
	status.Changed = written > 0
	return status, nil
}

func (s *Store) GetStatus(ctx context.Context, referenceID string) (domain.RequestStatus, error) {
	row, err := s.database.GetRequestStatus(ctx, referenceID)
	if err != nil {
		return domain.RequestStatus{}, notFound(err, "request "+referenceID)
	}
	return mapRequestStatus(row), nil
}

func mapRequestStatus(row queries.RequestStatus) domain.RequestStatus {
	return domain.RequestStatus{
		ReferenceID: row.ReferenceID,
		State:       domain.RequestState(row.State),
		TxHash:      row.TxHash,
		Detail:      row.Detail,
		UpdatedAt:   fromMs(row.UpdatedAtMs),
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
