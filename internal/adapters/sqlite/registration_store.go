package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/db/queries"
)

// ListRegistrations returns registrations subscribed to eventType, or all of them when eventType is empty.
func (s *Store) ListRegistrations(ctx context.Context, eventType string) ([]domain.WebhookRegistration, error) {
	rows, err := s.database.ListWebhookRegistrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list webhook registrations: %w", err)
	}
	out := make([]domain.WebhookRegistration, 0, len(rows))
	for _, row := range rows {
		reg := mapRegistration(row)
		if eventType != "" && !reg.Matches(eventType) {
			continue
		}
		out = append(out, reg)
	}
	return out, nil
}

func (s *Store) GetRegistration(ctx context.Context, id int64) (domain.WebhookRegistration, error) {
	row, err := s.database.GetWebhookRegistration(ctx, id)
	if err != nil {
		return domain.WebhookRegistration{}, notFound(err, fmt.Sprintf("webhook registration %d", id))
	}
	return mapRegistration(row), nil
}

// UpsertRegistration creates or replaces the registration for reg.URL.
func (s *Store) UpsertRegistration(ctx context.Context, reg domain.WebhookRegistration) (domain.WebhookRegistration, error) {
	url := strings.TrimSpace(reg.URL)
	if url == "" {
		return domain.WebhookRegistration{}, fmt.Errorf("webhook registration url is required")
	}
	row, err := s.database.UpsertWebhookRegistration(ctx, queries.UpsertWebhookRegistrationParams{
		Url:         url,
		EventTypes:  joinEventTypes(reg.EventTypes),
		Token:       reg.Token,
		Secret:      reg.Secret,
		CreatedAtMs: s.nowMs(),
	})
	if err != nil {
		return domain.WebhookRegistration{}, fmt.Errorf("upsert webhook registration %s: %w", url, err)
	}
	return mapRegistration(row), nil
}

func (s *Store) DeleteRegistration(ctx context.Context, id int64) error {
	if err := s.database.DeleteWebhookRegistration(ctx, id); err != nil {
		return fmt.Errorf("delete webhook registration %d: %w", id, err)
	}
	return nil
}

func (s *Store) RecordDelivery(ctx context.Context, record domain.DeliveryRecord) error {
	recordedAt := s.nowMs()
	if !record.RecordedAt.IsZero() {
		recordedAt = record.RecordedAt.UnixMilli()
	}
	err := s.database.InsertDeliveryLog(ctx, queries.InsertDeliveryLogParams{
		DeliveryID:      record.DeliveryID,
		RegistrationUrl: record.RegistrationURL,
		ReferenceID:     record.ReferenceID,
		TxHash:          record.TxHash,
		Attempt:         int64(record.Attempt),
		State:           string(record.State),
		StatusCode:      int64(record.StatusCode),
		Error:           record.Error,
		RecordedAtMs:    recordedAt,
	})
	if err != nil {
		return fmt.Errorf("record delivery %s: %w", record.DeliveryID, err)
	}
	return nil
}

// ListDeliveries returns the delivery log of one reference in insertion order.
func (s *Store) ListDeliveries(ctx context.Context, referenceID string) ([]domain.DeliveryRecord, error) {
	rows, err := s.database.ListDeliveryLogByReference(ctx, referenceID)
	if err != nil {
		return nil, fmt.Errorf("list deliveries for %s: %w", referenceID, err)
	}
	out := make([]domain.DeliveryRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.DeliveryRecord{
			DeliveryID:      row.DeliveryID,
			RegistrationURL: row.RegistrationUrl,
			ReferenceID:     row.ReferenceID,
			TxHash:          row.TxHash,
			Attempt:         int(row.Attempt),
			State:           domain.DeliveryState(row.State),
			StatusCode:      int(row.StatusCode),
			Error:           row.Error,
			RecordedAt:      fromMs(row.RecordedAtMs),
		})
	}
	return out, nil
}

func mapRegistration(row queries.WebhookRegistration) domain.WebhookRegistration {
	return domain.WebhookRegistration{
		ID:         row.ID,
		URL:        row.Url,
		EventTypes: splitEventTypes(row.EventTypes),
		Token:      row.Token,
		Secret:     row.Secret,
	}
}

func joinEventTypes(types []string) string {
	cleaned := make([]string, 0, len(types))
	for _, t := range types {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return strings.Join(cleaned, ",")
}

func splitEventTypes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
