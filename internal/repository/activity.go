package repository

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"

	"github.com/campusshare/campusshare/internal/model"
)

const tableBorrowEvents = "borrow_events"

// InsertBorrowEvents stores a batch of history events. Events already stored
// under the same event id are skipped, so replaying a batch is harmless.
// Events for unknown borrow requests are rejected by the foreign key.
func (r *Repository) InsertBorrowEvents(ctx context.Context, events []*model.BorrowEvent) error {
	if len(events) == 0 {
		return nil
	}

	query := `
		INSERT INTO borrow_events (
			id, event_id, borrow_id, resource_id, borrower, owner,
			from_status, to_status, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (event_id) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(query,
			e.ID,
			e.EventID,
			e.BorrowID,
			e.ResourceID,
			e.Borrower,
			e.Owner,
			string(e.From),
			string(e.To),
			e.OccurredAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert borrow event %d: %w", i, err)
		}
	}

	return nil
}

// ListBorrowEvents returns a borrow request's history, oldest first.
func (r *Repository) ListBorrowEvents(ctx context.Context, borrowID string) ([]*model.BorrowEvent, error) {
	query, args, err := r.builder.
		From(tableBorrowEvents).
		Prepared(true).
		Select("id", "event_id", "borrow_id", "resource_id", "borrower", "owner", "from_status", "to_status", "occurred_at").
		Where(goqu.Ex{"borrow_id": borrowID}).
		Order(goqu.I("occurred_at").Asc(), goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build borrow event query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list borrow events: %w", err)
	}
	defer rows.Close()

	events := make([]*model.BorrowEvent, 0)
	for rows.Next() {
		var e model.BorrowEvent
		if err := rows.Scan(
			&e.ID,
			&e.EventID,
			&e.BorrowID,
			&e.ResourceID,
			&e.Borrower,
			&e.Owner,
			&e.From,
			&e.To,
			&e.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan borrow event: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating borrow events: %w", err)
	}

	return events, nil
}
