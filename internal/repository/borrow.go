package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/campusshare/campusshare/internal/model"
)

// Common errors for borrow request repository operations.
var (
	ErrBorrowNotFound       = errors.New("borrow request not found")
	ErrActiveBorrowExists   = errors.New("active borrow request exists")
	ErrBorrowStatusConflict = errors.New("borrow request status changed")
)

const activeBorrowIndex = "borrow_requests_active_uniq"

var borrowColumns = []any{"id", "resource_id", "borrower", "owner", "status", "created_at", "updated_at"}

// CreateBorrow inserts a new borrow request. The partial unique index on
// active requests turns a concurrent duplicate into ErrActiveBorrowExists;
// an unknown resource id becomes ErrResourceNotFound.
func (r *Repository) CreateBorrow(ctx context.Context, b *model.BorrowRequest) error {
	query := `
		INSERT INTO borrow_requests (id, resource_id, borrower, owner, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		b.ID,
		b.ResourceID,
		b.Borrower,
		b.Owner,
		b.Status,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		if pgErr, ok := pgError(err, pgUniqueViolation); ok && pgErr.ConstraintName == activeBorrowIndex {
			return ErrActiveBorrowExists
		}
		if isForeignKeyViolation(err) {
			return ErrResourceNotFound
		}
		return fmt.Errorf("failed to create borrow request: %w", err)
	}

	return nil
}

// GetBorrow retrieves a borrow request by its ID.
func (r *Repository) GetBorrow(ctx context.Context, id string) (*model.BorrowRequest, error) {
	query := `
		SELECT id, resource_id, borrower, owner, status, created_at, updated_at
		FROM borrow_requests
		WHERE id = $1
	`

	b, err := scanBorrow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBorrowNotFound
		}
		return nil, fmt.Errorf("failed to get borrow request: %w", err)
	}

	return b, nil
}

// ListBorrows returns borrow requests newest first.
func (r *Repository) ListBorrows(ctx context.Context, filter model.BorrowFilter) ([]*model.BorrowRequest, error) {
	where := goqu.Ex{}
	if filter.Status != "" {
		where["status"] = string(filter.Status)
	}
	if filter.Borrower != "" {
		where["borrower"] = filter.Borrower
	}
	if filter.Owner != "" {
		where["owner"] = filter.Owner
	}
	if filter.ResourceID != "" {
		where["resource_id"] = filter.ResourceID
	}

	ds := r.builder.
		From(tableBorrowRequests).
		Prepared(true).
		Select(borrowColumns...).
		Order(goqu.I("id").Desc())
	if len(where) > 0 {
		ds = ds.Where(where)
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build borrow list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list borrow requests: %w", err)
	}
	defer rows.Close()

	borrows := make([]*model.BorrowRequest, 0)
	for rows.Next() {
		b, err := scanBorrow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan borrow request: %w", err)
		}
		borrows = append(borrows, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating borrow requests: %w", err)
	}

	return borrows, nil
}

// HasActiveBorrow reports whether (resourceID, borrower) has a Pending or
// Approved request.
func (r *Repository) HasActiveBorrow(ctx context.Context, resourceID, borrower string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM borrow_requests
			WHERE resource_id = $1 AND borrower = $2 AND status = ANY($3)
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, resourceID, borrower, pq.Array(statusStrings(model.ActiveBorrowStatuses))).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active borrow request: %w", err)
	}

	return exists, nil
}

// TransitionBorrow moves a request to next only if its current status is one
// of from. When no row matches it returns ErrBorrowNotFound for an unknown id
// and ErrBorrowStatusConflict when the status no longer qualifies.
func (r *Repository) TransitionBorrow(ctx context.Context, id string, next model.BorrowStatus, from []model.BorrowStatus, at time.Time) (*model.BorrowRequest, error) {
	query := `
		UPDATE borrow_requests
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = ANY($4)
		RETURNING id, resource_id, borrower, owner, status, created_at, updated_at
	`

	b, err := scanBorrow(r.pool.QueryRow(ctx, query, id, next, at, pq.Array(statusStrings(from))))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		if isUniqueViolation(err) {
			return nil, ErrActiveBorrowExists
		}
		return nil, fmt.Errorf("failed to update borrow request status: %w", err)
	}

	if _, getErr := r.GetBorrow(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrBorrowStatusConflict
}

func scanBorrow(row pgx.Row) (*model.BorrowRequest, error) {
	var b model.BorrowRequest
	err := row.Scan(
		&b.ID,
		&b.ResourceID,
		&b.Borrower,
		&b.Owner,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return &b, err
}

func statusStrings(statuses []model.BorrowStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
