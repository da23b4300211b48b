package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"

	"github.com/campusshare/campusshare/internal/model"
)

// ErrResourceNotFound is returned when no resource has the given id.
var ErrResourceNotFound = errors.New("resource not found")

var resourceColumns = []any{"id", "title", "description", "owner", "status", "created_at", "updated_at"}

// CreateResource inserts a new resource.
func (r *Repository) CreateResource(ctx context.Context, res *model.Resource) error {
	query := `
		INSERT INTO resources (id, title, description, owner, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		res.ID,
		res.Title,
		res.Description,
		res.Owner,
		res.Status,
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	return nil
}

// GetResource retrieves a resource by its ID.
func (r *Repository) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	query := `
		SELECT id, title, description, owner, status, created_at, updated_at
		FROM resources
		WHERE id = $1
	`

	res, err := scanResource(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}

	return res, nil
}

// ListResources returns resources newest first.
func (r *Repository) ListResources(ctx context.Context, filter model.ResourceFilter) ([]*model.Resource, error) {
	where := goqu.Ex{}
	if filter.Status != "" {
		where["status"] = string(filter.Status)
	}
	if filter.Owner != "" {
		where["owner"] = filter.Owner
	}

	ds := r.builder.
		From(tableResources).
		Prepared(true).
		Select(resourceColumns...).
		Order(goqu.I("id").Desc())
	if len(where) > 0 {
		ds = ds.Where(where)
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build resource list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	resources := make([]*model.Resource, 0)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resources: %w", err)
	}

	return resources, nil
}

// UpdateResourceStatus overwrites the status and returns the updated row.
func (r *Repository) UpdateResourceStatus(ctx context.Context, id string, status model.ResourceStatus, at time.Time) (*model.Resource, error) {
	query := `
		UPDATE resources
		SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING id, title, description, owner, status, created_at, updated_at
	`

	res, err := scanResource(r.pool.QueryRow(ctx, query, id, status, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to update resource status: %w", err)
	}

	return res, nil
}

func scanResource(row pgx.Row) (*model.Resource, error) {
	var res model.Resource
	err := row.Scan(
		&res.ID,
		&res.Title,
		&res.Description,
		&res.Owner,
		&res.Status,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	return &res, err
}
