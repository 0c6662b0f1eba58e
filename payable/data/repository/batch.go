package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ncobase/paybatch/data"
	"github.com/ncobase/paybatch/payable/structs"
)

var (
	ErrBatchNotFound = errors.New("batch not found")
	// ErrConcurrentUpdate means the batch changed since it was loaded.
	ErrConcurrentUpdate = errors.New("batch was modified concurrently")
)

// BatchRepository persists batches. FindByID ignores inactive batches.
type BatchRepository interface {
	Create(ctx context.Context, b *structs.Batch) error
	Save(ctx context.Context, b *structs.Batch) error
	FindByID(ctx context.Context, id string) (*structs.Batch, error)
}

type batchRepository struct {
	d *data.Data
}

func NewBatchRepository(d *data.Data) BatchRepository {
	return &batchRepository{d: d}
}

func (r *batchRepository) Create(ctx context.Context, b *structs.Batch) error {
	b.Version = 1
	_, err := r.d.Conn(ctx).ExecContext(ctx, r.d.Rebind(`
		INSERT INTO batches (
			id, name, description, status, total_items, success_count, failed_count, is_active, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		b.ID,
		b.Name,
		b.Description,
		string(b.Status),
		b.TotalItems,
		b.SuccessCount,
		b.FailedCount,
		b.IsActive,
		b.Version,
		data.FormatTime(b.CreatedAt),
		data.FormatTime(b.UpdatedAt),
	)
	if err != nil {
		b.Version = 0
		return fmt.Errorf("create batch %s: %w", b.ID, err)
	}
	return nil
}

// Save writes the batch if its version still matches the stored one and
// bumps the version. A mismatch returns ErrConcurrentUpdate.
func (r *batchRepository) Save(ctx context.Context, b *structs.Batch) error {
	res, err := r.d.Conn(ctx).ExecContext(ctx, r.d.Rebind(`
		UPDATE batches
		SET name = ?, description = ?, status = ?, success_count = ?, failed_count = ?, is_active = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`),
		b.Name,
		b.Description,
		string(b.Status),
		b.SuccessCount,
		b.FailedCount,
		b.IsActive,
		b.Version+1,
		data.FormatTime(b.UpdatedAt),
		b.ID,
		b.Version,
	)
	if err != nil {
		return fmt.Errorf("save batch %s: %w", b.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save batch %s: %w", b.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s at version %d", ErrConcurrentUpdate, b.ID, b.Version)
	}
	b.Version++
	return nil
}

// FindByID loads an active batch. Inside a transaction on postgres and mysql
// the row stays locked until commit.
func (r *batchRepository) FindByID(ctx context.Context, id string) (*structs.Batch, error) {
	row := r.d.Conn(ctx).QueryRowContext(ctx, r.d.Rebind(`
		SELECT id, name, description, status, total_items, success_count, failed_count, is_active, version, created_at, updated_at
		FROM batches WHERE id = ? AND is_active = ?`+r.d.ForUpdate(ctx)), id, true)

	var (
		status    string
		createdAt string
		updatedAt string
	)
	b := &structs.Batch{}
	if err := row.Scan(
		&b.ID,
		&b.Name,
		&b.Description,
		&status,
		&b.TotalItems,
		&b.SuccessCount,
		&b.FailedCount,
		&b.IsActive,
		&b.Version,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
		}
		return nil, err
	}

	var err error
	if b.CreatedAt, err = data.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = data.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	b.Status = structs.BatchStatus(status)
	return b, nil
}
