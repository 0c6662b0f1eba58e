package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ncobase/paybatch/data"
	"github.com/ncobase/paybatch/payable/structs"
)

var ErrPayableNotFound = errors.New("payable not found")

type PayableRepository interface {
	Create(ctx context.Context, p *structs.Payable) error
	FindByID(ctx context.Context, id string) (*structs.Payable, error)
	CountByBatch(ctx context.Context, batchID string) (int, error)
}

type payableRepository struct {
	d *data.Data
}

func NewPayableRepository(d *data.Data) PayableRepository {
	return &payableRepository{d: d}
}

func (r *payableRepository) Create(ctx context.Context, p *structs.Payable) error {
	batchID := sql.NullString{String: p.BatchID, Valid: p.BatchID != ""}
	_, err := r.d.Conn(ctx).ExecContext(ctx, r.d.Rebind(`
		INSERT INTO payables (id, assignor_id, value, emission_date, batch_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`),
		p.ID,
		p.AssignorID,
		p.Value,
		data.FormatTime(p.EmissionDate),
		batchID,
		data.FormatTime(p.CreatedAt),
		data.FormatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create payable: %w", err)
	}
	return nil
}

func (r *payableRepository) FindByID(ctx context.Context, id string) (*structs.Payable, error) {
	row := r.d.Conn(ctx).QueryRowContext(ctx, r.d.Rebind(`
		SELECT id, assignor_id, value, emission_date, batch_id, created_at, updated_at
		FROM payables WHERE id = ?
	`), id)

	var (
		emissionDate string
		batchID      sql.NullString
		createdAt    string
		updatedAt    string
	)
	p := &structs.Payable{}
	if err := row.Scan(&p.ID, &p.AssignorID, &p.Value, &emissionDate, &batchID, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrPayableNotFound, id)
		}
		return nil, err
	}

	var err error
	if p.EmissionDate, err = data.ParseTime(emissionDate); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = data.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = data.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	p.BatchID = batchID.String
	return p, nil
}

func (r *payableRepository) CountByBatch(ctx context.Context, batchID string) (int, error) {
	var n int
	err := r.d.Conn(ctx).QueryRowContext(ctx, r.d.Rebind(`SELECT COUNT(*) FROM payables WHERE batch_id = ?`), batchID).Scan(&n)
	return n, err
}
