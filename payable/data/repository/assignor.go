package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ncobase/paybatch/data"
	"github.com/ncobase/paybatch/payable/structs"
)

var ErrAssignorNotFound = errors.New("assignor not found")

type AssignorRepository interface {
	Create(ctx context.Context, a *structs.Assignor) error
	FindByID(ctx context.Context, id string) (*structs.Assignor, error)
}

type assignorRepository struct {
	d *data.Data
}

func NewAssignorRepository(d *data.Data) AssignorRepository {
	return &assignorRepository{d: d}
}

func (r *assignorRepository) Create(ctx context.Context, a *structs.Assignor) error {
	_, err := r.d.Conn(ctx).ExecContext(ctx, r.d.Rebind(`
		INSERT INTO assignors (id, name, email, document, phone, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), a.ID, a.Name, a.Email, a.Document, a.Phone, data.FormatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("create assignor: %w", err)
	}
	return nil
}

func (r *assignorRepository) FindByID(ctx context.Context, id string) (*structs.Assignor, error) {
	row := r.d.Conn(ctx).QueryRowContext(ctx, r.d.Rebind(`
		SELECT id, name, email, document, phone, created_at FROM assignors WHERE id = ?
	`), id)

	var createdAt string
	a := &structs.Assignor{}
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Document, &a.Phone, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrAssignorNotFound, id)
		}
		return nil, err
	}
	t, err := data.ParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = t
	return a, nil
}
