package repository

import (
	"context"
	"fmt"

	"github.com/ncobase/paybatch/data"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS batches (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(140) NOT NULL,
		description TEXT NOT NULL,
		status VARCHAR(16) NOT NULL,
		total_items INTEGER NOT NULL,
		success_count INTEGER NOT NULL,
		failed_count INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL,
		version BIGINT NOT NULL,
		created_at VARCHAR(40) NOT NULL,
		updated_at VARCHAR(40) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS assignors (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(140) NOT NULL,
		email VARCHAR(140) NOT NULL,
		document VARCHAR(30) NOT NULL,
		phone VARCHAR(20) NOT NULL,
		created_at VARCHAR(40) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payables (
		id VARCHAR(64) PRIMARY KEY,
		assignor_id VARCHAR(64) NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		emission_date VARCHAR(40) NOT NULL,
		batch_id VARCHAR(64),
		created_at VARCHAR(40) NOT NULL,
		updated_at VARCHAR(40) NOT NULL
	)`,
}

// Migrate creates the payable tables if they do not exist.
func Migrate(ctx context.Context, d *data.Data) error {
	for _, stmt := range schema {
		if _, err := d.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Repository groups the payable repositories.
type Repository struct {
	Batch    BatchRepository
	Payable  PayableRepository
	Assignor AssignorRepository
}

// New creates the repositories on d.
func New(d *data.Data) *Repository {
	return &Repository{
		Batch:    NewBatchRepository(d),
		Payable:  NewPayableRepository(d),
		Assignor: NewAssignorRepository(d),
	}
}
