// Package structs defines the payable batch domain models.
package structs

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "PENDING"
	BatchStatusProcessing BatchStatus = "PROCESSING"
	BatchStatusCompleted  BatchStatus = "COMPLETED"
)

var (
	ErrInvalidState    = errors.New("invalid batch state")
	ErrInvalidProgress = errors.New("invalid batch progress")

	ErrBatchDeleted     = fmt.Errorf("%w: not possible to process a deleted batch", ErrInvalidState)
	ErrAlreadyStarted   = fmt.Errorf("%w: batch was already processed or is in processing", ErrInvalidState)
	ErrNotProcessing    = fmt.Errorf("%w: batch must be in processing to be marked as completed", ErrInvalidState)
	ErrAlreadyCompleted = fmt.Errorf("%w: batch is already completed", ErrNotProcessing)
	ErrNegativeCounters = fmt.Errorf("%w: counters cannot be negative", ErrInvalidProgress)
	ErrProgressOverflow = fmt.Errorf("%w: total of processed items cannot exceed the total of the batch", ErrInvalidProgress)
	ErrCounterDecrease  = fmt.Errorf("%w: counters cannot decrease", ErrInvalidProgress)
)

// Batch tracks the progress of one submitted list of payables.
// Counters only grow and SuccessCount+FailedCount never exceeds TotalItems.
type Batch struct {
	ID           string      `json:"id"`
	Name         string      `json:"name,omitempty"`
	Description  string      `json:"description,omitempty"`
	Status       BatchStatus `json:"status"`
	TotalItems   int         `json:"total_items"`
	SuccessCount int         `json:"success_count"`
	FailedCount  int         `json:"failed_count"`
	IsActive     bool        `json:"is_active"`
	// Version is bumped on every save and guards against lost updates.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBatch creates a pending batch expecting total items.
func NewBatch(name, description string, total int) *Batch {
	now := time.Now().UTC()
	return &Batch{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Status:      BatchStatusPending,
		TotalItems:  total,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Processed returns SuccessCount + FailedCount.
func (b *Batch) Processed() int {
	return b.SuccessCount + b.FailedCount
}

// IsCompleted reports whether the batch reached its terminal state.
func (b *Batch) IsCompleted() bool {
	return b.Status == BatchStatusCompleted
}

// StartProcessing moves a pending batch to processing.
func (b *Batch) StartProcessing() error {
	if !b.IsActive {
		return ErrBatchDeleted
	}
	if b.Status != BatchStatusPending {
		return ErrAlreadyStarted
	}
	b.Status = BatchStatusProcessing
	b.touch()
	return nil
}

// MarkAsCompleted moves a processing batch to completed.
func (b *Batch) MarkAsCompleted() error {
	if !b.IsActive {
		return ErrBatchDeleted
	}
	if b.Status != BatchStatusProcessing {
		return ErrNotProcessing
	}
	b.Status = BatchStatusCompleted
	b.touch()
	return nil
}

// IncrementSuccess counts one created payable. Completion is evaluated by UpdateProgress.
func (b *Batch) IncrementSuccess() error {
	if !b.IsActive {
		return ErrBatchDeleted
	}
	b.SuccessCount++
	b.touch()
	return nil
}

// IncrementFailed counts one exhausted payable and returns the PayableError event.
func (b *Batch) IncrementFailed(failure FailedPayable) (DomainEvent, error) {
	if !b.IsActive {
		return nil, ErrBatchDeleted
	}
	b.FailedCount++
	b.touch()
	return PayableError{
		BatchID:      b.ID,
		Value:        failure.Value,
		EmissionDate: failure.EmissionDate,
		AssignorID:   failure.Assignor,
		ErrorMessage: failure.ErrorMessage,
	}, nil
}

// UpdateProgress sets both counters. When every item is accounted for the
// batch completes and the BatchCompleted event is returned. A completed
// batch rejects every call. On error the batch is left untouched.
func (b *Batch) UpdateProgress(successCount, failedCount int) (DomainEvent, error) {
	if !b.IsActive {
		return nil, ErrBatchDeleted
	}
	if b.Status == BatchStatusCompleted {
		return nil, ErrAlreadyCompleted
	}
	if successCount < 0 || failedCount < 0 {
		return nil, ErrNegativeCounters
	}
	if successCount < b.SuccessCount || failedCount < b.FailedCount {
		return nil, ErrCounterDecrease
	}
	if successCount+failedCount > b.TotalItems {
		return nil, ErrProgressOverflow
	}
	if successCount+failedCount == b.TotalItems && b.Status != BatchStatusProcessing {
		return nil, ErrNotProcessing
	}

	b.SuccessCount = successCount
	b.FailedCount = failedCount
	b.touch()

	if b.Processed() < b.TotalItems {
		return nil, nil
	}
	if err := b.MarkAsCompleted(); err != nil {
		return nil, err
	}
	return BatchCompleted{
		BatchID:      b.ID,
		SuccessCount: b.SuccessCount,
		FailedCount:  b.FailedCount,
	}, nil
}

func (b *Batch) touch() {
	b.UpdatedAt = time.Now().UTC()
}

// ToDto returns the public view of the batch.
func (b *Batch) ToDto() *BatchDto {
	return &BatchDto{
		ID:           b.ID,
		Status:       b.Status,
		TotalItems:   b.TotalItems,
		SuccessCount: b.SuccessCount,
		FailedCount:  b.FailedCount,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

// BatchDto is returned by the batch status endpoint.
type BatchDto struct {
	ID           string      `json:"id"`
	Status       BatchStatus `json:"status"`
	TotalItems   int         `json:"totalItems"`
	SuccessCount int         `json:"successCount"`
	FailedCount  int         `json:"failedCount"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// PayableBatchDto is the summary returned when a batch is accepted.
type PayableBatchDto struct {
	BatchID string `json:"batchId"`
	Total   int    `json:"total"`
	Success int    `json:"success"`
	Failed  int    `json:"failed"`
}
