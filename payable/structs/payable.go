package structs

import "time"

// Job names on the work and dead-letter queues.
const (
	JobCreatePayable = "create-payable"
	JobFailedPayable = "failed-payable"
)

// PayableInput is one item of a batch.
type PayableInput struct {
	Value        float64 `json:"value" validate:"gt=0"`
	EmissionDate string  `json:"emissionDate" validate:"required,date"`
	Assignor     string  `json:"assignor" validate:"required,uuid4"`
}

// PayableJob is the work queue payload. BatchID is empty for jobs outside a batch.
type PayableJob struct {
	PayableInput
	BatchID string `json:"batchId,omitempty"`
}

// FailedPayable is the dead-letter payload.
type FailedPayable struct {
	PayableInput
	BatchID      string `json:"batchId"`
	ErrorMessage string `json:"errorMessage"`
}

// CreatePayableBatchBody is the batch submission request.
type CreatePayableBatchBody struct {
	Name        string         `json:"name,omitempty" validate:"max=140"`
	Description string         `json:"description,omitempty" validate:"max=1000"`
	Payables    []PayableInput `json:"payables" validate:"required,min=1,max=10000,dive"`
}

// Payable is a stored receivable owed to an assignor.
type Payable struct {
	ID           string    `json:"id"`
	AssignorID   string    `json:"assignorId"`
	Value        float64   `json:"value"`
	EmissionDate time.Time `json:"emissionDate"`
	BatchID      string    `json:"batchId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Assignor is the party a payable is assigned to.
type Assignor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Document  string    `json:"document"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}
