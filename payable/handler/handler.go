// Package handler exposes the payable batch endpoints.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/paybatch/ecode"
	"github.com/ncobase/paybatch/logging/logger"
	"github.com/ncobase/paybatch/net/resp"
	"github.com/ncobase/paybatch/payable/data/repository"
	"github.com/ncobase/paybatch/payable/service"
	"github.com/ncobase/paybatch/payable/structs"
	"github.com/ncobase/paybatch/queue"
	"github.com/ncobase/paybatch/validator"
)

// BatchService is the part of the submission service used over HTTP.
type BatchService interface {
	Submit(ctx context.Context, body *structs.CreatePayableBatchBody) (*structs.PayableBatchDto, error)
	GetBatch(ctx context.Context, id string) (*structs.BatchDto, error)
}

// QueueCounter reports queue counts by name.
type QueueCounter interface {
	Counts(ctx context.Context) (map[string]queue.Counts, error)
}

// Handler handles payable batch requests.
type Handler struct {
	batches  BatchService
	queues   QueueCounter
	maxItems int
	logger   *logger.Logger
}

// New creates a Handler. maxItems caps the items of one submission.
func New(batches BatchService, queues QueueCounter, maxItems int, l *logger.Logger) *Handler {
	return &Handler{
		batches:  batches,
		queues:   queues,
		maxItems: maxItems,
		logger:   l,
	}
}

// RegisterRoutes mounts the endpoints under /integrations/payable.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/integrations/payable")
	g.POST("/batch", h.CreateBatch)
	g.GET("/batch/:id", h.GetBatch)
	g.GET("/queues", h.QueueCounts)
}

// CreateBatch accepts a batch and answers 202 with its summary.
func (h *Handler) CreateBatch(c *gin.Context) {
	var body structs.CreatePayableBatchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		resp.Fail(c.Writer, resp.BadRequest(err.Error()))
		return
	}
	if errs := validator.ValidateStruct(&body); len(errs) > 0 {
		resp.Fail(c.Writer, resp.WithCode(ecode.ParamErr, "", errs))
		return
	}
	if h.maxItems > 0 && len(body.Payables) > h.maxItems {
		resp.Fail(c.Writer, resp.BadRequest(fmt.Sprintf("a batch accepts at most %d payables", h.maxItems)))
		return
	}

	ctx := c.Request.Context()
	summary, err := h.batches.Submit(ctx, &body)
	if err != nil {
		var serr *service.SubmitError
		if errors.As(err, &serr) {
			resp.Fail(c.Writer, resp.WithCode(ecode.BatchPartial, err.Error(), summary))
			return
		}
		h.logger.Errorf(ctx, "submit batch: %v", err)
		resp.Fail(c.Writer, resp.InternalServer("failed to submit batch"))
		return
	}

	resp.WithStatusCode(c.Writer, http.StatusAccepted, summary)
}

// GetBatch returns the batch progress.
func (h *Handler) GetBatch(c *gin.Context) {
	ctx := c.Request.Context()
	batch, err := h.batches.GetBatch(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrBatchNotFound) {
			resp.Fail(c.Writer, resp.NotFound("batch not found"))
			return
		}
		h.logger.Errorf(ctx, "get batch: %v", err)
		resp.Fail(c.Writer, resp.InternalServer("failed to get batch"))
		return
	}

	resp.Success(c.Writer, batch)
}

// QueueCounts returns the job counts of the work and dead-letter queues.
func (h *Handler) QueueCounts(c *gin.Context) {
	ctx := c.Request.Context()
	counts, err := h.queues.Counts(ctx)
	if err != nil {
		h.logger.Errorf(ctx, "queue counts: %v", err)
		resp.Fail(c.Writer, resp.WithCode(ecode.QueueUnavailable, ""))
		return
	}
	resp.Success(c.Writer, counts)
}
