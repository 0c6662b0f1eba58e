package service

import (
	"context"
	"fmt"

	"github.com/ncobase/paybatch/event"
	"github.com/ncobase/paybatch/logging/logger"
	"github.com/ncobase/paybatch/messaging/email"
	"github.com/ncobase/paybatch/payable/structs"
)

// Notifier tells operations about completed batches and dead-lettered
// payables. Without a sender or recipient it only logs.
type Notifier struct {
	sender    email.Sender
	recipient string
	logger    *logger.Logger
}

func NewNotifier(sender email.Sender, recipient string, l *logger.Logger) *Notifier {
	return &Notifier{sender: sender, recipient: recipient, logger: l}
}

// Subscribe registers the notifier handlers on bus.
func (n *Notifier) Subscribe(bus *event.Bus) {
	bus.Subscribe(structs.EventBatchCompleted, n.HandleBatchCompleted)
	bus.Subscribe(structs.EventPayableError, n.HandlePayableError)
}

func (n *Notifier) HandleBatchCompleted(ctx context.Context, e *event.Event) error {
	var p structs.BatchCompleted
	if err := e.Decode(&p); err != nil {
		return err
	}
	body := fmt.Sprintf("Batch %s finished processing.\nSucceeded: %d\nFailed: %d\n",
		p.BatchID, p.SuccessCount, p.FailedCount)
	return n.send(ctx, email.Template{
		Subject:  fmt.Sprintf("Batch %s completed", p.BatchID),
		Template: "batch-completed",
		Body:     body,
		Data: map[string]any{
			"batchId":      p.BatchID,
			"successCount": p.SuccessCount,
			"failedCount":  p.FailedCount,
		},
	})
}

func (n *Notifier) HandlePayableError(ctx context.Context, e *event.Event) error {
	var p structs.PayableError
	if err := e.Decode(&p); err != nil {
		return err
	}
	body := fmt.Sprintf("A payable of batch %s was moved to the dead-letter queue.\nValue: %.2f\nEmission date: %s\nAssignor: %s\nError: %s\n",
		p.BatchID, p.Value, p.EmissionDate, p.AssignorID, p.ErrorMessage)
	return n.send(ctx, email.Template{
		Subject:  fmt.Sprintf("Payable of batch %s could not be created", p.BatchID),
		Template: "payable-error",
		Body:     body,
		Data: map[string]any{
			"batchId":      p.BatchID,
			"value":        p.Value,
			"emissionDate": p.EmissionDate,
			"assignor":     p.AssignorID,
			"errorMessage": p.ErrorMessage,
		},
	})
}

func (n *Notifier) send(ctx context.Context, tpl email.Template) error {
	if n.sender == nil || n.recipient == "" {
		n.logger.Infof(ctx, "notification: %s", tpl.Subject)
		return nil
	}
	id, err := n.sender.SendTemplateEmail(ctx, n.recipient, tpl)
	if err != nil {
		return fmt.Errorf("send %q: %w", tpl.Subject, err)
	}
	n.logger.Debugf(ctx, "notification %q sent, id=%s", tpl.Subject, id)
	return nil
}
