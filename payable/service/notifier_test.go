package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ncobase/paybatch/event"
	"github.com/ncobase/paybatch/logging/logger"
	"github.com/ncobase/paybatch/messaging/email"
	"github.com/ncobase/paybatch/payable/structs"
)

type sentEmail struct {
	to  string
	tpl email.Template
}

type fakeSender struct {
	sent []sentEmail
	err  error
}

func (f *fakeSender) SendTemplateEmail(_ context.Context, to string, tpl email.Template) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentEmail{to: to, tpl: tpl})
	return "msg-1", nil
}

func mustDomainEvent(t *testing.T, de structs.DomainEvent) *event.Event {
	t.Helper()
	events, err := structs.ToEvents(de)
	if err != nil || len(events) != 1 {
		t.Fatalf("ToEvents: %v", err)
	}
	return events[0]
}

func TestNotifierSendsBatchCompleted(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, "ops@example.test", logger.StdLogger())

	e := mustDomainEvent(t, structs.BatchCompleted{BatchID: "b1", SuccessCount: 3, FailedCount: 1})
	if err := n.HandleBatchCompleted(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails", len(sender.sent))
	}
	got := sender.sent[0]
	if got.to != "ops@example.test" || !strings.Contains(got.tpl.Subject, "b1") {
		t.Errorf("email = %+v", got)
	}
	if got.tpl.Data["successCount"] != 3 || got.tpl.Data["failedCount"] != 1 {
		t.Errorf("data = %v", got.tpl.Data)
	}
}

func TestNotifierSendsPayableError(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, "ops@example.test", logger.StdLogger())

	e := mustDomainEvent(t, structs.PayableError{BatchID: "b1", Value: 10, ErrorMessage: "assignor not found"})
	if err := n.HandlePayableError(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0].tpl.Body, "assignor not found") {
		t.Errorf("sent = %+v", sender.sent)
	}

	sender.err = errors.New("provider down")
	if err := n.HandlePayableError(context.Background(), e); err == nil {
		t.Error("expected send error")
	}
}

func TestNotifierWithoutSenderOnlyLogs(t *testing.T) {
	n := NewNotifier(nil, "", logger.StdLogger())
	e := mustDomainEvent(t, structs.BatchCompleted{BatchID: "b1"})
	if err := n.HandleBatchCompleted(context.Background(), e); err != nil {
		t.Errorf("err = %v", err)
	}
}
