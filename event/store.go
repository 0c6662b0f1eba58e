package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ncobase/paybatch/data"
)

// Store is the transactional outbox. Append joins the transaction carried by
// ctx, so events commit or roll back with the aggregate change.
type Store interface {
	Append(ctx context.Context, events ...*Event) error
	Pending(ctx context.Context, limit int) ([]*Event, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, cause error) error
}

type sqlStore struct {
	d *data.Data
}

// NewStore creates the outbox table if needed.
func NewStore(ctx context.Context, d *data.Data) (Store, error) {
	s := &sqlStore{d: d}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("init outbox schema: %w", err)
	}
	return s, nil
}

func (s *sqlStore) initSchema(ctx context.Context) error {
	_, err := s.d.DB().ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS outbox_events (
			id VARCHAR(64) PRIMARY KEY,
			type VARCHAR(64) NOT NULL,
			aggregate_id VARCHAR(64) NOT NULL,
			aggregate_name VARCHAR(64) NOT NULL,
			payload TEXT NOT NULL,
			metadata TEXT NOT NULL,
			occurred_at VARCHAR(40) NOT NULL,
			version INTEGER NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			published_at VARCHAR(40)
		)
	`)
	return err
}

func (s *sqlStore) Append(ctx context.Context, events ...*Event) error {
	if len(events) == 0 {
		return nil
	}
	q := s.d.Rebind(`
		INSERT INTO outbox_events (id, type, aggregate_id, aggregate_name, payload, metadata, occurred_at, version, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
	`)
	conn := s.d.Conn(ctx)
	for _, e := range events {
		metadataJSON, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		if _, err := conn.ExecContext(ctx, q,
			e.ID,
			string(e.Type),
			e.AggregateID,
			e.AggregateName,
			string(e.Payload),
			string(metadataJSON),
			data.FormatTime(e.Timestamp),
			e.Version,
		); err != nil {
			return fmt.Errorf("append %s event: %w", e.Type, err)
		}
	}
	return nil
}

func (s *sqlStore) Pending(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.d.Conn(ctx).QueryContext(ctx, s.d.Rebind(`
		SELECT id, type, aggregate_id, aggregate_name, payload, metadata, occurred_at, version
		FROM outbox_events WHERE published_at IS NULL
		ORDER BY occurred_at ASC, id ASC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			eventType    string
			payloadJSON  string
			metadataJSON string
			occurredAt   string
		)
		e := &Event{}
		if err := rows.Scan(
			&e.ID,
			&eventType,
			&e.AggregateID,
			&e.AggregateName,
			&payloadJSON,
			&metadataJSON,
			&occurredAt,
			&e.Version,
		); err != nil {
			return nil, err
		}
		if metadataJSON != "" && metadataJSON != "null" {
			if err := json.Unmarshal([]byte(metadataJSON), &e.Metadata); err != nil {
				return nil, err
			}
		}
		ts, err := data.ParseTime(occurredAt)
		if err != nil {
			return nil, err
		}
		e.Type = Type(eventType)
		e.Payload = json.RawMessage(payloadJSON)
		e.Timestamp = ts
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *sqlStore) MarkPublished(ctx context.Context, id string, at time.Time) error {
	_, err := s.d.Conn(ctx).ExecContext(ctx, s.d.Rebind(`
		UPDATE outbox_events SET published_at = ?, attempts = attempts + 1 WHERE id = ?
	`), data.FormatTime(at), id)
	return err
}

func (s *sqlStore) MarkFailed(ctx context.Context, id string, cause error) error {
	msg := sql.NullString{}
	if cause != nil {
		msg = sql.NullString{String: cause.Error(), Valid: true}
	}
	_, err := s.d.Conn(ctx).ExecContext(ctx, s.d.Rebind(`
		UPDATE outbox_events SET attempts = attempts + 1, last_error = ? WHERE id = ?
	`), msg, id)
	return err
}
