package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	pkgch "SignalDesk/pkg/clickhouse"

	"github.com/google/uuid"
)

const alertEventsTable = "alert_events"

// AlertEventsSchema returns the DDL for the alert journal in database db.
func AlertEventsSchema(db string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    event_id    UUID,
    received_at DateTime64(3),
    ticker      LowCardinality(String),
    timeframe   LowCardinality(String),
    direction   LowCardinality(String),
    zone        LowCardinality(String),
    alert_time  String
) ENGINE = MergeTree
ORDER BY (ticker, received_at)`, db, alertEventsTable),
	}
}

// CHAlertJournal appends accepted alerts to ClickHouse.
type CHAlertJournal struct {
	client *pkgch.Client
	db     *sql.DB
	insert string
	newID  func() uuid.UUID
}

// NewCHAlertJournal creates the schema if needed.
func NewCHAlertJournal(ctx context.Context, client *pkgch.Client) (domrepo.AlertJournal, error) {
	if err := client.InitSchema(ctx, AlertEventsSchema(client.Database())...); err != nil {
		return nil, err
	}
	return &CHAlertJournal{
		client: client,
		db:     client.DB(),
		insert: insertAlertEventSQL(client.Database()),
		newID:  uuid.New,
	}, nil
}

func insertAlertEventSQL(db string) string {
	return fmt.Sprintf("INSERT INTO %s.%s (event_id, received_at, ticker, timeframe, direction, zone, alert_time) VALUES (?, ?, ?, ?, ?, ?, ?)", db, alertEventsTable)
}

func alertEventArgs(id uuid.UUID, ev models.AlertEvent, receivedAt time.Time) []any {
	return []any{
		id,
		receivedAt.UTC(),
		ev.Ticker,
		ev.Timeframe,
		string(ev.Direction),
		string(ev.Zone),
		ev.Time,
	}
}

func (j *CHAlertJournal) Record(ctx context.Context, ev models.AlertEvent, receivedAt time.Time) error {
	if _, err := j.db.ExecContext(ctx, j.insert, alertEventArgs(j.newID(), ev, receivedAt)...); err != nil {
		return fmt.Errorf("insert alert event: %w", err)
	}
	return nil
}

func (j *CHAlertJournal) Close() error {
	return j.client.Close()
}
