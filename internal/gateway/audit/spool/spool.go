// Package spool persists audit events into a local SQLite database so an
// outage of the central log aggregation never loses security events. The
// spool is an audit.Sink; batches arrive from the pipeline's flusher.
package spool

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/idx"

	_ "modernc.org/sqlite"
)

type Spool struct {
	db  *sql.DB
	dsn string
}

// New opens (or creates) the spool database at dsn and applies pending
// migrations.
func New(dsn string) (*Spool, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit spool: %w", err)
	}

	// A single writer avoids SQLITE_BUSY under concurrent flushes.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure audit spool: %w", err)
	}

	s := &Spool{db: db, dsn: dsn}
	if err := s.applyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate audit spool: %w", err)
	}
	return s, nil
}

func (s *Spool) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Spool) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const insertEvent = `
INSERT INTO audit_events (
	id, request_id, ts, method, path, ip_address, user_id,
	status, risk_score, classification, pii, gdpr, pci, hipaa, payload
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Write inserts a batch inside one transaction. Either the whole batch
// lands or none of it does.
func (s *Spool) Write(ctx context.Context, events []domain.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertEvent)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}

		var status any
		if ev.Response != nil {
			status = ev.Response.Status
		}

		if _, err := stmt.ExecContext(ctx,
			idx.New().String(),
			ev.RequestID,
			ev.Timestamp.UnixMilli(),
			ev.Request.Method,
			ev.Request.Path,
			ev.Request.IPAddress,
			nullable(ev.Request.UserID),
			status,
			ev.RiskScore,
			string(ev.Classification),
			boolInt(ev.Compliance.PII),
			boolInt(ev.Compliance.GDPR),
			boolInt(ev.Compliance.PCI),
			boolInt(ev.Compliance.HIPAA),
			string(payload),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Prune deletes events older than the retention horizon and returns how
// many were removed.
func (s *Spool) Prune(ctx context.Context, beforeUnixMilli int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE ts < ?`, beforeUnixMilli)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
