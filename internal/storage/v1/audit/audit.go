// Package audit implements the PSQL ledger recording admin-side mutations.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/imellon/go-investa/internal/config"
	"github.com/imellon/go-investa/internal/models/modelstorage"
	storageErrors "github.com/imellon/go-investa/internal/storage/v1/errors"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog"
)

type Ledger struct {
	mu  sync.Mutex
	Cfg *config.StorageConfig
	DB  *sql.DB
	log *zerolog.Logger
}

// InitLedger opens the PSQL connection and prepares the audit table.
func InitLedger(ctx context.Context, cfg *config.StorageConfig, log *zerolog.Logger) (*Ledger, error) {
	db, err := sql.Open("pgx", cfg.AuditDSN)
	if err != nil {
		return nil, err
	}
	lg := Ledger{
		Cfg: cfg,
		DB:  db,
		log: log,
	}
	err = lg.createTables(ctx)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("PSQL audit ledger connection was established")
	return &lg, nil
}

// RecordAudit appends one row describing an admin mutation.
func (l *Ledger) RecordAudit(ctx context.Context, entry modelstorage.AuditStorageEntry) error {
	insertStmt, err := l.DB.PrepareContext(ctx, "INSERT INTO audit_log (actor_id, user_id, entity, entity_id, action, detail, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)")
	if err != nil {
		return &storageErrors.StatementPSQLError{Err: err}
	}
	defer insertStmt.Close()
	chanOk := make(chan bool)
	chanEr := make(chan error)
	go func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		_, err := insertStmt.ExecContext(ctx, entry.ActorID, entry.UserID, entry.Entity, entry.EntityID, entry.Action, entry.Detail, time.Now().Format(time.RFC3339))
		if err != nil {
			if err, ok := err.(*pgconn.PgError); ok && err.Code == pgerrcode.UniqueViolation {
				chanEr <- &storageErrors.AlreadyExistsError{Err: err, ID: entry.EntityID}
				return
			}
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		chanOk <- true
	}()

	select {
	case <-ctx.Done():
		l.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("recording audit entry failed for %s %s", entry.Entity, entry.EntityID))
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		l.log.Error().Err(methodErr).Msg(fmt.Sprintf("recording audit entry failed for %s %s", entry.Entity, entry.EntityID))
		return methodErr
	case <-chanOk:
		l.log.Info().Msg(fmt.Sprintf("recording audit entry done for %s %s", entry.Entity, entry.EntityID))
		return nil
	}
}

// ListAudit returns the most recent ledger rows.
func (l *Ledger) ListAudit(ctx context.Context, limit int) ([]modelstorage.AuditStorageEntry, error) {
	selectStmt, err := l.DB.PrepareContext(ctx, "SELECT id, actor_id, user_id, entity, entity_id, action, detail, created_at FROM audit_log ORDER BY id DESC LIMIT $1")
	if err != nil {
		return nil, &storageErrors.StatementPSQLError{Err: err}
	}
	defer selectStmt.Close()
	chanOk := make(chan []modelstorage.AuditStorageEntry)
	chanEr := make(chan error)
	go func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		rows, err := selectStmt.QueryContext(ctx, limit)
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		defer rows.Close()
		var queryOutput []modelstorage.AuditStorageEntry
		for rows.Next() {
			var queryOutputRow modelstorage.AuditStorageEntry
			err = rows.Scan(&queryOutputRow.ID, &queryOutputRow.ActorID, &queryOutputRow.UserID, &queryOutputRow.Entity, &queryOutputRow.EntityID, &queryOutputRow.Action, &queryOutputRow.Detail, &queryOutputRow.CreatedAt)
			if err != nil {
				chanEr <- &storageErrors.ScanningPSQLError{Err: err}
				return
			}
			queryOutput = append(queryOutput, queryOutputRow)
		}
		err = rows.Err()
		if err != nil {
			chanEr <- &storageErrors.ScanningPSQLError{Err: err}
			return
		}
		chanOk <- queryOutput
	}()
	select {
	case <-ctx.Done():
		l.log.Error().Err(ctx.Err()).Msg("listing audit entries failed")
		return nil, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		l.log.Error().Err(methodErr).Msg("listing audit entries failed")
		return nil, methodErr
	case entries := <-chanOk:
		return entries, nil
	}
}

func (l *Ledger) createTables(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS audit_log (
		id         BIGSERIAL   NOT NULL,
		actor_id   TEXT        NOT NULL,
		user_id    TEXT        NOT NULL,
		entity     TEXT        NOT NULL,
		entity_id  TEXT        NOT NULL,
		action     TEXT        NOT NULL,
		detail     TEXT        NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);`
	_, err := l.DB.ExecContext(ctx, query)
	return err
}
