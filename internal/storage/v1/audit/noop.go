package audit

import (
	"context"

	"github.com/imellon/go-investa/internal/models/modelstorage"
	"github.com/rs/zerolog"
)

// Disabled is the ledger used when no audit DSN is configured; entries are
// logged and dropped.
type Disabled struct {
	log *zerolog.Logger
}

func InitDisabled(log *zerolog.Logger) *Disabled {
	log.Info().Msg("audit ledger is disabled, entries will be logged only")
	return &Disabled{log: log}
}

func (d *Disabled) RecordAudit(_ context.Context, entry modelstorage.AuditStorageEntry) error {
	d.log.Info().Msg("audit (unledgered): " + entry.Action + " " + entry.Entity + " " + entry.EntityID + " by " + entry.ActorID)
	return nil
}

func (d *Disabled) ListAudit(_ context.Context, _ int) ([]modelstorage.AuditStorageEntry, error) {
	return nil, nil
}
