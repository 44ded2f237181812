package events

import (
	"context"

	"github.com/rwaledger/pledge-core/migrations"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
)

// PostgresSink persists events for audit queries. The schema is applied with
// sql-migrate when the sink opens.
type PostgresSink struct {
	db *sqlx.DB
}

func NewPostgresSink(dsn string, migrateUp bool) (*PostgresSink, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to connect to postgres")
	}

	if migrateUp {
		source := &migrate.EmbedFileSystemMigrationSource{
			FileSystem: migrations.FS,
			Root:       ".",
		}
		if _, err := migrate.Exec(db.DB, "postgres", source, migrate.Up); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "Failed to migrate event schema")
		}
	}

	return &PostgresSink{db: db}, nil
}

const insertEvent = `
	INSERT INTO platform_events (
		id, event_type, tx_ref, agreement_id, asset_id, purchase_id, actor,
		counterparty, token_amount, stable_amount, original_value,
		pledged_value, detail, occurred_at
	) VALUES (
		:id, :event_type, :tx_ref, :agreement_id, :asset_id, :purchase_id,
		:actor, :counterparty, :token_amount, :stable_amount, :original_value,
		:pledged_value, :detail, :occurred_at
	)`

func (s *PostgresSink) Write(ctx context.Context, e *Event) error {
	if _, err := s.db.NamedExecContext(ctx, insertEvent, e); err != nil {
		return errors.Wrap(err, "Failed to insert event")
	}
	return nil
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}
