package pgstore

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LerianStudio/itemcore/pkg/mlog"
	"github.com/LerianStudio/itemcore/pkg/mmodel"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// Config wires a Store to one table for one concrete item type T, the
// same explicit-registration shape pkg/memstore and pkg/provider use
// rather than reflection (spec §9).
type Config[T any] struct {
	Pool      *pgxpool.Pool
	TableName string

	// EventsTableName is the audit table every SaveItem/SaveBatch call
	// writes to in the same transaction as the item row (spec §3, §6:
	// "Events table: same envelope... foreign key (relatedId,
	// partitionKey) -> items(id, partitionKey)").
	EventsTableName string

	// Base reads the embedded mmodel.BaseItem off *T.
	Base func(item *T) *mmodel.BaseItem

	// Columns maps every field name a Where/OrderBy clause may reference,
	// after rewriting, to the SQL expression that reads it - a bare
	// column name for a promoted column ("partition_key") or a cast
	// JSON-path expression for one folded into the data blob
	// ("(data->>'Balance')::numeric").
	Columns map[string]string

	Logger mlog.Logger
}

// Store is a relational store.Adapter[T] for one table, grounded on
// organization.postgresql.go's repository shape: one struct per entity,
// holding a connection and a table name, with sqrl building every query.
type Store[T any] struct {
	pool            *pgxpool.Pool
	tableName       string
	eventsTableName string
	base            func(item *T) *mmodel.BaseItem
	columns         map[string]string
	logger          mlog.Logger
}

// New builds a Store from cfg, defaulting Logger to mlog.NoneLogger{}
// the way pkg/provider.New defaults a Registration's Logger.
func New[T any](cfg Config[T]) *Store[T] {
	logger := cfg.Logger
	if logger == nil {
		logger = &mlog.NoneLogger{}
	}

	return &Store[T]{
		pool:            cfg.Pool,
		tableName:       cfg.TableName,
		eventsTableName: cfg.EventsTableName,
		base:            cfg.Base,
		columns:         cfg.Columns,
		logger:          logger,
	}
}

var _ store.Adapter[struct{}] = (*Store[struct{}])(nil)
