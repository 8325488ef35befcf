package mongostore

import (
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/LerianStudio/itemcore/pkg/mlog"
	"github.com/LerianStudio/itemcore/pkg/mmodel"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// compositeID is the document's "_id", keyed on (id, partition_key) the
// way AuditID keys audit.mongodb.go's records on
// (organization_id, ledger_id) - a document's natural id is unique only
// within its partition (spec §3), so the partition key joins it to form
// Mongo's own primary key.
type compositeID struct {
	ID           string `bson:"id"`
	PartitionKey string `bson:"partition_key"`
}

// document is the on-disk envelope: the composite primary key plus the
// caller's item marshaled as a sub-document, so BSON field names for
// Where/OrderBy composition are "data.<Field>" by convention (see
// Config.Fields).
type document[T any] struct {
	ID   compositeID `bson:"_id"`
	Data *T          `bson:"data"`
}

// Config wires a Store to one collection for one concrete item type T.
type Config[T any] struct {
	Client     *mongo.Client
	Database   string
	Collection string

	// EventsCollection is the audit collection every SaveItem/SaveBatch
	// call writes to inside the same session transaction as the item
	// document (spec §3, §6).
	EventsCollection string

	Base func(item *T) *mmodel.BaseItem

	// Fields maps every field name a Where/OrderBy clause may reference,
	// after rewriting, to its BSON path under the document's "data"
	// sub-document - e.g. "Balance" -> "data.balance" (the driver's default
	// BSON key for an untagged field is its lowercased name).
	Fields map[string]string

	Logger mlog.Logger
}

// Store is a document-store store.Adapter[T] for one collection.
type Store[T any] struct {
	client     *mongo.Client
	coll       *mongo.Collection
	eventsColl *mongo.Collection
	base       func(item *T) *mmodel.BaseItem
	fields     map[string]string
	logger     mlog.Logger
}

// New builds a Store from cfg.
func New[T any](cfg Config[T]) *Store[T] {
	logger := cfg.Logger
	if logger == nil {
		logger = &mlog.NoneLogger{}
	}

	db := cfg.Client.Database(cfg.Database)

	return &Store[T]{
		client:     cfg.Client,
		coll:       db.Collection(cfg.Collection),
		eventsColl: db.Collection(cfg.EventsCollection),
		base:       cfg.Base,
		fields:     cfg.Fields,
		logger:     logger,
	}
}

var _ store.Adapter[struct{}] = (*Store[struct{}])(nil)
