// Package mmodel defines the envelope every stored entity extends
// (BaseItem), the immutable audit record co-written with every mutation
// (ItemEvent), and the small value types those two share.
package mmodel

import (
	"regexp"
	"time"
)

// typeNameRule matches spec §3: lowercase ASCII letters and hyphens only,
// first and last character a letter.
var typeNameRule = regexp.MustCompile(`^[a-z](-?[a-z])*$`)

// ReservedEventTypeName is the typeName every ItemEvent carries; no
// provider may register a concrete type under this name.
const ReservedEventTypeName = "event"

// ValidTypeName reports whether name satisfies spec §3/§4.7's naming
// rule: nonempty, `^[a-z](-?[a-z])*$`, and not the reserved value "event".
func ValidTypeName(name string) bool {
	if name == ReservedEventTypeName {
		return false
	}

	return typeNameRule.MatchString(name)
}

// BaseItem is the envelope every stored entity extends (spec §3).
type BaseItem struct {
	ID           string     `json:"id" bson:"id"`
	PartitionKey string     `json:"partitionKey" bson:"partitionKey"`
	TypeName     string     `json:"typeName" bson:"typeName"`
	CreatedDate  time.Time  `json:"createdDate" bson:"createdDate"`
	UpdatedDate  time.Time  `json:"updatedDate" bson:"updatedDate"`
	DeletedDate  *time.Time `json:"deletedDate,omitempty" bson:"deletedDate,omitempty"`
	IsDeleted    *bool      `json:"isDeleted,omitempty" bson:"isDeleted,omitempty"`
	ETag         string     `json:"_etag" bson:"etag"`
}

// IsLive reports whether the item is not (soft-)deleted.
func (b *BaseItem) IsLive() bool {
	return b.IsDeleted == nil || !*b.IsDeleted
}

// SaveAction discriminates the kind of mutation an ItemEvent records.
type SaveAction string

const (
	SaveActionCreated SaveAction = "CREATED"
	SaveActionUpdated SaveAction = "UPDATED"
	SaveActionDeleted SaveAction = "DELETED"
)

// PropertyChange is a single tracked-property delta recorded on an
// ItemEvent (spec §3). OldValue/NewValue are JSON-compatible values, so
// they round-trip through any adapter's native serialization unchanged.
type PropertyChange struct {
	PropertyName string `json:"propertyName" bson:"propertyName"`
	OldValue     any    `json:"oldValue" bson:"oldValue"`
	NewValue     any    `json:"newValue" bson:"newValue"`
}

// EventContext is a snapshot of request-context identity fields, copied
// once per save from the RequestContext the caller passed in (spec §3,
// §6).
type EventContext struct {
	ObjectID            *string `json:"objectId,omitempty" bson:"objectId,omitempty"`
	HTTPTraceIdentifier *string `json:"httpTraceIdentifier,omitempty" bson:"httpTraceIdentifier,omitempty"`
	HTTPRequestPath     *string `json:"httpRequestPath,omitempty" bson:"httpRequestPath,omitempty"`
}

// ItemEvent is the immutable audit record co-written with every mutation
// (spec §3). Its TypeName is always ReservedEventTypeName.
type ItemEvent struct {
	BaseItem `bson:",inline"`

	SaveAction      SaveAction       `json:"saveAction" bson:"saveAction"`
	RelatedID       string           `json:"relatedId" bson:"relatedId"`
	RelatedTypeName string           `json:"relatedTypeName" bson:"relatedTypeName"`
	Changes         []PropertyChange `json:"changes" bson:"changes"`
	Context         EventContext     `json:"context" bson:"context"`
}
