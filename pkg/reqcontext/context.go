// Package reqcontext defines the RequestContext bundle the core consumes
// (spec §6): an external collaborator's snapshot of caller identity,
// copied verbatim into an ItemEvent's Context once per save. The core
// never interprets these fields; it only reads them.
package reqcontext

import "github.com/LerianStudio/itemcore/pkg/mmodel"

// RequestContext mirrors the host application's ambient request
// identity. All fields are optional: a batch job or background worker
// may have none of them.
type RequestContext struct {
	ObjectID            *string
	HTTPTraceIdentifier *string
	HTTPRequestPath     *string
}

// ToEventContext copies the identity fields into an mmodel.EventContext
// snapshot, run once per save per spec §6.
func (rc RequestContext) ToEventContext() mmodel.EventContext {
	return mmodel.EventContext{
		ObjectID:            rc.ObjectID,
		HTTPTraceIdentifier: rc.HTTPTraceIdentifier,
		HTTPRequestPath:     rc.HTTPRequestPath,
	}
}
