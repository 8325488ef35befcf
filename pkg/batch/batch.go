// Package batch implements the batch driver of spec §4.6: it collects
// save commands sharing a partition key, validates all of them, acquires
// exclusive access on each, dispatches one atomic multi-op to the
// adapter, and disperses per-row outcomes back to the caller.
package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/LerianStudio/itemcore/pkg/command"
	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/mlog"
	"github.com/LerianStudio/itemcore/pkg/reqcontext"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// SaveBatchFunc is the provider-bound callback a Command calls to reach
// the concrete store.Adapter's SaveBatch.
type SaveBatchFunc[T any] func(ctx context.Context, partitionKey string, reqs []store.SaveRequest[T]) ([]store.BatchRowResult[T], error)

// Result is one positionally-aligned outcome of a Command.Save call
// (spec §4.6 step 5). ReadResult is non-nil only when Status is
// store.StatusOK.
type Result[T any] struct {
	Status store.StatusKind
	Result *command.ReadResult[T]
}

// Command temporarily owns every SaveCommand added to it under a single
// partition key (spec §3 "A batch temporarily owns all contained
// commands"). A private mutex serializes Add, Validate and Save, so
// concurrent calls from several goroutines run one at a time.
type Command[T any] struct {
	mu sync.Mutex

	partitionKey string
	hasPartition bool
	rows         []*command.SaveCommand[T]

	saveBatchFn SaveBatchFunc[T]
	logger      mlog.Logger
}

// New builds an empty Command bound to one provider's adapter.
func New[T any](saveBatchFn SaveBatchFunc[T], logger mlog.Logger) *Command[T] {
	return &Command[T]{saveBatchFn: saveBatchFn, logger: logger}
}

// Add appends cmd to the batch. It fails with AlreadySaved if cmd has
// already finalized (spec §4.6: "Added commands must be unfinalized").
// Partition-key agreement is not checked here; it is deferred to Save
// so composing Add calls never itself performs I/O or validation.
func (b *Command[T]) Add(cmd *command.SaveCommand[T]) (*Command[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cmd.Finalized() {
		return nil, itemerrors.AlreadySaved()
	}

	if !b.hasPartition {
		b.partitionKey = cmd.PartitionKey()
		b.hasPartition = true
	}

	b.rows = append(b.rows, cmd)

	return b, nil
}

// Validate runs every contained command's validator under the batch's
// own mutex, without acquiring any row's lock (spec §4.6
// "Validate() -> ValidationResult[]").
func (b *Command[T]) Validate() []command.ValidationResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	results := make([]command.ValidationResult, len(b.rows))
	for i, row := range b.rows {
		results[i] = row.Validate()
	}

	return results
}

// Save runs the pipeline in spec §4.6: validate all (no I/O on
// failure), check partition-key agreement (no I/O on failure), acquire
// every row's lock (no I/O on failure), dispatch one SaveBatch call,
// then finalize committed rows and release the rest.
func (b *Command[T]) Save(ctx context.Context, reqCtx reqcontext.RequestContext) ([]Result[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, itemerrors.Cancelled()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rows := b.rows
	if len(rows) == 0 {
		return nil, nil
	}

	if err := b.validateAllLocked(rows); err != nil {
		return nil, err
	}

	if err := b.checkPartitionKeysLocked(rows); err != nil {
		return nil, err
	}

	acquiredUpTo, acquireErr := acquireAll(rows)
	if acquireErr != nil {
		return failedAcquireResults[T](rows, acquiredUpTo), nil
	}

	reqs := make([]store.SaveRequest[T], len(rows))
	for i, row := range rows {
		reqs[i] = row.PrepareRequest(reqCtx)
	}

	b.logger.Debugf("itemcore: dispatching batch save of %d row(s) for partition %s", len(rows), b.partitionKey)

	rowResults, err := b.saveBatchFn(ctx, b.partitionKey, reqs)
	if err != nil {
		for _, row := range rows {
			row.Release()
		}

		if ce, ok := err.(*itemerrors.CoreError); ok && ce.Status >= 500 {
			b.logger.Errorf("itemcore: batch save failed for partition %s: %v", b.partitionKey, err)
		} else {
			b.logger.Warnf("itemcore: batch save failed for partition %s: %v", b.partitionKey, err)
		}

		return nil, err
	}

	hasFailure := false

	for _, rr := range rowResults {
		if rr.Status != store.StatusOK {
			hasFailure = true
			break
		}
	}

	out := make([]Result[T], len(rows))

	for i, row := range rows {
		rr := rowResults[i]

		if rr.Status == store.StatusOK && !hasFailure {
			out[i] = Result[T]{Status: store.StatusOK, Result: row.FinalizeWithStored(rr.Item)}
			row.Release()

			continue
		}

		row.Release()

		// A row the adapter reported StatusOK alongside a failing sibling
		// is still not committed - SaveBatch is all-or-nothing (spec
		// §4.2.3), so the driver does not trust an adapter that claims
		// both "OK" and "batch had a failure" and reports it the same
		// way it reports every other innocent sibling.
		if rr.Status == store.StatusOK {
			out[i] = Result[T]{Status: store.StatusFailedDependency}
		} else {
			out[i] = Result[T]{Status: rr.Status}
		}
	}

	return out, nil
}

func (b *Command[T]) validateAllLocked(rows []*command.SaveCommand[T]) error {
	fields := itemerrors.FieldMessages{}

	for i, row := range rows {
		vr := row.Validate()
		if vr.Valid {
			continue
		}

		for field, messages := range vr.Fields {
			fields[fmt.Sprintf("rows[%d].%s", i, field)] = messages
		}
	}

	if len(fields) > 0 {
		return itemerrors.Validation(fields)
	}

	return nil
}

func (b *Command[T]) checkPartitionKeysLocked(rows []*command.SaveCommand[T]) error {
	for _, row := range rows {
		if row.PartitionKey() != b.partitionKey {
			return itemerrors.BadRequest("all commands in a batch must share one partitionKey")
		}
	}

	return nil
}

// acquireAll locks every row's mutex in order. If any acquire fails
// (because that row already finalized), it releases everything already
// acquired and returns the index it reached.
func acquireAll[T any](rows []*command.SaveCommand[T]) (int, error) {
	for i, row := range rows {
		if err := row.Acquire(); err != nil {
			for j := 0; j < i; j++ {
				rows[j].Release()
			}

			return i, err
		}
	}

	return len(rows), nil
}

// failedAcquireResults builds the per-row outcome spec §4.6 step 2
// describes for an acquire failure: the row that failed to acquire
// carries BadRequest, every other row carries FailedDependency.
func failedAcquireResults[T any](rows []*command.SaveCommand[T], failedIndex int) []Result[T] {
	out := make([]Result[T], len(rows))

	for i := range rows {
		if i == failedIndex {
			out[i] = Result[T]{Status: store.StatusBadRequest}
		} else {
			out[i] = Result[T]{Status: store.StatusFailedDependency}
		}
	}

	return out
}
