package query

import (
	"sync"

	"github.com/LerianStudio/itemcore/pkg/command"
	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/proxy"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// QueryResult is a ReadResult that can additionally yield an Update or
// Delete SaveCommand (spec §4.4, glossary "QueryResult"). Update/Delete
// may each be called at most once, and only one of the two may ever
// succeed - a second call of either fails with AlreadyConverted.
type QueryResult[T any] struct {
	*command.ReadResult[T]

	mu         sync.Mutex
	converted  bool
	item       *T
	newCommand NewCommandFunc[T]
}

func newQueryResult[T any](
	item *T,
	tracked []proxy.TrackedProperty[T],
	validator command.Validator[T],
	newCommand NewCommandFunc[T],
) *QueryResult[T] {
	return &QueryResult[T]{
		ReadResult: command.NewReadResult(item, tracked, validator),
		item:       item,
		newCommand: newCommand,
	}
}

// Update converts the result into an Update SaveCommand, owning a fresh
// copy of the item so the QueryResult itself remains independently
// readable afterward (spec §4.1's "Get after command finalization
// succeeds" extended to a converted QueryResult).
func (q *QueryResult[T]) Update() (*command.SaveCommand[T], error) {
	return q.convert(store.ActionUpdate)
}

// Delete converts the result into a Delete SaveCommand.
func (q *QueryResult[T]) Delete() (*command.SaveCommand[T], error) {
	return q.convert(store.ActionDelete)
}

func (q *QueryResult[T]) convert(action store.Action) (*command.SaveCommand[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.converted {
		return nil, itemerrors.AlreadyConverted()
	}

	cp := new(T)
	*cp = *q.item

	cmd, err := q.newCommand(cp, action)
	if err != nil {
		return nil, err
	}

	q.converted = true

	return cmd, nil
}
