package query

import (
	"context"
	"errors"

	"github.com/LerianStudio/itemcore/pkg/command"
	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/proxy"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// Sequence is the lazy, single-pass, cancellable sequence of QueryResults
// Command.ToAsyncSequence returns (spec §4.5). It never materializes the
// full result set; each Next call pulls exactly one row from the
// adapter-bound store.Cursor.
type Sequence[T any] struct {
	cursor     store.Cursor[T]
	tracked    []proxy.TrackedProperty[T]
	validator  command.Validator[T]
	newCommand NewCommandFunc[T]
}

// Next advances the sequence by one row. It returns (nil, nil) at the
// natural end of the sequence. A context cancelled before or during
// iteration surfaces as itemerrors.Cancelled on the next call, honored
// between rows (spec §4.5, §5).
func (s *Sequence[T]) Next(ctx context.Context) (*QueryResult[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, itemerrors.Cancelled()
	}

	if !s.cursor.Next(ctx) {
		if err := s.cursor.Err(); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, itemerrors.Cancelled()
			}

			return nil, err
		}

		return nil, nil
	}

	item := s.cursor.Current()

	return newQueryResult(item, s.tracked, s.validator, s.newCommand), nil
}

// Close releases the underlying cursor. Safe to call after Next has
// returned the end of sequence or an error.
func (s *Sequence[T]) Close() error {
	return s.cursor.Close()
}
