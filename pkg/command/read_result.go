package command

import "github.com/LerianStudio/itemcore/pkg/proxy"

// ReadResult is a read-only proxy wrapping an item (spec §4.4). It is
// what every successful Save and every plain Read returns.
type ReadResult[T any] struct {
	prx       *proxy.Proxy[T]
	validator Validator[T]
}

// NewReadResult wraps an already-read, already-finalized item. Used by
// Provider.Read (spec §4.3's "Read" path, which is not itself a
// SaveCommand).
func NewReadResult[T any](item *T, tracked []proxy.TrackedProperty[T], validator Validator[T]) *ReadResult[T] {
	p := proxy.New(item, tracked)
	p.Finalize()

	return &ReadResult[T]{prx: p, validator: validator}
}

// Item returns the read-only interface view (spec §4.4 "Item").
func (r *ReadResult[T]) Item() *proxy.Proxy[T] {
	return r.prx
}

// Validate runs the registered validator against the current item
// (spec §4.4 "Validate").
func (r *ReadResult[T]) Validate() ValidationResult {
	if r.validator == nil {
		return ValidationResult{Valid: true}
	}

	return r.validator(r.prx.Item())
}
