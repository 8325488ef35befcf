package command

import "github.com/LerianStudio/itemcore/pkg/itemerrors"

// ValidationResult is the pure, synchronous outcome of running a
// registered validator against an item (spec §4.3: "Validate() ->
// ValidationResult - pure, no I/O").
type ValidationResult struct {
	Valid  bool
	Fields itemerrors.FieldMessages
}

// Validator runs type-specific business rules against item and returns
// the fields that failed, if any. A nil or empty Fields map with
// Valid == true means the item passed.
type Validator[T any] func(item *T) ValidationResult

// AsError converts a failing ValidationResult into the itemerrors
// Validation error spec §4.3 step 3 raises when Validate fails.
func (vr ValidationResult) AsError() error {
	if vr.Valid {
		return nil
	}

	return itemerrors.Validation(vr.Fields)
}
