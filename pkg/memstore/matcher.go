package memstore

import (
	"fmt"
	"time"

	"github.com/LerianStudio/itemcore/pkg/expr"
	"github.com/LerianStudio/itemcore/pkg/itemerrors"
)

// evalPredicate is memstore's adapter-specific visitor over the
// rewritten expression tree (spec §9: "provide an adapter-specific
// visitor per backend"). A real backend translates the same tree to its
// native query language instead of evaluating it directly.
func evalPredicate[T any](node expr.Node, item *T, accessors map[string]func(*T) any) (bool, error) {
	if node == nil {
		return true, nil
	}

	switch n := node.(type) {
	case expr.And:
		l, err := evalPredicate[T](n.Left, item, accessors)
		if err != nil || !l {
			return false, err
		}

		return evalPredicate[T](n.Right, item, accessors)
	case expr.Or:
		l, err := evalPredicate[T](n.Left, item, accessors)
		if err != nil {
			return false, err
		}

		if l {
			return true, nil
		}

		return evalPredicate[T](n.Right, item, accessors)
	case expr.Not:
		v, err := evalPredicate[T](n.Operand, item, accessors)
		return !v, err
	case expr.Eq:
		return compareNodes(n.Left, n.Right, item, accessors, func(c int) bool { return c == 0 })
	case expr.Neq:
		return compareNodes(n.Left, n.Right, item, accessors, func(c int) bool { return c != 0 })
	case expr.Gt:
		return compareNodes(n.Left, n.Right, item, accessors, func(c int) bool { return c > 0 })
	case expr.Gte:
		return compareNodes(n.Left, n.Right, item, accessors, func(c int) bool { return c >= 0 })
	case expr.Lt:
		return compareNodes(n.Left, n.Right, item, accessors, func(c int) bool { return c < 0 })
	case expr.Lte:
		return compareNodes(n.Left, n.Right, item, accessors, func(c int) bool { return c <= 0 })
	case expr.In:
		lv, err := resolveValue(n.Left, item, accessors)
		if err != nil {
			return false, err
		}

		for _, v := range n.Values {
			if c, err := compareValues(lv, v); err == nil && c == 0 {
				return true, nil
			}
		}

		return false, nil
	default:
		return false, itemerrors.BadRequest("memstore: unsupported predicate node")
	}
}

func compareNodes[T any](left, right expr.Node, item *T, accessors map[string]func(*T) any, test func(int) bool) (bool, error) {
	lv, err := resolveValue(left, item, accessors)
	if err != nil {
		return false, err
	}

	rv, err := resolveValue(right, item, accessors)
	if err != nil {
		return false, err
	}

	c, err := compareValues(lv, rv)
	if err != nil {
		return false, err
	}

	return test(c), nil
}

func resolveValue[T any](node expr.Node, item *T, accessors map[string]func(*T) any) (any, error) {
	switch n := node.(type) {
	case expr.MemberAccess:
		accessor, ok := accessors[n.Name]
		if !ok {
			return nil, itemerrors.BadRequest(fmt.Sprintf("memstore: no accessor registered for field %q", n.Name))
		}

		return accessor(item), nil
	case expr.Const:
		return n.Value, nil
	default:
		return nil, itemerrors.BadRequest("memstore: expected a member or a constant")
	}
}

// compareValues orders two values of the same dynamic type (string,
// the integer/float kinds, bool, or time.Time) the way Where/OrderBy
// comparisons need.
func compareValues(a, b any) (int, error) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, itemerrors.BadRequest("memstore: type mismatch in comparison")
		}

		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		default:
			return 0, nil
		}
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, itemerrors.BadRequest("memstore: type mismatch in comparison")
		}

		if av == bv {
			return 0, nil
		}

		if !av && bv {
			return -1, nil
		}

		return 1, nil
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, itemerrors.BadRequest("memstore: type mismatch in comparison")
		}

		switch {
		case av.Before(bv):
			return -1, nil
		case av.After(bv):
			return 1, nil
		default:
			return 0, nil
		}
	default:
		af, aok := toFloat(a)
		bf, bok := toFloat(b)

		if !aok || !bok {
			return 0, itemerrors.BadRequest("memstore: unsupported comparison operand type")
		}

		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
