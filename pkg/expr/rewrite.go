package expr

import "github.com/LerianStudio/itemcore/pkg/itemerrors"

// FieldMap maps a public-interface field name to the concrete item type's
// field name (its store-facing, serialized name). A provider registers
// one FieldMap per (TInterface, TItem) pair at registration time.
type FieldMap map[string]string

// Rewrite walks node, rebinding every MemberAccess from the interface
// type's field names to the concrete item type's field names via
// fields, so an adapter can translate the result to its native query
// language (spec §4.5). A MemberAccess not present in fields fails with
// BadRequest at rewrite time, matching "Any member not mapped on the
// concrete type fails with BadRequest at rewrite time."
func Rewrite(node Node, fields FieldMap) (Node, error) {
	switch n := node.(type) {
	case MemberAccess:
		mapped, ok := fields[n.Name]
		if !ok {
			return nil, itemerrors.BadRequest("no concrete-type member mapped for \"" + n.Name + "\"")
		}

		return MemberAccess{Name: mapped}, nil
	case Const:
		return n, nil
	case Eq:
		return rewriteBinary(n.Left, n.Right, fields, func(l, r Node) Node { return Eq{l, r} })
	case Neq:
		return rewriteBinary(n.Left, n.Right, fields, func(l, r Node) Node { return Neq{l, r} })
	case Gt:
		return rewriteBinary(n.Left, n.Right, fields, func(l, r Node) Node { return Gt{l, r} })
	case Gte:
		return rewriteBinary(n.Left, n.Right, fields, func(l, r Node) Node { return Gte{l, r} })
	case Lt:
		return rewriteBinary(n.Left, n.Right, fields, func(l, r Node) Node { return Lt{l, r} })
	case Lte:
		return rewriteBinary(n.Left, n.Right, fields, func(l, r Node) Node { return Lte{l, r} })
	case In:
		left, err := Rewrite(n.Left, fields)
		if err != nil {
			return nil, err
		}

		return In{Left: left, Values: n.Values}, nil
	case And:
		return rewriteBinary(n.Left, n.Right, fields, func(l, r Node) Node { return And{l, r} })
	case Or:
		return rewriteBinary(n.Left, n.Right, fields, func(l, r Node) Node { return Or{l, r} })
	case Not:
		operand, err := Rewrite(n.Operand, fields)
		if err != nil {
			return nil, err
		}

		return Not{Operand: operand}, nil
	case nil:
		return nil, nil
	default:
		return nil, itemerrors.BadRequest("unrecognized predicate node")
	}
}

func rewriteBinary(left, right Node, fields FieldMap, build func(l, r Node) Node) (Node, error) {
	l, err := Rewrite(left, fields)
	if err != nil {
		return nil, err
	}

	r, err := Rewrite(right, fields)
	if err != nil {
		return nil, err
	}

	return build(l, r), nil
}

// RewriteOrder rewrites each OrderClause's MemberAccess the same way
// Rewrite does for predicates.
func RewriteOrder(clauses []OrderClause, fields FieldMap) ([]OrderClause, error) {
	out := make([]OrderClause, len(clauses))

	for i, c := range clauses {
		rewritten, err := Rewrite(c.Member, fields)
		if err != nil {
			return nil, err
		}

		out[i] = OrderClause{Member: rewritten.(MemberAccess), Descending: c.Descending}
	}

	return out, nil
}
