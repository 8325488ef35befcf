package pgstore

import (
	"fmt"
	"strings"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/LerianStudio/itemcore/pkg/expr"
	"github.com/LerianStudio/itemcore/pkg/itemerrors"
)

// translatePredicate compiles a rewritten expression tree (spec §4.5)
// into a squirrel Sqlizer, the pgstore-specific visitor spec §9 asks
// each backend to provide. columns maps a concrete field name to the
// SQL expression that reads it - typically a cast JSON-path expression
// like "(data->>'Balance')::numeric" - set at registration time the
// same way memstore's accessors are (spec §9's explicit-registration
// philosophy).
func translatePredicate(node expr.Node, columns map[string]string) (sqrl.Sqlizer, error) {
	if node == nil {
		return sqrl.Expr("TRUE"), nil
	}

	switch n := node.(type) {
	case expr.And:
		l, err := translatePredicate(n.Left, columns)
		if err != nil {
			return nil, err
		}

		r, err := translatePredicate(n.Right, columns)
		if err != nil {
			return nil, err
		}

		return sqrl.And{l, r}, nil
	case expr.Or:
		l, err := translatePredicate(n.Left, columns)
		if err != nil {
			return nil, err
		}

		r, err := translatePredicate(n.Right, columns)
		if err != nil {
			return nil, err
		}

		return sqrl.Or{l, r}, nil
	case expr.Not:
		inner, err := translatePredicate(n.Operand, columns)
		if err != nil {
			return nil, err
		}

		sql, args, err := inner.ToSql()
		if err != nil {
			return nil, itemerrors.Internal(err)
		}

		return sqrl.Expr("NOT ("+sql+")", args...), nil
	case expr.Eq:
		return binaryOp(n.Left, n.Right, "=", columns)
	case expr.Neq:
		return binaryOp(n.Left, n.Right, "<>", columns)
	case expr.Gt:
		return binaryOp(n.Left, n.Right, ">", columns)
	case expr.Gte:
		return binaryOp(n.Left, n.Right, ">=", columns)
	case expr.Lt:
		return binaryOp(n.Left, n.Right, "<", columns)
	case expr.Lte:
		return binaryOp(n.Left, n.Right, "<=", columns)
	case expr.In:
		return translateIn(n, columns)
	default:
		return nil, itemerrors.BadRequest("pgstore: unsupported predicate node")
	}
}

// translateIn compiles expr.In into "<col> = ANY(?)" with the value set
// passed as a single pq.Array argument, avoiding a variable-length
// "IN (?, ?, ...)" term for an unbounded Values slice.
func translateIn(n expr.In, columns map[string]string) (sqrl.Sqlizer, error) {
	member, ok := n.Left.(expr.MemberAccess)
	if !ok {
		return nil, itemerrors.BadRequest("pgstore: left operand of IN must be a field")
	}

	col, ok := columns[member.Name]
	if !ok {
		return nil, itemerrors.BadRequest(fmt.Sprintf("pgstore: no column registered for field %q", member.Name))
	}

	return sqrl.Expr(col+" = ANY(?)", pq.Array(n.Values)), nil
}

func binaryOp(left, right expr.Node, op string, columns map[string]string) (sqrl.Sqlizer, error) {
	lSQL, lArgs, err := operand(left, columns)
	if err != nil {
		return nil, err
	}

	rSQL, rArgs, err := operand(right, columns)
	if err != nil {
		return nil, err
	}

	return sqrl.Expr(fmt.Sprintf("%s %s %s", lSQL, op, rSQL), append(lArgs, rArgs...)...), nil
}

func operand(node expr.Node, columns map[string]string) (string, []any, error) {
	switch n := node.(type) {
	case expr.MemberAccess:
		col, ok := columns[n.Name]
		if !ok {
			return "", nil, itemerrors.BadRequest(fmt.Sprintf("pgstore: no column registered for field %q", n.Name))
		}

		return col, nil, nil
	case expr.Const:
		return "?", []any{n.Value}, nil
	default:
		return "", nil, itemerrors.BadRequest("pgstore: expected a member or a constant")
	}
}

// translateOrder compiles OrderBy/OrderByDescending clauses (spec §4.5)
// into "<expr> ASC|DESC" terms for squirrel's OrderBy.
func translateOrder(clauses []expr.OrderClause, columns map[string]string) ([]string, error) {
	terms := make([]string, 0, len(clauses))

	for _, c := range clauses {
		col, ok := columns[c.Member.Name]
		if !ok {
			return nil, itemerrors.BadRequest(fmt.Sprintf("pgstore: no column registered for field %q", c.Member.Name))
		}

		dir := "ASC"
		if c.Descending {
			dir = "DESC"
		}

		terms = append(terms, strings.TrimSpace(col)+" "+dir)
	}

	return terms, nil
}
