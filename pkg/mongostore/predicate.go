package mongostore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/LerianStudio/itemcore/pkg/expr"
	"github.com/LerianStudio/itemcore/pkg/itemerrors"
)

// translatePredicate compiles a rewritten expression tree (spec §4.5)
// into a bson filter document, mongostore's adapter-specific visitor
// (spec §9). fields maps a concrete field name to its dotted BSON path
// under the document's "data" sub-document.
func translatePredicate(node expr.Node, fields map[string]string) (bson.M, error) {
	if node == nil {
		return bson.M{}, nil
	}

	switch n := node.(type) {
	case expr.And:
		l, err := translatePredicate(n.Left, fields)
		if err != nil {
			return nil, err
		}

		r, err := translatePredicate(n.Right, fields)
		if err != nil {
			return nil, err
		}

		return bson.M{"$and": bson.A{l, r}}, nil
	case expr.Or:
		l, err := translatePredicate(n.Left, fields)
		if err != nil {
			return nil, err
		}

		r, err := translatePredicate(n.Right, fields)
		if err != nil {
			return nil, err
		}

		return bson.M{"$or": bson.A{l, r}}, nil
	case expr.Not:
		inner, err := translatePredicate(n.Operand, fields)
		if err != nil {
			return nil, err
		}

		return bson.M{"$nor": bson.A{inner}}, nil
	case expr.Eq:
		return comparison(n.Left, n.Right, "$eq", fields)
	case expr.Neq:
		return comparison(n.Left, n.Right, "$ne", fields)
	case expr.Gt:
		return comparison(n.Left, n.Right, "$gt", fields)
	case expr.Gte:
		return comparison(n.Left, n.Right, "$gte", fields)
	case expr.Lt:
		return comparison(n.Left, n.Right, "$lt", fields)
	case expr.Lte:
		return comparison(n.Left, n.Right, "$lte", fields)
	case expr.In:
		member, ok := n.Left.(expr.MemberAccess)
		if !ok {
			return nil, itemerrors.BadRequest("mongostore: left operand of IN must be a field")
		}

		path, ok := fields[member.Name]
		if !ok {
			return nil, itemerrors.BadRequest(fmt.Sprintf("mongostore: no field registered for %q", member.Name))
		}

		return bson.M{path: bson.M{"$in": n.Values}}, nil
	default:
		return nil, itemerrors.BadRequest("mongostore: unsupported predicate node")
	}
}

// comparison assumes the common "field compared to literal" shape every
// Where clause pkg/query builds (spec §4.5's MemberAccess-vs-Const
// comparisons); a MemberAccess-vs-MemberAccess comparison is not
// representable as a single-field bson filter and is rejected.
func comparison(left, right expr.Node, op string, fields map[string]string) (bson.M, error) {
	member, ok := left.(expr.MemberAccess)
	if !ok {
		return nil, itemerrors.BadRequest("mongostore: left operand of a comparison must be a field")
	}

	lit, ok := right.(expr.Const)
	if !ok {
		return nil, itemerrors.BadRequest("mongostore: right operand of a comparison must be a literal")
	}

	path, ok := fields[member.Name]
	if !ok {
		return nil, itemerrors.BadRequest(fmt.Sprintf("mongostore: no field registered for %q", member.Name))
	}

	return bson.M{path: bson.M{op: lit.Value}}, nil
}

// translateOrder compiles OrderBy/OrderByDescending clauses (spec §4.5)
// into a bson sort document.
func translateOrder(clauses []expr.OrderClause, fields map[string]string) (bson.D, error) {
	sort := make(bson.D, 0, len(clauses))

	for _, c := range clauses {
		path, ok := fields[c.Member.Name]
		if !ok {
			return nil, itemerrors.BadRequest(fmt.Sprintf("mongostore: no field registered for %q", c.Member.Name))
		}

		dir := 1
		if c.Descending {
			dir = -1
		}

		sort = append(sort, bson.E{Key: path, Value: dir})
	}

	return sort, nil
}
