package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LerianStudio/itemcore/pkg/expr"
	"github.com/LerianStudio/itemcore/pkg/itemerrors"
)

var fields = expr.FieldMap{
	"Name":    "name",
	"Balance": "balance",
}

func TestRewrite_MemberAccess(t *testing.T) {
	node, err := expr.Rewrite(expr.MemberAccess{Name: "Name"}, fields)
	require.NoError(t, err)
	assert.Equal(t, expr.MemberAccess{Name: "name"}, node)
}

func TestRewrite_UnmappedMemberFailsWithBadRequest(t *testing.T) {
	_, err := expr.Rewrite(expr.MemberAccess{Name: "Ghost"}, fields)
	require.Error(t, err)
	assert.ErrorIs(t, err, itemerrors.ErrBadRequest)
}

func TestRewrite_BinaryAndNestedCombinators(t *testing.T) {
	predicate := expr.And{
		Left: expr.Eq{Left: expr.Field[any]("Name"), Right: expr.Const{Value: "alice"}},
		Right: expr.Not{Operand: expr.Gt{
			Left:  expr.Field[any]("Balance"),
			Right: expr.Const{Value: 100},
		}},
	}

	rewritten, err := expr.Rewrite(predicate, fields)
	require.NoError(t, err)

	and, ok := rewritten.(expr.And)
	require.True(t, ok)

	eq, ok := and.Left.(expr.Eq)
	require.True(t, ok)
	assert.Equal(t, expr.MemberAccess{Name: "name"}, eq.Left)

	not, ok := and.Right.(expr.Not)
	require.True(t, ok)

	gt, ok := not.Operand.(expr.Gt)
	require.True(t, ok)
	assert.Equal(t, expr.MemberAccess{Name: "balance"}, gt.Left)
}

func TestRewrite_UnmappedMemberDeepInTreeStillFails(t *testing.T) {
	predicate := expr.Or{
		Left:  expr.Eq{Left: expr.Field[any]("Name"), Right: expr.Const{Value: "a"}},
		Right: expr.Eq{Left: expr.Field[any]("Ghost"), Right: expr.Const{Value: "b"}},
	}

	_, err := expr.Rewrite(predicate, fields)
	assert.ErrorIs(t, err, itemerrors.ErrBadRequest)
}

func TestRewrite_NilNodeIsNoop(t *testing.T) {
	node, err := expr.Rewrite(nil, fields)
	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestRewriteOrder_RewritesEachClause(t *testing.T) {
	clauses := []expr.OrderClause{
		{Member: expr.Field[any]("Balance"), Descending: true},
		{Member: expr.Field[any]("Name"), Descending: false},
	}

	rewritten, err := expr.RewriteOrder(clauses, fields)
	require.NoError(t, err)
	require.Len(t, rewritten, 2)
	assert.Equal(t, "balance", rewritten[0].Member.Name)
	assert.True(t, rewritten[0].Descending)
	assert.Equal(t, "name", rewritten[1].Member.Name)
	assert.False(t, rewritten[1].Descending)
}

func TestRewrite_InRewritesLeftAndKeepsValues(t *testing.T) {
	node, err := expr.Rewrite(expr.In{Left: expr.Field[any]("Name"), Values: []any{"a", "b"}}, fields)
	require.NoError(t, err)

	in, ok := node.(expr.In)
	require.True(t, ok)
	assert.Equal(t, expr.MemberAccess{Name: "name"}, in.Left)
	assert.Equal(t, []any{"a", "b"}, in.Values)
}

func TestRewrite_InUnmappedMemberFails(t *testing.T) {
	_, err := expr.Rewrite(expr.In{Left: expr.Field[any]("Ghost"), Values: []any{1}}, fields)
	assert.ErrorIs(t, err, itemerrors.ErrBadRequest)
}

func TestAnd2_FoldsLeftToRight(t *testing.T) {
	a := expr.Eq{Left: expr.Field[any]("Name"), Right: expr.Const{Value: "a"}}
	b := expr.Eq{Left: expr.Field[any]("Balance"), Right: expr.Const{Value: 1}}
	c := expr.Eq{Left: expr.Field[any]("Name"), Right: expr.Const{Value: "c"}}

	folded := expr.And2(a, b, c)

	outer, ok := folded.(expr.And)
	require.True(t, ok)
	assert.Equal(t, c, outer.Right)

	inner, ok := outer.Left.(expr.And)
	require.True(t, ok)
	assert.Equal(t, a, inner.Left)
	assert.Equal(t, b, inner.Right)
}
