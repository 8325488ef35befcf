package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/LerianStudio/itemcore/pkg/expr"
	"github.com/LerianStudio/itemcore/pkg/itemerrors"
)

var testFields = map[string]string{
	"Name":    "data.name",
	"Balance": "data.balance",
}

func TestTranslatePredicate_NilIsEmptyFilter(t *testing.T) {
	filter, err := translatePredicate(nil, testFields)
	require.NoError(t, err)
	assert.Equal(t, bson.M{}, filter)
}

func TestTranslatePredicate_SimpleComparison(t *testing.T) {
	node := expr.Eq{Left: expr.MemberAccess{Name: "Name"}, Right: expr.Const{Value: "alice"}}

	filter, err := translatePredicate(node, testFields)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"data.name": bson.M{"$eq": "alice"}}, filter)
}

func TestTranslatePredicate_AndProducesBothClauses(t *testing.T) {
	node := expr.And{
		Left:  expr.Eq{Left: expr.MemberAccess{Name: "Name"}, Right: expr.Const{Value: "alice"}},
		Right: expr.Gt{Left: expr.MemberAccess{Name: "Balance"}, Right: expr.Const{Value: 10}},
	}

	filter, err := translatePredicate(node, testFields)
	require.NoError(t, err)

	expected := bson.M{"$and": bson.A{
		bson.M{"data.name": bson.M{"$eq": "alice"}},
		bson.M{"data.balance": bson.M{"$gt": 10}},
	}}
	assert.Equal(t, expected, filter)
}

func TestTranslatePredicate_NotWrapsInNor(t *testing.T) {
	node := expr.Not{Operand: expr.Eq{Left: expr.MemberAccess{Name: "Name"}, Right: expr.Const{Value: "alice"}}}

	filter, err := translatePredicate(node, testFields)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$nor": bson.A{bson.M{"data.name": bson.M{"$eq": "alice"}}}}, filter)
}

func TestTranslatePredicate_MemberVsMemberRejected(t *testing.T) {
	node := expr.Eq{Left: expr.MemberAccess{Name: "Name"}, Right: expr.MemberAccess{Name: "Balance"}}

	_, err := translatePredicate(node, testFields)
	assert.ErrorIs(t, err, itemerrors.ErrBadRequest)
}

func TestTranslatePredicate_UnregisteredFieldFails(t *testing.T) {
	node := expr.Eq{Left: expr.MemberAccess{Name: "Ghost"}, Right: expr.Const{Value: 1}}

	_, err := translatePredicate(node, testFields)
	assert.ErrorIs(t, err, itemerrors.ErrBadRequest)
}

func TestTranslatePredicate_InBuildsInOperator(t *testing.T) {
	node := expr.In{Left: expr.MemberAccess{Name: "Name"}, Values: []any{"a", "b"}}

	filter, err := translatePredicate(node, testFields)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"data.name": bson.M{"$in": []any{"a", "b"}}}, filter)
}

func TestTranslatePredicate_InUnregisteredFieldFails(t *testing.T) {
	node := expr.In{Left: expr.MemberAccess{Name: "Ghost"}, Values: []any{1}}

	_, err := translatePredicate(node, testFields)
	assert.ErrorIs(t, err, itemerrors.ErrBadRequest)
}

func TestTranslateOrder_BuildsSortDocument(t *testing.T) {
	clauses := []expr.OrderClause{
		{Member: expr.MemberAccess{Name: "Balance"}, Descending: true},
		{Member: expr.MemberAccess{Name: "Name"}, Descending: false},
	}

	sort, err := translateOrder(clauses, testFields)
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "data.balance", Value: -1}, {Key: "data.name", Value: 1}}, sort)
}
