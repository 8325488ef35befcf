package provider_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LerianStudio/itemcore/pkg/expr"
	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/memstore"
	"github.com/LerianStudio/itemcore/pkg/mmodel"
	"github.com/LerianStudio/itemcore/pkg/provider"
	"github.com/LerianStudio/itemcore/pkg/proxy"
	"github.com/LerianStudio/itemcore/pkg/reqcontext"
	"github.com/LerianStudio/itemcore/pkg/store"
)

type testAccount struct {
	mmodel.BaseItem
	Name    string
	Balance int
}

func base(item *testAccount) *mmodel.BaseItem { return &item.BaseItem }

func tracked() []proxy.TrackedProperty[testAccount] {
	return []proxy.TrackedProperty[testAccount]{
		{Name: "Name", Value: func(i *testAccount) any { return i.Name }},
	}
}

func accessors() map[string]func(item *testAccount) any {
	return map[string]func(item *testAccount) any{
		"Name":    func(i *testAccount) any { return i.Name },
		"Balance": func(i *testAccount) any { return i.Balance },
	}
}

func newProvider(t *testing.T, ops provider.Operations) (*provider.Provider[testAccount], *memstore.Store[testAccount]) {
	t.Helper()

	adapter := memstore.New[testAccount](base, accessors())

	reg := provider.Registration[testAccount]{
		TypeName:   "account",
		New:        func() *testAccount { return &testAccount{} },
		Base:       base,
		Tracked:    tracked(),
		Fields:     expr.FieldMap{"Name": "Name", "Balance": "Balance"},
		Adapter:    adapter,
		Operations: ops,
	}

	p, err := provider.New(reg)
	require.NoError(t, err)

	return p, adapter
}

func TestNew_RejectsInvalidTypeName(t *testing.T) {
	_, err := provider.New(provider.Registration[testAccount]{TypeName: "Account"})
	assert.ErrorIs(t, err, itemerrors.ErrInvalidType)
}

func TestNew_RejectsReservedEventTypeName(t *testing.T) {
	_, err := provider.New(provider.Registration[testAccount]{TypeName: "event"})
	assert.ErrorIs(t, err, itemerrors.ErrInvalidType)
}

func TestProvider_CreateStampsSystemFields(t *testing.T) {
	p, _ := newProvider(t, provider.OpAll)

	cmd := p.Create("1", "tenant")
	assert.Equal(t, "1", cmd.Item().Item().ID)
	assert.Equal(t, "tenant", cmd.Item().Item().PartitionKey)
	assert.Equal(t, "account", cmd.Item().Item().TypeName)
}

func TestProvider_CreateThenSavePersists(t *testing.T) {
	p, _ := newProvider(t, provider.OpAll)

	cmd := p.Create("1", "tenant")
	require.NoError(t, cmd.Item().SetField(func(i *testAccount) { i.Name = "alice" }))

	_, err := cmd.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)

	read, err := p.Read(context.Background(), "1", "tenant")
	require.NoError(t, err)
	require.NotNil(t, read)
	assert.Equal(t, "alice", read.Item().Item().Name)
}

func TestProvider_ReadReturnsNilForMissingItem(t *testing.T) {
	p, _ := newProvider(t, provider.OpAll)

	read, err := p.Read(context.Background(), "ghost", "tenant")
	require.NoError(t, err)
	assert.Nil(t, read)
}

func TestProvider_UpdateFailsWithNotFoundWhenMissing(t *testing.T) {
	p, _ := newProvider(t, provider.OpAll)

	_, err := p.Update(context.Background(), "ghost", "tenant")
	assert.ErrorIs(t, err, itemerrors.ErrNotFound)
}

func TestProvider_UpdateGatedByOperations(t *testing.T) {
	p, _ := newProvider(t, provider.OpDelete)

	cmd := p.Create("1", "tenant")
	_, err := cmd.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)

	_, err = p.Update(context.Background(), "1", "tenant")
	assert.ErrorIs(t, err, itemerrors.ErrNotSupported)
}

func TestProvider_DeleteGatedByOperations(t *testing.T) {
	p, _ := newProvider(t, provider.OpUpdate)

	cmd := p.Create("1", "tenant")
	_, err := cmd.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)

	_, err = p.Delete(context.Background(), "1", "tenant")
	assert.ErrorIs(t, err, itemerrors.ErrNotSupported)
}

func TestProvider_DefaultOperationsDisallowBoth(t *testing.T) {
	p, _ := newProvider(t, 0)

	cmd := p.Create("1", "tenant")
	_, err := cmd.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)

	_, err = p.Update(context.Background(), "1", "tenant")
	assert.ErrorIs(t, err, itemerrors.ErrNotSupported)

	_, err = p.Delete(context.Background(), "1", "tenant")
	assert.ErrorIs(t, err, itemerrors.ErrNotSupported)
}

func TestProvider_UpdateInheritsStoredETag(t *testing.T) {
	p, _ := newProvider(t, provider.OpAll)

	cmd := p.Create("1", "tenant")
	created, err := cmd.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)

	updateCmd, err := p.Update(context.Background(), "1", "tenant")
	require.NoError(t, err)

	assert.Equal(t, created.Item().Item().ETag, updateCmd.Item().Item().ETag)
}

func TestProvider_QueryResultConvertsToGatedSaveCommand(t *testing.T) {
	p, _ := newProvider(t, provider.OpUpdate)

	cmd := p.Create("1", "tenant")
	require.NoError(t, cmd.Item().SetField(func(i *testAccount) { i.Name = "alice" }))
	_, err := cmd.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)

	seq, err := p.Query().Where(expr.Eq{Left: expr.Field[any]("Name"), Right: expr.Const{Value: "alice"}}).ToAsyncSequence(context.Background())
	require.NoError(t, err)

	qr, err := seq.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, qr)

	_, err = qr.Update()
	assert.NoError(t, err)
}

func TestProvider_QueryResultDeleteGatedByOperations(t *testing.T) {
	p, _ := newProvider(t, provider.OpUpdate)

	cmd := p.Create("1", "tenant")
	require.NoError(t, cmd.Item().SetField(func(i *testAccount) { i.Name = "alice" }))
	_, err := cmd.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)

	seq, err := p.Query().Where(expr.Eq{Left: expr.Field[any]("Name"), Right: expr.Const{Value: "alice"}}).ToAsyncSequence(context.Background())
	require.NoError(t, err)

	qr, err := seq.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, qr)

	_, err = qr.Delete()
	assert.ErrorIs(t, err, itemerrors.ErrNotSupported)
}

func TestProvider_BatchReturnsBoundCommand(t *testing.T) {
	p, _ := newProvider(t, provider.OpAll)
	b := p.Batch()
	require.NotNil(t, b)

	cmd := p.Create("1", "tenant")
	_, err := b.Add(cmd)
	require.NoError(t, err)

	results, err := b.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, store.StatusOK, results[0].Status)
}

func TestProvider_ReadFailsImmediatelyOnCancelledContext(t *testing.T) {
	p, _ := newProvider(t, provider.OpAll)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Read(ctx, "1", "tenant")
	assert.ErrorIs(t, err, itemerrors.ErrCancelled)
}
