package batch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LerianStudio/itemcore/pkg/batch"
	"github.com/LerianStudio/itemcore/pkg/command"
	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/mlog"
	"github.com/LerianStudio/itemcore/pkg/mmodel"
	"github.com/LerianStudio/itemcore/pkg/proxy"
	"github.com/LerianStudio/itemcore/pkg/reqcontext"
	"github.com/LerianStudio/itemcore/pkg/store"
)

type testAccount struct {
	mmodel.BaseItem
	Name string
}

func base(item *testAccount) *mmodel.BaseItem { return &item.BaseItem }

func tracked() []proxy.TrackedProperty[testAccount] {
	return []proxy.TrackedProperty[testAccount]{
		{Name: "Name", Value: func(i *testAccount) any { return i.Name }},
	}
}

func newCreateCmd(id, partitionKey string) *command.SaveCommand[testAccount] {
	item := &testAccount{Name: id}
	item.ID = id
	item.PartitionKey = partitionKey

	return command.NewCreate(item, "account", base, tracked(), nil, nil, &mlog.NoneLogger{})
}

func TestBatchCommand_AddRejectsFinalizedCommand(t *testing.T) {
	saveFn := func(_ context.Context, _ string, reqs []store.SaveRequest[testAccount]) ([]store.BatchRowResult[testAccount], error) {
		out := make([]store.BatchRowResult[testAccount], len(reqs))
		for i, r := range reqs {
			out[i] = store.BatchRowResult[testAccount]{Status: store.StatusOK, Item: r.Item}
		}
		return out, nil
	}

	cmd := command.NewCreate(&testAccount{Name: "a"}, "account", base, tracked(), nil, func(_ context.Context, req store.SaveRequest[testAccount]) (*testAccount, error) {
		return req.Item, nil
	}, &mlog.NoneLogger{})

	_, err := cmd.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)

	b := batch.New[testAccount](saveFn, &mlog.NoneLogger{})
	_, err = b.Add(cmd)
	assert.ErrorIs(t, err, itemerrors.ErrAlreadySaved)
}

func TestBatchCommand_SaveDispatchesOneAtomicCall(t *testing.T) {
	var dispatched []store.SaveRequest[testAccount]

	saveFn := func(_ context.Context, partitionKey string, reqs []store.SaveRequest[testAccount]) ([]store.BatchRowResult[testAccount], error) {
		dispatched = reqs
		out := make([]store.BatchRowResult[testAccount], len(reqs))
		for i, r := range reqs {
			stored := *r.Item
			stored.ETag = "etag"
			out[i] = store.BatchRowResult[testAccount]{Status: store.StatusOK, Item: &stored}
		}
		return out, nil
	}

	b := batch.New[testAccount](saveFn, &mlog.NoneLogger{})

	cmd1 := newCreateCmd("1", "tenant")
	cmd2 := newCreateCmd("2", "tenant")

	_, err := b.Add(cmd1)
	require.NoError(t, err)
	_, err = b.Add(cmd2)
	require.NoError(t, err)

	results, err := b.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, store.StatusOK, results[0].Status)
	assert.Equal(t, store.StatusOK, results[1].Status)
	assert.True(t, results[0].Result.Item().IsReadOnly())
	require.Len(t, dispatched, 2)
}

func TestBatchCommand_PartitionKeyMismatchRejectsWithoutDispatch(t *testing.T) {
	called := false
	saveFn := func(_ context.Context, _ string, reqs []store.SaveRequest[testAccount]) ([]store.BatchRowResult[testAccount], error) {
		called = true
		return nil, nil
	}

	b := batch.New[testAccount](saveFn, &mlog.NoneLogger{})

	_, err := b.Add(newCreateCmd("1", "tenant-a"))
	require.NoError(t, err)
	_, err = b.Add(newCreateCmd("2", "tenant-b"))
	require.NoError(t, err)

	_, err = b.Save(context.Background(), reqcontext.RequestContext{})
	assert.ErrorIs(t, err, itemerrors.ErrBadRequest)
	assert.False(t, called)
}

func TestBatchCommand_ValidationFailureAggregatesPerRowFieldNames(t *testing.T) {
	saveFn := func(_ context.Context, _ string, reqs []store.SaveRequest[testAccount]) ([]store.BatchRowResult[testAccount], error) {
		t.Fatal("saveFn must not be called when validation fails")
		return nil, nil
	}

	validator := func(i *testAccount) command.ValidationResult {
		if i.Name == "" {
			return command.ValidationResult{Valid: false, Fields: itemerrors.FieldMessages{"Name": {"required"}}}
		}
		return command.ValidationResult{Valid: true}
	}

	item := &testAccount{Name: ""}
	item.PartitionKey = "tenant"
	cmd := command.NewCreate(item, "account", base, tracked(), validator, nil, &mlog.NoneLogger{})

	b := batch.New[testAccount](saveFn, &mlog.NoneLogger{})
	_, err := b.Add(cmd)
	require.NoError(t, err)

	_, err = b.Save(context.Background(), reqcontext.RequestContext{})
	var coreErr *itemerrors.CoreError
	require.ErrorAs(t, err, &coreErr)
	assert.Contains(t, coreErr.Fields, "rows[0].Name")
}

func TestBatchCommand_PartialFailureReportsFailedDependencyForSiblings(t *testing.T) {
	saveFn := func(_ context.Context, _ string, reqs []store.SaveRequest[testAccount]) ([]store.BatchRowResult[testAccount], error) {
		out := make([]store.BatchRowResult[testAccount], len(reqs))
		out[0] = store.BatchRowResult[testAccount]{Status: store.StatusOK, Item: reqs[0].Item}
		out[1] = store.BatchRowResult[testAccount]{Status: store.StatusConflict}
		return out, nil
	}

	b := batch.New[testAccount](saveFn, &mlog.NoneLogger{})
	_, err := b.Add(newCreateCmd("1", "tenant"))
	require.NoError(t, err)
	_, err = b.Add(newCreateCmd("2", "tenant"))
	require.NoError(t, err)

	results, err := b.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, store.StatusFailedDependency, results[0].Status, "a row the backend actually committed OK still reports FailedDependency when a sibling fails, since SaveBatch as a whole rejected the batch")
	assert.Equal(t, store.StatusConflict, results[1].Status)
}

func TestBatchCommand_SaveWithNoRowsIsNoop(t *testing.T) {
	saveFn := func(_ context.Context, _ string, reqs []store.SaveRequest[testAccount]) ([]store.BatchRowResult[testAccount], error) {
		t.Fatal("saveFn must not be called for an empty batch")
		return nil, nil
	}

	b := batch.New[testAccount](saveFn, &mlog.NoneLogger{})
	results, err := b.Save(context.Background(), reqcontext.RequestContext{})
	assert.NoError(t, err)
	assert.Nil(t, results)
}

func TestBatchCommand_SaveFailsOnCancelledContext(t *testing.T) {
	saveFn := func(_ context.Context, _ string, reqs []store.SaveRequest[testAccount]) ([]store.BatchRowResult[testAccount], error) {
		t.Fatal("saveFn must not be called on an already-cancelled context")
		return nil, nil
	}

	b := batch.New[testAccount](saveFn, &mlog.NoneLogger{})
	_, err := b.Add(newCreateCmd("1", "tenant"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = b.Save(ctx, reqcontext.RequestContext{})
	assert.ErrorIs(t, err, itemerrors.ErrCancelled)
}
