package command_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	Name    string
	Balance int
}

func base(item *testAccount) *mmodel.BaseItem { return &item.BaseItem }

func tracked() []proxy.TrackedProperty[testAccount] {
	return []proxy.TrackedProperty[testAccount]{
		{Name: "Name", Value: func(i *testAccount) any { return i.Name }},
		{Name: "Balance", Value: func(i *testAccount) any { return i.Balance }},
	}
}

type fakeAdapter struct {
	saveCalls []store.SaveRequest[testAccount]
	saveErr   error
}

func (f *fakeAdapter) save(_ context.Context, req store.SaveRequest[testAccount]) (*testAccount, error) {
	f.saveCalls = append(f.saveCalls, req)
	if f.saveErr != nil {
		return nil, f.saveErr
	}

	stored := *req.Item
	stored.ETag = "stored-etag"

	return &stored, nil
}

func TestSaveCommand_CreateSaveFinalizes(t *testing.T) {
	item := &testAccount{Name: "alice", Balance: 10}
	adapter := &fakeAdapter{}

	cmd := command.NewCreate(item, "account", base, tracked(), nil, adapter.save, &mlog.NoneLogger{})

	result, err := cmd.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Item().IsReadOnly())
	assert.Equal(t, "stored-etag", result.Item().Item().ETag)
	require.Len(t, adapter.saveCalls, 1)
	assert.Equal(t, store.ActionCreate, adapter.saveCalls[0].Action)
	assert.Equal(t, mmodel.SaveActionCreated, adapter.saveCalls[0].Event.SaveAction)
}

func TestSaveCommand_CreateEventHasAllNilOldChanges(t *testing.T) {
	item := &testAccount{Name: "alice", Balance: 10}
	adapter := &fakeAdapter{}

	cmd := command.NewCreate(item, "account", base, tracked(), nil, adapter.save, &mlog.NoneLogger{})

	_, err := cmd.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)

	changes := adapter.saveCalls[0].Event.Changes
	require.Len(t, changes, 2)
	for _, c := range changes {
		assert.Nil(t, c.OldValue)
	}
}

func TestSaveCommand_SecondSaveFailsWithAlreadySaved(t *testing.T) {
	item := &testAccount{Name: "alice"}
	adapter := &fakeAdapter{}

	cmd := command.NewCreate(item, "account", base, tracked(), nil, adapter.save, &mlog.NoneLogger{})

	_, err := cmd.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)

	_, err = cmd.Save(context.Background(), reqcontext.RequestContext{})
	assert.ErrorIs(t, err, itemerrors.ErrAlreadySaved)
}

func TestSaveCommand_ValidationFailurePreventsAdapterCall(t *testing.T) {
	item := &testAccount{Name: ""}
	adapter := &fakeAdapter{}

	validator := func(i *testAccount) command.ValidationResult {
		if i.Name == "" {
			return command.ValidationResult{Valid: false, Fields: itemerrors.FieldMessages{"Name": {"required"}}}
		}
		return command.ValidationResult{Valid: true}
	}

	cmd := command.NewCreate(item, "account", base, tracked(), validator, adapter.save, &mlog.NoneLogger{})

	_, err := cmd.Save(context.Background(), reqcontext.RequestContext{})
	assert.ErrorIs(t, err, itemerrors.ErrValidation)
	assert.Empty(t, adapter.saveCalls)
}

func TestSaveCommand_AdapterFailureReleasesLockWithoutFinalizing(t *testing.T) {
	item := &testAccount{Name: "alice"}
	adapter := &fakeAdapter{saveErr: itemerrors.Conflict("dup")}

	cmd := command.NewCreate(item, "account", base, tracked(), nil, adapter.save, &mlog.NoneLogger{})

	_, err := cmd.Save(context.Background(), reqcontext.RequestContext{})
	assert.ErrorIs(t, err, itemerrors.ErrConflict)
	assert.False(t, cmd.Finalized())

	require.NoError(t, cmd.Acquire())
	cmd.Release()
}

func TestSaveCommand_UpdateInheritsStoredETag(t *testing.T) {
	item := &testAccount{Name: "alice", Balance: 10}
	item.ETag = "prior-etag"
	adapter := &fakeAdapter{}

	cmd := command.NewMutation(item, store.ActionUpdate, "account", base, tracked(), nil, adapter.save, &mlog.NoneLogger{})

	require.NoError(t, cmd.Item().SetField(func(i *testAccount) { i.Balance = 99 }))

	_, err := cmd.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)

	require.Len(t, adapter.saveCalls, 1)
	assert.Equal(t, "prior-etag", adapter.saveCalls[0].Item.ETag, "the item handed to the adapter must still carry the caller's expected/prior ETag")
	assert.Equal(t, mmodel.SaveActionUpdated, adapter.saveCalls[0].Event.SaveAction)
}

func TestSaveCommand_DeleteStampsTombstoneAndOmitsChanges(t *testing.T) {
	item := &testAccount{Name: "alice", Balance: 10}
	item.ETag = "prior-etag"
	adapter := &fakeAdapter{}

	cmd := command.NewMutation(item, store.ActionDelete, "account", base, tracked(), nil, adapter.save, &mlog.NoneLogger{})

	_, err := cmd.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)

	req := adapter.saveCalls[0]
	assert.True(t, *req.Item.IsDeleted)
	assert.NotNil(t, req.Item.DeletedDate)
	assert.Empty(t, req.Event.Changes, "DELETE never computes property changes")
	assert.Equal(t, mmodel.SaveActionDeleted, req.Event.SaveAction)
}

func TestSaveCommand_SaveFailsImmediatelyOnCancelledContext(t *testing.T) {
	item := &testAccount{Name: "alice"}
	adapter := &fakeAdapter{}
	cmd := command.NewCreate(item, "account", base, tracked(), nil, adapter.save, &mlog.NoneLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cmd.Save(ctx, reqcontext.RequestContext{})
	assert.ErrorIs(t, err, itemerrors.ErrCancelled)
	assert.Empty(t, adapter.saveCalls)
}

func TestSaveCommand_RequestContextCopiedIntoEvent(t *testing.T) {
	item := &testAccount{Name: "alice"}
	adapter := &fakeAdapter{}
	cmd := command.NewCreate(item, "account", base, tracked(), nil, adapter.save, &mlog.NoneLogger{})

	traceID := "trace-123"
	_, err := cmd.Save(context.Background(), reqcontext.RequestContext{HTTPTraceIdentifier: &traceID})
	require.NoError(t, err)

	assert.Equal(t, &traceID, adapter.saveCalls[0].Event.Context.HTTPTraceIdentifier)
}

func TestSaveCommand_PartitionKeyAndAction(t *testing.T) {
	item := &testAccount{Name: "alice"}
	item.PartitionKey = "tenant-1"
	adapter := &fakeAdapter{}

	cmd := command.NewMutation(item, store.ActionUpdate, "account", base, tracked(), nil, adapter.save, &mlog.NoneLogger{})

	assert.Equal(t, "tenant-1", cmd.PartitionKey())
	assert.Equal(t, store.ActionUpdate, cmd.Action())
}

func TestSaveCommand_AcquireFailsAfterFinalize(t *testing.T) {
	item := &testAccount{Name: "alice"}
	adapter := &fakeAdapter{}
	cmd := command.NewCreate(item, "account", base, tracked(), nil, adapter.save, &mlog.NoneLogger{})

	_, err := cmd.Save(context.Background(), reqcontext.RequestContext{})
	require.NoError(t, err)

	err = cmd.Acquire()
	assert.ErrorIs(t, err, itemerrors.ErrAlreadySaved)
}
