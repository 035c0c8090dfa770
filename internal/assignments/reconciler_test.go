package assignments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maisoncleo/atelier-tracker/internal/aws/dynamotest"
	"github.com/maisoncleo/atelier-tracker/internal/logging"
	"github.com/maisoncleo/atelier-tracker/internal/orders"
	"github.com/maisoncleo/atelier-tracker/internal/production"
)

type fixture struct {
	db         *dynamotest.Fake
	items      *orders.ItemStore
	dispatcher *production.Dispatcher
	r          *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dynamotest.New()
	db.CreateTable("order_items", "order_id", "line_item_id")
	db.CreateTable("production_status", "order_id", "line_item_id")
	db.CreateTable("assignments", "article_id", "")
	items := orders.NewItemStore(db, "order_items")
	d := production.NewDispatcher(production.NewStore(db, "production_status"), items, logging.Discard())
	return &fixture{
		db:         db,
		items:      items,
		dispatcher: d,
		r:          NewReconciler(NewStore(db, "assignments"), d, logging.Discard()),
	}
}

func (f *fixture) dispatch(t *testing.T, orderID, lineItemID int64, name string) production.Key {
	t.Helper()
	_, err := f.dispatcher.Dispatch(context.Background(), orderID, lineItemID, name)
	require.NoError(t, err)
	return production.Key{OrderID: orderID, LineItemID: lineItemID}
}

// assertConsistent checks that an assignment exists exactly for non a_faire items.
func (f *fixture) assertConsistent(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	statuses, err := f.dispatcher.Statuses().List(ctx)
	require.NoError(t, err)
	for _, st := range statuses {
		a, err := f.r.Assignments().Get(ctx, st.Key())
		require.NoError(t, err)
		if st.Status == production.Todo {
			assert.Nil(t, a, "a_faire item %s keeps an assignment", st.Key())
		} else if assert.NotNil(t, a, "item %s in %s has no assignment", st.Key(), st.Status) {
			assert.Equal(t, st.Status, a.Status)
		}
	}
}

func TestResolveArticle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.dispatch(t, 1001, 7, "Robe")
	f.dispatch(t, 1002, 8, "Robe")
	f.dispatch(t, 1003, 8, "Jupe")

	key, err := f.r.Resolve(ctx, "1001_7")
	require.NoError(t, err)
	assert.Equal(t, production.Key{OrderID: 1001, LineItemID: 7}, key)

	key, err = f.r.Resolve(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, production.Key{OrderID: 1001, LineItemID: 7}, key)

	_, err = f.r.Resolve(ctx, "8")
	assert.ErrorIs(t, err, ErrAmbiguousArticle)

	_, err = f.r.Resolve(ctx, "99")
	assert.ErrorIs(t, err, ErrArticleNotFound)

	for _, raw := range []string{"", "abc", "1_x", "1_2_3", "0_4"} {
		_, err = f.r.Resolve(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidArticle, raw)
	}
}

func TestAssign_MirrorsOntoProduction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.dispatch(t, 1001, 1, "Gilet tricoté")

	a, err := f.r.Assign(ctx, AssignRequest{Key: key, TricoteuseID: "w-1", TricoteuseName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "1001_1", a.ArticleID)
	assert.Equal(t, production.InProgress, a.Status)
	assert.NotEmpty(t, a.ID)

	st, err := f.dispatcher.Statuses().Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, production.InProgress, st.Status)
	require.NotNil(t, st.AssignedTo)
	assert.Equal(t, "Alice", *st.AssignedTo)
	assert.Equal(t, production.Maille, st.ProductionType)

	again, err := f.r.Assign(ctx, AssignRequest{Key: key, TricoteuseName: "Bea", Status: production.Paused})
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID, "reassigning keeps the record id")
	assert.Equal(t, 1, f.db.Count("assignments"))
	f.assertConsistent(t)
}

func TestAssign_RejectsTodo(t *testing.T) {
	f := newFixture(t)
	key := f.dispatch(t, 1, 1, "Robe")
	_, err := f.r.Assign(context.Background(), AssignRequest{Key: key, TricoteuseName: "Alice", Status: production.Todo})
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, 0, f.db.Count("assignments"))
}

func TestUnassign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.dispatch(t, 1001, 1, "Robe")

	t.Run("by record id", func(t *testing.T) {
		a, err := f.r.Assign(ctx, AssignRequest{Key: key, TricoteuseName: "Alice"})
		require.NoError(t, err)
		deleted, err := f.r.Unassign(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, deleted)
		f.assertConsistent(t)
	})

	t.Run("repairs status without an assignment", func(t *testing.T) {
		name := "Ghost"
		_, err := f.dispatcher.Statuses().SetAssignee(ctx, key, production.InProgress, &name, production.Couture)
		require.NoError(t, err)

		deleted, err := f.r.Unassign(ctx, "1001_1")
		require.NoError(t, err)
		assert.False(t, deleted)

		st, err := f.dispatcher.Statuses().Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, production.Todo, st.Status)
		assert.Nil(t, st.AssignedTo)
	})

	t.Run("orphan by bare line item id", func(t *testing.T) {
		orphan := f.dispatch(t, 1002, 7, "Robe")
		_, err := f.r.Assign(ctx, AssignRequest{Key: orphan, TricoteuseName: "Alice"})
		require.NoError(t, err)
		_, err = f.dispatcher.Statuses().Delete(ctx, orphan)
		require.NoError(t, err)

		deleted, err := f.r.Unassign(ctx, "7")
		require.NoError(t, err)
		assert.True(t, deleted)
		a, err := f.r.Assignments().Get(ctx, orphan)
		require.NoError(t, err)
		assert.Nil(t, a)

		_, err = f.r.Unassign(ctx, "7")
		assert.ErrorIs(t, err, ErrArticleNotFound)
	})

	t.Run("unknown record id", func(t *testing.T) {
		_, err := f.r.Unassign(ctx, "6f1c1f7e-7d55-4d8e-9d36-1d9b0c1e2a11")
		assert.ErrorIs(t, err, ErrArticleNotFound)
	})
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.dispatch(t, 1001, 1, "Robe")

	_, err := f.r.SetStatus(ctx, production.Key{OrderID: 9, LineItemID: 9}, production.Done, nil, nil)
	assert.ErrorIs(t, err, production.ErrNotFound)
	assert.Equal(t, 0, f.db.Count("assignments"))

	_, err = f.r.SetStatus(ctx, key, production.InProgress, nil, nil)
	require.NoError(t, err)
	a, err := f.r.Assignments().Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, a, "a non a_faire status creates the assignment")
	assert.Equal(t, production.InProgress, a.Status)

	_, err = f.r.SetStatus(ctx, key, production.Done, nil, nil)
	require.NoError(t, err)
	a, err = f.r.Assignments().Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, production.Done, a.Status)

	_, err = f.r.SetStatus(ctx, key, production.Todo, nil, nil)
	require.NoError(t, err)
	a, err = f.r.Assignments().Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, a)

	_, err = f.r.SetStatus(ctx, key, "fini", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	f.assertConsistent(t)
}

func TestReconcile_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	k1 := f.dispatch(t, 1, 1, "Robe")
	k2 := f.dispatch(t, 1, 2, "Robe")
	k3 := f.dispatch(t, 1, 3, "Robe")
	store := f.r.Assignments()

	// drifted: production moved on without the assignment
	_, err := f.r.Assign(ctx, AssignRequest{Key: k1, TricoteuseName: "Alice"})
	require.NoError(t, err)
	_, err = f.dispatcher.Statuses().SetState(ctx, k1, production.Done, nil, nil)
	require.NoError(t, err)
	// stale: production went back to a_faire
	_, err = f.r.Assign(ctx, AssignRequest{Key: k2, TricoteuseName: "Bea"})
	require.NoError(t, err)
	_, err = f.dispatcher.Statuses().SetState(ctx, k2, production.Todo, nil, nil)
	require.NoError(t, err)
	// orphan: no production status at all
	_, err = store.Upsert(ctx, Assignment{OrderID: 77, LineItemID: 1, TricoteuseName: "Cleo", Status: production.InProgress})
	require.NoError(t, err)
	// consistent
	_, err = f.r.Assign(ctx, AssignRequest{Key: k3, TricoteuseName: "Dora", Status: production.Paused})
	require.NoError(t, err)

	res, err := f.r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{SyncedCount: 1, RemovedCount: 2}, res)
	f.assertConsistent(t)

	res, err = f.r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{}, res)
}

func TestResetAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	k1 := f.dispatch(t, 1, 1, "Robe")
	k2 := f.dispatch(t, 1, 2, "Pull tricoté")
	f.dispatch(t, 2, 1, "Jupe")
	_, err := f.r.Assign(ctx, AssignRequest{Key: k1, TricoteuseName: "Alice"})
	require.NoError(t, err)
	_, err = f.r.Assign(ctx, AssignRequest{Key: k2, TricoteuseName: "Bea", Status: production.Done})
	require.NoError(t, err)

	res, err := f.r.ResetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ProductionModifiedCount)
	assert.Equal(t, 2, res.AssignmentsDeletedCount)
	assert.Equal(t, map[string]int{production.Todo: 3}, res.StatusCounts)
	assert.Equal(t, 0, res.RemainingAssignments)
	f.assertConsistent(t)
}

// Walks one item through the whole workflow across both write paths.
func TestWorkflow_KeepsBothSidesConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.items.Insert(ctx, orders.Item{OrderID: 1001, LineItemID: 1, ProductName: "Gilet tricoté main", Quantity: 1})
	require.NoError(t, err)
	n, err := f.dispatcher.SweepUndispatched(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	key := production.Key{OrderID: 1001, LineItemID: 1}

	steps := []func() error{
		func() error { _, err := f.r.Assign(ctx, AssignRequest{Key: key, TricoteuseName: "Alice"}); return err },
		func() error { _, err := f.r.SetStatus(ctx, key, production.Paused, nil, nil); return err },
		func() error { _, err := f.r.SetStatus(ctx, key, production.Done, nil, nil); return err },
		func() error { _, err := f.r.Unassign(ctx, "1"); return err },
		func() error { _, err := f.r.Assign(ctx, AssignRequest{Key: key, TricoteuseName: "Bea"}); return err },
		func() error { _, err := f.r.SetStatus(ctx, key, production.Todo, nil, nil); return err },
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		f.assertConsistent(t)
	}

	res, err := f.r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{}, res)
}
