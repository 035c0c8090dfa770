package production

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maisoncleo/atelier-tracker/internal/aws/dynamotest"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db := dynamotest.New()
	db.CreateTable("production_status", "order_id", "line_item_id")
	return NewStore(db, "production_status")
}

func TestSetState(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	key := Key{OrderID: 1, LineItemID: 2}

	_, err := s.SetState(ctx, key, Done, nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	bob := "Bob"
	_, err = s.Insert(ctx, Status{OrderID: 1, LineItemID: 2, Status: InProgress, ProductionType: Couture, AssignedTo: &bob})
	require.NoError(t, err)

	note := "ourlet à reprendre"
	urgent := true
	st, err := s.SetState(ctx, key, Paused, &note, &urgent)
	require.NoError(t, err)
	assert.Equal(t, Paused, st.Status)
	require.NotNil(t, st.Notes)
	assert.Equal(t, note, *st.Notes)
	assert.True(t, st.Urgent)
	require.NotNil(t, st.AssignedTo)

	st, err = s.SetState(ctx, key, Todo, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, st.Notes)
	assert.Nil(t, st.AssignedTo)
	assert.True(t, st.Urgent, "urgent is untouched when not provided")
}

func TestResetAll(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	alice := "Alice"
	note := "x"
	_, _ = s.Insert(ctx, Status{OrderID: 1, LineItemID: 1, Status: InProgress, ProductionType: Maille, AssignedTo: &alice, Notes: &note})
	_, _ = s.Insert(ctx, Status{OrderID: 1, LineItemID: 2, Status: Done, ProductionType: Couture})
	_, _ = s.Insert(ctx, Status{OrderID: 2, LineItemID: 3, Status: Todo, ProductionType: Couture})

	modified, counts, err := s.ResetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, modified)
	assert.Equal(t, map[string]int{Todo: 3}, counts)

	all, err := s.List(ctx)
	require.NoError(t, err)
	for _, st := range all {
		assert.Nil(t, st.AssignedTo)
		assert.Nil(t, st.Notes)
		assert.Equal(t, Todo, st.Status)
	}
	assert.Equal(t, Maille, all[0].ProductionType, "queue survives a reset")
}

func TestListByLineItemAndDeleteByOrder(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, _ = s.Insert(ctx, Status{OrderID: 1, LineItemID: 7, Status: Todo, ProductionType: Couture})
	_, _ = s.Insert(ctx, Status{OrderID: 2, LineItemID: 7, Status: Todo, ProductionType: Couture})
	_, _ = s.Insert(ctx, Status{OrderID: 2, LineItemID: 8, Status: Todo, ProductionType: Couture})

	same, err := s.ListByLineItem(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, same, 2)

	n, err := s.DeleteByOrder(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, int64(1), left[0].OrderID)
}
