package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maisoncleo/atelier-tracker/internal/app"
	"github.com/maisoncleo/atelier-tracker/internal/aws/dynamotest"
	"github.com/maisoncleo/atelier-tracker/internal/config"
	"github.com/maisoncleo/atelier-tracker/internal/logging"
	"github.com/maisoncleo/atelier-tracker/internal/orders"
	"github.com/maisoncleo/atelier-tracker/internal/production"
)

func testApp(t *testing.T) *app.App {
	t.Helper()
	holidays := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(holidays.Close)

	db := dynamotest.New()
	db.CreateTable("orders", "order_id", "")
	db.CreateTable("order_items", "order_id", "line_item_id")
	db.CreateTable("production_status", "order_id", "line_item_id")
	db.CreateTable("assignments", "article_id", "")
	db.CreateTable("delai_config", "id", "")
	db.CreateTable("sync_jobs", "idempotency_key", "")

	cfg := config.Config{
		HolidaysURL: holidays.URL,
		Timezone:    "Europe/Paris",
		Tables: config.Tables{
			Orders: "orders", OrderItems: "order_items", Production: "production_status",
			Assignments: "assignments", DelaiConfig: "delai_config", Jobs: "sync_jobs",
		},
		Sync: config.Sync{JobTTL: time.Hour},
	}
	return app.New(cfg, app.Backends{DynamoDB: db}, logging.Discard())
}

func run(t *testing.T, a *app.App, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cli := newCLI(&out, func(ctx context.Context) (*app.App, error) { return a, nil })
	err := cli.Run(append([]string{"prodctl"}, args...))
	return out.String(), err
}

func TestSweep(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()
	_, err := a.Items.Insert(ctx, orders.Item{OrderID: 1, LineItemID: 1, ProductName: "Pull tricoté", Quantity: 1})
	require.NoError(t, err)

	out, err := run(t, a, "sweep")
	require.NoError(t, err)
	var res struct{ Dispatched int }
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Dispatched)

	st, err := a.Dispatcher.Statuses().Get(ctx, production.Key{OrderID: 1, LineItemID: 1})
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, production.Maille, st.ProductionType)
}

func TestReset_RequiresConfirmation(t *testing.T) {
	a := testApp(t)
	_, err := run(t, a, "reset")
	assert.Error(t, err)

	out, err := run(t, a, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "productionModifiedCount")
}

func TestDeadline(t *testing.T) {
	out, err := run(t, testApp(t), "deadline")
	require.NoError(t, err)
	var conf map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &conf))
	assert.EqualValues(t, 21, conf["joursDelai"])
}

func TestEnqueue_WithoutQueue(t *testing.T) {
	_, err := run(t, testApp(t), "enqueue", "--type", "sweep")
	assert.Error(t, err)
}
