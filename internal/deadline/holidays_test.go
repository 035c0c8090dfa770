package deadline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/maisoncleo/atelier-tracker/internal/logging"
)

func TestCalendar_FetchesOncePerYear(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/2024.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"2024-05-01":"1er mai","2024-12-25":"Jour de Noël"}`))
	}))
	defer srv.Close()

	cal := NewCalendar(srv.URL, logging.Discard())
	ctx := context.Background()

	assert.True(t, cal.IsHoliday(ctx, day("2024-05-01")))
	assert.True(t, cal.IsHoliday(ctx, day("2024-12-25")))
	assert.False(t, cal.IsHoliday(ctx, day("2024-05-02")))
	assert.Equal(t, int32(1), hits.Load())
}

func TestCalendar_FailsOpen(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	cal := NewCalendar(srv.URL, logging.Discard())
	ctx := context.Background()

	assert.False(t, cal.IsHoliday(ctx, day("2024-05-01")))
	assert.False(t, cal.IsHoliday(ctx, day("2024-12-25")))
	assert.Equal(t, int32(1), hits.Load())

	d, err := ComputeDeadline(day("2024-05-03"), 3, DefaultWorkingDays(), cal.Func(ctx))
	assert.NoError(t, err)
	assert.Equal(t, day("2024-04-30"), d)
}

func TestCalendar_FailedYearFetchedOncePerDeadline(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	cal := NewCalendar(srv.URL, logging.Discard())
	ctx := context.Background()

	_, err := ComputeDeadline(day("2024-06-14"), 21, DefaultWorkingDays(), cal.Func(ctx))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	_, err = ComputeDeadline(day("2024-06-20"), 21, DefaultWorkingDays(), cal.Func(ctx))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCalendar_CanceledFetchIsRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"2024-05-01":"1er mai"}`))
	}))
	defer srv.Close()

	cal := NewCalendar(srv.URL, logging.Discard())
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, cal.IsHoliday(canceled, day("2024-05-01")))
	assert.True(t, cal.IsHoliday(context.Background(), day("2024-05-01")))
}

func TestCalendar_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	cal := NewCalendar(srv.URL, logging.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.False(t, cal.IsHoliday(ctx, day("2024-01-01")))
}
