package deadline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

const (
	holidayCacheTTL   = 24 * time.Hour
	holidayFailureTTL = 5 * time.Minute
	holidayCacheYears = 8
	holidayTimeout    = 10 * time.Second
)

// Calendar answers whether a date is a public holiday. Each year is fetched
// once and kept for a day. A failed year counts as no holiday and is not
// retried for a few minutes.
type Calendar struct {
	baseURL string
	http    *http.Client
	cache   *expirable.LRU[int, map[string]string]
	failed  *expirable.LRU[int, error]
	logger  logrus.FieldLogger
}

// NewCalendar reads <baseURL>/<year>.json, a JSON object of "YYYY-MM-DD": name.
func NewCalendar(baseURL string, logger logrus.FieldLogger) *Calendar {
	return &Calendar{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: holidayTimeout},
		cache:   expirable.NewLRU[int, map[string]string](holidayCacheYears, nil, holidayCacheTTL),
		failed:  expirable.NewLRU[int, error](holidayCacheYears, nil, holidayFailureTTL),
		logger:  logger.WithField("module", "deadline"),
	}
}

// IsHoliday never fails: an unreachable calendar means no holidays.
func (c *Calendar) IsHoliday(ctx context.Context, date time.Time) bool {
	days, err := c.year(ctx, date.Year())
	if err != nil {
		return false
	}
	_, ok := days[date.Format("2006-01-02")]
	return ok
}

// Func adapts the calendar to ComputeDeadline.
func (c *Calendar) Func(ctx context.Context) func(time.Time) bool {
	return func(d time.Time) bool { return c.IsHoliday(ctx, d) }
}

func (c *Calendar) year(ctx context.Context, year int) (map[string]string, error) {
	if days, ok := c.cache.Get(year); ok {
		return days, nil
	}
	if err, ok := c.failed.Get(year); ok {
		return nil, err
	}
	days, err := c.fetch(ctx, year)
	if err != nil {
		if ctx.Err() == nil {
			c.failed.Add(year, err)
		}
		c.logger.WithError(err).WithField("year", year).Warn("holiday calendar unavailable")
		return nil, err
	}
	c.cache.Add(year, days)
	return days, nil
}

func (c *Calendar) fetch(ctx context.Context, year int) (map[string]string, error) {
	endpoint := c.baseURL + "/" + strconv.Itoa(year) + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("holiday api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var days map[string]string
	if err := json.Unmarshal(body, &days); err != nil {
		return nil, fmt.Errorf("decode holidays %d: %w", year, err)
	}
	return days, nil
}
