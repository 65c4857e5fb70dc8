package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 8, 24, 15, 30, 0, 0, time.UTC)

func newTestCollector() *Collector {
	c := NewCollector()
	c.now = func() time.Time { return testNow }
	return c
}

func TestRecord_TotalsInvariant(t *testing.T) {
	c := newTestCollector()

	for i := 0; i < 25; i++ {
		c.Record(Entry{
			Model:      "gpt-4o",
			Tokens:     100,
			Cost:       0.01,
			DurationMs: 200,
			Success:    i%5 != 0,
		})
	}

	totals := c.Totals()
	assert.Equal(t, 25, totals.TotalRequests)
	assert.Equal(t, 2500, totals.TotalTokens)
	assert.Equal(t, 25, totals.SuccessfulRequests+totals.FailedRequests)
	assert.Equal(t, 20, totals.SuccessfulRequests)
	assert.InDelta(t, 0.25, totals.TotalCost, 1e-9)
}

func TestRecord_PerModelAggregates(t *testing.T) {
	c := newTestCollector()

	c.Record(Entry{Model: "gpt-4o", Tokens: 100, Cost: 0.02, DurationMs: 100, Success: true})
	c.Record(Entry{Model: "gpt-4o", Tokens: 300, Cost: 0.06, DurationMs: 300, Success: false})
	c.Record(Entry{Model: "gemini-2.5-flash", Tokens: 50, Cost: 0.001, DurationMs: 80, Success: true})

	stats := c.Stats("all", "")
	gpt := stats.Models["gpt-4o"]
	assert.Equal(t, 2, gpt.Requests)
	assert.Equal(t, 400, gpt.Tokens)
	assert.InDelta(t, 200.0, gpt.AvgDurationMs, 1e-9)
	assert.InDelta(t, 50.0, gpt.SuccessRate, 1e-9, "success rate is exact")

	flash := stats.Models["gemini-2.5-flash"]
	assert.InDelta(t, 100.0, flash.SuccessRate, 1e-9)
}

func TestStats_Overview(t *testing.T) {
	c := newTestCollector()

	c.Record(Entry{Model: "m1", Tokens: 1000, Cost: 0.123456, DurationMs: 100, Success: true})
	c.Record(Entry{Model: "m1", Tokens: 1000, Cost: 0.1, DurationMs: 201, Success: true})
	c.Record(Entry{Model: "m2", Tokens: 500, Cost: 0.05, DurationMs: 99, Success: false})

	o := c.Stats("all", "").Overview
	assert.Equal(t, 3, o.TotalRequests)
	assert.InDelta(t, 66.67, o.SuccessRate, 1e-9, "two decimal places")
	assert.InDelta(t, 0.2735, o.TotalCost, 1e-9, "four decimal places")
	assert.InDelta(t, 133.33, o.AvgDurationMs, 1e-9)
	assert.Equal(t, 2500, o.TotalTokens)
}

func TestStats_ModelFilter(t *testing.T) {
	c := newTestCollector()

	c.Record(Entry{Model: "m1", Success: true})
	c.Record(Entry{Model: "m2", Success: true})

	stats := c.Stats("all", "m1")
	assert.Equal(t, 1, stats.Overview.TotalRequests)
	assert.Contains(t, stats.Models, "m1")
	assert.NotContains(t, stats.Models, "m2")
}

func TestStats_PeriodFilter(t *testing.T) {
	c := newTestCollector()

	c.Record(Entry{Model: "m1", Success: true, Timestamp: testNow.AddDate(0, 0, -10)})
	c.Record(Entry{Model: "m1", Success: true, Timestamp: testNow.Add(-time.Hour)})

	assert.Equal(t, 2, c.Stats("all", "").Overview.TotalRequests)
	assert.Equal(t, 1, c.Stats("week", "").Overview.TotalRequests)
	assert.Equal(t, 1, c.Stats("today", "").Overview.TotalRequests)
}

func TestStats_RecentIsCapped(t *testing.T) {
	c := newTestCollector()

	for i := 0; i < 15; i++ {
		c.Record(Entry{Model: fmt.Sprintf("m%d", i), Success: true})
	}

	recent := c.Stats("all", "").Recent
	require.Len(t, recent, 10)
	assert.Equal(t, "m14", recent[9].Model, "most recent last")
	assert.Equal(t, "m5", recent[0].Model)
}

func TestGetDailyUsage_ZeroFilledChronological(t *testing.T) {
	c := newTestCollector()

	c.Record(Entry{Model: "m1", Tokens: 10, Cost: 0.01, Success: true, Timestamp: testNow.AddDate(0, 0, -2)})

	daily := c.GetDailyUsage(7)
	require.Len(t, daily, 7)

	assert.Equal(t, testNow.AddDate(0, 0, -6).Format("2006-01-02"), daily[0].Period)
	assert.Equal(t, testNow.Format("2006-01-02"), daily[6].Period, "series ends today")

	for i, p := range daily {
		if i == 4 {
			assert.Equal(t, 1, p.Requests)
			assert.Equal(t, 10, p.Tokens)
		} else {
			assert.Zero(t, p.Requests, "day %s should be zero-filled", p.Period)
		}
	}
}

func TestGetHourlyUsage_ZeroFilled(t *testing.T) {
	c := newTestCollector()

	c.Record(Entry{Model: "m1", Success: true, Timestamp: testNow.Add(-3 * time.Hour)})

	hourly := c.GetHourlyUsage(24)
	require.Len(t, hourly, 24)
	assert.Equal(t, testNow.Format("2006-01-02T15"), hourly[23].Period)
	assert.Equal(t, 1, hourly[20].Requests)
}

func TestStats_CostBreakdown(t *testing.T) {
	c := newTestCollector()

	c.Record(Entry{Model: "m1", Cost: 0.75, Success: true})
	c.Record(Entry{Model: "m2", Cost: 0.25, Success: true})

	breakdown := c.Stats("all", "").CostBreakdown
	require.Len(t, breakdown, 2)
	assert.Equal(t, "m1", breakdown[0].Model)
	assert.InDelta(t, 75.0, breakdown[0].Percentage, 1e-9)
	assert.InDelta(t, 25.0, breakdown[1].Percentage, 1e-9)
}

func TestStats_CostBreakdownZeroTotal(t *testing.T) {
	c := newTestCollector()

	c.Record(Entry{Model: "m1", Cost: 0, Success: true})

	breakdown := c.Stats("all", "").CostBreakdown
	require.Len(t, breakdown, 1)
	assert.Zero(t, breakdown[0].Percentage, "never divide by zero")
}

func TestCleanup_PrunesLogKeepsTotals(t *testing.T) {
	c := newTestCollector()

	c.Record(Entry{Model: "m1", Success: true, Timestamp: testNow.AddDate(0, 0, -10)})
	c.Record(Entry{Model: "m1", Success: true, Timestamp: testNow.Add(-time.Hour)})
	before := c.Totals()

	c.Cleanup()

	assert.Equal(t, 1, c.Stats("all", "").Overview.TotalRequests, "old entry pruned from log")
	assert.Equal(t, before, c.Totals(), "lifetime totals never rolled back")
}

func TestCleanup_PrunesOldBuckets(t *testing.T) {
	c := newTestCollector()

	c.Record(Entry{Model: "m1", Success: true, Timestamp: testNow.AddDate(0, 0, -40)})
	c.Record(Entry{Model: "m1", Success: true, Timestamp: testNow.AddDate(0, 0, -10)})

	c.Cleanup()

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Len(t, c.daily, 1, "daily buckets older than 30 days dropped")
	assert.Empty(t, c.hourly, "hourly buckets older than 7 days dropped")
}

func TestStartStop(t *testing.T) {
	c := NewCollector()
	c.Start()
	c.Stop()
	c.Stop()
}

func TestBudgetGuard(t *testing.T) {
	b := NewBudgetGuard(1.0)

	require.NoError(t, b.Check())
	b.Charge("m1", 0.6)
	require.NoError(t, b.Check())
	b.Charge("m2", 0.5)

	err := b.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "budget exceeded")

	spent, byModel := b.Spent()
	assert.InDelta(t, 1.1, spent, 1e-9)
	assert.InDelta(t, 0.6, byModel["m1"], 1e-9)
}

func TestBudgetGuard_Unlimited(t *testing.T) {
	b := NewBudgetGuard(0)
	b.Charge("m1", 1000)
	assert.NoError(t, b.Check())
}
