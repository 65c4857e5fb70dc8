package metrics

import (
	"math"
	"sync"
	"time"
)

const (
	cleanupInterval = time.Hour
	logRetention    = 7 * 24 * time.Hour
	dailyRetention  = 30 * 24 * time.Hour
	hourlyRetention = 7 * 24 * time.Hour
	recentEntries   = 10
)

// Entry is one record per completed routing attempt.
type Entry struct {
	Model      string    `json:"model"`
	Tokens     int       `json:"tokens"`
	Cost       float64   `json:"cost"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Timestamp  time.Time `json:"timestamp"`
}

// Totals are lifetime counters. Cleanup never rolls them back; they are
// monotonically non-decreasing for the life of the process.
type Totals struct {
	TotalRequests      int     `json:"total_requests"`
	TotalTokens        int     `json:"total_tokens"`
	TotalCost          float64 `json:"total_cost"`
	SuccessfulRequests int     `json:"successful_requests"`
	FailedRequests     int     `json:"failed_requests"`
}

// ModelStats is the per-model aggregate shape, reused for the rolling
// aggregates and for filtered breakdowns.
type ModelStats struct {
	Requests      int     `json:"requests"`
	Tokens        int     `json:"tokens"`
	Cost          float64 `json:"cost"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	SuccessRate   float64 `json:"success_rate"`
}

type bucket struct {
	Requests   int     `json:"requests"`
	Tokens     int     `json:"tokens"`
	Cost       float64 `json:"cost"`
	Successful int     `json:"successful"`
	Failed     int     `json:"failed"`

	Models map[string]*ModelStats `json:"models"`
}

// SeriesPoint is one zero-filled slot of a daily or hourly series.
type SeriesPoint struct {
	Period   string  `json:"period"`
	Requests int     `json:"requests"`
	Tokens   int     `json:"tokens"`
	Cost     float64 `json:"cost"`
}

// CostShare is one model's slice of the cost breakdown.
type CostShare struct {
	Model      string  `json:"model"`
	Cost       float64 `json:"cost"`
	Percentage float64 `json:"percentage"`
}

// Overview summarizes a filtered view of the log.
type Overview struct {
	TotalRequests      int     `json:"total_requests"`
	SuccessfulRequests int     `json:"successful_requests"`
	FailedRequests     int     `json:"failed_requests"`
	SuccessRate        float64 `json:"success_rate"`
	TotalTokens        int     `json:"total_tokens"`
	TotalCost          float64 `json:"total_cost"`
	AvgDurationMs      float64 `json:"avg_duration_ms"`
}

// StatsReport is the JSON-serializable answer to a stats query.
type StatsReport struct {
	Period        string                `json:"period"`
	Model         string                `json:"model,omitempty"`
	Overview      Overview              `json:"overview"`
	Models        map[string]ModelStats `json:"models"`
	Recent        []Entry               `json:"recent"`
	Daily         []SeriesPoint         `json:"daily"`
	Hourly        []SeriesPoint         `json:"hourly"`
	CostBreakdown []CostShare           `json:"cost_breakdown"`
}

// Collector aggregates usage and cost in memory: an append-only log plus
// derived lifetime totals, per-model rollups and day/hour buckets. A
// periodic sweep bounds memory without touching the lifetime totals.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	totals  Totals

	perModel    map[string]*ModelStats
	perModelDur map[string]int64 // running duration sums for avg recompute
	daily       map[string]*bucket
	hourly      map[string]*bucket

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

func NewCollector() *Collector {
	return &Collector{
		perModel:    make(map[string]*ModelStats),
		perModelDur: make(map[string]int64),
		daily:       make(map[string]*bucket),
		hourly:      make(map[string]*bucket),
		now:         time.Now,
		stop:        make(chan struct{}),
	}
}

// Record appends the entry and updates every derived aggregate. The
// per-model success rate is recomputed exactly from the log, not
// approximated.
func (c *Collector) Record(entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = c.now()
	}
	c.entries = append(c.entries, entry)

	c.totals.TotalRequests++
	c.totals.TotalTokens += entry.Tokens
	c.totals.TotalCost += entry.Cost
	if entry.Success {
		c.totals.SuccessfulRequests++
	} else {
		c.totals.FailedRequests++
	}

	agg, ok := c.perModel[entry.Model]
	if !ok {
		agg = &ModelStats{}
		c.perModel[entry.Model] = agg
	}
	agg.Requests++
	agg.Tokens += entry.Tokens
	agg.Cost += entry.Cost
	c.perModelDur[entry.Model] += entry.DurationMs
	agg.AvgDurationMs = round2(float64(c.perModelDur[entry.Model]) / float64(agg.Requests))
	agg.SuccessRate = c.exactSuccessRate(entry.Model)

	c.recordBucket(c.daily, entry.Timestamp.Format("2006-01-02"), entry)
	c.recordBucket(c.hourly, entry.Timestamp.Format("2006-01-02T15"), entry)
}

func (c *Collector) recordBucket(buckets map[string]*bucket, key string, entry Entry) {
	b, ok := buckets[key]
	if !ok {
		b = &bucket{Models: make(map[string]*ModelStats)}
		buckets[key] = b
	}
	b.Requests++
	b.Tokens += entry.Tokens
	b.Cost += entry.Cost
	if entry.Success {
		b.Successful++
	} else {
		b.Failed++
	}

	m, ok := b.Models[entry.Model]
	if !ok {
		m = &ModelStats{}
		b.Models[entry.Model] = m
	}
	m.Requests++
	m.Tokens += entry.Tokens
	m.Cost += entry.Cost
}

// exactSuccessRate re-scans the model's log entries. Caller holds the lock.
func (c *Collector) exactSuccessRate(model string) float64 {
	total, succeeded := 0, 0
	for _, e := range c.entries {
		if e.Model != model {
			continue
		}
		total++
		if e.Success {
			succeeded++
		}
	}
	if total == 0 {
		return 0
	}
	return round2(float64(succeeded) / float64(total) * 100)
}

// Totals returns a copy of the lifetime counters.
func (c *Collector) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals
}

// Stats filters the log by period ("all", "today", "week", "month") and
// optionally by model, then derives the full report.
func (c *Collector) Stats(period, model string) StatsReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var since time.Time
	switch period {
	case "today":
		since = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case "week":
		since = now.AddDate(0, 0, -7)
	case "month":
		since = now.AddDate(0, -1, 0)
	default:
		period = "all"
	}

	filtered := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		if model != "" && e.Model != model {
			continue
		}
		filtered = append(filtered, e)
	}

	report := StatsReport{
		Period:        period,
		Model:         model,
		Models:        make(map[string]ModelStats),
		Recent:        recent(filtered, recentEntries),
		Daily:         c.dailySeries(7, now),
		Hourly:        c.hourlySeries(24, now),
		CostBreakdown: costBreakdown(filtered),
	}

	var totalDur int64
	for _, e := range filtered {
		report.Overview.TotalRequests++
		report.Overview.TotalTokens += e.Tokens
		report.Overview.TotalCost += e.Cost
		totalDur += e.DurationMs
		if e.Success {
			report.Overview.SuccessfulRequests++
		} else {
			report.Overview.FailedRequests++
		}

		m := report.Models[e.Model]
		m.Requests++
		m.Tokens += e.Tokens
		m.Cost += e.Cost
		m.AvgDurationMs += float64(e.DurationMs) // running sum, averaged below
		if e.Success {
			m.SuccessRate++ // success count, converted below
		}
		report.Models[e.Model] = m
	}

	if report.Overview.TotalRequests > 0 {
		report.Overview.SuccessRate = round2(float64(report.Overview.SuccessfulRequests) / float64(report.Overview.TotalRequests) * 100)
		report.Overview.AvgDurationMs = round2(float64(totalDur) / float64(report.Overview.TotalRequests))
	}
	report.Overview.TotalCost = round4(report.Overview.TotalCost)

	for id, m := range report.Models {
		m.AvgDurationMs = round2(m.AvgDurationMs / float64(m.Requests))
		m.SuccessRate = round2(m.SuccessRate / float64(m.Requests) * 100)
		m.Cost = round4(m.Cost)
		report.Models[id] = m
	}

	return report
}

// GetDailyUsage returns exactly days entries in chronological order ending
// today, zero-filled where nothing was recorded.
func (c *Collector) GetDailyUsage(days int) []SeriesPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dailySeries(days, c.now())
}

// GetHourlyUsage is the hour-bucketed analogue of GetDailyUsage.
func (c *Collector) GetHourlyUsage(hours int) []SeriesPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hourlySeries(hours, c.now())
}

// dailySeries and hourlySeries assume the caller holds the lock.
func (c *Collector) dailySeries(days int, now time.Time) []SeriesPoint {
	points := make([]SeriesPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		key := now.AddDate(0, 0, -i).Format("2006-01-02")
		points = append(points, seriesPoint(c.daily, key))
	}
	return points
}

func (c *Collector) hourlySeries(hours int, now time.Time) []SeriesPoint {
	points := make([]SeriesPoint, 0, hours)
	for i := hours - 1; i >= 0; i-- {
		key := now.Add(-time.Duration(i) * time.Hour).Format("2006-01-02T15")
		points = append(points, seriesPoint(c.hourly, key))
	}
	return points
}

func seriesPoint(buckets map[string]*bucket, key string) SeriesPoint {
	p := SeriesPoint{Period: key}
	if b, ok := buckets[key]; ok {
		p.Requests = b.Requests
		p.Tokens = b.Tokens
		p.Cost = round4(b.Cost)
	}
	return p
}

func recent(entries []Entry, n int) []Entry {
	if len(entries) <= n {
		out := make([]Entry, len(entries))
		copy(out, entries)
		return out
	}
	out := make([]Entry, n)
	copy(out, entries[len(entries)-n:])
	return out
}

func costBreakdown(entries []Entry) []CostShare {
	byModel := make(map[string]float64)
	order := make([]string, 0)
	total := 0.0
	for _, e := range entries {
		if _, seen := byModel[e.Model]; !seen {
			order = append(order, e.Model)
		}
		byModel[e.Model] += e.Cost
		total += e.Cost
	}

	shares := make([]CostShare, 0, len(order))
	for _, model := range order {
		share := CostShare{Model: model, Cost: round4(byModel[model])}
		if total > 0 {
			share.Percentage = round2(byModel[model] / total * 100)
		}
		shares = append(shares, share)
	}
	return shares
}

// Start launches the hourly cleanup sweep; Stop cancels it.
func (c *Collector) Start() {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Cleanup()
			case <-c.stop:
				return
			}
		}
	}()
}

func (c *Collector) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// Cleanup prunes the detailed log and the day/hour series past their
// retention horizons. Lifetime totals stay untouched.
func (c *Collector) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	kept := c.entries[:0]
	for _, e := range c.entries {
		if now.Sub(e.Timestamp) <= logRetention {
			kept = append(kept, e)
		}
	}
	c.entries = kept

	for key := range c.daily {
		if t, err := time.Parse("2006-01-02", key); err == nil && now.Sub(t) > dailyRetention {
			delete(c.daily, key)
		}
	}
	for key := range c.hourly {
		if t, err := time.Parse("2006-01-02T15", key); err == nil && now.Sub(t) > hourlyRetention {
			delete(c.hourly, key)
		}
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
