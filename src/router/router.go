package router

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelmux/modelmux/src/cache"
	"github.com/modelmux/modelmux/src/metrics"
	"github.com/modelmux/modelmux/src/models"
	"github.com/modelmux/modelmux/src/ratelimit"
	"github.com/modelmux/modelmux/src/selector"
)

// retryableMessage matches vendor error text that warrants one fallback
// attempt even when the normalized code alone would not.
var retryableMessage = regexp.MustCompile(`(?i)not available|rate limit|quota`)

// Options wires a Router. Cache is optional; everything else is required.
type Options struct {
	Configs       map[string]models.ModelConfig
	Adapters      map[string]models.ProviderAdapter
	Selector      *selector.Selector
	Limiter       *ratelimit.Limiter
	Metrics       *metrics.Collector
	Budget        *metrics.BudgetGuard
	Cache         models.CacheStore
	DefaultModel  string
	FallbackModel string
	Logger        *zap.Logger
}

// Router orchestrates one request end to end: admission, model
// resolution, adapter dispatch, a single fallback retry on retryable
// vendor failures, and metrics recording.
type Router struct {
	configs       map[string]models.ModelConfig
	adapters      map[string]models.ProviderAdapter
	selector      *selector.Selector
	limiter       *ratelimit.Limiter
	metrics       *metrics.Collector
	budget        *metrics.BudgetGuard
	cache         models.CacheStore
	defaultModel  string
	fallbackModel string
	log           *zap.Logger

	modelIDs []string // stable listing of configured adapter ids
}

func New(opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ids := make([]string, 0, len(opts.Adapters))
	for id := range opts.Adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &Router{
		configs:       opts.Configs,
		adapters:      opts.Adapters,
		selector:      opts.Selector,
		limiter:       opts.Limiter,
		metrics:       opts.Metrics,
		budget:        opts.Budget,
		cache:         opts.Cache,
		defaultModel:  opts.DefaultModel,
		fallbackModel: opts.FallbackModel,
		log:           opts.Logger,
		modelIDs:      ids,
	}
}

// RouteQuery runs the full request state machine. Admission and
// validation failures are terminal and never recorded as model attempts;
// once an adapter has been invoked, exactly one metrics entry captures
// the final outcome and the model actually used.
func (r *Router) RouteQuery(ctx context.Context, req *models.QueryRequest) (*models.QueryResult, error) {
	if req == nil || req.Query == "" {
		return nil, &models.MissingFieldError{Field: "query"}
	}

	requestID := uuid.NewString()
	log := r.log.With(zap.String("request_id", requestID))
	start := time.Now()

	clientID := req.ClientID
	if clientID == "" {
		clientID = models.AnonymousClientID
	}

	if err := r.limiter.Check(clientID); err != nil {
		log.Warn("request rejected by rate limiter",
			zap.String("client_id", clientID),
			zap.Error(err))
		return nil, err
	}

	if r.budget != nil {
		if err := r.budget.Check(); err != nil {
			log.Warn("request rejected by budget guard", zap.Error(err))
			return nil, err
		}
	}

	modelID := req.Model
	if modelID == "" {
		modelID = r.selector.SelectBestModel(req.Query, req.Context, req.Preferences)
	}
	log = log.With(zap.String("model", modelID))

	if r.cache != nil {
		key := cache.Key(req, modelID)
		if cached, err := r.cache.Get(ctx, key); err == nil && cached != nil {
			hit := *cached
			hit.CacheHit = true
			log.Info("cache hit")
			return &hit, nil
		}
	}

	adapter, ok := r.adapters[modelID]
	if !ok {
		return nil, &models.ModelNotAvailableError{Model: modelID, Available: r.modelIDs}
	}

	result, err := adapter.Call(ctx, req)
	usedModel := modelID

	if err != nil && r.shouldFallback(err, modelID) {
		fbAdapter, ok := r.adapters[r.fallbackModel]
		if ok {
			log.Warn("primary model failed, retrying with fallback",
				zap.String("fallback", r.fallbackModel),
				zap.Error(err))
			result, err = fbAdapter.Call(ctx, req)
			usedModel = r.fallbackModel
		}
	}

	r.record(metrics.Entry{
		Model:      usedModel,
		Tokens:     totalTokens(result),
		Cost:       resultCost(result),
		DurationMs: time.Since(start).Milliseconds(),
		Success:    err == nil,
		Timestamp:  time.Now().UTC(),
	}, log)

	if err != nil {
		log.Error("query failed", zap.String("used_model", usedModel), zap.Error(err))
		return nil, err
	}

	if r.budget != nil {
		r.budget.Charge(usedModel, result.Cost)
	}

	if r.cache != nil {
		if cErr := r.cache.Set(ctx, cache.Key(req, modelID), result); cErr != nil {
			log.Warn("failed to cache result", zap.Error(cErr))
		}
	}

	log.Info("query routed",
		zap.String("used_model", usedModel),
		zap.Int("total_tokens", result.Usage.TotalTokens),
		zap.Float64("cost", result.Cost),
		zap.Int64("duration_ms", result.DurationMs))

	return result, nil
}

// shouldFallback applies the retry policy: a retryable normalized code or
// a retryable message, a configured fallback, and a fallback different
// from the model just tried. One retry only, never chained.
func (r *Router) shouldFallback(err error, triedModel string) bool {
	if r.fallbackModel == "" || r.fallbackModel == triedModel {
		return false
	}

	var pErr *models.ProviderError
	if errors.As(err, &pErr) {
		switch pErr.Code {
		case models.CodeRateLimitExceeded, models.CodeQuotaExceeded, models.CodeTimeout:
			return true
		}
	}
	return retryableMessage.MatchString(err.Error())
}

// record never lets metrics bookkeeping break the primary path.
func (r *Router) record(entry metrics.Entry, log *zap.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("metrics recording failed", zap.Any("panic", rec))
		}
	}()
	r.metrics.Record(entry)
}

func totalTokens(result *models.QueryResult) int {
	if result == nil {
		return 0
	}
	return result.Usage.TotalTokens
}

func resultCost(result *models.QueryResult) float64 {
	if result == nil {
		return 0
	}
	return result.Cost
}

// ModelListing is the payload for ListModels.
type ModelListing struct {
	Models        []models.ModelInfo `json:"models"`
	DefaultModel  string             `json:"default_model"`
	FallbackModel string             `json:"fallback_model,omitempty"`
}

// ListModels describes every configured adapter in stable order.
func (r *Router) ListModels() ModelListing {
	infos := make([]models.ModelInfo, 0, len(r.modelIDs))
	for _, id := range r.modelIDs {
		infos = append(infos, r.adapters[id].Info())
	}
	return ModelListing{
		Models:        infos,
		DefaultModel:  r.defaultModel,
		FallbackModel: r.fallbackModel,
	}
}

// Recommendations ranks the enabled models for a query.
func (r *Router) Recommendations(req *models.QueryRequest, limit int) ([]models.Recommendation, error) {
	if req == nil || req.Query == "" {
		return nil, &models.MissingFieldError{Field: "query"}
	}
	return r.selector.Recommendations(req.Query, req.Context, limit), nil
}

// Stats exposes the metrics report.
func (r *Router) Stats(period, model string) metrics.StatsReport {
	return r.metrics.Stats(period, model)
}

// ModelHealth is one model's probe outcome in a health report.
type ModelHealth struct {
	Model        string              `json:"model"`
	Availability models.Availability `json:"availability"`
}

// HealthReport summarizes adapter liveness.
type HealthReport struct {
	Status    string        `json:"status"`
	Models    []ModelHealth `json:"models"`
	Timestamp time.Time     `json:"timestamp"`
}

// HealthCheck probes every adapter concurrently. Status degrades to
// "degraded" when any probe fails and "unhealthy" when all do.
func (r *Router) HealthCheck(ctx context.Context) HealthReport {
	results := make([]ModelHealth, len(r.modelIDs))

	var wg sync.WaitGroup
	for i, id := range r.modelIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = ModelHealth{
				Model:        id,
				Availability: r.adapters[id].CheckAvailability(ctx),
			}
		}(i, id)
	}
	wg.Wait()

	up := 0
	for _, h := range results {
		if h.Availability.Available {
			up++
		}
	}

	status := "healthy"
	switch {
	case len(results) > 0 && up == 0:
		status = "unhealthy"
	case up < len(results):
		status = "degraded"
	}

	return HealthReport{Status: status, Models: results, Timestamp: time.Now().UTC()}
}

// Usage exposes the limiter snapshot for one client.
func (r *Router) Usage(clientID string) ratelimit.Usage {
	return r.limiter.GetUsage(clientID)
}

// AllUsage enumerates limiter state for every active client.
func (r *Router) AllUsage() map[string]ratelimit.Usage {
	return r.limiter.GetAllUsage()
}

// ResetUsage clears limiter state for one client.
func (r *Router) ResetUsage(clientID string) {
	r.limiter.ResetUsage(clientID)
}
