package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modelmux/modelmux/src/middleware"
	"github.com/modelmux/modelmux/src/models"
	"github.com/modelmux/modelmux/src/router"
)

// QueryHandler exposes the router over HTTP. All error responses share
// one shape: {"isError": true, "error": <message>, "code": <code>}.
type QueryHandler struct {
	router *router.Router
	log    *zap.Logger
}

func NewQueryHandler(r *router.Router, log *zap.Logger) *QueryHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &QueryHandler{router: r, log: log}
}

// RegisterRoutes wires every endpoint onto the group.
func (h *QueryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/query", h.HandleQuery)
	rg.GET("/models", h.HandleListModels)
	rg.POST("/recommendations", h.HandleRecommendations)
	rg.GET("/stats", h.HandleStats)
	rg.GET("/health", h.HandleHealth)
	rg.GET("/usage", h.HandleAllUsage)
	rg.GET("/usage/:client_id", h.HandleUsage)
}

func (h *QueryHandler) HandleQuery(c *gin.Context) {
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"isError": true, "error": err.Error()})
		return
	}

	// An authenticated key overrides whatever client id the body claims.
	req.ClientID = middleware.ClientID(c, req.ClientID)

	result, err := h.router.RouteQuery(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *QueryHandler) HandleListModels(c *gin.Context) {
	c.JSON(http.StatusOK, h.router.ListModels())
}

func (h *QueryHandler) HandleRecommendations(c *gin.Context) {
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"isError": true, "error": err.Error()})
		return
	}

	limit := 3
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	recs, err := h.router.Recommendations(&req, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

func (h *QueryHandler) HandleStats(c *gin.Context) {
	period := c.DefaultQuery("period", "all")
	model := c.Query("model")

	c.JSON(http.StatusOK, h.router.Stats(period, model))
}

func (h *QueryHandler) HandleHealth(c *gin.Context) {
	report := h.router.HealthCheck(c.Request.Context())

	status := http.StatusOK
	if report.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func (h *QueryHandler) HandleUsage(c *gin.Context) {
	clientID := c.Param("client_id")
	c.JSON(http.StatusOK, gin.H{
		"client_id": clientID,
		"usage":     h.router.Usage(clientID),
	})
}

func (h *QueryHandler) HandleAllUsage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"clients": h.router.AllUsage()})
}

// writeError maps domain errors onto HTTP statuses.
func (h *QueryHandler) writeError(c *gin.Context, err error) {
	var (
		rateErr    *models.RateLimitError
		provErr    *models.ProviderError
		notAvail   *models.ModelNotAvailableError
		missing    *models.MissingFieldError
		budgetErr  *models.BudgetExceededError
		maxIterErr *models.MaxIterationsError
	)

	switch {
	case errors.As(err, &rateErr):
		c.Header("Retry-After", strconv.Itoa(rateErr.RetryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"isError":     true,
			"error":       rateErr.Error(),
			"code":        rateErr.Code,
			"retry_after": rateErr.RetryAfter,
		})
	case errors.As(err, &missing):
		c.JSON(http.StatusBadRequest, gin.H{"isError": true, "error": missing.Error()})
	case errors.As(err, &notAvail):
		c.JSON(http.StatusNotFound, gin.H{
			"isError":          true,
			"error":            notAvail.Error(),
			"available_models": notAvail.Available,
		})
	case errors.As(err, &budgetErr):
		c.JSON(http.StatusPaymentRequired, gin.H{"isError": true, "error": budgetErr.Error()})
	case errors.As(err, &provErr):
		c.JSON(providerStatus(provErr.Code), gin.H{
			"isError":  true,
			"error":    provErr.Error(),
			"code":     provErr.Code,
			"provider": provErr.Provider,
			"model":    provErr.Model,
		})
	case errors.As(err, &maxIterErr):
		c.JSON(http.StatusBadGateway, gin.H{"isError": true, "error": maxIterErr.Error()})
	default:
		h.log.Error("unclassified routing error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"isError": true, "error": err.Error()})
	}
}

func providerStatus(code models.ErrorCode) int {
	switch code {
	case models.CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case models.CodeAuthenticationFailed:
		return http.StatusBadGateway
	case models.CodeQuotaExceeded:
		return http.StatusPaymentRequired
	case models.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
