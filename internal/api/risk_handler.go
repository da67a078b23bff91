package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/banking/underwriting-risk/internal/analytics"
	"github.com/banking/underwriting-risk/internal/repository/elasticsearch"
	"github.com/banking/underwriting-risk/internal/risk"
	"github.com/labstack/echo/v4"
)

type RiskHandler struct {
	riskService *risk.Service
	analyzer    *analytics.Analyzer
	search      *elasticsearch.SearchRepository
}

func NewRiskHandler(riskService *risk.Service, analyzer *analytics.Analyzer, search *elasticsearch.SearchRepository) *RiskHandler {
	return &RiskHandler{
		riskService: riskService,
		analyzer:    analyzer,
		search:      search,
	}
}

// AnalyzeDocument handles POST /risk/documents/:document_id/analyze
func (h *RiskHandler) AnalyzeDocument(c echo.Context) error {
	documentID := c.Param("document_id")
	if documentID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing document_id"})
	}

	result, err := h.riskService.AnalyzeDocument(c.Request().Context(), documentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "risk analysis failed"})
	}

	return c.JSON(http.StatusOK, result)
}

// GetResult handles GET /risk/documents/:document_id
func (h *RiskHandler) GetResult(c echo.Context) error {
	documentID := c.Param("document_id")
	if documentID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing document_id"})
	}

	result, err := h.riskService.GetResult(c.Request().Context(), documentID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no analysis found for document"})
	}

	return c.JSON(http.StatusOK, result)
}

// GetUserSummary handles GET /risk/users/:user_id/summary
func (h *RiskHandler) GetUserSummary(c echo.Context) error {
	userID := c.Param("user_id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing user_id"})
	}

	rollup, err := h.riskService.RollupForUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to build user risk summary"})
	}

	return c.JSON(http.StatusOK, rollup)
}

// GetApplicationSummary handles GET /risk/applications/:application_id/summary
func (h *RiskHandler) GetApplicationSummary(c echo.Context) error {
	applicationID := c.Param("application_id")
	if applicationID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing application_id"})
	}

	rollup, err := h.riskService.RollupForApplication(c.Request().Context(), applicationID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to build application risk summary"})
	}

	return c.JSON(http.StatusOK, rollup)
}

// SearchResults handles GET /risk/search
func (h *RiskHandler) SearchResults(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing query parameter 'q'"})
	}

	if h.search == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "search is not available"})
	}

	from, _ := strconv.Atoi(c.QueryParam("from"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	if size == 0 {
		size = 20
	}

	page, err := h.search.SearchResults(c.Request().Context(), query, from, size)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "search failed"})
	}

	return c.JSON(http.StatusOK, page)
}

// GetBankAnalytics handles GET /risk/bank-analytics
// Accepts account_number or document_id; runs the statement analytics
// pipeline directly without scoring.
func (h *RiskHandler) GetBankAnalytics(c echo.Context) error {
	accountNumber := c.QueryParam("account_number")
	documentID := c.QueryParam("document_id")
	if accountNumber == "" && documentID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "account_number or document_id required"})
	}

	report, err := h.analyzer.AnalyzeStatement(c.Request().Context(), accountNumber, documentID, nil, nil)
	if err != nil {
		if errors.Is(err, analytics.ErrNoTransactions) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "no transactions found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "bank statement analytics failed"})
	}

	return c.JSON(http.StatusOK, report)
}

// RegisterRoutes registers the API routes
func (h *RiskHandler) RegisterRoutes(e *echo.Group) {
	e.POST("/documents/:document_id/analyze", h.AnalyzeDocument)
	e.GET("/documents/:document_id", h.GetResult)
	e.GET("/users/:user_id/summary", h.GetUserSummary)
	e.GET("/applications/:application_id/summary", h.GetApplicationSummary)
	e.GET("/search", h.SearchResults)
	e.GET("/bank-analytics", h.GetBankAnalytics)
}
