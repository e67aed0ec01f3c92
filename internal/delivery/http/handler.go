package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/purbeurre/backend/internal/domain"
	"github.com/purbeurre/backend/internal/usecase"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ProductReader loads a single catalog product
type ProductReader interface {
	GetProduct(ctx context.Context, code string) (*domain.Product, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	searcher usecase.Searcher
	products ProductReader
	log      *zap.SugaredLogger
}

// NewHandler creates a new HTTP handler
func NewHandler(searcher usecase.Searcher, products ProductReader, log *zap.SugaredLogger) *Handler {
	return &Handler{
		searcher: searcher,
		products: products,
		log:      log.Named("http"),
	}
}

// SearchResponse is one page of ranked search results
type SearchResponse struct {
	Query    string                `json:"query"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
	Results  []domain.SearchResult `json:"results"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "purbeurre-backend",
		"version": "1.0.0",
	})
}

// SearchProducts ranks products against the q parameter and returns the requested page
func (h *Handler) SearchProducts(c *gin.Context) {
	query := c.Query("q")

	page, err := positiveQueryInt(c, "page", 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pageSize, err := positiveQueryInt(c, "page_size", defaultPageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	results, err := h.searcher.Search(c.Request.Context(), query)
	if err != nil {
		h.log.Errorw("Search failed", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	start, end := len(results), len(results)
	if page-1 <= len(results)/pageSize {
		start = min((page-1)*pageSize, len(results))
		end = min(start+pageSize, len(results))
	}

	c.JSON(http.StatusOK, SearchResponse{
		Query:    query,
		Total:    len(results),
		Page:     page,
		PageSize: pageSize,
		Results:  results[start:end],
	})
}

// GetProduct returns one product with its category ids
func (h *Handler) GetProduct(c *gin.Context) {
	code := c.Param("code")

	product, err := h.products.GetProduct(c.Request.Context(), code)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found", "code": code})
		return
	}
	if err != nil {
		h.log.Errorw("Failed to load product", "code", code, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
		return
	}

	c.JSON(http.StatusOK, product)
}

func positiveQueryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return n, nil
}
