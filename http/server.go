package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minute-repeater/restocked"
)

// historyLimit bounds the history arrays returned for a variant.
const historyLimit = 100

// Server exposes the core pipeline and read-only projections as a JSON API.
// The heavy lifting (auth, plans, settings) belongs to the surrounding CRUD
// layer; this surface only covers tracking, lookups and the admin check hook.
type Server struct {
	Products      restocked.ProductService
	Items         restocked.TrackedItemService
	Notifications restocked.NotificationService
	Fetcher       restocked.Fetcher
	Extractor     restocked.Extractor
	Logger        *slog.Logger

	// RunNow, when set, enqueues all due items immediately. Wired to the
	// check worker by cmd/restocked.
	RunNow func()

	// FetchTimeout bounds the synchronous fetch in POST /api/products.
	FetchTimeout time.Duration

	router *gin.Engine
}

// Router builds and returns the HTTP handler.
func (s *Server) Router() http.Handler {
	if s.router != nil {
		return s.router
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.POST("/products", s.handleTrackProduct)
		api.GET("/products", s.handleListProducts)
		api.GET("/products/:id", s.handleGetProduct)
		api.GET("/variants/:id", s.handleGetVariant)
		api.GET("/notifications", s.handleListNotifications)
		api.POST("/notifications/:id/read", s.handleMarkRead)
		api.POST("/check", s.handleRunCheck)
	}

	s.router = r
	return r
}

type trackRequest struct {
	URL    string `json:"url" binding:"required"`
	UserID string `json:"userId"`
}

// handleTrackProduct runs the fetch→extract→ingest pipeline synchronously
// for a new URL and subscribes the caller to the result. An unsupported
// site is an expected outcome and surfaces as a 4xx, never a 500.
func (s *Server) handleTrackProduct(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	normalized, err := restocked.NormalizeURL(req.URL)
	if err != nil {
		s.renderError(c, err)
		return
	}

	ctx := c.Request.Context()
	fetchCtx := ctx
	if s.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.FetchTimeout)
		defer cancel()
	}

	page, err := s.Fetcher.Fetch(fetchCtx, normalized)
	if err != nil {
		s.logError("fetch", normalized, err)
		s.renderError(c, err)
		return
	}

	extracted, err := s.Extractor.Extract(page.HTML, normalized)
	if err != nil {
		s.logError("extract", normalized, err)
		s.renderError(c, err)
		return
	}

	result, err := s.Products.Ingest(ctx, extracted)
	if err != nil {
		s.logError("ingest", normalized, err)
		s.renderError(c, err)
		return
	}

	item := &restocked.TrackedItem{
		UserID:    req.UserID,
		ProductID: result.Product.ID,
		URL:       result.Product.URL,
	}
	if err := s.Items.CreateTrackedItem(ctx, item); err != nil {
		s.logError("track", normalized, err)
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"product":     result.Product,
		"variants":    result.Variants,
		"notes":       result.Notes,
		"trackedItem": item,
	})
}

func (s *Server) handleListProducts(c *gin.Context) {
	products, err := s.Products.FindProducts(c.Request.Context(), restocked.ProductFilter{})
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (s *Server) handleGetProduct(c *gin.Context) {
	ctx := c.Request.Context()

	product, err := s.Products.FindProductByID(ctx, c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	variants, err := s.Products.FindVariantsByProduct(ctx, product.ID)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product, "variants": variants})
}

func (s *Server) handleGetVariant(c *gin.Context) {
	ctx := c.Request.Context()

	variant, err := s.Products.FindVariantByID(ctx, c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	prices, err := s.Products.PriceHistory(ctx, variant.ID, historyLimit)
	if err != nil {
		s.renderError(c, err)
		return
	}

	stocks, err := s.Products.StockHistory(ctx, variant.ID, historyLimit)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"variant":      variant,
		"priceHistory": prices,
		"stockHistory": stocks,
	})
}

func (s *Server) handleListNotifications(c *gin.Context) {
	filter := restocked.NotificationFilter{
		Unread: c.Query("unread") == "true",
	}
	notifications, err := s.Notifications.FindNotifications(c.Request.Context(), filter)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (s *Server) handleMarkRead(c *gin.Context) {
	if err := s.Notifications.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		s.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleRunCheck is the administrative "run now" hook.
func (s *Server) handleRunCheck(c *gin.Context) {
	if s.RunNow == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "check worker not running"})
		return
	}
	s.RunNow()
	c.JSON(http.StatusAccepted, gin.H{"status": "check enqueued"})
}

// renderError maps application error codes to HTTP statuses. The message
// from a coded error is safe to show; anything else becomes a generic 500.
func (s *Server) renderError(c *gin.Context, err error) {
	code := restocked.ErrorCode(err)
	c.JSON(statusFromCode(code), gin.H{"error": restocked.ErrorMessage(err), "code": code})
}

func statusFromCode(code string) int {
	switch code {
	case restocked.EINVALID:
		return http.StatusBadRequest
	case restocked.ENOTFOUND:
		return http.StatusNotFound
	case restocked.ECONFLICT:
		return http.StatusConflict
	case restocked.ENOPRODUCT, restocked.EUNSUPPORTED:
		return http.StatusUnprocessableEntity
	case restocked.EBOTBLOCKED, restocked.ETRANSPORT:
		return http.StatusBadGateway
	case restocked.ETIMEOUT:
		return http.StatusGatewayTimeout
	case restocked.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) logError(op, url string, err error) {
	if s.Logger == nil {
		return
	}
	s.Logger.Error(op, "url", url, "code", restocked.ErrorCode(err), "err", err)
}
