package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"pos-ledger-api/internal/database"
	"pos-ledger-api/internal/middleware"
	"pos-ledger-api/internal/response"
	"pos-ledger-api/internal/services"
	"pos-ledger-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ExecRequest is the body of every RPC call
type ExecRequest struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, d *Dispatcher) {
	r.Use(middleware.RequestLogger())

	api := r.Group("/api")
	{
		api.POST("/exec", d.Exec)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		status := "ok"
		if db := database.GetDB(); db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				status = "degraded"
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  status,
			"service": "pos-ledger-api",
		})
	})
}

// WithCORS lets browser tills on other origins call the API
func WithCORS(h http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	})(h)
}

// Exec decodes an RPC call and writes its envelope. Business failures are
// reported in the body with HTTP 200.
func (d *Dispatcher) Exec(c *gin.Context) {
	var req ExecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Set("rpc_status", services.ErrBadRequest.Code)
		response.ErrorJSON(c, services.ErrBadRequest.Code, services.ErrBadRequest.Message)
		return
	}
	c.Set("action", req.Action)

	data, err := d.Handle(c.Request.Context(), req.Action, req.Payload)
	if err != nil {
		var se *services.Error
		if !errors.As(err, &se) {
			logging.Errorf("Action failed - action: %s, error: %v", req.Action, err)
			se = services.ErrInternal
		}
		c.Set("rpc_status", se.Code)
		response.ErrorJSON(c, se.Code, se.Message)
		return
	}
	c.Set("rpc_status", "success")
	response.SuccessJSON(c, data)
}
