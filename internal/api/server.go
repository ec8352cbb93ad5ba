// Package api exposes the menu, order and admin HTTP endpoints.
package api

import (
	"net/http"

	"comanda/internal/auth"
	"comanda/internal/menu"
	"comanda/internal/metrics"
	"comanda/internal/monitoring"
	"comanda/internal/orders"
	"comanda/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Deps are the services the API serves.
type Deps struct {
	Menus   *menu.Service
	Orders  *orders.Service
	Auth    *auth.Service
	Hub     *realtime.Hub
	Monitor *monitoring.Monitor
	Metrics *metrics.Collector
	// Limiter throttles order submissions and logins. Nil disables it.
	Limiter *RateLimiter
	Logger  logrus.FieldLogger
}

// Server represents the HTTP API of the restaurant
type Server struct {
	Router *gin.Engine

	menus   *menu.Service
	orders  *orders.Service
	auth    *auth.Service
	hub     *realtime.Hub
	monitor *monitoring.Monitor
	limiter *RateLimiter
	log     logrus.FieldLogger
}

// NewServer creates the router with every route registered.
func NewServer(deps Deps) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(deps.Logger), Metrics(deps.Metrics))

	s := &Server{
		Router:  router,
		menus:   deps.Menus,
		orders:  deps.Orders,
		auth:    deps.Auth,
		hub:     deps.Hub,
		monitor: deps.Monitor,
		limiter: deps.Limiter,
		log:     deps.Logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.Router.GET("/health", s.Health)

	// Public menu
	s.Router.GET("/menu", s.GetMenu)
	s.Router.GET("/menu/schedule", s.GetSchedule)

	// Orders
	kitchen := s.Router.Group("/orders")
	{
		kitchen.POST("", s.limiter.Handler(), s.CreateOrder)
		kitchen.GET("", s.ListOrders)
		kitchen.PATCH("", s.UpdateOrderStatus)
		kitchen.GET("/ws", s.hub.ServeWS)
		kitchen.GET("/transitions", s.GetTransitions)
		kitchen.GET("/:id", s.GetOrder)
	}

	// Admin dashboard
	s.Router.POST("/admin/login", s.limiter.Handler(), s.Login)
	admin := s.Router.Group("/admin", auth.Middleware(s.auth.Tokens()))
	{
		admin.GET("/stats", s.GetStats)
		admin.GET("/menus", s.ListMenus)
		admin.POST("/menus/:id/activate", s.ActivateMenu)
		admin.PATCH("/items/:id", s.UpdateMenuItem)
	}
}

// Health reports the monitor's checks. Any failing check makes it 503.
func (s *Server) Health(c *gin.Context) {
	report := s.monitor.Report(c.Request.Context())
	status := http.StatusOK
	if !report.OK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
