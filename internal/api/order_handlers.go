package api

import (
	"net/http"
	"strconv"

	"comanda/internal/models"
	"comanda/internal/orders"

	"github.com/gin-gonic/gin"
)

type createOrderRequest struct {
	CustomerName string             `json:"customerName"`
	TableNumber  *string            `json:"tableNumber"`
	Items        []models.OrderLine `json:"items"`
	Total        float64            `json:"total"`
}

type updateStatusRequest struct {
	OrderID uint   `json:"orderId"`
	Status  string `json:"status"`
}

// CreateOrder accepts a customer order.
func (s *Server) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	order, err := s.orders.Create(c.Request.Context(), orders.CreateInput{
		CustomerName: req.CustomerName,
		TableNumber:  req.TableNumber,
		Items:        req.Items,
		Total:        req.Total,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// ListOrders returns the latest orders, optionally filtered by ?status.
func (s *Server) ListOrders(c *gin.Context) {
	var filter *models.OrderStatus
	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseOrderStatus(raw)
		if !ok {
			badRequest(c, "unknown order status")
			return
		}
		filter = &status
	}

	list, err := s.orders.List(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetOrder returns a single order.
func (s *Server) GetOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	order, err := s.orders.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus moves an order to the status in the body.
func (s *Server) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	status, _ := models.ParseOrderStatus(req.Status)
	order, err := s.orders.SetStatus(c.Request.Context(), req.OrderID, status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetTransitions returns the status changes PATCH /orders accepts from
// each status.
func (s *Server) GetTransitions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"policy":      s.orders.Policy(),
		"transitions": s.orders.Transitions(),
	})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}
