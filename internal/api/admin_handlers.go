package api

import (
	"net/http"

	"comanda/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type itemUpdateRequest struct {
	IsAvailable *bool `json:"isAvailable"`
}

// Login exchanges admin credentials for a bearer token.
func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	token, user, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// GetStats returns the dashboard counters.
func (s *Server) GetStats(c *gin.Context) {
	stats, err := s.orders.Stats(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders":      stats,
		"currentMenu": s.menus.CurrentCategory(),
		"subscribers": s.hub.Count(),
	})
}

// ListMenus returns every menu with all of its items.
func (s *Server) ListMenus(c *gin.Context) {
	menus, err := s.menus.ListMenus(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, menus)
}

// ActivateMenu makes a menu the active one of its category.
func (s *Server) ActivateMenu(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	menu, err := s.menus.ActivateMenu(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.adminLog(c).WithField("menu_id", menu.ID).Info("admin activated menu")
	c.JSON(http.StatusOK, menu)
}

// UpdateMenuItem shows or hides a menu item.
func (s *Server) UpdateMenuItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req itemUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsAvailable == nil {
		badRequest(c, "isAvailable is required")
		return
	}

	item, err := s.menus.SetItemAvailability(c.Request.Context(), id, *req.IsAvailable)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.adminLog(c).WithFields(logrus.Fields{
		"item_id":   item.ID,
		"available": item.Available,
	}).Info("admin updated menu item")
	c.JSON(http.StatusOK, item)
}

// adminLog tags entries with the admin who made the request.
func (s *Server) adminLog(c *gin.Context) logrus.FieldLogger {
	entry := s.log.WithField(requestIDKey, c.GetString(requestIDKey))
	if claims, ok := auth.ClaimsFrom(c); ok {
		entry = entry.WithField("admin", claims.Email)
	}
	return entry
}
