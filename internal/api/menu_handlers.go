package api

import (
	"net/http"

	"comanda/internal/menu"
	"comanda/internal/models"

	"github.com/gin-gonic/gin"
)

type menuSummary struct {
	ID   uint                `json:"id"`
	Name string              `json:"name"`
	Type models.MenuCategory `json:"type"`
}

type menuResponse struct {
	Category models.MenuCategory `json:"category"`
	Menu     *menuSummary        `json:"menu,omitempty"`
	Items    []models.MenuItem   `json:"items"`
}

// GetMenu returns the active menu of ?type, or of the category the
// schedule serves right now when type is absent.
func (s *Server) GetMenu(c *gin.Context) {
	var (
		result *menu.ActiveMenu
		err    error
	)
	if raw := c.Query("type"); raw != "" {
		category, parseErr := models.ParseMenuCategory(raw)
		if parseErr != nil {
			badRequest(c, "unknown menu type")
			return
		}
		result, err = s.menus.ActiveMenu(c.Request.Context(), category)
	} else {
		result, err = s.menus.CurrentMenu(c.Request.Context())
	}
	if err != nil {
		s.respondError(c, err)
		return
	}

	resp := menuResponse{Category: result.Category, Items: result.Items}
	if result.Menu != nil {
		resp.Menu = &menuSummary{ID: result.Menu.ID, Name: result.Menu.Name, Type: result.Menu.Type}
	}
	c.JSON(http.StatusOK, resp)
}

// GetSchedule returns the configured windows and the category served now.
func (s *Server) GetSchedule(c *gin.Context) {
	schedule := s.menus.Schedule()
	c.JSON(http.StatusOK, gin.H{
		"current":  s.menus.CurrentCategory(),
		"timezone": schedule.Location().String(),
		"windows":  schedule.Windows(),
	})
}
