package models

import (
	"fmt"
	"strings"
	"time"
)

// MenuCategory identifies which of the three daily menus a Menu belongs to.
type MenuCategory string

const (
	// Menu categories
	MenuMorning MenuCategory = "MORNING"
	MenuMidday  MenuCategory = "MIDDAY"
	MenuEvening MenuCategory = "EVENING"
)

// MenuCategories lists every category in the order the day runs through them.
var MenuCategories = []MenuCategory{MenuMorning, MenuMidday, MenuEvening}

// legacy names used by the first version of the ordering site
var menuCategoryAliases = map[string]MenuCategory{
	"CAFETERIA":   MenuMorning,
	"RESTAURANTE": MenuMidday,
	"PREMIUM":     MenuEvening,
}

// Valid reports whether c is one of the known categories.
func (c MenuCategory) Valid() bool {
	switch c {
	case MenuMorning, MenuMidday, MenuEvening:
		return true
	}
	return false
}

// ParseMenuCategory parses a category name case-insensitively. The legacy
// names CAFETERIA, RESTAURANTE and PREMIUM are accepted as aliases.
func ParseMenuCategory(s string) (MenuCategory, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if c := MenuCategory(name); c.Valid() {
		return c, nil
	}
	if c, ok := menuCategoryAliases[name]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown menu category %q", s)
}

// Category groups menu items for display (drinks, food, desserts).
type Category struct {
	ID           uint      `gorm:"primary_key" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	DisplayOrder int       `json:"displayOrder"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Menu is one of the rotating menus. At most one menu per Type is active.
type Menu struct {
	ID        uint         `gorm:"primary_key" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Type      MenuCategory `gorm:"type:varchar(20);not null;index" json:"type"`
	Active    bool         `gorm:"not null" json:"isActive"`
	Items     []MenuItem   `gorm:"foreignkey:MenuID" json:"items,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// MenuItem represents a dish or drink on a menu
type MenuItem struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	MenuID      uint      `gorm:"index;not null" json:"menuId"`
	CategoryID  uint      `gorm:"index" json:"categoryId"`
	Category    *Category `gorm:"foreignkey:CategoryID" json:"category,omitempty"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	Price       float64   `gorm:"not null" json:"price"`
	Available   bool      `gorm:"not null" json:"isAvailable"`
	ImageURL    *string   `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ValidateMenuItem validates a menu item
func ValidateMenuItem(item *MenuItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("menu item name is required")
	}
	if item.Price < 0 {
		return fmt.Errorf("menu item price must not be negative")
	}
	if item.MenuID == 0 {
		return fmt.Errorf("menu item must belong to a menu")
	}
	return nil
}
