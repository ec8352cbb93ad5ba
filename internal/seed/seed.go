// Package seed fills an empty database with the default menus.
package seed

import (
	"context"
	"fmt"

	"comanda/internal/auth"
	"comanda/internal/models"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

type seedItem struct {
	name        string
	description string
	price       float64
	category    string
}

type seedMenu struct {
	name  string
	typ   models.MenuCategory
	items []seedItem
}

var defaultCategories = []models.Category{
	{Name: "Drinks", DisplayOrder: 1},
	{Name: "Food", DisplayOrder: 2},
	{Name: "Desserts", DisplayOrder: 3},
}

var defaultMenus = []seedMenu{
	{
		name: "Morning Café",
		typ:  models.MenuMorning,
		items: []seedItem{
			{"Americano", "Freshly brewed black coffee", 2.50, "Drinks"},
			{"Cappuccino", "Espresso with steamed milk foam", 3.50, "Drinks"},
			{"Green tea", "Organic green tea", 2.00, "Drinks"},
			{"Butter croissant", "Baked this morning", 3.00, "Food"},
			{"Avocado toast", "Sourdough with fresh avocado", 6.50, "Food"},
		},
	},
	{
		name: "Lunch of the Day",
		typ:  models.MenuMidday,
		items: []seedItem{
			{"Pasta carbonara", "Fresh pasta in a creamy carbonara sauce", 12.00, "Food"},
			{"Gourmet burger", "Angus beef, cheddar and bacon", 14.50, "Food"},
			{"Caesar salad", "Romaine, grilled chicken and croutons", 10.00, "Food"},
			{"Lemonade", "Made in house", 3.50, "Drinks"},
			{"Tiramisu", "The Italian classic", 6.00, "Desserts"},
		},
	},
	{
		name: "Evening Stand-up",
		typ:  models.MenuEvening,
		items: []seedItem{
			{"Cheese board", "Artisan cheeses with nuts", 18.00, "Food"},
			{"Shrimp ceviche", "Shrimp cured in lime", 16.50, "Food"},
			{"Mojito", "Rum, lime and fresh mint", 8.00, "Drinks"},
			{"House red", "A glass of the house reserve", 10.00, "Drinks"},
			{"Brownie sundae", "Chocolate brownie with vanilla ice cream", 7.50, "Desserts"},
		},
	},
}

// Options selects what Run creates besides the menus.
type Options struct {
	AdminEmail    string
	AdminPassword string
}

// Run creates the default categories and menus when none exist, and the
// configured admin account. It is safe to run on every start.
func Run(ctx context.Context, db *gorm.DB, admins *auth.Service, opts Options, logger logrus.FieldLogger) error {
	categories, err := ensureCategories(db)
	if err != nil {
		return err
	}

	var menuCount int
	if err := db.Model(&models.Menu{}).Count(&menuCount).Error; err != nil {
		return fmt.Errorf("count menus: %w", err)
	}
	if menuCount == 0 {
		if err := createMenus(db, categories); err != nil {
			return err
		}
		logger.WithField("menus", len(defaultMenus)).Info("default menus created")
	}

	if opts.AdminEmail != "" && opts.AdminPassword != "" {
		if _, err := admins.EnsureAdmin(ctx, opts.AdminEmail, opts.AdminPassword); err != nil {
			return err
		}
		logger.WithField("email", opts.AdminEmail).Info("admin account ready")
	}
	return nil
}

func ensureCategories(db *gorm.DB) (map[string]uint, error) {
	var count int
	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	if count == 0 {
		for _, c := range defaultCategories {
			c := c
			if err := db.Create(&c).Error; err != nil {
				return nil, fmt.Errorf("create category %s: %w", c.Name, err)
			}
		}
	}

	var existing []models.Category
	if err := db.Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	ids := make(map[string]uint, len(existing))
	for _, c := range existing {
		ids[c.Name] = c.ID
	}
	return ids, nil
}

func createMenus(db *gorm.DB, categories map[string]uint) error {
	tx := db.Begin()
	if err := tx.Error; err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	for _, m := range defaultMenus {
		menu := models.Menu{Name: m.name, Type: m.typ, Active: true}
		if err := tx.Create(&menu).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("create menu %s: %w", m.name, err)
		}
		for _, it := range m.items {
			item := models.MenuItem{
				MenuID:      menu.ID,
				CategoryID:  categories[it.category],
				Name:        it.name,
				Description: it.description,
				Price:       it.price,
				Available:   true,
			}
			if err := models.ValidateMenuItem(&item); err != nil {
				tx.Rollback()
				return err
			}
			if err := tx.Create(&item).Error; err != nil {
				tx.Rollback()
				return fmt.Errorf("create item %s: %w", it.name, err)
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}
