package menu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"comanda/internal/events"
	"comanda/internal/models"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

var (
	// ErrValidation marks bad input such as an unknown menu category.
	ErrValidation = errors.New("invalid menu request")
	// ErrNotFound is returned when a menu or menu item does not exist.
	ErrNotFound = errors.New("not found")
)

// ActiveMenu is the menu currently served for a category together with
// its available items. Menu is nil when no menu of the category is active.
type ActiveMenu struct {
	Category models.MenuCategory
	Menu     *models.Menu
	Items    []models.MenuItem
}

// Service answers menu queries and applies admin menu changes. Only the
// ActivateMenu transaction is bound to the caller's context.
type Service struct {
	db        *gorm.DB
	schedule  *Schedule
	publisher events.Publisher
	now       func() time.Time
	log       logrus.FieldLogger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPublisher sets where menu change events go.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService creates a menu service over db.
func NewService(db *gorm.DB, schedule *Schedule, logger logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		db:        db,
		schedule:  schedule,
		publisher: events.Nop{},
		now:       time.Now,
		log:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule returns the schedule used to resolve the current menu.
func (s *Service) Schedule() *Schedule {
	return s.schedule
}

// CurrentCategory returns the category served right now.
func (s *Service) CurrentCategory() models.MenuCategory {
	return s.schedule.At(s.now())
}

// CurrentMenu returns the active menu for the category served right now.
func (s *Service) CurrentMenu(ctx context.Context) (*ActiveMenu, error) {
	return s.ActiveMenu(ctx, s.CurrentCategory())
}

// ActiveMenu returns the first active menu of category with its available
// items in insertion order. A category without an active menu yields an
// empty result, not an error.
func (s *Service) ActiveMenu(ctx context.Context, category models.MenuCategory) (*ActiveMenu, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown menu category %q", ErrValidation, category)
	}

	result := &ActiveMenu{Category: category, Items: []models.MenuItem{}}

	var menu models.Menu
	err := s.db.Where("type = ? AND active = ?", category, true).
		Order("created_at asc").Order("id asc").
		First(&menu).Error
	if gorm.IsRecordNotFoundError(err) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active %s menu: %w", category, err)
	}

	var items []models.MenuItem
	err = s.db.Preload("Category").
		Where("menu_id = ? AND available = ?", menu.ID, true).
		Order("created_at asc").Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("load items of menu %d: %w", menu.ID, err)
	}

	result.Menu = &menu
	if items != nil {
		result.Items = items
	}
	return result, nil
}

// ListMenus returns every menu with all of its items, available or not.
func (s *Service) ListMenus(ctx context.Context) ([]models.Menu, error) {
	var menus []models.Menu
	err := s.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at asc").Order("id asc")
	}).Preload("Items.Category").
		Order("type asc").Order("created_at asc").Order("id asc").
		Find(&menus).Error
	if err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	return menus, nil
}

// ActivateMenu makes the menu the only active one of its category.
func (s *Service) ActivateMenu(ctx context.Context, id uint) (*models.Menu, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: menu id is required", ErrValidation)
	}

	var menu models.Menu
	tx := s.db.BeginTx(ctx, nil)
	if err := tx.Error; err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	if err := tx.Where("id = ?", id).First(&menu).Error; err != nil {
		tx.Rollback()
		if gorm.IsRecordNotFoundError(err) {
			return nil, fmt.Errorf("%w: menu %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("load menu %d: %w", id, err)
	}

	// siblings first, the partial unique index allows one active row per type
	err := tx.Model(&models.Menu{}).
		Where("type = ? AND id <> ? AND active = ?", menu.Type, menu.ID, true).
		Update("active", false).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("deactivate %s menus: %w", menu.Type, err)
	}

	if err := tx.Model(&menu).Update("active", true).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("activate menu %d: %w", id, err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit menu activation: %w", err)
	}
	menu.Active = true

	s.log.WithFields(logrus.Fields{"menu_id": menu.ID, "type": menu.Type}).Info("menu activated")
	s.publisher.Publish(events.Event{
		Type:     events.MenuActivated,
		Category: menu.Type,
		MenuID:   menu.ID,
		At:       s.now(),
	})
	return &menu, nil
}

// SetItemAvailability shows or hides a menu item.
func (s *Service) SetItemAvailability(ctx context.Context, itemID uint, available bool) (*models.MenuItem, error) {
	if itemID == 0 {
		return nil, fmt.Errorf("%w: item id is required", ErrValidation)
	}

	var item models.MenuItem
	if err := s.db.Where("id = ?", itemID).First(&item).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, fmt.Errorf("%w: menu item %d", ErrNotFound, itemID)
		}
		return nil, fmt.Errorf("load menu item %d: %w", itemID, err)
	}

	if err := s.db.Model(&item).Update("available", available).Error; err != nil {
		return nil, fmt.Errorf("update menu item %d: %w", itemID, err)
	}
	item.Available = available

	var menu models.Menu
	if err := s.db.Select("id, type").Where("id = ?", item.MenuID).First(&menu).Error; err != nil && !gorm.IsRecordNotFoundError(err) {
		return nil, fmt.Errorf("load menu %d: %w", item.MenuID, err)
	}

	s.log.WithFields(logrus.Fields{"item_id": item.ID, "available": available}).Info("menu item updated")
	s.publisher.Publish(events.Event{
		Type:     events.MenuItemUpdated,
		Category: menu.Type,
		MenuID:   item.MenuID,
		ItemID:   item.ID,
		At:       s.now(),
	})
	return &item, nil
}
