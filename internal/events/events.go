// Package events defines the notifications the service pushes to
// kitchen and menu clients.
package events

import (
	"time"

	"comanda/internal/models"
)

// Event types
const (
	OrderCreated    = "order.created"
	OrderUpdated    = "order.updated"
	MenuActivated   = "menu.activated"
	MenuItemUpdated = "menu.item_updated"
	MenuRotated     = "menu.rotated"
)

// Event is a change notification.
type Event struct {
	Type     string              `json:"type"`
	Order    *models.Order       `json:"order,omitempty"`
	Category models.MenuCategory `json:"category,omitempty"`
	MenuID   uint                `json:"menuId,omitempty"`
	ItemID   uint                `json:"itemId,omitempty"`
	At       time.Time           `json:"at"`
}

// Publisher delivers events. Publish must not block on slow consumers.
type Publisher interface {
	Publish(ev Event)
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(Event) {}
