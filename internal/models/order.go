package models

import (
	"math"
	"strings"
	"time"
)

// Order represents a customer order as seen by the kitchen
type Order struct {
	ID           uint        `gorm:"primary_key" json:"id"`
	CustomerName string      `gorm:"not null" json:"customerName"`
	TableNumber  *string     `json:"tableNumber"`
	Items        []OrderLine `gorm:"foreignkey:OrderID" json:"items"`
	Total        float64     `gorm:"not null" json:"total"`
	Status       OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt    time.Time   `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	CompletedAt  *time.Time  `json:"completedAt"`
}

// OrderLine is a snapshot of one menu item taken when the order was placed.
// Later price changes on the menu item do not affect it.
type OrderLine struct {
	ID       uint    `gorm:"primary_key" json:"-"`
	OrderID  uint    `gorm:"index;not null" json:"-"`
	Position int     `gorm:"not null" json:"-"`
	ItemID   uint    `json:"itemId"`
	ItemName string  `json:"itemName"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Subtotal returns quantity times unit price in cents.
func (l OrderLine) Subtotal() int64 {
	return Cents(l.Price) * int64(l.Quantity)
}

// LinesTotal sums the line subtotals in cents.
func LinesTotal(lines []OrderLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

// Cents converts a currency amount to whole cents, rounding half away from zero.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// OrderStatus represents the possible states of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusInProgress,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// Valid reports whether s is one of the four lifecycle states.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Active reports whether the kitchen still has work to do on the order.
func (s OrderStatus) Active() bool {
	return s == OrderStatusPending || s == OrderStatusInProgress
}

// ParseOrderStatus normalizes s; ok is false for unknown values.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	return status, status.Valid()
}
