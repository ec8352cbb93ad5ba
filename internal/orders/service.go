// Package orders creates customer orders and moves them through the
// kitchen workflow.
package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"comanda/internal/events"
	"comanda/internal/metrics"
	"comanda/internal/models"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// ListLimit caps the number of orders returned by List.
const ListLimit = 50

// CreateInput is an order as submitted by a customer.
type CreateInput struct {
	CustomerName string
	TableNumber  *string
	Items        []models.OrderLine
	Total        float64
}

// Service persists orders and applies status changes. The context passed
// to its methods bounds the transaction of Create; single statements run
// without it.
type Service struct {
	db          *gorm.DB
	policy      Policy
	trustTotals bool
	publisher   events.Publisher
	metrics     *metrics.Collector
	now         func() time.Time
	log         logrus.FieldLogger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPublisher sets where order events go.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics records order activity on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

// WithPolicy sets the transition policy. The default is PolicyStrict.
func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithTrustedTotals stores submitted lines and totals as sent, without
// checking them against menu prices.
func WithTrustedTotals(trust bool) Option {
	return func(s *Service) { s.trustTotals = trust }
}

// NewService creates an order service over db.
func NewService(db *gorm.DB, logger logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		db:        db,
		policy:    PolicyStrict,
		publisher: events.Nop{},
		now:       time.Now,
		log:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the transition policy in effect.
func (s *Service) Policy() Policy {
	return s.policy
}

// Transitions lists, for every status, the targets SetStatus accepts under
// the service's policy.
func (s *Service) Transitions() map[models.OrderStatus][]models.OrderStatus {
	out := make(map[models.OrderStatus][]models.OrderStatus, len(models.OrderStatuses))
	for _, from := range models.OrderStatuses {
		out[from] = s.policy.Targets(from)
	}
	return out
}

// Create validates and stores a new PENDING order.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	if err := validateInput(&in); err != nil {
		s.metrics.OrderRejected("validation")
		return nil, err
	}

	lines := make([]models.OrderLine, len(in.Items))
	copy(lines, in.Items)

	if !s.trustTotals {
		if err := s.priceLines(lines); err != nil {
			s.metrics.OrderRejected("validation")
			return nil, err
		}
		if got, want := models.Cents(in.Total), models.LinesTotal(lines); got != want {
			s.metrics.OrderRejected("total_mismatch")
			return nil, fmt.Errorf("%w: submitted %.2f, computed %.2f", ErrTotalMismatch, in.Total, float64(want)/100)
		}
	}

	now := s.now().UTC()
	order := models.Order{
		CustomerName: in.CustomerName,
		TableNumber:  in.TableNumber,
		Total:        in.Total,
		Status:       models.OrderStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx := s.db.BeginTx(ctx, nil)
	if err := tx.Error; err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("create order: %w", err)
	}
	for i := range lines {
		lines[i].ID = 0
		lines[i].OrderID = order.ID
		lines[i].Position = i
		if err := tx.Create(&lines[i]).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("create line %d of order %d: %w", i, order.ID, err)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}
	order.Items = lines

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"lines":    len(lines),
		"total":    order.Total,
	}).Info("order created")
	s.metrics.OrderCreated()
	s.publisher.Publish(events.Event{Type: events.OrderCreated, Order: &order, At: now})
	return &order, nil
}

func validateInput(in *CreateInput) error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	if in.CustomerName == "" {
		return fmt.Errorf("%w: customer name is required", ErrValidation)
	}
	if in.TableNumber != nil {
		table := strings.TrimSpace(*in.TableNumber)
		if table == "" {
			in.TableNumber = nil
		} else {
			in.TableNumber = &table
		}
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: order has no items", ErrValidation)
	}
	if in.Total <= 0 {
		return fmt.Errorf("%w: total must be greater than zero", ErrValidation)
	}
	for i, l := range in.Items {
		if l.ItemID == 0 {
			return fmt.Errorf("%w: line %d has no item id", ErrValidation, i)
		}
		if l.Quantity < 1 {
			return fmt.Errorf("%w: line %d quantity must be at least 1", ErrValidation, i)
		}
		if l.Price < 0 {
			return fmt.Errorf("%w: line %d price must not be negative", ErrValidation, i)
		}
	}
	return nil
}

// priceLines replaces each line's name and unit price with the menu item's
// current values. Unknown and unavailable items are rejected.
func (s *Service) priceLines(lines []models.OrderLine) error {
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ItemID)
	}

	var items []models.MenuItem
	if err := s.db.Where("id IN (?)", ids).Find(&items).Error; err != nil {
		return fmt.Errorf("load menu items: %w", err)
	}
	byID := make(map[uint]models.MenuItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	for i := range lines {
		item, ok := byID[lines[i].ItemID]
		if !ok {
			return fmt.Errorf("%w: menu item %d does not exist", ErrValidation, lines[i].ItemID)
		}
		if !item.Available {
			return fmt.Errorf("%w: %s is not available", ErrValidation, item.Name)
		}
		lines[i].ItemName = item.Name
		lines[i].Price = item.Price
	}
	return nil
}

// List returns the most recent orders, newest first, optionally only those
// with the given status.
func (s *Service) List(ctx context.Context, status *models.OrderStatus) ([]models.Order, error) {
	q := s.db.Model(&models.Order{})
	if status != nil {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *status)
		}
		q = q.Where("status = ?", *status)
	}

	orders := []models.Order{}
	err := q.Preload("Items", orderLines).
		Order("created_at desc").Order("id desc").
		Limit(ListLimit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Get returns one order with its lines.
func (s *Service) Get(ctx context.Context, id uint) (*models.Order, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: order id is required", ErrValidation)
	}

	var order models.Order
	err := s.db.Preload("Items", orderLines).Where("id = ?", id).First(&order).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	return &order, nil
}

// SetStatus moves an order to status. The completion time is set when the
// target is COMPLETED and cleared for every other target.
func (s *Service) SetStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	if id == 0 || status == "" {
		s.metrics.OrderRejected("validation")
		return nil, fmt.Errorf("%w: order id and status are required", ErrValidation)
	}
	if !status.Valid() {
		s.metrics.OrderRejected("validation")
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.policy.Allows(current.Status, status) {
		s.metrics.OrderRejected("invalid_transition")
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, status)
	}

	return s.transition(ctx, current, status)
}

// transition writes the new status only if the order still has the status
// it was read with.
func (s *Service) transition(ctx context.Context, current *models.Order, status models.OrderStatus) (*models.Order, error) {
	now := s.now().UTC()
	var completedAt *time.Time
	if status == models.OrderStatusCompleted {
		completedAt = &now
	}

	res := s.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", current.ID, current.Status).
		UpdateColumns(map[string]interface{}{
			"status":       status,
			"completed_at": completedAt,
			"updated_at":   now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("update order %d: %w", current.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		s.metrics.OrderRejected("conflict")
		return nil, fmt.Errorf("%w: order %d is no longer %s", ErrConflict, current.ID, current.Status)
	}

	order, err := s.Get(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"from":     current.Status,
		"to":       order.Status,
	}).Info("order status changed")
	s.metrics.OrderTransition(order, current.Status)
	s.publisher.Publish(events.Event{Type: events.OrderUpdated, Order: order, At: now})
	return order, nil
}

func orderLines(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}
